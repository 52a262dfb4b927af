package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/models"
	"github.com/djangonaut-space/indymeet-api/internal/service"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
	"github.com/djangonaut-space/indymeet-api/pkg/response"
)

type decisionRecorder interface {
	Decide(ctx context.Context, membershipID, userID, decision string, now time.Time) (*dto.DecisionResponse, error)
	SweepDeadlines(ctx context.Context, sessionID string, now time.Time) (*dto.DeadlineSweepResponse, error)
}

// MembershipHandler exposes acceptance endpoints.
type MembershipHandler struct {
	service decisionRecorder
}

// NewMembershipHandler constructs the handler.
func NewMembershipHandler(svc *service.AcceptanceService) *MembershipHandler {
	return &MembershipHandler{service: svc}
}

// Decide godoc
// @Summary Record a participant's accept or decline
// @Description A membership answers exactly once. Admins and organizers may answer on a participant's behalf.
// @Tags Acceptance
// @Accept json
// @Produce json
// @Param id path string true "Membership ID"
// @Param payload body dto.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /memberships/{id}/decision [post]
func (h *MembershipHandler) Decide(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleUser {
		actorID = claims.UserID
	}

	result, err := h.service.Decide(c.Request.Context(), c.Param("id"), actorID, req.Decision, time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SweepDeadlines godoc
// @Summary Expire overdue acceptance deadlines
// @Description Marks every overdue pending membership declined and queues promotions for the vacated seats.
// @Tags Acceptance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/deadline-sweep [post]
func (h *MembershipHandler) SweepDeadlines(c *gin.Context) {
	result, err := h.service.SweepDeadlines(c.Request.Context(), c.Param("id"), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
