package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/middleware"
	"github.com/djangonaut-space/indymeet-api/internal/service"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
	"github.com/djangonaut-space/indymeet-api/pkg/response"
)

type availabilityComparer interface {
	Compare(ctx context.Context, sessionID string, req dto.CompareAvailabilityRequest) (*dto.CompareAvailabilityResponse, error)
}

type availabilityWriter interface {
	SetAvailability(ctx context.Context, sessionID, userID string, slots []float64) (*dto.UpsertAvailabilityResponse, error)
}

// AvailabilityHandler exposes availability comparison and submission
// endpoints.
type AvailabilityHandler struct {
	service availabilityComparer
	writer  availabilityWriter
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc, writer: svc}
}

// Compare godoc
// @Summary Compare participant availability within a session
// @Description Computes the common half-hour slots and the best meeting windows for the named memberships, or for the whole active roster when none are named.
// @Tags Availability
// @Produce json
// @Param id path string true "Session ID"
// @Param membership_ids query []string false "Membership IDs to compare"
// @Param timezone_shift query number false "Hour offset applied to formatted ranges"
// @Param top_windows query int false "Number of best windows to return" default(5)
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/availability/compare [get]
func (h *AvailabilityHandler) Compare(c *gin.Context) {
	var req dto.CompareAvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comparison query"))
		return
	}
	result, err := h.service.Compare(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Upsert godoc
// @Summary Submit or revise the caller's weekly availability
// @Description Replaces the authenticated user's half-hour slot vector for the session. Rejected once the application window closes.
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.UpsertAvailabilityRequest true "Slot vector"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/availability [put]
func (h *AvailabilityHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return
	}
	var req dto.UpsertAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	result, err := h.writer.SetAvailability(c.Request.Context(), c.Param("id"), claims.UserID, req.Slots)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}
