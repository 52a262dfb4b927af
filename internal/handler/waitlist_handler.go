package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/service"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
	"github.com/djangonaut-space/indymeet-api/pkg/response"
)

type waitlistReader interface {
	List(ctx context.Context, sessionID string) ([]dto.WaitlistEntryResponse, error)
}

type waitlistPromoter interface {
	PromoteNext(ctx context.Context, sessionID, teamID, role string) (*dto.PromoteResponse, error)
}

// WaitlistHandler exposes the promotion queue.
type WaitlistHandler struct {
	waitlist  waitlistReader
	promotion waitlistPromoter
}

// NewWaitlistHandler constructs the handler.
func NewWaitlistHandler(waitlist *service.WaitlistService, promotion *service.PromotionService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist, promotion: promotion}
}

// List godoc
// @Summary Session waitlist in promotion order
// @Tags Waitlist
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/waitlist [get]
func (h *WaitlistHandler) List(c *gin.Context) {
	entries, err := h.waitlist.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Promote godoc
// @Summary Fill a team vacancy from the waitlist
// @Description Promotes the earliest eligible entry into the named vacancy. Responds promoted=false when nobody on the waitlist can fill it.
// @Tags Waitlist
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.PromoteRequest true "Vacancy to fill"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/waitlist/promote [post]
func (h *WaitlistHandler) Promote(c *gin.Context) {
	var req dto.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid promotion payload"))
		return
	}
	result, err := h.promotion.PromoteNext(c.Request.Context(), c.Param("id"), req.TeamID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
