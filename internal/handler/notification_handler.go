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

type resultsDispatcher interface {
	DispatchOnce(ctx context.Context, sessionID string, req dto.SendResultsRequest) (*dto.SendResultsResponse, error)
	SendAcceptanceReminders(ctx context.Context, sessionID string) (*dto.RemindersResponse, error)
}

// NotificationHandler exposes result-dispatch endpoints.
type NotificationHandler struct {
	service resultsDispatcher
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// SendResults godoc
// @Summary Send session results to every participant
// @Description Dispatches at most once per session. A repeated trigger reports dispatched=false with the original timestamp.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SendResultsRequest false "Deadline override"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/results/send [post]
func (h *NotificationHandler) SendResults(c *gin.Context) {
	var req dto.SendResultsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dispatch payload"))
			return
		}
	}
	result, err := h.service.DispatchOnce(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SendReminders godoc
// @Summary Remind placed participants who have not answered
// @Tags Notifications
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/results/reminders [post]
func (h *NotificationHandler) SendReminders(c *gin.Context) {
	result, err := h.service.SendAcceptanceReminders(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
