package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/djangonaut-space/indymeet-api/internal/models"
	"github.com/djangonaut-space/indymeet-api/internal/service"
	"github.com/djangonaut-space/indymeet-api/pkg/response"
)

type sessionFinder interface {
	Find(ctx context.Context, idOrSlug string) (*models.Session, error)
}

// SessionHandler exposes session lookups.
type SessionHandler struct {
	service sessionFinder
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Get godoc
// @Summary Fetch a session by ID or slug
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID or slug"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
