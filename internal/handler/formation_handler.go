package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/service"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
	"github.com/djangonaut-space/indymeet-api/pkg/response"
)

type formationRunner interface {
	RunFormation(ctx context.Context, sessionID string, req dto.RunFormationRequest) (*dto.FormationReport, error)
	Report(ctx context.Context, sessionID string) (*dto.FormationReport, error)
	Export(ctx context.Context, sessionID, format string) ([]byte, string, error)
}

// FormationHandler exposes team-formation endpoints.
type FormationHandler struct {
	service formationRunner
}

// NewFormationHandler constructs the handler.
func NewFormationHandler(svc *service.FormationService) *FormationHandler {
	return &FormationHandler{service: svc}
}

// Run godoc
// @Summary Run team formation for a session
// @Description Assembles teams from the candidate pool and waitlists everyone unplaced. Re-running with an unchanged pool produces the same assignment.
// @Tags Formation
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.RunFormationRequest false "Team sizing overrides"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/formation/run [post]
func (h *FormationHandler) Run(c *gin.Context) {
	var req dto.RunFormationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid formation payload"))
			return
		}
	}
	report, err := h.service.RunFormation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Report godoc
// @Summary Latest formation report for a session
// @Tags Formation
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/formation/report [get]
func (h *FormationHandler) Report(c *gin.Context) {
	report, err := h.service.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export the formation report as CSV or PDF
// @Tags Formation
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /sessions/{id}/formation/export [get]
func (h *FormationHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("formation-%s.%s", c.Param("id"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
