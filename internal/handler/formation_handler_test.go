package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	internalmiddleware "github.com/djangonaut-space/indymeet-api/internal/middleware"
	"github.com/djangonaut-space/indymeet-api/internal/models"
)

type formationRunnerMock struct {
	capturedSession string
	captured        dto.RunFormationRequest
}

func (m *formationRunnerMock) RunFormation(ctx context.Context, sessionID string, req dto.RunFormationRequest) (*dto.FormationReport, error) {
	m.capturedSession = sessionID
	m.captured = req
	return &dto.FormationReport{SessionID: sessionID}, nil
}

func (m *formationRunnerMock) Report(ctx context.Context, sessionID string) (*dto.FormationReport, error) {
	return &dto.FormationReport{SessionID: sessionID}, nil
}

func (m *formationRunnerMock) Export(ctx context.Context, sessionID, format string) ([]byte, string, error) {
	return []byte("Team,Project\n"), "text/csv", nil
}

func TestFormationRunSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &formationRunnerMock{}
	handler := &FormationHandler{service: mockSvc}
	router := gin.New()
	router.POST("/sessions/:id/formation/run", handler.Run)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/sessions/s1/formation/run",
		bytes.NewReader([]byte(`{"djangonauts_per_team":3}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "s1", mockSvc.capturedSession)
	require.Equal(t, 3, mockSvc.captured.DjangonautsPerTeam)
}

func TestFormationRunInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &FormationHandler{service: &formationRunnerMock{}}
	router := gin.New()
	router.POST("/sessions/:id/formation/run", handler.Run)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/sessions/s1/formation/run",
		bytes.NewReader([]byte(`{"djangonauts_per_team":`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFormationRunUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &FormationHandler{service: &formationRunnerMock{}}
	router := gin.New()
	router.POST("/sessions/:id/formation/run",
		internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleOrganizerStaff)), handler.Run)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/sessions/s1/formation/run", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFormationRunForbiddenForParticipants(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &FormationHandler{service: &formationRunnerMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})
		c.Next()
	})
	router.POST("/sessions/:id/formation/run",
		internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleOrganizerStaff)), handler.Run)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/sessions/s1/formation/run", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestFormationExportSetsDisposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &FormationHandler{service: &formationRunnerMock{}}
	router := gin.New()
	router.GET("/sessions/:id/formation/export", handler.Export)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/sessions/s1/formation/export?format=csv", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "formation-s1.csv")
}
