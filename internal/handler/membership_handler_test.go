package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	internalmiddleware "github.com/djangonaut-space/indymeet-api/internal/middleware"
	"github.com/djangonaut-space/indymeet-api/internal/models"
)

type decisionRecorderMock struct {
	capturedMembership string
	capturedUser       string
	capturedDecision   string
}

func (m *decisionRecorderMock) Decide(ctx context.Context, membershipID, userID, decision string, now time.Time) (*dto.DecisionResponse, error) {
	m.capturedMembership = membershipID
	m.capturedUser = userID
	m.capturedDecision = decision
	return &dto.DecisionResponse{MembershipID: membershipID, State: decision}, nil
}

func (m *decisionRecorderMock) SweepDeadlines(ctx context.Context, sessionID string, now time.Time) (*dto.DeadlineSweepResponse, error) {
	return &dto.DeadlineSweepResponse{Expired: 2, VacanciesQueued: 1}, nil
}

func TestDecideCarriesParticipantIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &decisionRecorderMock{}
	handler := &MembershipHandler{service: mockSvc}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})
		c.Next()
	})
	router.POST("/memberships/:id/decision", handler.Decide)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/memberships/m1/decision",
		bytes.NewReader([]byte(`{"decision":"accepted"}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "m1", mockSvc.capturedMembership)
	require.Equal(t, "u1", mockSvc.capturedUser)
	require.Equal(t, "accepted", mockSvc.capturedDecision)
}

func TestDecideAdminSkipsOwnershipCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &decisionRecorderMock{}
	handler := &MembershipHandler{service: mockSvc}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	router.POST("/memberships/:id/decision", handler.Decide)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/memberships/m1/decision",
		bytes.NewReader([]byte(`{"decision":"declined"}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, mockSvc.capturedUser)
}

func TestDecideInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &MembershipHandler{service: &decisionRecorderMock{}}
	router := gin.New()
	router.POST("/memberships/:id/decision", handler.Decide)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/memberships/m1/decision",
		bytes.NewReader([]byte(`{"decision":`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSweepDeadlinesReportsCounts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &MembershipHandler{service: &decisionRecorderMock{}}
	router := gin.New()
	router.POST("/sessions/:id/deadline-sweep", handler.SweepDeadlines)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/sessions/s1/deadline-sweep", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"expired":2`)
	require.Contains(t, w.Body.String(), `"vacancies_queued":1`)
}
