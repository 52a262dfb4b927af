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

type availabilityServiceMock struct {
	capturedUser  string
	capturedSlots []float64
}

func (m *availabilityServiceMock) Compare(ctx context.Context, sessionID string, req dto.CompareAvailabilityRequest) (*dto.CompareAvailabilityResponse, error) {
	return &dto.CompareAvailabilityResponse{SessionID: sessionID}, nil
}

func (m *availabilityServiceMock) SetAvailability(ctx context.Context, sessionID, userID string, slots []float64) (*dto.UpsertAvailabilityResponse, error) {
	m.capturedUser = userID
	m.capturedSlots = slots
	return &dto.UpsertAvailabilityResponse{SessionID: sessionID, UserID: userID, Slots: slots}, nil
}

// The comparison exposes the whole roster's names and weeks, so it stays
// behind the staff roles.
func TestCompareForbiddenForParticipants(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &AvailabilityHandler{service: &availabilityServiceMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})
		c.Next()
	})
	router.GET("/sessions/:id/availability/compare",
		internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleOrganizerStaff)), handler.Compare)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/sessions/s1/availability/compare", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpsertUsesCallerIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &availabilityServiceMock{}
	handler := &AvailabilityHandler{service: mockSvc, writer: mockSvc}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})
		c.Next()
	})
	router.PUT("/sessions/:id/availability", handler.Upsert)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/sessions/s1/availability",
		bytes.NewReader([]byte(`{"slots":[10.0,10.5]}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "u1", mockSvc.capturedUser)
	require.Equal(t, []float64{10.0, 10.5}, mockSvc.capturedSlots)
}

func TestUpsertRequiresAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &availabilityServiceMock{}
	handler := &AvailabilityHandler{service: mockSvc, writer: mockSvc}
	router := gin.New()
	router.PUT("/sessions/:id/availability", handler.Upsert)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/sessions/s1/availability",
		bytes.NewReader([]byte(`{"slots":[10.0]}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
