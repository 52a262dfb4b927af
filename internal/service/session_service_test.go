package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djangonaut-space/indymeet-api/internal/models"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
)

type stubSessionDirectory struct {
	byID   map[string]*models.Session
	bySlug map[string]*models.Session
}

func (s *stubSessionDirectory) FindByID(ctx context.Context, id string) (*models.Session, error) {
	return s.byID[id], nil
}

func (s *stubSessionDirectory) FindBySlug(ctx context.Context, slug string) (*models.Session, error) {
	return s.bySlug[slug], nil
}

func TestSessionServiceFindFallsBackToSlug(t *testing.T) {
	session := &models.Session{ID: "s1", Slug: "2026-session-1"}
	svc := NewSessionService(&stubSessionDirectory{
		byID:   map[string]*models.Session{"s1": session},
		bySlug: map[string]*models.Session{"2026-session-1": session},
	})

	byID, err := svc.Find(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", byID.ID)

	bySlug, err := svc.Find(context.Background(), "2026-session-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", bySlug.ID)
}

func TestSessionServiceFindNotFound(t *testing.T) {
	svc := NewSessionService(&stubSessionDirectory{})

	_, err := svc.Find(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
