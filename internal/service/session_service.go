package service

import (
	"context"

	"github.com/djangonaut-space/indymeet-api/internal/models"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
)

type sessionDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindBySlug(ctx context.Context, slug string) (*models.Session, error)
}

// SessionService resolves sessions for read endpoints.
type SessionService struct {
	sessions sessionDirectory
}

// NewSessionService constructs the service.
func NewSessionService(sessions sessionDirectory) *SessionService {
	return &SessionService{sessions: sessions}
}

// Find resolves a session by primary key first, then by URL slug, so links
// copied from the public site work against the API unchanged.
func (s *SessionService) Find(ctx context.Context, idOrSlug string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, idOrSlug)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		session, err = s.sessions.FindBySlug(ctx, idOrSlug)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session by slug")
		}
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return session, nil
}
