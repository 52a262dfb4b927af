package service

import (
	"context"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
)

// WaitlistService answers read queries over the promotion queue. Mutations
// go through FormationService (enqueue) and PromotionService (dequeue).
type WaitlistService struct {
	sessions formationSessionReader
	waitlist notificationWaitlistReader
	users    notificationUserReader
}

// NewWaitlistService wires the read dependencies.
func NewWaitlistService(sessions formationSessionReader, waitlist notificationWaitlistReader, users notificationUserReader) *WaitlistService {
	return &WaitlistService{sessions: sessions, waitlist: waitlist, users: users}
}

// List returns the session waitlist in promotion order with user names
// resolved.
func (s *WaitlistService) List(ctx context.Context, sessionID string) ([]dto.WaitlistEntryResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	entries, err := s.waitlist.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	userIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		userIDs = append(userIDs, entry.UserID)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlisted users")
	}

	result := make([]dto.WaitlistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		item := dto.WaitlistEntryResponse{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Name:      users[entry.UserID].Name,
			CreatedAt: entry.CreatedAt,
		}
		if entry.RoleIntent != nil {
			intent := string(*entry.RoleIntent)
			item.RoleIntent = &intent
		}
		result = append(result, item)
	}
	return result, nil
}
