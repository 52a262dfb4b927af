package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/models"
)

type stubNotificationSessions struct {
	session   *models.Session
	mu        sync.Mutex
	claimedAt *time.Time
}

func (s *stubNotificationSessions) FindByID(ctx context.Context, id string) (*models.Session, error) {
	return s.session, nil
}

func (s *stubNotificationSessions) MarkResultsDispatched(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimedAt != nil {
		return false, nil
	}
	s.claimedAt = &at
	s.session.ResultsNotificationsSentAt = &at
	return true, nil
}

type stubNotificationMemberships struct {
	members  []models.MembershipDetail
	pending  []models.MembershipDetail
	deadline *time.Time
}

func (s *stubNotificationMemberships) ListBySession(ctx context.Context, sessionID string) ([]models.MembershipDetail, error) {
	return s.members, nil
}

func (s *stubNotificationMemberships) ListPendingPlaced(ctx context.Context, sessionID string) ([]models.MembershipDetail, error) {
	return s.pending, nil
}

func (s *stubNotificationMemberships) SetAcceptanceDeadlines(ctx context.Context, sessionID string, deadline time.Time) (int, error) {
	s.deadline = &deadline
	return len(s.members), nil
}

type stubUserReader struct {
	users map[string]models.User
}

func (s *stubUserReader) FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	return s.users, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []OutboundEmail
}

func (m *recordingMailer) Send(ctx context.Context, msg OutboundEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func notificationFixture(t *testing.T) (*NotificationService, *stubNotificationSessions, *recordingMailer) {
	teamID := "t1"
	members := []models.MembershipDetail{
		{
			SessionMembership: models.SessionMembership{ID: "m1", SessionID: "s1", UserID: "u1", Role: models.RoleDjangonaut, TeamID: &teamID},
			Email:             "placed@example.com",
		},
		{
			SessionMembership: models.SessionMembership{ID: "m2", SessionID: "s1", UserID: "u2", Role: models.RoleDjangonaut},
			Email:             "rejected@example.com",
		},
		{
			SessionMembership: models.SessionMembership{ID: "m3", SessionID: "s1", UserID: "u3", Role: models.RoleOrganizer},
			Email:             "organizer@example.com",
		},
		{
			SessionMembership: models.SessionMembership{ID: "m4", SessionID: "s1", UserID: "u5", Role: models.RoleCaptain, TeamID: &teamID},
			Email:             "captain@example.com",
		},
	}
	sessions := &stubNotificationSessions{session: &models.Session{ID: "s1"}}
	mailer := &recordingMailer{}
	svc := NewNotificationService(
		sessions,
		&stubNotificationMemberships{members: members},
		&stubWaitlistStore{entries: []models.WaitlistEntry{{ID: "w1", SessionID: "s1", UserID: "u4"}}},
		&stubUserReader{users: map[string]models.User{"u4": {ID: "u4", Email: "waitlisted@example.com"}}},
		mailer,
		nil,
		nil,
		NotificationServiceConfig{DefaultDeadlineDays: 7, Workers: 1, QueueSize: 16},
	)
	return svc, sessions, mailer
}

func TestNotificationServiceDispatchOncePartitionsDecisions(t *testing.T) {
	svc, sessions, _ := notificationFixture(t)
	svc.Start(context.Background())
	defer svc.Stop()

	resp, err := svc.DispatchOnce(context.Background(), "s1", dto.SendResultsRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Dispatched)
	assert.Equal(t, 1, resp.AcceptedCount)
	assert.Equal(t, 1, resp.WaitlistedCount)
	assert.Equal(t, 1, resp.RejectedCount)
	require.NotNil(t, resp.SentAt)
	assert.NotNil(t, sessions.claimedAt)
}

// Placed captains and navigators are confirmed out of band: they get no
// accepted email, no deadline, and never count toward the partition.
func TestNotificationServiceDispatchOnceDjangonautsOnlyAccepted(t *testing.T) {
	svc, _, mailer := notificationFixture(t)
	svc.Start(context.Background())

	resp, err := svc.DispatchOnce(context.Background(), "s1", dto.SendResultsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AcceptedCount)

	svc.Stop()
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	for _, msg := range mailer.sent {
		assert.NotEqual(t, "captain@example.com", msg.Recipient)
	}
}

func TestNotificationServiceDispatchOnceSecondCallReturnsFalse(t *testing.T) {
	svc, _, _ := notificationFixture(t)
	svc.Start(context.Background())
	defer svc.Stop()

	first, err := svc.DispatchOnce(context.Background(), "s1", dto.SendResultsRequest{})
	require.NoError(t, err)
	assert.True(t, first.Dispatched)

	second, err := svc.DispatchOnce(context.Background(), "s1", dto.SendResultsRequest{})
	require.NoError(t, err)
	assert.False(t, second.Dispatched)
	assert.Equal(t, 0, second.AcceptedCount+second.WaitlistedCount+second.RejectedCount)
	require.NotNil(t, second.SentAt)
	assert.Equal(t, first.SentAt.Unix(), second.SentAt.Unix())
}

func TestNotificationServiceRemindersUsePendingPlaced(t *testing.T) {
	deadline := time.Now().UTC().Add(24 * time.Hour)
	teamID := "t1"
	pending := []models.MembershipDetail{
		{
			SessionMembership: models.SessionMembership{ID: "m1", SessionID: "s1", UserID: "u1", Role: models.RoleDjangonaut, TeamID: &teamID, AcceptanceDeadline: &deadline},
			Email:             "placed@example.com",
		},
	}
	sessions := &stubNotificationSessions{session: &models.Session{ID: "s1"}}
	mailer := &recordingMailer{}
	svc := NewNotificationService(
		sessions,
		&stubNotificationMemberships{pending: pending},
		&stubWaitlistStore{},
		&stubUserReader{},
		mailer,
		nil,
		nil,
		NotificationServiceConfig{},
	)
	svc.Start(context.Background())
	defer svc.Stop()

	resp, err := svc.SendAcceptanceReminders(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.RemindersQueued)
}
