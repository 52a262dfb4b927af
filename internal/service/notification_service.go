package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/models"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
	"github.com/djangonaut-space/indymeet-api/pkg/jobs"
)

// OutboundEmail is one message handed to the external mail collaborator.
// IdempotencyKey is scoped by the membership or waitlist row so a retried
// enqueue never produces a second distinct email downstream.
type OutboundEmail struct {
	IdempotencyKey string
	Recipient      string
	Kind           string
	SessionID      string
	Deadline       *time.Time
}

// Mailer is the external email-sending collaborator. Delivery is its
// problem; this service only enqueues.
type Mailer interface {
	Send(ctx context.Context, msg OutboundEmail) error
}

const (
	emailKindAccepted   = "results_accepted"
	emailKindWaitlisted = "results_waitlisted"
	emailKindRejected   = "results_rejected"
	emailKindReminder   = "acceptance_reminder"
)

type notificationSessionStore interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	MarkResultsDispatched(ctx context.Context, id string, at time.Time) (bool, error)
}

type notificationMembershipStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.MembershipDetail, error)
	ListPendingPlaced(ctx context.Context, sessionID string) ([]models.MembershipDetail, error)
	SetAcceptanceDeadlines(ctx context.Context, sessionID string, deadline time.Time) (int, error)
}

type notificationWaitlistReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.WaitlistEntry, error)
}

type notificationUserReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type dispatchObserver interface {
	ObserveDispatch(dispatched bool)
}

// NotificationServiceConfig governs the dispatch queue and default deadline.
type NotificationServiceConfig struct {
	DefaultDeadlineDays int
	Workers             int
	QueueSize           int
}

// NotificationService guards the one-shot result dispatch and feeds the
// mail queue. Semantics are at-most-once trigger, at-least-once enqueue: a
// crash after the guard flips but before every email is queued is an
// accepted gap, surfaced in logs rather than hidden.
type NotificationService struct {
	sessions    notificationSessionStore
	memberships notificationMembershipStore
	waitlist    notificationWaitlistReader
	users       notificationUserReader
	mailer      Mailer
	metrics     dispatchObserver
	logger      *zap.Logger
	config      NotificationServiceConfig

	queue *jobs.Queue
}

// NewNotificationService wires dispatch dependencies and builds the email
// queue. Call Start before dispatching.
func NewNotificationService(
	sessions notificationSessionStore,
	memberships notificationMembershipStore,
	waitlist notificationWaitlistReader,
	users notificationUserReader,
	mailer Mailer,
	metrics dispatchObserver,
	logger *zap.Logger,
	config NotificationServiceConfig,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultDeadlineDays <= 0 {
		config.DefaultDeadlineDays = 7
	}
	s := &NotificationService{
		sessions:    sessions,
		memberships: memberships,
		waitlist:    waitlist,
		users:       users,
		mailer:      mailer,
		metrics:     metrics,
		logger:      logger,
		config:      config,
	}
	s.queue = jobs.NewQueue("notifications", s.handleEmailJob, jobs.QueueConfig{
		Workers:    config.Workers,
		BufferSize: config.QueueSize,
		Logger:     logger,
	})
	return s
}

// Start launches the email workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the email workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) handleEmailJob(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(OutboundEmail)
	if !ok {
		s.logger.Error("email job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.mailer.Send(ctx, msg)
}

// DispatchOnce sends every participant's outcome exactly once per session.
// The compare-and-set on results_notifications_sent_at is the guard: the
// losing trigger observes zero updated rows and returns dispatched=false.
func (s *NotificationService) DispatchOnce(ctx context.Context, sessionID string, req dto.SendResultsRequest) (*dto.SendResultsResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	now := time.Now().UTC()
	claimed, err := s.sessions.MarkResultsDispatched(ctx, sessionID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim dispatch")
	}
	if s.metrics != nil {
		s.metrics.ObserveDispatch(claimed)
	}
	if !claimed {
		return &dto.SendResultsResponse{Dispatched: false, SentAt: session.ResultsNotificationsSentAt}, nil
	}

	days := req.DeadlineDays
	if days <= 0 {
		days = s.config.DefaultDeadlineDays
	}
	deadline := now.AddDate(0, 0, days)
	if _, err := s.memberships.SetAcceptanceDeadlines(ctx, sessionID, deadline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set acceptance deadlines")
	}

	members, err := s.memberships.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	entries, err := s.waitlist.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}

	waitlistedUsers := make(map[string]string, len(entries))
	userIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		waitlistedUsers[entry.UserID] = entry.ID
		userIDs = append(userIDs, entry.UserID)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlisted users")
	}

	resp := &dto.SendResultsResponse{Dispatched: true, SentAt: &now}
	for _, m := range members {
		if m.Role == models.RoleOrganizer {
			continue
		}
		if _, onWaitlist := waitlistedUsers[m.UserID]; onWaitlist {
			continue
		}
		if m.TeamID != nil && m.State() != models.AcceptanceDeclined {
			// the accept or decline flow is djangonaut-only; placed
			// captains and navigators are confirmed out of band
			if m.Role != models.RoleDjangonaut {
				continue
			}
			s.enqueueEmail(OutboundEmail{
				IdempotencyKey: fmt.Sprintf("%s:%s", emailKindAccepted, m.ID),
				Recipient:      m.Email,
				Kind:           emailKindAccepted,
				SessionID:      sessionID,
				Deadline:       &deadline,
			})
			resp.AcceptedCount++
			continue
		}
		s.enqueueEmail(OutboundEmail{
			IdempotencyKey: fmt.Sprintf("%s:%s", emailKindRejected, m.ID),
			Recipient:      m.Email,
			Kind:           emailKindRejected,
			SessionID:      sessionID,
		})
		resp.RejectedCount++
	}
	for _, entry := range entries {
		user, ok := users[entry.UserID]
		if !ok {
			s.logger.Warn("waitlist entry without user row", zap.String("entry_id", entry.ID))
			continue
		}
		s.enqueueEmail(OutboundEmail{
			IdempotencyKey: fmt.Sprintf("%s:%s", emailKindWaitlisted, entry.ID),
			Recipient:      user.Email,
			Kind:           emailKindWaitlisted,
			SessionID:      sessionID,
		})
		resp.WaitlistedCount++
	}

	s.logger.Sugar().Infow("session results dispatched",
		"session_id", sessionID,
		"accepted", resp.AcceptedCount, "waitlisted", resp.WaitlistedCount, "rejected", resp.RejectedCount)
	return resp, nil
}

// SendAcceptanceReminders queues a reminder for every placed djangonaut
// still awaiting a decision.
func (s *NotificationService) SendAcceptanceReminders(ctx context.Context, sessionID string) (*dto.RemindersResponse, error) {
	pending, err := s.memberships.ListPendingPlaced(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending memberships")
	}

	resp := &dto.RemindersResponse{}
	for _, m := range pending {
		s.enqueueEmail(OutboundEmail{
			IdempotencyKey: fmt.Sprintf("%s:%s", emailKindReminder, m.ID),
			Recipient:      m.Email,
			Kind:           emailKindReminder,
			SessionID:      sessionID,
			Deadline:       m.AcceptanceDeadline,
		})
		resp.RemindersQueued++
	}
	return resp, nil
}

func (s *NotificationService) enqueueEmail(msg OutboundEmail) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      msg.IdempotencyKey,
		Type:    msg.Kind,
		Payload: msg,
	})
	if err != nil {
		// the dispatch flag is already set; log the miss, never retrigger
		s.logger.Error("failed to enqueue email", zap.Error(err),
			zap.String("idempotency_key", msg.IdempotencyKey))
	}
}
