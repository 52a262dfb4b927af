package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/models"
	"github.com/djangonaut-space/indymeet-api/internal/repository"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
)

type acceptanceMembershipStore interface {
	FindByID(ctx context.Context, id string) (*models.SessionMembership, error)
	UpdateDecision(ctx context.Context, id string, accepted bool, at time.Time) (bool, error)
	ExpireDeadlines(ctx context.Context, sessionID string, now time.Time) ([]repository.ExpiredMembership, error)
}

type vacancyEnqueuer interface {
	EnqueueVacancy(vacancy models.Vacancy) error
}

// AcceptanceService drives the Pending -> Accepted | Declined state machine.
// Terminal states are final; correcting a mistaken decline means creating a
// new membership, never reopening the old one.
type AcceptanceService struct {
	memberships acceptanceMembershipStore
	vacancies   vacancyEnqueuer
	logger      *zap.Logger
}

// NewAcceptanceService wires the state machine dependencies.
func NewAcceptanceService(memberships acceptanceMembershipStore, vacancies vacancyEnqueuer, logger *zap.Logger) *AcceptanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcceptanceService{memberships: memberships, vacancies: vacancies, logger: logger}
}

// Decide records an explicit accept or decline. Only the membership's own
// user may decide; a decline on a teamed membership queues a vacancy event.
func (s *AcceptanceService) Decide(ctx context.Context, membershipID, userID, decision string, now time.Time) (*dto.DecisionResponse, error) {
	membership, err := s.memberships.FindByID(ctx, membershipID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	if membership == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "membership not found")
	}
	if userID != "" && membership.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "membership belongs to another user")
	}
	if membership.State() != models.AcceptancePending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "membership decision already recorded")
	}

	accepted := decision == "accepted"
	if accepted && membership.DeadlineExpired(now) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "acceptance deadline has passed")
	}

	applied, err := s.memberships.UpdateDecision(ctx, membershipID, accepted, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "membership decision already recorded")
	}

	state := models.AcceptanceDeclined
	var acceptedAt *time.Time
	if accepted {
		state = models.AcceptanceAccepted
		acceptedAt = &now
	} else if membership.TeamID != nil {
		s.queueVacancy(membership.SessionID, *membership.TeamID, membership.Role)
	}

	s.logger.Sugar().Infow("membership decision recorded",
		"membership_id", membershipID, "state", state)
	return &dto.DecisionResponse{MembershipID: membershipID, State: string(state), AcceptedAt: acceptedAt}, nil
}

// SweepDeadlines declines every pending membership of the session whose
// deadline has passed. Implicit declines keep accepted_at null so they stay
// distinguishable from explicit ones. Vacated team slots are queued for
// promotion.
func (s *AcceptanceService) SweepDeadlines(ctx context.Context, sessionID string, now time.Time) (*dto.DeadlineSweepResponse, error) {
	expired, err := s.memberships.ExpireDeadlines(ctx, sessionID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep deadlines")
	}

	queued := 0
	for _, m := range expired {
		if m.TeamID == nil {
			continue
		}
		if s.queueVacancy(sessionID, *m.TeamID, m.Role) {
			queued++
		}
	}

	if len(expired) > 0 {
		s.logger.Sugar().Infow("deadline sweep complete",
			"session_id", sessionID, "expired", len(expired), "vacancies_queued", queued)
	}
	return &dto.DeadlineSweepResponse{Expired: len(expired), VacanciesQueued: queued}, nil
}

func (s *AcceptanceService) queueVacancy(sessionID, teamID string, role models.MembershipRole) bool {
	if s.vacancies == nil {
		return false
	}
	vacancy := models.Vacancy{SessionID: sessionID, TeamID: teamID, Role: role}
	if err := s.vacancies.EnqueueVacancy(vacancy); err != nil {
		s.logger.Error("failed to enqueue vacancy", zap.Error(err),
			zap.String("session_id", sessionID), zap.String("team_id", teamID))
		return false
	}
	return true
}
