package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/djangonaut-space/indymeet-api/internal/availability"
	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/models"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
	"github.com/djangonaut-space/indymeet-api/pkg/jobs"
)

type promotionTeamReader interface {
	FindByID(ctx context.Context, id string) (*models.Team, error)
}

type promotionMembershipStore interface {
	ListActiveByTeam(ctx context.Context, exec sqlx.ExtContext, teamID string, forUpdate bool) ([]models.SessionMembership, error)
	Create(ctx context.Context, exec sqlx.ExtContext, membership *models.SessionMembership) error
}

type promotionWaitlistStore interface {
	ListForUpdate(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.WaitlistEntry, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type promotionAvailabilityReader interface {
	GetByUserSession(ctx context.Context, userID, sessionID string) (*models.Availability, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.Availability, error)
	ListOverlapping(ctx context.Context, sessionID string, slots []float64) ([]models.Availability, error)
}

type promotionObserver interface {
	ObservePromotion(promoted bool)
}

const vacancyJobType = "vacancy"

// PromotionService fills vacated team slots from the waitlist. Each vacancy
// is handled under mutual exclusion: the team roster and waitlist rows are
// locked for the duration of the transaction, and an in-process single
// worker queue serializes vacancy events.
type PromotionService struct {
	sessions       formationSessionReader
	teams          promotionTeamReader
	memberships    promotionMembershipStore
	waitlist       promotionWaitlistStore
	availabilities promotionAvailabilityReader
	cache          sessionCache
	tx             txProvider
	metrics        promotionObserver
	logger         *zap.Logger

	queue *jobs.Queue
}

// NewPromotionService wires promotion dependencies and builds the vacancy
// queue. Call Start before enqueueing vacancies.
func NewPromotionService(
	sessions formationSessionReader,
	teams promotionTeamReader,
	memberships promotionMembershipStore,
	waitlist promotionWaitlistStore,
	availabilities promotionAvailabilityReader,
	cache sessionCache,
	tx txProvider,
	metrics promotionObserver,
	logger *zap.Logger,
	queueSize int,
) *PromotionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PromotionService{
		sessions:       sessions,
		teams:          teams,
		memberships:    memberships,
		waitlist:       waitlist,
		availabilities: availabilities,
		cache:          cache,
		tx:             tx,
		metrics:        metrics,
		logger:         logger,
	}
	s.queue = jobs.NewQueue(vacancyJobType, s.handleVacancyJob, jobs.QueueConfig{
		Workers:    1,
		BufferSize: queueSize,
		Logger:     logger,
	})
	return s
}

// Start launches the vacancy worker.
func (s *PromotionService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the vacancy worker.
func (s *PromotionService) Stop() {
	s.queue.Stop()
}

// EnqueueVacancy queues a vacated slot for asynchronous promotion.
func (s *PromotionService) EnqueueVacancy(vacancy models.Vacancy) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    vacancyJobType,
		Payload: vacancy,
	})
}

func (s *PromotionService) handleVacancyJob(ctx context.Context, job jobs.Job) error {
	vacancy, ok := job.Payload.(models.Vacancy)
	if !ok {
		s.logger.Error("vacancy job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	_, err := s.PromoteNext(ctx, vacancy.SessionID, vacancy.TeamID, string(vacancy.Role))
	if err != nil && appErrors.Is(err, appErrors.ErrStaleVacancy) {
		// reported, not retried: the slot was filled by a concurrent writer
		s.logger.Sugar().Infow("vacancy already filled",
			"session_id", vacancy.SessionID, "team_id", vacancy.TeamID, "role", vacancy.Role)
		return nil
	}
	return err
}

// PromoteNext selects the earliest eligible waitlist entry for the vacancy
// and converts it into a pending membership on the vacated team. A vacancy
// found already filled returns ErrStaleVacancy after one retry against
// fresh state. No eligible entry leaves the vacancy open and reported.
func (s *PromotionService) PromoteNext(ctx context.Context, sessionID, teamID, role string) (*dto.PromoteResponse, error) {
	resp, err := s.promoteOnce(ctx, sessionID, teamID, role)
	if err != nil && appErrors.Is(err, appErrors.ErrStaleVacancy) {
		resp, err = s.promoteOnce(ctx, sessionID, teamID, role)
	}
	if s.metrics != nil {
		s.metrics.ObservePromotion(err == nil && resp != nil && resp.Promoted)
	}
	return resp, err
}

func (s *PromotionService) promoteOnce(ctx context.Context, sessionID, teamID, role string) (_ *dto.PromoteResponse, err error) {
	vacancyRole := models.MembershipRole(role)
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	team, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	if team == nil || team.SessionID != sessionID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found in session")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin promotion transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	roster, err := s.memberships.ListActiveByTeam(ctx, tx, teamID, true)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock team roster")
		return nil, err
	}
	if err = vacancyOpen(roster, vacancyRole, session.DjangonautsPerTeam); err != nil {
		return nil, err
	}

	rosterSlots, err := s.rosterAvailability(ctx, sessionID, roster)
	if err != nil {
		return nil, err
	}
	candidates, err := s.candidateSlots(ctx, sessionID, rosterSlots)
	if err != nil {
		return nil, err
	}

	entries, err := s.waitlist.ListForUpdate(ctx, tx, sessionID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock waitlist")
		return nil, err
	}

	response := &dto.PromoteResponse{TeamID: teamID, Role: role}
	entry, skipped := s.selectEntry(entries, vacancyRole, rosterSlots, candidates)
	response.Skipped = skipped
	if entry == nil {
		if err = tx.Commit(); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit promotion")
			return nil, err
		}
		s.logger.Sugar().Infow("vacancy left open, no eligible waitlist entry",
			"session_id", sessionID, "team_id", teamID, "role", role, "skipped", skipped)
		return response, nil
	}

	membership := &models.SessionMembership{
		SessionID: sessionID,
		UserID:    entry.UserID,
		Role:      vacancyRole,
		TeamID:    &teamID,
	}
	if err = s.memberships.Create(ctx, tx, membership); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create promoted membership")
		return nil, err
	}
	if err = s.waitlist.Delete(ctx, tx, entry.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove waitlist entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit promotion")
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.DeleteByPattern(ctx, fmt.Sprintf("session:%s:*", sessionID)); cacheErr != nil {
			s.logger.Warn("failed to invalidate session cache", zap.Error(cacheErr))
		}
	}
	response.Promoted = true
	response.MembershipID = &membership.ID
	s.logger.Sugar().Infow("waitlist entry promoted",
		"session_id", sessionID, "team_id", teamID, "role", role,
		"membership_id", membership.ID, "user_id", entry.UserID)
	return response, nil
}

// selectEntry walks the waitlist in creation order twice: matching role
// intent first, then untagged entries as a fallback. Entries tagged for a
// different role never fill the vacancy. Users missing from the candidate
// map were discarded by the array-overlap pre-filter and can never meet the
// minimums.
func (s *PromotionService) selectEntry(
	entries []models.WaitlistEntry,
	role models.MembershipRole,
	roster rosterSlots,
	candidates map[string][]float64,
) (*models.WaitlistEntry, int) {
	skipped := 0
	passes := []func(models.WaitlistEntry) bool{
		func(e models.WaitlistEntry) bool { return e.RoleIntent != nil && *e.RoleIntent == role },
		func(e models.WaitlistEntry) bool { return e.RoleIntent == nil },
	}
	for _, match := range passes {
		for i := range entries {
			if !match(entries[i]) {
				continue
			}
			candidate, ok := candidates[entries[i].UserID]
			if !ok || !eligibleForVacancy(candidate, role, roster) {
				skipped++
				continue
			}
			return &entries[i], skipped
		}
	}
	return nil, skipped
}

// candidateSlots loads candidate availabilities for the session in a single
// query, letting the Postgres array-overlap operator discard users who share
// no slot with the remaining roster. An empty roster vector constrains
// nobody, so the whole session is loaded instead.
func (s *PromotionService) candidateSlots(ctx context.Context, sessionID string, roster rosterSlots) (map[string][]float64, error) {
	var (
		avails []models.Availability
		err    error
	)
	if reference := roster.union(); len(reference) > 0 {
		avails, err = s.availabilities.ListOverlapping(ctx, sessionID, reference)
	} else {
		avails, err = s.availabilities.ListBySession(ctx, sessionID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate availabilities")
	}
	slots := make(map[string][]float64, len(avails))
	for _, a := range avails {
		slots[a.UserID] = availability.Normalize(a.SlotValues())
	}
	return slots, nil
}

// rosterSlots carries the availability of the remaining team, keyed by the
// roles the overlap minimums reference.
type rosterSlots struct {
	Captain     []float64
	Navigator   []float64
	Djangonauts [][]float64
	hasCaptain  bool
	hasNav      bool
}

// union merges every roster member's slots into one deduplicated vector for
// the overlap pre-filter.
func (r rosterSlots) union() []float64 {
	sets := append([][]float64{r.Captain, r.Navigator}, r.Djangonauts...)
	var merged []float64
	for _, set := range sets {
		merged = append(merged, set...)
	}
	return availability.Normalize(merged)
}

func (s *PromotionService) rosterAvailability(ctx context.Context, sessionID string, roster []models.SessionMembership) (rosterSlots, error) {
	slots := rosterSlots{}
	for _, member := range roster {
		avail, err := s.availabilities.GetByUserSession(ctx, member.UserID, sessionID)
		if err != nil {
			return slots, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster availability")
		}
		var values []float64
		if avail != nil {
			values = availability.Normalize(avail.SlotValues())
		}
		switch member.Role {
		case models.RoleCaptain:
			slots.Captain = values
			slots.hasCaptain = true
		case models.RoleNavigator:
			slots.Navigator = values
			slots.hasNav = true
		case models.RoleDjangonaut:
			slots.Djangonauts = append(slots.Djangonauts, values)
		}
	}
	return slots, nil
}

// vacancyOpen verifies the slot is still unfilled under the roster lock.
func vacancyOpen(roster []models.SessionMembership, role models.MembershipRole, djangonautCapacity int) error {
	switch role {
	case models.RoleCaptain, models.RoleNavigator:
		for _, member := range roster {
			if member.Role == role {
				return appErrors.Clone(appErrors.ErrStaleVacancy, fmt.Sprintf("%s slot already filled", role))
			}
		}
	case models.RoleDjangonaut:
		count := 0
		for _, member := range roster {
			if member.Role == models.RoleDjangonaut {
				count++
			}
		}
		if djangonautCapacity > 0 && count >= djangonautCapacity {
			return appErrors.Clone(appErrors.ErrStaleVacancy, "djangonaut slots already at capacity")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("role %s cannot be promoted into", role))
	}
	return nil
}

// eligibleForVacancy applies the same minimums as formation to the
// candidate joining the remaining team.
func eligibleForVacancy(candidate []float64, role models.MembershipRole, roster rosterSlots) bool {
	if len(candidate) == 0 {
		return false
	}
	switch role {
	case models.RoleDjangonaut:
		if roster.hasNav {
			if availability.OverlapHours(candidate, roster.Navigator) < models.MinNavigatorMeetingHours {
				return false
			}
			sets := append([][]float64{roster.Navigator, candidate}, roster.Djangonauts...)
			if availability.GroupOverlapHours(sets...) < models.MinNavigatorMeetingHours {
				return false
			}
		}
		if roster.hasCaptain && availability.OverlapHours(candidate, roster.Captain) < models.MinCaptainOverlapHours {
			return false
		}
	case models.RoleNavigator:
		sets := append([][]float64{candidate}, roster.Djangonauts...)
		if len(roster.Djangonauts) > 0 && availability.GroupOverlapHours(sets...) < models.MinNavigatorMeetingHours {
			return false
		}
		if roster.hasCaptain && availability.OverlapHours(candidate, roster.Captain) < models.MinCaptainOverlapHours {
			return false
		}
	case models.RoleCaptain:
		if roster.hasNav && availability.OverlapHours(candidate, roster.Navigator) < models.MinCaptainOverlapHours {
			return false
		}
		for _, d := range roster.Djangonauts {
			if availability.OverlapHours(candidate, d) < models.MinCaptainOverlapHours {
				return false
			}
		}
	}
	return true
}
