package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/djangonaut-space/indymeet-api/internal/availability"
	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/models"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
)

type availabilityStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Availability, error)
	Upsert(ctx context.Context, availability *models.Availability) error
}

// AvailabilityService answers "when can this group meet" questions for a
// session and stores participant slot submissions. Comparison results are
// cached in Redis and invalidated whenever formation, promotion, or a slot
// revision changes the inputs.
type AvailabilityService struct {
	sessions       formationSessionReader
	memberships    formationMembershipStore
	availabilities availabilityStore
	cache          sessionCache
	logger         *zap.Logger
	ttl            time.Duration
}

// NewAvailabilityService wires comparison dependencies.
func NewAvailabilityService(
	sessions formationSessionReader,
	memberships formationMembershipStore,
	availabilities availabilityStore,
	cache sessionCache,
	logger *zap.Logger,
	ttl time.Duration,
) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AvailabilityService{
		sessions:       sessions,
		memberships:    memberships,
		availabilities: availabilities,
		cache:          cache,
		logger:         logger,
		ttl:            ttl,
	}
}

// Compare computes the group overlap and best meeting windows for the
// selected memberships, or the whole non-declined roster when none are
// named.
func (s *AvailabilityService) Compare(ctx context.Context, sessionID string, req dto.CompareAvailabilityRequest) (*dto.CompareAvailabilityResponse, error) {
	if req.TopWindows <= 0 {
		req.TopWindows = 5
	}

	key := compareCacheKey(sessionID, req)
	if s.cache != nil {
		var cached dto.CompareAvailabilityResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	members, err := s.memberships.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	selected := selectParticipants(members, req.MembershipIDs)
	if len(selected) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no matching participants to compare")
	}

	availabilities, err := s.availabilities.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availabilities")
	}
	slotsByUser := make(map[string][]float64, len(availabilities))
	for _, a := range availabilities {
		slotsByUser[a.UserID] = availability.Normalize(a.SlotValues())
	}

	resp := &dto.CompareAvailabilityResponse{SessionID: sessionID}
	sets := make([][]float64, 0, len(selected))
	windowInput := make(map[string][]float64, len(selected))
	for _, m := range selected {
		slots := slotsByUser[m.UserID]
		resp.Participants = append(resp.Participants, dto.ParticipantAvailability{
			MembershipID: m.ID,
			Name:         m.Name,
			Role:         string(m.Role),
			Slots:        slots,
			Ranges:       availability.FormatSlotRanges(slots, req.TimezoneShift),
		})
		sets = append(sets, slots)
		windowInput[m.Name] = slots
	}

	common := availability.IntersectAll(sets...)
	resp.CommonSlots = common
	resp.CommonHours = float64(len(common)) * availability.SlotIncrement
	resp.CommonHourBlocks = availability.CountHourBlocks(common)
	resp.CommonRanges = availability.FormatSlotRanges(common, req.TimezoneShift)

	for _, w := range availability.BestMeetingWindows(windowInput, req.TopWindows) {
		resp.BestWindows = append(resp.BestWindows, dto.MeetingWindow{
			StartSlot:   w.StartSlot,
			EndSlot:     w.EndSlot,
			Formatted:   w.Formatted,
			Available:   w.Available,
			Unavailable: w.Unavailable,
		})
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, key, resp, s.ttl); cacheErr != nil {
			s.logger.Warn("failed to cache availability comparison", zap.Error(cacheErr))
		}
	}
	return resp, nil
}

// SetAvailability replaces the caller's weekly slot vector for a session.
// Revisions are accepted only while the application window is open; once it
// closes the vector is frozen for formation.
func (s *AvailabilityService) SetAvailability(ctx context.Context, sessionID, userID string, slots []float64) (*dto.UpsertAvailabilityResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if !session.ValidateWindow() {
		return nil, appErrors.Clone(appErrors.ErrInternal, "session application window is misconfigured")
	}
	now := time.Now().UTC()
	if !session.IsAcceptingApplications(now) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application window is closed")
	}

	normalized := availability.Normalize(slots)
	for _, slot := range normalized {
		if slot < 0 || slot >= availability.HoursPerWeek || math.Mod(slot*2, 1) != 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("slot %.2f is not a half-hour offset within the week", slot))
		}
	}

	record := &models.Availability{
		UserID:    userID,
		SessionID: sessionID,
		Slots:     pq.Float64Array(normalized),
	}
	if err := s.availabilities.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store availability")
	}

	if s.cache != nil {
		if cacheErr := s.cache.DeleteByPattern(ctx, fmt.Sprintf("session:%s:*", sessionID)); cacheErr != nil {
			s.logger.Warn("failed to invalidate session cache", zap.Error(cacheErr))
		}
	}
	return &dto.UpsertAvailabilityResponse{
		SessionID: sessionID,
		UserID:    userID,
		Slots:     normalized,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

func selectParticipants(members []models.MembershipDetail, ids []string) []models.MembershipDetail {
	if len(ids) == 0 {
		var active []models.MembershipDetail
		for _, m := range members {
			if m.State() != models.AcceptanceDeclined && m.Role != models.RoleOrganizer {
				active = append(active, m)
			}
		}
		return active
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var selected []models.MembershipDetail
	for _, m := range members {
		if wanted[m.ID] {
			selected = append(selected, m)
		}
	}
	return selected
}

func compareCacheKey(sessionID string, req dto.CompareAvailabilityRequest) string {
	ids := make([]string, len(req.MembershipIDs))
	copy(ids, req.MembershipIDs)
	sort.Strings(ids)
	return fmt.Sprintf("session:%s:availability:compare:%s:%.1f:%d",
		sessionID, strings.Join(ids, ","), req.TimezoneShift, req.TopWindows)
}
