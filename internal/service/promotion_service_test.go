package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djangonaut-space/indymeet-api/internal/availability"
	"github.com/djangonaut-space/indymeet-api/internal/models"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
)

type stubTeamReader struct {
	team *models.Team
}

func (s *stubTeamReader) FindByID(ctx context.Context, id string) (*models.Team, error) {
	return s.team, nil
}

type stubPromotionMembershipStore struct {
	roster  []models.SessionMembership
	created []*models.SessionMembership
}

func (s *stubPromotionMembershipStore) ListActiveByTeam(ctx context.Context, exec sqlx.ExtContext, teamID string, forUpdate bool) ([]models.SessionMembership, error) {
	return s.roster, nil
}

func (s *stubPromotionMembershipStore) Create(ctx context.Context, exec sqlx.ExtContext, membership *models.SessionMembership) error {
	membership.ID = "promoted-1"
	s.created = append(s.created, membership)
	return nil
}

type stubPromotionWaitlist struct {
	entries []models.WaitlistEntry
	deleted []string
}

// ListForUpdate mirrors the locked read: entries deleted by an earlier
// promotion are no longer visible.
func (s *stubPromotionWaitlist) ListForUpdate(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.WaitlistEntry, error) {
	gone := make(map[string]bool, len(s.deleted))
	for _, id := range s.deleted {
		gone[id] = true
	}
	var remaining []models.WaitlistEntry
	for _, e := range s.entries {
		if !gone[e.ID] {
			remaining = append(remaining, e)
		}
	}
	return remaining, nil
}

func (s *stubPromotionWaitlist) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubAvailabilityReader struct {
	byUser map[string][]float64
}

func (s *stubAvailabilityReader) GetByUserSession(ctx context.Context, userID, sessionID string) (*models.Availability, error) {
	slots, ok := s.byUser[userID]
	if !ok {
		return nil, nil
	}
	return &models.Availability{UserID: userID, SessionID: sessionID, Slots: pq.Float64Array(slots)}, nil
}

func (s *stubAvailabilityReader) ListBySession(ctx context.Context, sessionID string) ([]models.Availability, error) {
	var out []models.Availability
	for userID, slots := range s.byUser {
		out = append(out, models.Availability{UserID: userID, SessionID: sessionID, Slots: pq.Float64Array(slots)})
	}
	return out, nil
}

func (s *stubAvailabilityReader) ListOverlapping(ctx context.Context, sessionID string, slots []float64) ([]models.Availability, error) {
	var out []models.Availability
	for userID, candidate := range s.byUser {
		if !availability.HasOverlap(candidate, slots) {
			continue
		}
		out = append(out, models.Availability{UserID: userID, SessionID: sessionID, Slots: pq.Float64Array(candidate)})
	}
	return out, nil
}

type promotionFixture struct {
	service     *PromotionService
	memberships *stubPromotionMembershipStore
	waitlist    *stubPromotionWaitlist
}

func newPromotionFixture(t *testing.T, roster []models.SessionMembership, entries []models.WaitlistEntry, avail map[string][]float64) *promotionFixture {
	tx, mock := newTxProviderMock(t)
	// every attempt opens one transaction; allow a generous number in any order
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 4; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	memberships := &stubPromotionMembershipStore{roster: roster}
	waitlist := &stubPromotionWaitlist{entries: entries}
	svc := NewPromotionService(
		&stubSessionStore{session: &models.Session{ID: "s1", DjangonautsPerTeam: 3}},
		&stubTeamReader{team: &models.Team{ID: "t1", SessionID: "s1", ProjectID: "p1", Name: "Team Alpha"}},
		memberships,
		waitlist,
		&stubAvailabilityReader{byUser: avail},
		nil,
		tx,
		nil,
		nil,
		8,
	)
	return &promotionFixture{service: svc, memberships: memberships, waitlist: waitlist}
}

func teamRoster() []models.SessionMembership {
	return []models.SessionMembership{
		{ID: "cap", SessionID: "s1", UserID: "u-cap", Role: models.RoleCaptain, CreatedAt: time.Now()},
		{ID: "nav", SessionID: "s1", UserID: "u-nav", Role: models.RoleNavigator, CreatedAt: time.Now()},
		{ID: "dj1", SessionID: "s1", UserID: "u-dj1", Role: models.RoleDjangonaut, CreatedAt: time.Now()},
	}
}

func rosterAvail() map[string][]float64 {
	shared := wideSlots(24)
	return map[string][]float64{
		"u-cap": shared,
		"u-nav": shared,
		"u-dj1": shared,
	}
}

func TestPromotionServicePromotesEarliestEligibleEntry(t *testing.T) {
	role := models.RoleDjangonaut
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.WaitlistEntry{
		{ID: "w1", SessionID: "s1", UserID: "u-w1", RoleIntent: &role, CreatedAt: base},
		{ID: "w2", SessionID: "s1", UserID: "u-w2", RoleIntent: &role, CreatedAt: base.Add(time.Hour)},
	}
	avail := rosterAvail()
	avail["u-w1"] = wideSlots(24)
	avail["u-w2"] = wideSlots(24)
	fixture := newPromotionFixture(t, teamRoster(), entries, avail)

	resp, err := fixture.service.PromoteNext(context.Background(), "s1", "t1", "Djangonaut")
	require.NoError(t, err)
	assert.True(t, resp.Promoted)
	require.NotNil(t, resp.MembershipID)
	assert.Equal(t, "promoted-1", *resp.MembershipID)
	require.Len(t, fixture.memberships.created, 1)
	assert.Equal(t, "u-w1", fixture.memberships.created[0].UserID)
	assert.Equal(t, []string{"w1"}, fixture.waitlist.deleted)
}

func TestPromotionServiceSkipsEntriesBelowMinimums(t *testing.T) {
	role := models.RoleDjangonaut
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.WaitlistEntry{
		{ID: "w1", SessionID: "s1", UserID: "u-w1", RoleIntent: &role, CreatedAt: base},
		{ID: "w2", SessionID: "s1", UserID: "u-w2", RoleIntent: &role, CreatedAt: base.Add(time.Hour)},
	}
	avail := rosterAvail()
	avail["u-w1"] = []float64{10, 10.5} // 1 hour, below every minimum
	avail["u-w2"] = wideSlots(24)
	fixture := newPromotionFixture(t, teamRoster(), entries, avail)

	resp, err := fixture.service.PromoteNext(context.Background(), "s1", "t1", "Djangonaut")
	require.NoError(t, err)
	assert.True(t, resp.Promoted)
	assert.Equal(t, 1, resp.Skipped)
	require.Len(t, fixture.memberships.created, 1)
	assert.Equal(t, "u-w2", fixture.memberships.created[0].UserID)
}

func TestPromotionServiceFallsBackToUntaggedEntries(t *testing.T) {
	navigator := models.RoleNavigator
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.WaitlistEntry{
		{ID: "w1", SessionID: "s1", UserID: "u-w1", RoleIntent: &navigator, CreatedAt: base},
		{ID: "w2", SessionID: "s1", UserID: "u-w2", RoleIntent: nil, CreatedAt: base.Add(time.Hour)},
	}
	avail := rosterAvail()
	avail["u-w1"] = wideSlots(24)
	avail["u-w2"] = wideSlots(24)
	fixture := newPromotionFixture(t, teamRoster(), entries, avail)

	resp, err := fixture.service.PromoteNext(context.Background(), "s1", "t1", "Djangonaut")
	require.NoError(t, err)
	assert.True(t, resp.Promoted)
	// the navigator-intent entry never fills a djangonaut slot
	assert.Equal(t, "u-w2", fixture.memberships.created[0].UserID)
}

func TestPromotionServiceReportsStaleVacancy(t *testing.T) {
	roster := teamRoster()
	roster = append(roster,
		models.SessionMembership{ID: "dj2", SessionID: "s1", UserID: "u-dj2", Role: models.RoleDjangonaut},
		models.SessionMembership{ID: "dj3", SessionID: "s1", UserID: "u-dj3", Role: models.RoleDjangonaut},
	)
	fixture := newPromotionFixture(t, roster, nil, rosterAvail())

	_, err := fixture.service.PromoteNext(context.Background(), "s1", "t1", "Djangonaut")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStaleVacancy))
	assert.Empty(t, fixture.memberships.created)
}

// A candidate sharing no slot with the roster is dropped by the overlap
// pre-filter before the exact arithmetic runs.
func TestPromotionServiceSkipsEntriesOutsidePreFilter(t *testing.T) {
	role := models.RoleDjangonaut
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.WaitlistEntry{
		{ID: "w1", SessionID: "s1", UserID: "u-w1", RoleIntent: &role, CreatedAt: base},
		{ID: "w2", SessionID: "s1", UserID: "u-w2", RoleIntent: &role, CreatedAt: base.Add(time.Hour)},
	}
	avail := rosterAvail()
	avail["u-w1"] = []float64{50, 50.5, 51} // disjoint from the roster's week
	avail["u-w2"] = wideSlots(24)
	fixture := newPromotionFixture(t, teamRoster(), entries, avail)

	resp, err := fixture.service.PromoteNext(context.Background(), "s1", "t1", "Djangonaut")
	require.NoError(t, err)
	assert.True(t, resp.Promoted)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, "u-w2", fixture.memberships.created[0].UserID)
}

// Two vacancies filled back to back must consume distinct entries: the first
// promotion deletes its entry inside the transaction, so the second locked
// read never sees it again.
func TestPromotionServiceEntryConsumedAtMostOnce(t *testing.T) {
	role := models.RoleDjangonaut
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.WaitlistEntry{
		{ID: "w1", SessionID: "s1", UserID: "u-w1", RoleIntent: &role, CreatedAt: base},
		{ID: "w2", SessionID: "s1", UserID: "u-w2", RoleIntent: &role, CreatedAt: base.Add(time.Hour)},
	}
	avail := rosterAvail()
	avail["u-w1"] = wideSlots(24)
	avail["u-w2"] = wideSlots(24)
	fixture := newPromotionFixture(t, teamRoster(), entries, avail)

	first, err := fixture.service.PromoteNext(context.Background(), "s1", "t1", "Djangonaut")
	require.NoError(t, err)
	assert.True(t, first.Promoted)

	second, err := fixture.service.PromoteNext(context.Background(), "s1", "t1", "Djangonaut")
	require.NoError(t, err)
	assert.True(t, second.Promoted)

	require.Len(t, fixture.memberships.created, 2)
	assert.Equal(t, "u-w1", fixture.memberships.created[0].UserID)
	assert.Equal(t, "u-w2", fixture.memberships.created[1].UserID)
	assert.Equal(t, []string{"w1", "w2"}, fixture.waitlist.deleted)
}

func TestPromotionServiceLeavesVacancyOpenWithoutCandidates(t *testing.T) {
	fixture := newPromotionFixture(t, teamRoster(), nil, rosterAvail())

	resp, err := fixture.service.PromoteNext(context.Background(), "s1", "t1", "Djangonaut")
	require.NoError(t, err)
	assert.False(t, resp.Promoted)
	assert.Nil(t, resp.MembershipID)
	assert.Empty(t, fixture.waitlist.deleted)
}
