package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djangonaut-space/indymeet-api/internal/models"
)

func candidate(id string, role models.MembershipRole, createdAt time.Time, slots []float64, prefs ...string) models.MembershipDetail {
	return models.MembershipDetail{
		SessionMembership: models.SessionMembership{
			ID:        id,
			SessionID: "s1",
			UserID:    "user-" + id,
			Role:      role,
			CreatedAt: createdAt,
		},
		Name:                "Name " + id,
		Email:               id + "@example.com",
		AvailabilitySlots:   slots,
		PreferredProjectIDs: prefs,
	}
}

// wideSlots gives a contiguous block of half-hour slots starting at 10.0.
func wideSlots(halfHours int) []float64 {
	slots := make([]float64, halfHours)
	for i := range slots {
		slots[i] = 10.0 + float64(i)*0.5
	}
	return slots
}

func solverFixturePool(base time.Time) CandidatePool {
	shared := wideSlots(24) // 12 hours, plenty of overlap
	return CandidatePool{
		SessionID:   "s1",
		Captains:    []models.MembershipDetail{candidate("c1", models.RoleCaptain, base, shared, "p1")},
		Navigators:  []models.MembershipDetail{candidate("n1", models.RoleNavigator, base.Add(time.Minute), shared, "p1")},
		Djangonauts: []models.MembershipDetail{
			candidate("d1", models.RoleDjangonaut, base.Add(2*time.Minute), shared, "p1"),
			candidate("d2", models.RoleDjangonaut, base.Add(3*time.Minute), shared, "p1"),
			candidate("d3", models.RoleDjangonaut, base.Add(4*time.Minute), shared),
		},
	}
}

func solverProjects() []models.SessionProject {
	return []models.SessionProject{
		{Project: models.Project{ID: "p1", Name: "Alpha"}, SessionID: "s1", PreferenceCount: 4},
	}
}

func TestFormTeamsSeatsFullTeam(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	outcome := FormTeams(solverFixturePool(base), solverProjects(), TeamCapacity{Djangonauts: 3, MinDjangonauts: 2})

	require.Len(t, outcome.Teams, 1)
	team := outcome.Teams[0]
	assert.Equal(t, "c1", team.Captain.ID)
	assert.Equal(t, "n1", team.Navigator.ID)
	assert.Len(t, team.Djangonauts, 3)
	assert.GreaterOrEqual(t, team.TeamOverlapHours, models.MinNavigatorMeetingHours)
	assert.GreaterOrEqual(t, team.MinCaptainOverlap, models.MinCaptainOverlapHours)
	assert.Empty(t, outcome.Unplaced)
	assert.Empty(t, outcome.Issues)
}

func TestFormTeamsIdempotentForUnchangedPool(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	pool := solverFixturePool(base)
	projects := solverProjects()
	capacity := TeamCapacity{Djangonauts: 3, MinDjangonauts: 2}

	first := FormTeams(pool, projects, capacity)
	second := FormTeams(pool, projects, capacity)
	assert.Equal(t, first, second)
}

func TestFormTeamsNoDoubleAssignment(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	pool := solverFixturePool(base)
	pool.Captains = append(pool.Captains, candidate("c2", models.RoleCaptain, base.Add(time.Second), wideSlots(24), "p2"))
	pool.Navigators = append(pool.Navigators, candidate("n2", models.RoleNavigator, base.Add(time.Second), wideSlots(24), "p2"))
	projects := append(solverProjects(),
		models.SessionProject{Project: models.Project{ID: "p2", Name: "Beta"}, SessionID: "s1", PreferenceCount: 2})

	outcome := FormTeams(pool, projects, TeamCapacity{Djangonauts: 2, MinDjangonauts: 1})

	seen := map[string]bool{}
	for _, team := range outcome.Teams {
		for _, m := range append([]models.MembershipDetail{team.Captain, team.Navigator}, team.Djangonauts...) {
			assert.False(t, seen[m.ID], "membership %s seated twice", m.ID)
			seen[m.ID] = true
		}
	}
}

// A captain whose whole week is 1.5 hours can never give any djangonaut the
// 3 hour minimum, so the project must be reported unsatisfiable and every
// candidate left unplaced.
func TestFormTeamsReportsUnsatisfiableOverlap(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	pool := CandidatePool{
		SessionID:  "s1",
		Captains:   []models.MembershipDetail{candidate("c1", models.RoleCaptain, base, []float64{10, 10.5, 11}, "p1")},
		Navigators: []models.MembershipDetail{candidate("n1", models.RoleNavigator, base, []float64{10, 10.5, 11, 11.5, 12}, "p1")},
		Djangonauts: []models.MembershipDetail{
			candidate("d1", models.RoleDjangonaut, base, wideSlots(24), "p1"),
			candidate("d2", models.RoleDjangonaut, base, wideSlots(24), "p1"),
		},
	}

	outcome := FormTeams(pool, solverProjects(), TeamCapacity{Djangonauts: 2, MinDjangonauts: 2})

	assert.Empty(t, outcome.Teams)
	require.Len(t, outcome.Issues, 1)
	assert.Equal(t, issueOverlapUnsatisfiable, outcome.Issues[0].Code)
	assert.Equal(t, "p1", outcome.Issues[0].ProjectID)
	assert.Len(t, outcome.Unplaced, 4)
}

// A declared project preference is a hard constraint. A djangonaut whose
// only stated preference is another project stays unplaced even when that
// leaves the team short.
func TestFormTeamsDeclaredPreferenceIsHard(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	pool := CandidatePool{
		SessionID:  "s1",
		Captains:   []models.MembershipDetail{candidate("c1", models.RoleCaptain, base, wideSlots(24), "p1")},
		Navigators: []models.MembershipDetail{candidate("n1", models.RoleNavigator, base, wideSlots(24), "p1")},
		Djangonauts: []models.MembershipDetail{
			// prefers another project; must never be seated on p1
			candidate("d1", models.RoleDjangonaut, base, wideSlots(24), "p2"),
		},
	}

	outcome := FormTeams(pool, solverProjects(), TeamCapacity{Djangonauts: 2, MinDjangonauts: 1})

	assert.Empty(t, outcome.Teams)
	require.Len(t, outcome.Issues, 1)
	assert.Equal(t, issueOverlapUnsatisfiable, outcome.Issues[0].Code)
	require.Len(t, outcome.Unplaced, 3)
	ids := map[string]bool{}
	for _, u := range outcome.Unplaced {
		ids[u.MembershipID] = true
	}
	assert.True(t, ids["d1"])
}

// The fallback tier covers only candidates with no stated preference; a
// candidate who named a different project is not eligible even when seats
// remain open.
func TestFormTeamsFallsBackToOpenCandidatesOnly(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	pool := CandidatePool{
		SessionID:  "s1",
		Captains:   []models.MembershipDetail{candidate("c1", models.RoleCaptain, base, wideSlots(24), "p1")},
		Navigators: []models.MembershipDetail{candidate("n1", models.RoleNavigator, base, wideSlots(24))},
		Djangonauts: []models.MembershipDetail{
			candidate("open", models.RoleDjangonaut, base, wideSlots(24)),
			candidate("other", models.RoleDjangonaut, base, wideSlots(24), "p2"),
		},
	}

	outcome := FormTeams(pool, solverProjects(), TeamCapacity{Djangonauts: 3, MinDjangonauts: 1})

	require.Len(t, outcome.Teams, 1)
	require.Len(t, outcome.Teams[0].Djangonauts, 1)
	assert.Equal(t, "open", outcome.Teams[0].Djangonauts[0].ID)
	require.Len(t, outcome.Unplaced, 1)
	assert.Equal(t, "other", outcome.Unplaced[0].MembershipID)
}

func TestFormTeamsPrefersDeclaredPreferenceThenEarliestApplication(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	pool := CandidatePool{
		SessionID:  "s1",
		Captains:   []models.MembershipDetail{candidate("c1", models.RoleCaptain, base, wideSlots(24))},
		Navigators: []models.MembershipDetail{candidate("n1", models.RoleNavigator, base, wideSlots(24))},
		Djangonauts: []models.MembershipDetail{
			candidate("late-pref", models.RoleDjangonaut, base.Add(time.Hour), wideSlots(24), "p1"),
			candidate("early-nopref", models.RoleDjangonaut, base, wideSlots(24)),
			candidate("early-other", models.RoleDjangonaut, base, wideSlots(24), "p2"),
		},
	}

	outcome := FormTeams(pool, solverProjects(), TeamCapacity{Djangonauts: 2, MinDjangonauts: 1})

	require.Len(t, outcome.Teams, 1)
	require.Len(t, outcome.Teams[0].Djangonauts, 2)
	// declared preference wins despite the later application, then the
	// earliest no-preference candidate
	assert.Equal(t, "late-pref", outcome.Teams[0].Djangonauts[0].ID)
	assert.Equal(t, "early-nopref", outcome.Teams[0].Djangonauts[1].ID)
}

func TestFormTeamsCumulativeIntersectionGuard(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	nav := wideSlots(24) // 10.0 .. 21.5
	// d1 overlaps the navigator on the early half, d2 on the late half;
	// individually both clear 5h but together the team has no shared window.
	d1 := []float64{10, 10.5, 11, 11.5, 12, 12.5, 13, 13.5, 14, 14.5, 15}
	d2 := []float64{16, 16.5, 17, 17.5, 18, 18.5, 19, 19.5, 20, 20.5, 21}

	pool := CandidatePool{
		SessionID:  "s1",
		Captains:   []models.MembershipDetail{candidate("c1", models.RoleCaptain, base, nav)},
		Navigators: []models.MembershipDetail{candidate("n1", models.RoleNavigator, base, nav)},
		Djangonauts: []models.MembershipDetail{
			candidate("d1", models.RoleDjangonaut, base, d1),
			candidate("d2", models.RoleDjangonaut, base.Add(time.Minute), d2),
		},
	}

	outcome := FormTeams(pool, solverProjects(), TeamCapacity{Djangonauts: 2, MinDjangonauts: 1})

	require.Len(t, outcome.Teams, 1)
	require.Len(t, outcome.Teams[0].Djangonauts, 1)
	assert.Equal(t, "d1", outcome.Teams[0].Djangonauts[0].ID)
	require.Len(t, outcome.Unplaced, 1)
	assert.Equal(t, "d2", outcome.Unplaced[0].MembershipID)
}

func TestFormTeamsBelowMinimumDjangonautsFailsProject(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	pool := CandidatePool{
		SessionID:   "s1",
		Captains:    []models.MembershipDetail{candidate("c1", models.RoleCaptain, base, wideSlots(24))},
		Navigators:  []models.MembershipDetail{candidate("n1", models.RoleNavigator, base, wideSlots(24))},
		Djangonauts: []models.MembershipDetail{candidate("d1", models.RoleDjangonaut, base, wideSlots(24))},
	}

	outcome := FormTeams(pool, solverProjects(), TeamCapacity{Djangonauts: 3, MinDjangonauts: 2})

	assert.Empty(t, outcome.Teams)
	require.Len(t, outcome.Issues, 1)
	assert.Equal(t, issueOverlapUnsatisfiable, outcome.Issues[0].Code)
	assert.Len(t, outcome.Unplaced, 3)
}
