package service

import (
	"fmt"
	"sort"

	"github.com/djangonaut-space/indymeet-api/internal/availability"
	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/models"
)

// TeamCapacity sets the djangonaut head count per team. Exactly one captain
// and one navigator are seated regardless.
type TeamCapacity struct {
	Djangonauts    int
	MinDjangonauts int
}

// CandidatePool is the set of applicants eligible for assignment, grouped
// by intended role and ordered by membership creation time.
type CandidatePool struct {
	SessionID   string
	Captains    []models.MembershipDetail
	Navigators  []models.MembershipDetail
	Djangonauts []models.MembershipDetail
}

// Size returns the total candidate count across roles.
func (p *CandidatePool) Size() int {
	return len(p.Captains) + len(p.Navigators) + len(p.Djangonauts)
}

// TeamProposal is one fully constrained team produced by the solver, not
// yet persisted.
type TeamProposal struct {
	ProjectID   string
	ProjectName string
	TeamName    string
	Captain     models.MembershipDetail
	Navigator   models.MembershipDetail
	Djangonauts []models.MembershipDetail

	// TeamOverlapHours is the intersection of the navigator and every
	// seated djangonaut. MinCaptainOverlap is the smallest pairwise
	// captain overlap across navigator and djangonauts.
	TeamOverlapHours  float64
	MinCaptainOverlap float64
}

// FormationOutcome aggregates every team, leftover candidate, and non-fatal
// issue from a single solver run. Issues are collected, never raised one at
// a time, so one run reports every problem found.
type FormationOutcome struct {
	Teams    []TeamProposal
	Unplaced []dto.UnplacedCandidate
	Issues   []dto.FormationIssue
}

const (
	issueOverlapUnsatisfiable = "OVERLAP_UNSATISFIABLE"
	issueRoleExhausted        = "ROLE_EXHAUSTED"

	reasonNoViableTeam  = "no team could satisfy overlap minimums with this candidate"
	reasonPoolExhausted = "no remaining project to staff"
)

// FormTeams runs the greedy constraint-satisfying allocator. Deterministic
// and side-effect free: an unchanged pool yields an identical outcome.
//
// Projects arrive ordered by descending aggregate preference count so the
// most requested projects are staffed first. Per project the solver seats a
// captain and navigator pair, then djangonauts. Candidates who declared a
// preference for the project come first, falling back to candidates open to
// any project; candidates who named other projects are never seated here,
// and overlap minimums are never relaxed.
func FormTeams(pool CandidatePool, projects []models.SessionProject, capacity TeamCapacity) FormationOutcome {
	captains := sortByApplication(pool.Captains)
	navigators := sortByApplication(pool.Navigators)
	djangonauts := sortByApplication(pool.Djangonauts)

	outcome := FormationOutcome{}
	for _, project := range projects {
		if len(captains) == 0 || len(navigators) == 0 {
			outcome.Issues = append(outcome.Issues, dto.FormationIssue{
				Code:        issueRoleExhausted,
				ProjectID:   project.ID,
				ProjectName: project.Name,
				Message:     fmt.Sprintf("no captain or navigator left for project %s", project.Name),
			})
			continue
		}

		team, ok := formTeamForProject(project, captains, navigators, djangonauts, capacity)
		if !ok {
			outcome.Issues = append(outcome.Issues, dto.FormationIssue{
				Code:        issueOverlapUnsatisfiable,
				ProjectID:   project.ID,
				ProjectName: project.Name,
				Message:     fmt.Sprintf("no willing captain, navigator, and %d+ djangonauts meet the overlap minimums for project %s", capacity.MinDjangonauts, project.Name),
			})
			continue
		}

		captains = remove(captains, team.Captain.ID)
		navigators = remove(navigators, team.Navigator.ID)
		for _, d := range team.Djangonauts {
			djangonauts = remove(djangonauts, d.ID)
		}
		outcome.Teams = append(outcome.Teams, *team)
	}

	leftoverReason := reasonNoViableTeam
	if len(outcome.Teams) == len(projects) {
		leftoverReason = reasonPoolExhausted
	}
	for _, c := range captains {
		outcome.Unplaced = append(outcome.Unplaced, unplaced(c, leftoverReason))
	}
	for _, n := range navigators {
		outcome.Unplaced = append(outcome.Unplaced, unplaced(n, leftoverReason))
	}
	for _, d := range djangonauts {
		outcome.Unplaced = append(outcome.Unplaced, unplaced(d, leftoverReason))
	}
	return outcome
}

// formTeamForProject tries captain and navigator pairs in preference-tier
// order and returns the first pair that can seat at least the minimum
// djangonaut count under the overlap constraints.
func formTeamForProject(
	project models.SessionProject,
	captains, navigators, djangonauts []models.MembershipDetail,
	capacity TeamCapacity,
) (*TeamProposal, bool) {
	orderedCaptains := tierOrder(captains, project.ID)
	orderedNavigators := tierOrder(navigators, project.ID)
	orderedDjangonauts := tierOrder(djangonauts, project.ID)

	for _, captain := range orderedCaptains {
		for _, navigator := range orderedNavigators {
			if availability.OverlapHours(captain.AvailabilitySlots, navigator.AvailabilitySlots) < models.MinCaptainOverlapHours {
				continue
			}
			seated := seatDjangonauts(captain, navigator, orderedDjangonauts, capacity)
			if len(seated) < capacity.MinDjangonauts {
				continue
			}
			return buildProposal(project, captain, navigator, seated), true
		}
	}
	return nil, false
}

// seatDjangonauts admits djangonauts one at a time. Every admission is
// re-checked against the cumulative team intersection, so a candidate who
// overlaps the navigator individually but shrinks the shared window below
// the minimum is skipped.
func seatDjangonauts(
	captain, navigator models.MembershipDetail,
	candidates []models.MembershipDetail,
	capacity TeamCapacity,
) []models.MembershipDetail {
	var seated []models.MembershipDetail
	for _, d := range candidates {
		if len(seated) == capacity.Djangonauts {
			break
		}
		if availability.OverlapHours(d.AvailabilitySlots, navigator.AvailabilitySlots) < models.MinNavigatorMeetingHours {
			continue
		}
		if availability.OverlapHours(d.AvailabilitySlots, captain.AvailabilitySlots) < models.MinCaptainOverlapHours {
			continue
		}
		if teamOverlap(navigator, append(seated, d)) < models.MinNavigatorMeetingHours {
			continue
		}
		seated = append(seated, d)
	}
	return seated
}

func buildProposal(project models.SessionProject, captain, navigator models.MembershipDetail, seated []models.MembershipDetail) *TeamProposal {
	minCaptain := availability.OverlapHours(captain.AvailabilitySlots, navigator.AvailabilitySlots)
	for _, d := range seated {
		if h := availability.OverlapHours(captain.AvailabilitySlots, d.AvailabilitySlots); h < minCaptain {
			minCaptain = h
		}
	}
	return &TeamProposal{
		ProjectID:         project.ID,
		ProjectName:       project.Name,
		TeamName:          fmt.Sprintf("Team %s", project.Name),
		Captain:           captain,
		Navigator:         navigator,
		Djangonauts:       seated,
		TeamOverlapHours:  teamOverlap(navigator, seated),
		MinCaptainOverlap: minCaptain,
	}
}

// teamOverlap is the universal-attendance intersection of the navigator and
// every seated djangonaut, in hours.
func teamOverlap(navigator models.MembershipDetail, seated []models.MembershipDetail) float64 {
	sets := make([][]float64, 0, len(seated)+1)
	sets = append(sets, navigator.AvailabilitySlots)
	for _, d := range seated {
		sets = append(sets, d.AvailabilitySlots)
	}
	return availability.GroupOverlapHours(sets...)
}

// tierOrder arranges the candidates willing to serve on a project: declared
// preference first, then "any project acceptable" (no preference rows).
// A declared preference is a hard constraint, so candidates who named other
// projects only are excluded outright. Earliest application wins inside a
// tier.
func tierOrder(candidates []models.MembershipDetail, projectID string) []models.MembershipDetail {
	ordered := make([]models.MembershipDetail, 0, len(candidates))
	for _, c := range candidates {
		if preferenceTier(c, projectID) >= 0 {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, tj := preferenceTier(ordered[i], projectID), preferenceTier(ordered[j], projectID)
		if ti != tj {
			return ti < tj
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// preferenceTier is 0 for a declared preference, 1 for candidates open to
// any project, and -1 for candidates whose preferences name other projects.
func preferenceTier(candidate models.MembershipDetail, projectID string) int {
	if len(candidate.PreferredProjectIDs) == 0 {
		return 1
	}
	for _, id := range candidate.PreferredProjectIDs {
		if id == projectID {
			return 0
		}
	}
	return -1
}

func sortByApplication(candidates []models.MembershipDetail) []models.MembershipDetail {
	ordered := make([]models.MembershipDetail, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func remove(candidates []models.MembershipDetail, id string) []models.MembershipDetail {
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func unplaced(candidate models.MembershipDetail, reason string) dto.UnplacedCandidate {
	return dto.UnplacedCandidate{
		MembershipID: candidate.ID,
		UserID:       candidate.UserID,
		Role:         string(candidate.Role),
		Reason:       reason,
	}
}
