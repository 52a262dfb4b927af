package dto

import "time"

// RunFormationRequest optionally overrides the session's team sizing for a
// single run.
type RunFormationRequest struct {
	DjangonautsPerTeam    int `json:"djangonauts_per_team" validate:"omitempty,min=1,max=10"`
	MinDjangonautsPerTeam int `json:"min_djangonauts_per_team" validate:"omitempty,min=1,max=10"`
}

// TeamAssignment is one formed team with its seated members and the overlap
// measures it was validated against.
type TeamAssignment struct {
	TeamID                string   `json:"team_id,omitempty"`
	TeamName              string   `json:"team_name"`
	ProjectID             string   `json:"project_id"`
	ProjectName           string   `json:"project_name"`
	CaptainMembershipID   string   `json:"captain_membership_id"`
	NavigatorMembershipID string   `json:"navigator_membership_id"`
	DjangonautIDs         []string `json:"djangonaut_membership_ids"`
	NavigatorMeetingHours float64  `json:"navigator_meeting_hours"`
	MinCaptainHours       float64  `json:"min_captain_hours"`
}

// UnplacedCandidate is a pool member no team could seat; it is destined for
// the waitlist, never silently dropped.
type UnplacedCandidate struct {
	MembershipID string `json:"membership_id"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	Reason       string `json:"reason"`
}

// FormationIssue is a non-fatal problem found during a run. The solver
// collects every issue instead of stopping at the first.
type FormationIssue struct {
	Code        string `json:"code"`
	ProjectID   string `json:"project_id,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
	Message     string `json:"message"`
}

// FormationReport is the full outcome of a formation run.
type FormationReport struct {
	SessionID string              `json:"session_id"`
	Teams     []TeamAssignment    `json:"teams"`
	Unplaced  []UnplacedCandidate `json:"unplaced"`
	Issues    []FormationIssue    `json:"issues"`
	RanAt     time.Time           `json:"ran_at"`
}
