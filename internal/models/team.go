package models

import "time"

// Overlap minimums applied at formation and promotion time, in hours.
// The navigator minimum covers the intersection of the whole team
// (navigator plus every djangonaut); the captain minimum is pairwise
// between the captain and each djangonaut.
const (
	MinNavigatorMeetingHours = 5.0
	MinCaptainOverlapHours   = 3.0
)

// Team is a container for one project's cohort within a session. It owns no
// participant list; members point at it through session_memberships.team_id.
type Team struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeamDetail carries the project name alongside the team row for reports.
type TeamDetail struct {
	Team
	ProjectName string `db:"project_name" json:"project_name"`
}
