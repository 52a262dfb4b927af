package models

import "time"

// WaitlistEntry is an applicant not currently assigned, ordered by creation
// time. Entries are promoted into a SessionMembership when a slot opens, or
// remain until the session's application cycle ends.
type WaitlistEntry struct {
	ID         string          `db:"id" json:"id"`
	SessionID  string          `db:"session_id" json:"session_id"`
	UserID     string          `db:"user_id" json:"user_id"`
	RoleIntent *MembershipRole `db:"role_intent" json:"role_intent,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Vacancy identifies an open role slot in a team, created by a decline,
// deadline expiry, or under-capacity formation.
type Vacancy struct {
	SessionID string         `json:"session_id"`
	TeamID    string         `json:"team_id"`
	Role      MembershipRole `json:"role"`
}
