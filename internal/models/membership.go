package models

import (
	"time"
)

// MembershipRole is the role a participant holds within a session.
type MembershipRole string

const (
	RoleDjangonaut MembershipRole = "Djangonaut"
	RoleNavigator  MembershipRole = "Navigator"
	RoleCaptain    MembershipRole = "Captain"
	RoleOrganizer  MembershipRole = "Organizer"
)

// AcceptanceState is the explicit three-state acceptance machine. The
// database keeps the historical nullable-boolean column for compatibility
// with callers that read it directly; Go code works with the enum.
type AcceptanceState string

const (
	AcceptancePending  AcceptanceState = "pending"
	AcceptanceAccepted AcceptanceState = "accepted"
	AcceptanceDeclined AcceptanceState = "declined"
)

// SessionMembership ties a user to a session with a role and an optional
// team. Team membership is expressed entirely through TeamID back-references;
// Team itself holds no participant list.
type SessionMembership struct {
	ID        string         `db:"id" json:"id"`
	SessionID string         `db:"session_id" json:"session_id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Role      MembershipRole `db:"role" json:"role"`
	TeamID    *string        `db:"team_id" json:"team_id,omitempty"`

	// Accepted is tri-state: nil = pending, true = accepted, false =
	// declined. It transitions exactly once. An expired deadline without a
	// response is recorded as declined with a nil AcceptedAt.
	Accepted           *bool      `db:"accepted" json:"accepted"`
	AcceptedAt         *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	AcceptanceDeadline *time.Time `db:"acceptance_deadline" json:"acceptance_deadline,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// State maps the tri-state column onto the acceptance enum.
func (m *SessionMembership) State() AcceptanceState {
	switch {
	case m.Accepted == nil:
		return AcceptancePending
	case *m.Accepted:
		return AcceptanceAccepted
	default:
		return AcceptanceDeclined
	}
}

// DeadlineExpired reports whether a pending membership's deadline has passed.
func (m *SessionMembership) DeadlineExpired(now time.Time) bool {
	return m.State() == AcceptancePending &&
		m.AcceptanceDeadline != nil &&
		now.After(*m.AcceptanceDeadline)
}

// MembershipDetail joins a membership with the applicant's identity,
// availability, and preference set for pool building and reporting.
type MembershipDetail struct {
	SessionMembership
	Email               string    `db:"email" json:"email"`
	Name                string    `db:"name" json:"name"`
	AvailabilitySlots   []float64 `json:"availability_slots"`
	PreferredProjectIDs []string  `json:"preferred_project_ids"`
}
