package dto

import "time"

// WaitlistEntryResponse is one row of the session waitlist in queue order.
type WaitlistEntryResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	RoleIntent *string   `json:"role_intent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PromoteRequest names the vacancy to fill from the waitlist.
type PromoteRequest struct {
	TeamID string `json:"team_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=djangonaut navigator captain"`
}

// PromoteResponse reports the outcome of a promotion attempt. Promoted is
// false when no eligible waitlist entry could fill the vacancy.
type PromoteResponse struct {
	Promoted     bool    `json:"promoted"`
	MembershipID *string `json:"membership_id,omitempty"`
	TeamID       string  `json:"team_id"`
	Role         string  `json:"role"`
	Skipped      int     `json:"skipped"`
}
