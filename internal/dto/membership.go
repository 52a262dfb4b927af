package dto

import "time"

// DecisionRequest carries a participant's answer to their invitation.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accepted declined"`
}

// DecisionResponse reflects the membership after the transition.
type DecisionResponse struct {
	MembershipID string     `json:"membership_id"`
	State        string     `json:"state"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
}

// DeadlineSweepResponse reports how many pending memberships expired and how
// many vacancies were queued for promotion.
type DeadlineSweepResponse struct {
	Expired         int `json:"expired"`
	VacanciesQueued int `json:"vacancies_queued"`
}
