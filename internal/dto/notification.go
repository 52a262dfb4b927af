package dto

import "time"

// SendResultsRequest triggers the one-shot result notification dispatch.
type SendResultsRequest struct {
	DeadlineDays int `json:"deadline_days" validate:"omitempty,min=1,max=60"`
}

// SendResultsResponse reports what the dispatch enqueued. Dispatched is
// false when another trigger already claimed the session.
type SendResultsResponse struct {
	Dispatched      bool       `json:"dispatched"`
	AcceptedCount   int        `json:"accepted_count"`
	WaitlistedCount int        `json:"waitlisted_count"`
	RejectedCount   int        `json:"rejected_count"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
}

// RemindersResponse reports how many acceptance reminders were enqueued.
type RemindersResponse struct {
	RemindersQueued int `json:"reminders_queued"`
}
