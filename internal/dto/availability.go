package dto

import "time"

// UpsertAvailabilityRequest replaces the caller's weekly slot vector for a
// session.
type UpsertAvailabilityRequest struct {
	Slots []float64 `json:"slots" binding:"required"`
}

// UpsertAvailabilityResponse echoes the stored vector.
type UpsertAvailabilityResponse struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Slots     []float64 `json:"slots"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompareAvailabilityRequest selects which memberships to compare. When
// MembershipIDs is empty the whole active pool for the session is used.
type CompareAvailabilityRequest struct {
	MembershipIDs []string `form:"membership_ids"`
	TimezoneShift float64  `form:"timezone_shift"`
	TopWindows    int      `form:"top_windows" validate:"omitempty,min=1,max=20"`
}

// ParticipantAvailability is one participant's normalized week.
type ParticipantAvailability struct {
	MembershipID string    `json:"membership_id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Slots        []float64 `json:"slots"`
	Ranges       []string  `json:"ranges"`
}

// MeetingWindow is a candidate meeting time with attendance detail.
type MeetingWindow struct {
	StartSlot   float64  `json:"start_slot"`
	EndSlot     float64  `json:"end_slot"`
	Formatted   string   `json:"formatted"`
	Available   []string `json:"available"`
	Unavailable []string `json:"unavailable"`
}

// CompareAvailabilityResponse is the full comparison result.
type CompareAvailabilityResponse struct {
	SessionID        string                    `json:"session_id"`
	Participants     []ParticipantAvailability `json:"participants"`
	CommonSlots      []float64                 `json:"common_slots"`
	CommonHours      float64                   `json:"common_hours"`
	CommonHourBlocks int                       `json:"common_hour_blocks"`
	CommonRanges     []string                  `json:"common_ranges"`
	BestWindows      []MeetingWindow           `json:"best_windows"`
}
