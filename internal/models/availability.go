package models

import (
	"time"

	"github.com/lib/pq"
)

// Availability stores a user's recurring weekly availability for a session
// as sorted half-hour slot offsets (0.0 = Sunday 00:00 UTC, 167.5 = Saturday
// 23:30 UTC). Supplied with the application, revisable until the window
// closes.
type Availability struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	SessionID string          `db:"session_id" json:"session_id"`
	Slots     pq.Float64Array `db:"slots" json:"slots"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// SlotValues returns the slots as a plain []float64 for the overlap engine.
func (a *Availability) SlotValues() []float64 {
	return []float64(a.Slots)
}
