package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/djangonaut-space/indymeet-api/internal/models"
)

// AvailabilityRepository persists weekly availability vectors.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// GetByUserSession fetches one user's availability for a session. Returns
// nil when the user never submitted one.
func (r *AvailabilityRepository) GetByUserSession(ctx context.Context, userID, sessionID string) (*models.Availability, error) {
	const query = `SELECT id, user_id, session_id, slots, updated_at
FROM availabilities WHERE user_id = $1 AND session_id = $2`
	var availability models.Availability
	if err := r.db.GetContext(ctx, &availability, query, userID, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return &availability, nil
}

// ListBySession returns every availability submitted for a session.
func (r *AvailabilityRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Availability, error) {
	const query = `SELECT id, user_id, session_id, slots, updated_at
FROM availabilities WHERE session_id = $1 ORDER BY user_id ASC`
	var availabilities []models.Availability
	if err := r.db.SelectContext(ctx, &availabilities, query, sessionID); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	return availabilities, nil
}

// ListOverlapping returns availabilities sharing at least one slot with the
// given vector, using the Postgres array-overlap operator as a cheap
// pre-filter. Exact overlap arithmetic happens in the engine.
func (r *AvailabilityRepository) ListOverlapping(ctx context.Context, sessionID string, slots []float64) ([]models.Availability, error) {
	const query = `SELECT id, user_id, session_id, slots, updated_at
FROM availabilities WHERE session_id = $1 AND slots && $2 ORDER BY user_id ASC`
	var availabilities []models.Availability
	if err := r.db.SelectContext(ctx, &availabilities, query, sessionID, pq.Float64Array(slots)); err != nil {
		return nil, fmt.Errorf("list overlapping availabilities: %w", err)
	}
	return availabilities, nil
}

// Upsert writes a user's availability for a session, replacing any previous
// submission.
func (r *AvailabilityRepository) Upsert(ctx context.Context, availability *models.Availability) error {
	if availability.ID == "" {
		availability.ID = uuid.NewString()
	}
	availability.UpdatedAt = time.Now().UTC()

	const query = `
INSERT INTO availabilities (id, user_id, session_id, slots, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, session_id) DO UPDATE
SET slots = EXCLUDED.slots, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query,
		availability.ID, availability.UserID, availability.SessionID,
		availability.Slots, availability.UpdatedAt); err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}
