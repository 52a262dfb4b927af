package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/djangonaut-space/indymeet-api/internal/models"
)

// PreferenceRepository provides read access to project preferences.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// ListBySession returns every preference recorded for a session, grouped by
// user in a stable order.
func (r *PreferenceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.ProjectPreference, error) {
	const query = `SELECT id, user_id, session_id, project_id, created_at
FROM project_preferences WHERE session_id = $1 ORDER BY user_id ASC, created_at ASC`
	var preferences []models.ProjectPreference
	if err := r.db.SelectContext(ctx, &preferences, query, sessionID); err != nil {
		return nil, fmt.Errorf("list project preferences: %w", err)
	}
	return preferences, nil
}

// ListByUserSession returns one user's preferences for a session.
func (r *PreferenceRepository) ListByUserSession(ctx context.Context, userID, sessionID string) ([]models.ProjectPreference, error) {
	const query = `SELECT id, user_id, session_id, project_id, created_at
FROM project_preferences WHERE user_id = $1 AND session_id = $2 ORDER BY created_at ASC`
	var preferences []models.ProjectPreference
	if err := r.db.SelectContext(ctx, &preferences, query, userID, sessionID); err != nil {
		return nil, fmt.Errorf("list user preferences: %w", err)
	}
	return preferences, nil
}
