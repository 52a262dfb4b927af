package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/djangonaut-space/indymeet-api/internal/models"
)

const sessionColumns = `id, title, slug, start_date, end_date, invitation_date,
application_start_date, application_end_date, djangonauts_per_team,
min_djangonauts_per_team, results_notifications_sent_at, created_at`

// SessionRepository provides persistence for mentoring sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID fetches a session by primary key. Returns nil when absent.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// FindBySlug fetches a session by its URL slug. Returns nil when absent.
func (r *SessionRepository) FindBySlug(ctx context.Context, slug string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE slug = $1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find session by slug: %w", err)
	}
	return &session, nil
}

// MarkResultsDispatched flips results_notifications_sent_at from NULL in a
// single compare-and-set statement. It returns false when another writer
// already claimed the session.
func (r *SessionRepository) MarkResultsDispatched(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE sessions SET results_notifications_sent_at = $1
WHERE id = $2 AND results_notifications_sent_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("mark results dispatched: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark results dispatched rows: %w", err)
	}
	return affected == 1, nil
}
