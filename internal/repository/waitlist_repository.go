package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/djangonaut-space/indymeet-api/internal/models"
)

// WaitlistRepository persists the per-session promotion queue.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

func (r *WaitlistRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListBySession returns the waitlist in promotion order, oldest first.
func (r *WaitlistRepository) ListBySession(ctx context.Context, sessionID string) ([]models.WaitlistEntry, error) {
	const query = `SELECT id, session_id, user_id, role_intent, created_at
FROM waitlist_entries WHERE session_id = $1 ORDER BY created_at ASC, id ASC`
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, sessionID); err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	return entries, nil
}

// ListForUpdate returns the waitlist in promotion order with the rows
// locked, so two promotions cannot claim the same entry.
func (r *WaitlistRepository) ListForUpdate(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.WaitlistEntry, error) {
	const query = `SELECT id, session_id, user_id, role_intent, created_at
FROM waitlist_entries WHERE session_id = $1 ORDER BY created_at ASC, id ASC
FOR UPDATE`
	var entries []models.WaitlistEntry
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query, sessionID); err != nil {
		return nil, fmt.Errorf("lock waitlist: %w", err)
	}
	return entries, nil
}

// AddBatch appends users to a session's waitlist, skipping anyone already
// queued so a formation re-run never reorders existing entries.
func (r *WaitlistRepository) AddBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.WaitlistEntry) error {
	if len(entries) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO waitlist_entries (id, session_id, user_id, role_intent, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id, user_id) DO NOTHING`
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			// distinct timestamps keep ORDER BY created_at stable for
			// entries stamped in the same batch
			entry.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		if _, err := target.ExecContext(ctx, query,
			entry.ID, entry.SessionID, entry.UserID, entry.RoleIntent, entry.CreatedAt); err != nil {
			return fmt.Errorf("add waitlist entry: %w", err)
		}
	}
	return nil
}

// Delete removes a promoted or withdrawn entry.
func (r *WaitlistRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM waitlist_entries WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	return nil
}
