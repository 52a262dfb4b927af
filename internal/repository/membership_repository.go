package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/djangonaut-space/indymeet-api/internal/models"
)

const membershipColumns = `m.id, m.session_id, m.user_id, m.role, m.team_id,
m.accepted, m.accepted_at, m.acceptance_deadline, m.created_at`

// MembershipRepository persists session memberships and their acceptance
// state. Mutating methods that participate in formation or promotion
// transactions accept an sqlx.ExtContext so callers control the scope.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository constructs the repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a membership by primary key. Returns nil when absent.
func (r *MembershipRepository) FindByID(ctx context.Context, id string) (*models.SessionMembership, error) {
	query := fmt.Sprintf(`SELECT %s FROM session_memberships m WHERE m.id = $1`, membershipColumns)
	var membership models.SessionMembership
	if err := r.db.GetContext(ctx, &membership, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return &membership, nil
}

// ListPool returns the active candidate pool for a session: memberships that
// have not declined and are not yet assigned to a team, joined with the
// applicant's identity, oldest application first.
func (r *MembershipRepository) ListPool(ctx context.Context, sessionID string) ([]models.MembershipDetail, error) {
	query := fmt.Sprintf(`
SELECT %s, u.email, u.name
FROM session_memberships m
JOIN users u ON u.id = m.user_id
WHERE m.session_id = $1
	AND (m.accepted IS NULL OR m.accepted = TRUE)
	AND m.team_id IS NULL
ORDER BY m.created_at ASC, m.id ASC`, membershipColumns)

	var pool []models.MembershipDetail
	if err := r.db.SelectContext(ctx, &pool, query, sessionID); err != nil {
		return nil, fmt.Errorf("list candidate pool: %w", err)
	}
	return pool, nil
}

// ListBySession returns every membership of a session with applicant
// identity, in application order.
func (r *MembershipRepository) ListBySession(ctx context.Context, sessionID string) ([]models.MembershipDetail, error) {
	query := fmt.Sprintf(`
SELECT %s, u.email, u.name
FROM session_memberships m
JOIN users u ON u.id = m.user_id
WHERE m.session_id = $1
ORDER BY m.created_at ASC, m.id ASC`, membershipColumns)

	var memberships []models.MembershipDetail
	if err := r.db.SelectContext(ctx, &memberships, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session memberships: %w", err)
	}
	return memberships, nil
}

// ListActiveByTeam returns the non-declined members of a team. Passing a
// transaction and forUpdate locks the roster rows until commit, which is how
// promotion keeps concurrent fills of the same vacancy serialized.
func (r *MembershipRepository) ListActiveByTeam(ctx context.Context, exec sqlx.ExtContext, teamID string, forUpdate bool) ([]models.SessionMembership, error) {
	query := fmt.Sprintf(`SELECT %s FROM session_memberships m
WHERE m.team_id = $1 AND (m.accepted IS NULL OR m.accepted = TRUE)
ORDER BY m.created_at ASC`, membershipColumns)
	if forUpdate {
		query += "\nFOR UPDATE"
	}

	var members []models.SessionMembership
	if err := sqlx.SelectContext(ctx, r.exec(exec), &members, query, teamID); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

// Create inserts a membership, optionally inside a caller transaction.
func (r *MembershipRepository) Create(ctx context.Context, exec sqlx.ExtContext, membership *models.SessionMembership) error {
	if membership.ID == "" {
		membership.ID = uuid.NewString()
	}
	if membership.CreatedAt.IsZero() {
		membership.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO session_memberships (id, session_id, user_id, role, team_id, accepted, accepted_at, acceptance_deadline, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.exec(exec).ExecContext(ctx, query,
		membership.ID, membership.SessionID, membership.UserID, membership.Role,
		membership.TeamID, membership.Accepted, membership.AcceptedAt,
		membership.AcceptanceDeadline, membership.CreatedAt); err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

// AssignTeam attaches an unassigned membership to a team. Returns false when
// the row was already assigned, which callers treat as a duplicate
// assignment conflict.
func (r *MembershipRepository) AssignTeam(ctx context.Context, exec sqlx.ExtContext, membershipID, teamID string) (bool, error) {
	const query = `UPDATE session_memberships SET team_id = $1
WHERE id = $2 AND team_id IS NULL`
	res, err := r.exec(exec).ExecContext(ctx, query, teamID, membershipID)
	if err != nil {
		return false, fmt.Errorf("assign team: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign team rows: %w", err)
	}
	return affected == 1, nil
}

// UpdateDecision records an accept or decline. The WHERE clause on the NULL
// column makes the transition once-only; a second decision affects no rows.
func (r *MembershipRepository) UpdateDecision(ctx context.Context, id string, accepted bool, at time.Time) (bool, error) {
	const query = `UPDATE session_memberships SET accepted = $1, accepted_at = $2
WHERE id = $3 AND accepted IS NULL`
	res, err := r.db.ExecContext(ctx, query, accepted, at, id)
	if err != nil {
		return false, fmt.Errorf("update decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update decision rows: %w", err)
	}
	return affected == 1, nil
}

// SetAcceptanceDeadlines stamps a response deadline on every pending, placed
// djangonaut membership of a session that lacks one. Captains and navigators
// never go through the accept or decline flow. Returns the number stamped.
func (r *MembershipRepository) SetAcceptanceDeadlines(ctx context.Context, sessionID string, deadline time.Time) (int, error) {
	const query = `UPDATE session_memberships SET acceptance_deadline = $1
WHERE session_id = $2 AND role = 'Djangonaut'
	AND accepted IS NULL AND team_id IS NOT NULL AND acceptance_deadline IS NULL`
	res, err := r.db.ExecContext(ctx, query, deadline, sessionID)
	if err != nil {
		return 0, fmt.Errorf("set acceptance deadlines: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set acceptance deadlines rows: %w", err)
	}
	return int(affected), nil
}

// ListPendingPlaced returns djangonaut memberships still awaiting a decision
// that hold a team slot, joined with applicant identity. Used for reminders
// and the deadline sweep preview.
func (r *MembershipRepository) ListPendingPlaced(ctx context.Context, sessionID string) ([]models.MembershipDetail, error) {
	query := fmt.Sprintf(`
SELECT %s, u.email, u.name
FROM session_memberships m
JOIN users u ON u.id = m.user_id
WHERE m.session_id = $1 AND m.role = 'Djangonaut'
	AND m.accepted IS NULL AND m.team_id IS NOT NULL
ORDER BY m.acceptance_deadline ASC NULLS LAST, m.created_at ASC`, membershipColumns)

	var memberships []models.MembershipDetail
	if err := r.db.SelectContext(ctx, &memberships, query, sessionID); err != nil {
		return nil, fmt.Errorf("list pending placed memberships: %w", err)
	}
	return memberships, nil
}

// ExpiredMembership is a membership closed by the deadline sweep, carrying
// the team slot it vacated.
type ExpiredMembership struct {
	ID     string                `db:"id"`
	TeamID *string               `db:"team_id"`
	Role   models.MembershipRole `db:"role"`
}

// ExpireDeadlines declines every pending membership whose deadline passed.
// accepted_at stays NULL so an implicit expiry remains distinguishable from
// an explicit decline. Returns the vacated slots.
func (r *MembershipRepository) ExpireDeadlines(ctx context.Context, sessionID string, now time.Time) ([]ExpiredMembership, error) {
	const query = `UPDATE session_memberships SET accepted = FALSE
WHERE session_id = $1 AND accepted IS NULL AND acceptance_deadline IS NOT NULL AND acceptance_deadline < $2
RETURNING id, team_id, role`

	var expired []ExpiredMembership
	if err := r.db.SelectContext(ctx, &expired, query, sessionID, now); err != nil {
		return nil, fmt.Errorf("expire deadlines: %w", err)
	}
	return expired, nil
}
