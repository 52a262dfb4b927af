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

// TeamRepository persists teams formed for a session.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs the repository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a team by primary key. Returns nil when absent.
func (r *TeamRepository) FindByID(ctx context.Context, id string) (*models.Team, error) {
	const query = `SELECT id, session_id, project_id, name, created_at FROM teams WHERE id = $1`
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find team: %w", err)
	}
	return &team, nil
}

// ListBySession returns a session's teams with project names for reporting.
func (r *TeamRepository) ListBySession(ctx context.Context, sessionID string) ([]models.TeamDetail, error) {
	const query = `
SELECT t.id, t.session_id, t.project_id, t.name, t.created_at, p.name AS project_name
FROM teams t
JOIN projects p ON p.id = t.project_id
WHERE t.session_id = $1
ORDER BY t.name ASC`

	var teams []models.TeamDetail
	if err := r.db.SelectContext(ctx, &teams, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session teams: %w", err)
	}
	return teams, nil
}

// CreateBatch inserts teams produced by a formation run, inside the caller's
// transaction so a failed run leaves no partial roster.
func (r *TeamRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, teams []models.Team) error {
	if len(teams) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO teams (id, session_id, project_id, name, created_at)
VALUES ($1, $2, $3, $4, $5)`
	for i := range teams {
		team := &teams[i]
		if team.ID == "" {
			team.ID = uuid.NewString()
		}
		if team.CreatedAt.IsZero() {
			team.CreatedAt = now
		}
		if _, err := target.ExecContext(ctx, query,
			team.ID, team.SessionID, team.ProjectID, team.Name, team.CreatedAt); err != nil {
			return fmt.Errorf("create team: %w", err)
		}
	}
	return nil
}
