package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/djangonaut-space/indymeet-api/internal/models"
)

// ProjectRepository provides read access to projects offered in sessions.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID fetches a project by primary key. Returns nil when absent.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	const query = `SELECT id, name, url FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &project, nil
}

// ListBySession returns the projects offered in a session annotated with
// their aggregate preference counts, most requested first. Name breaks ties
// so formation order stays stable between runs.
func (r *ProjectRepository) ListBySession(ctx context.Context, sessionID string) ([]models.SessionProject, error) {
	const query = `
SELECT
	p.id,
	p.name,
	p.url,
	sp.session_id,
	COUNT(pp.id) AS preference_count
FROM projects p
JOIN session_projects sp ON sp.project_id = p.id
LEFT JOIN project_preferences pp
	ON pp.project_id = p.id
	AND pp.session_id = sp.session_id
WHERE sp.session_id = $1
GROUP BY p.id, p.name, p.url, sp.session_id
ORDER BY preference_count DESC, p.name ASC`

	var projects []models.SessionProject
	if err := r.db.SelectContext(ctx, &projects, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session projects: %w", err)
	}
	return projects, nil
}
