package models

import "time"

// Project is a named, URL-linked unit of work. Identity is immutable: name
// is unique. Projects relate to sessions many-to-many via session_projects.
type Project struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	URL  string `db:"url" json:"url"`
}

// ProjectPreference records a user's willingness to work on a project for a
// session. A user with no preference rows for a session accepts any project.
type ProjectPreference struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionProject annotates a project offered in a session with its aggregate
// preference count, used to order projects during formation.
type SessionProject struct {
	Project
	SessionID       string `db:"session_id" json:"session_id"`
	PreferenceCount int    `db:"preference_count" json:"preference_count"`
}
