package models

import (
	"time"
)

// Session represents a mentoring cohort: a time-boxed program with an
// application window and a set of available projects.
//
// ResultsNotificationsSentAt doubles as the dispatch guard: result emails
// for the session are enqueued only by the writer that flips it from NULL.
type Session struct {
	ID                         string     `db:"id" json:"id"`
	Title                      string     `db:"title" json:"title"`
	Slug                       string     `db:"slug" json:"slug"`
	StartDate                  time.Time  `db:"start_date" json:"start_date"`
	EndDate                    time.Time  `db:"end_date" json:"end_date"`
	InvitationDate             time.Time  `db:"invitation_date" json:"invitation_date"`
	ApplicationStartDate       time.Time  `db:"application_start_date" json:"application_start_date"`
	ApplicationEndDate         time.Time  `db:"application_end_date" json:"application_end_date"`
	DjangonautsPerTeam         int        `db:"djangonauts_per_team" json:"djangonauts_per_team"`
	MinDjangonautsPerTeam      int        `db:"min_djangonauts_per_team" json:"min_djangonauts_per_team"`
	ResultsNotificationsSentAt *time.Time `db:"results_notifications_sent_at" json:"results_notifications_sent_at,omitempty"`
	CreatedAt                  time.Time  `db:"created_at" json:"created_at"`
}

// IsAcceptingApplications reports whether now falls inside the application
// window, interpreted anywhere-on-earth: the window opens at UTC+12 midnight
// of the start date and closes at UTC-12 end of the end date.
func (s *Session) IsAcceptingApplications(now time.Time) bool {
	aoeEarly := time.FixedZone("AoE+12", 12*3600)
	aoeLate := time.FixedZone("AoE-12", -12*3600)
	open := time.Date(s.ApplicationStartDate.Year(), s.ApplicationStartDate.Month(), s.ApplicationStartDate.Day(), 0, 0, 0, 0, aoeEarly)
	close := time.Date(s.ApplicationEndDate.Year(), s.ApplicationEndDate.Month(), s.ApplicationEndDate.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), aoeLate)
	return !now.Before(open) && !now.After(close)
}

// ValidateWindow enforces the invariant that the application window strictly
// precedes the session start date.
func (s *Session) ValidateWindow() bool {
	return s.ApplicationStartDate.Before(s.ApplicationEndDate) &&
		s.ApplicationEndDate.Before(s.StartDate)
}

// ResultsDispatched reports whether result notifications were already sent.
func (s *Session) ResultsDispatched() bool {
	return s.ResultsNotificationsSentAt != nil
}
