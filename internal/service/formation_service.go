package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/djangonaut-space/indymeet-api/internal/availability"
	"github.com/djangonaut-space/indymeet-api/internal/dto"
	"github.com/djangonaut-space/indymeet-api/internal/models"
	appErrors "github.com/djangonaut-space/indymeet-api/pkg/errors"
	"github.com/djangonaut-space/indymeet-api/pkg/export"
)

type formationSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type formationMembershipStore interface {
	ListPool(ctx context.Context, sessionID string) ([]models.MembershipDetail, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.MembershipDetail, error)
	AssignTeam(ctx context.Context, exec sqlx.ExtContext, membershipID, teamID string) (bool, error)
}

type formationTeamStore interface {
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, teams []models.Team) error
	ListBySession(ctx context.Context, sessionID string) ([]models.TeamDetail, error)
}

type formationProjectLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.SessionProject, error)
}

type formationPreferenceLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.ProjectPreference, error)
}

type formationAvailabilityLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Availability, error)
}

type formationWaitlistStore interface {
	AddBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.WaitlistEntry) error
	ListBySession(ctx context.Context, sessionID string) ([]models.WaitlistEntry, error)
}

type sessionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type formationObserver interface {
	ObserveFormationRun(teams, unplaced int)
}

// FormationServiceConfig carries team sizing fallbacks and report cache TTL.
type FormationServiceConfig struct {
	Defaults  TeamCapacity
	ReportTTL time.Duration
}

// FormationService builds candidate pools, runs the solver, and persists the
// resulting teams in a single transaction.
type FormationService struct {
	sessions      formationSessionReader
	memberships   formationMembershipStore
	teams         formationTeamStore
	projects      formationProjectLister
	preferences   formationPreferenceLister
	availabilites formationAvailabilityLister
	waitlist      formationWaitlistStore
	cache         sessionCache
	tx            txProvider
	metrics       formationObserver
	validator     *validator.Validate
	logger        *zap.Logger
	config        FormationServiceConfig

	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewFormationService wires solver dependencies.
func NewFormationService(
	sessions formationSessionReader,
	memberships formationMembershipStore,
	teams formationTeamStore,
	projects formationProjectLister,
	preferences formationPreferenceLister,
	availabilities formationAvailabilityLister,
	waitlist formationWaitlistStore,
	cache sessionCache,
	tx txProvider,
	metrics formationObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	config FormationServiceConfig,
) *FormationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Defaults.Djangonauts <= 0 {
		config.Defaults.Djangonauts = 3
	}
	if config.Defaults.MinDjangonauts <= 0 {
		config.Defaults.MinDjangonauts = 2
	}
	if config.ReportTTL <= 0 {
		config.ReportTTL = 10 * time.Minute
	}
	return &FormationService{
		sessions:      sessions,
		memberships:   memberships,
		teams:         teams,
		projects:      projects,
		preferences:   preferences,
		availabilites: availabilities,
		waitlist:      waitlist,
		cache:         cache,
		tx:            tx,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		config:        config,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
	}
}

// BuildPool collects the session's pending and accepted unteamed
// memberships, annotated with availability and preferences, grouped by
// role. Fails when a required role cannot staff the session's projects.
func (s *FormationService) BuildPool(ctx context.Context, sessionID string) (CandidatePool, []models.SessionProject, error) {
	pool := CandidatePool{SessionID: sessionID}

	projects, err := s.projects.ListBySession(ctx, sessionID)
	if err != nil {
		return pool, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session projects")
	}

	members, err := s.memberships.ListPool(ctx, sessionID)
	if err != nil {
		return pool, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list candidate pool")
	}

	if err := s.annotate(ctx, sessionID, members); err != nil {
		return pool, nil, err
	}

	for _, m := range members {
		switch m.Role {
		case models.RoleCaptain:
			pool.Captains = append(pool.Captains, m)
		case models.RoleNavigator:
			pool.Navigators = append(pool.Navigators, m)
		case models.RoleDjangonaut:
			pool.Djangonauts = append(pool.Djangonauts, m)
		}
	}

	var missing []string
	if len(pool.Captains) < len(projects) {
		missing = append(missing, fmt.Sprintf("Captain (%d of %d)", len(pool.Captains), len(projects)))
	}
	if len(pool.Navigators) < len(projects) {
		missing = append(missing, fmt.Sprintf("Navigator (%d of %d)", len(pool.Navigators), len(projects)))
	}
	if len(missing) > 0 {
		return pool, projects, appErrors.Clone(appErrors.ErrIncompleteApplication,
			fmt.Sprintf("required roles short of the %d open teams: %s", len(projects), strings.Join(missing, ", ")))
	}
	return pool, projects, nil
}

// annotate attaches availability slots and preferred project IDs to each
// pool member.
func (s *FormationService) annotate(ctx context.Context, sessionID string, members []models.MembershipDetail) error {
	availabilities, err := s.availabilites.ListBySession(ctx, sessionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availabilities")
	}
	slotsByUser := make(map[string][]float64, len(availabilities))
	for _, a := range availabilities {
		slotsByUser[a.UserID] = availability.Normalize(a.SlotValues())
	}

	preferences, err := s.preferences.ListBySession(ctx, sessionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project preferences")
	}
	prefsByUser := make(map[string][]string)
	for _, p := range preferences {
		prefsByUser[p.UserID] = append(prefsByUser[p.UserID], p.ProjectID)
	}

	for i := range members {
		members[i].AvailabilitySlots = slotsByUser[members[i].UserID]
		members[i].PreferredProjectIDs = prefsByUser[members[i].UserID]
	}
	return nil
}

// RunFormation builds the pool, runs the solver, and persists the outcome
// in one transaction: teams are created, members assigned, and unplaced
// candidates appended to the waitlist. A member that already holds a team
// aborts and rolls back the whole run.
func (s *FormationService) RunFormation(ctx context.Context, sessionID string, req dto.RunFormationRequest) (*dto.FormationReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid formation payload")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if session.ResultsDispatched() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyDispatched, "assignments are final once results are sent")
	}

	pool, projects, err := s.BuildPool(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	capacity := s.capacityFor(session, req)
	outcome := FormTeams(pool, projects, capacity)
	if len(outcome.Teams) == 0 && len(projects) > 0 {
		// a run that cannot staff a single project persists nothing
		return nil, appErrors.Clone(appErrors.ErrOverlapUnsatisfiable,
			fmt.Sprintf("no team satisfies the overlap minimums for any of the %d projects", len(projects)))
	}

	report := &dto.FormationReport{
		SessionID: sessionID,
		Unplaced:  outcome.Unplaced,
		Issues:    outcome.Issues,
		RanAt:     time.Now().UTC(),
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin formation transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	teamRows := make([]models.Team, len(outcome.Teams))
	for i, proposal := range outcome.Teams {
		teamRows[i] = models.Team{
			SessionID: sessionID,
			ProjectID: proposal.ProjectID,
			Name:      proposal.TeamName,
		}
	}
	if err = s.teams.CreateBatch(ctx, tx, teamRows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teams")
		return nil, err
	}

	for i, proposal := range outcome.Teams {
		teamID := teamRows[i].ID
		seats := append([]models.MembershipDetail{proposal.Captain, proposal.Navigator}, proposal.Djangonauts...)
		for _, seat := range seats {
			var assigned bool
			assigned, err = s.memberships.AssignTeam(ctx, tx, seat.ID, teamID)
			if err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign team")
				return nil, err
			}
			if !assigned {
				err = appErrors.Clone(appErrors.ErrDuplicateAssignment,
					fmt.Sprintf("membership %s already assigned to a team", seat.ID))
				return nil, err
			}
		}
		report.Teams = append(report.Teams, assignmentFromProposal(teamID, proposal))
	}

	if err = s.waitlist.AddBatch(ctx, tx, waitlistEntries(sessionID, pool, outcome.Unplaced)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append waitlist")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit formation run")
		return nil, err
	}

	s.invalidateSession(ctx, sessionID)
	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, formationReportKey(sessionID), report, s.config.ReportTTL); cacheErr != nil {
			s.logger.Warn("failed to cache formation report", zap.Error(cacheErr))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveFormationRun(len(report.Teams), len(report.Unplaced))
	}
	s.logger.Sugar().Infow("formation run complete",
		"session_id", sessionID, "teams", len(report.Teams), "unplaced", len(report.Unplaced), "issues", len(report.Issues))
	return report, nil
}

func (s *FormationService) capacityFor(session *models.Session, req dto.RunFormationRequest) TeamCapacity {
	capacity := s.config.Defaults
	if session.DjangonautsPerTeam > 0 {
		capacity.Djangonauts = session.DjangonautsPerTeam
	}
	if session.MinDjangonautsPerTeam > 0 {
		capacity.MinDjangonauts = session.MinDjangonautsPerTeam
	}
	if req.DjangonautsPerTeam > 0 {
		capacity.Djangonauts = req.DjangonautsPerTeam
	}
	if req.MinDjangonautsPerTeam > 0 {
		capacity.MinDjangonauts = req.MinDjangonautsPerTeam
	}
	if capacity.MinDjangonauts > capacity.Djangonauts {
		capacity.MinDjangonauts = capacity.Djangonauts
	}
	return capacity
}

// Report returns the latest formation report: the cached run result when
// fresh, otherwise a reconstruction from persisted teams and memberships.
func (s *FormationService) Report(ctx context.Context, sessionID string) (*dto.FormationReport, error) {
	if s.cache != nil {
		var cached dto.FormationReport
		if err := s.cache.Get(ctx, formationReportKey(sessionID), &cached); err == nil {
			return &cached, nil
		}
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	teams, err := s.teams.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}
	members, err := s.memberships.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	if err := s.annotate(ctx, sessionID, members); err != nil {
		return nil, err
	}

	report := &dto.FormationReport{SessionID: sessionID, RanAt: time.Now().UTC()}
	byTeam := make(map[string][]models.MembershipDetail)
	for _, m := range members {
		if m.TeamID != nil && m.State() != models.AcceptanceDeclined {
			byTeam[*m.TeamID] = append(byTeam[*m.TeamID], m)
		}
	}
	for _, team := range teams {
		report.Teams = append(report.Teams, assignmentFromRoster(team, byTeam[team.ID]))
	}

	waitlisted, err := s.waitlist.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	for _, entry := range waitlisted {
		role := ""
		if entry.RoleIntent != nil {
			role = string(*entry.RoleIntent)
		}
		report.Unplaced = append(report.Unplaced, dto.UnplacedCandidate{
			UserID: entry.UserID,
			Role:   role,
			Reason: "waitlisted",
		})
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, formationReportKey(sessionID), report, s.config.ReportTTL); cacheErr != nil {
			s.logger.Warn("failed to cache formation report", zap.Error(cacheErr))
		}
	}
	return report, nil
}

// Export renders the formation report as CSV or PDF bytes.
func (s *FormationService) Export(ctx context.Context, sessionID, format string) ([]byte, string, error) {
	report, err := s.Report(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	dataset := reportDataset(report)
	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Team formation report %s", sessionID))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *FormationService) invalidateSession(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("session:%s:*", sessionID)); err != nil {
		s.logger.Warn("failed to invalidate session cache", zap.Error(err))
	}
}

func formationReportKey(sessionID string) string {
	return fmt.Sprintf("session:%s:formation:report", sessionID)
}

func assignmentFromProposal(teamID string, proposal TeamProposal) dto.TeamAssignment {
	ids := make([]string, len(proposal.Djangonauts))
	for i, d := range proposal.Djangonauts {
		ids[i] = d.ID
	}
	return dto.TeamAssignment{
		TeamID:                teamID,
		TeamName:              proposal.TeamName,
		ProjectID:             proposal.ProjectID,
		ProjectName:           proposal.ProjectName,
		CaptainMembershipID:   proposal.Captain.ID,
		NavigatorMembershipID: proposal.Navigator.ID,
		DjangonautIDs:         ids,
		NavigatorMeetingHours: proposal.TeamOverlapHours,
		MinCaptainHours:       proposal.MinCaptainOverlap,
	}
}

func assignmentFromRoster(team models.TeamDetail, roster []models.MembershipDetail) dto.TeamAssignment {
	assignment := dto.TeamAssignment{
		TeamID:      team.ID,
		TeamName:    team.Name,
		ProjectID:   team.ProjectID,
		ProjectName: team.ProjectName,
	}
	var navigator *models.MembershipDetail
	var captain *models.MembershipDetail
	var djangonauts []models.MembershipDetail
	for i := range roster {
		switch roster[i].Role {
		case models.RoleCaptain:
			captain = &roster[i]
			assignment.CaptainMembershipID = roster[i].ID
		case models.RoleNavigator:
			navigator = &roster[i]
			assignment.NavigatorMembershipID = roster[i].ID
		case models.RoleDjangonaut:
			djangonauts = append(djangonauts, roster[i])
			assignment.DjangonautIDs = append(assignment.DjangonautIDs, roster[i].ID)
		}
	}
	if navigator != nil {
		assignment.NavigatorMeetingHours = teamOverlap(*navigator, djangonauts)
	}
	if captain != nil {
		min := -1.0
		others := djangonauts
		if navigator != nil {
			others = append([]models.MembershipDetail{*navigator}, djangonauts...)
		}
		for _, other := range others {
			h := availability.OverlapHours(captain.AvailabilitySlots, other.AvailabilitySlots)
			if min < 0 || h < min {
				min = h
			}
		}
		if min >= 0 {
			assignment.MinCaptainHours = min
		}
	}
	return assignment
}

func reportDataset(report *dto.FormationReport) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Team", "Project", "Captain", "Navigator", "Djangonauts", "Team Overlap (h)", "Min Captain Overlap (h)"},
	}
	for _, team := range report.Teams {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Team":                    team.TeamName,
			"Project":                 team.ProjectName,
			"Captain":                 team.CaptainMembershipID,
			"Navigator":               team.NavigatorMembershipID,
			"Djangonauts":             strings.Join(team.DjangonautIDs, " "),
			"Team Overlap (h)":        fmt.Sprintf("%.1f", team.NavigatorMeetingHours),
			"Min Captain Overlap (h)": fmt.Sprintf("%.1f", team.MinCaptainHours),
		})
	}
	for _, u := range report.Unplaced {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Team":        "(unplaced)",
			"Project":     u.Reason,
			"Captain":     u.MembershipID,
			"Navigator":   u.Role,
			"Djangonauts": u.UserID,
		})
	}
	return dataset
}

func waitlistEntries(sessionID string, pool CandidatePool, unplaced []dto.UnplacedCandidate) []models.WaitlistEntry {
	detailByMembership := make(map[string]models.MembershipDetail, pool.Size())
	for _, group := range [][]models.MembershipDetail{pool.Captains, pool.Navigators, pool.Djangonauts} {
		for _, m := range group {
			detailByMembership[m.ID] = m
		}
	}

	entries := make([]models.WaitlistEntry, 0, len(unplaced))
	for _, u := range unplaced {
		detail, ok := detailByMembership[u.MembershipID]
		entry := models.WaitlistEntry{SessionID: sessionID, UserID: u.UserID}
		if ok {
			intent := detail.Role
			entry.RoleIntent = &intent
			// queue position inherits the application time so the
			// earliest applicant is promoted first
			entry.CreatedAt = detail.CreatedAt
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}
