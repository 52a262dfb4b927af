package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djangonaut-space/indymeet-api/internal/models"
)

func newWaitlistRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

// capturedTime records every timestamp argument it matches.
type capturedTime struct {
	stamps *[]time.Time
}

func (c capturedTime) Match(v driver.Value) bool {
	tm, ok := v.(time.Time)
	if !ok {
		return false
	}
	*c.stamps = append(*c.stamps, tm)
	return true
}

// Entries stamped in the same batch must carry strictly increasing
// timestamps so ORDER BY created_at preserves the batch order.
func TestWaitlistRepositoryAddBatchStampsIncreasingTimes(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	var stamps []time.Time
	mock.ExpectExec(`INSERT INTO waitlist_entries`).
		WithArgs(sqlmock.AnyArg(), "s1", "u1", nil, capturedTime{&stamps}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO waitlist_entries`).
		WithArgs(sqlmock.AnyArg(), "s1", "u2", nil, capturedTime{&stamps}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entries := []models.WaitlistEntry{
		{SessionID: "s1", UserID: "u1"},
		{SessionID: "s1", UserID: "u2"},
	}
	require.NoError(t, repo.AddBatch(context.Background(), nil, entries))

	require.Len(t, stamps, 2)
	assert.True(t, stamps[0].Before(stamps[1]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// An entry that already carries its application time keeps it.
func TestWaitlistRepositoryAddBatchKeepsExistingTimes(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	applied := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO waitlist_entries`).
		WithArgs(sqlmock.AnyArg(), "s1", "u1", nil, applied).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entries := []models.WaitlistEntry{{SessionID: "s1", UserID: "u1", CreatedAt: applied}}
	require.NoError(t, repo.AddBatch(context.Background(), nil, entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}
