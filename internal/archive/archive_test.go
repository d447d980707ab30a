package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"photo-grouper/internal/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"batch_id", "provider", "model", "admitted_count", "rejected_count", "group_count", "status", "error", "raw_response", "created_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewWithDB(db)
	store.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestRecord(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO batches \\(batch_id, provider, model, (.+)\\) VALUES (.+)").
		WithArgs("b-1", "claude", "claude-sonnet-4-5", 4, 1, 3, "ok", "", "[]", "2025-03-01T12:00:00Z").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Record(context.Background(), models.BatchRecord{
		BatchID:       "b-1",
		Provider:      "claude",
		Model:         "claude-sonnet-4-5",
		AdmittedCount: 4,
		RejectedCount: 1,
		GroupCount:    3,
		Status:        "ok",
		RawResponse:   "[]",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordWrapsDriverError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO batches (.+)").WillReturnError(errors.New("disk I/O error"))

	err := store.Record(context.Background(), models.BatchRecord{BatchID: "b-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b-2")
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestGet(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT batch_id, (.+) FROM batches WHERE batch_id = (.+)").
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("b-1", "stub", "stub", 2, 0, 1, "malformed_response", "malformed upstream response: no JSON array found", "sorry", "2025-03-01T12:00:00Z"))

	rec, err := store.Get(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, "malformed_response", rec.Status)
	assert.Equal(t, "sorry", rec.RawResponse)
	assert.Equal(t, 2, rec.AdmittedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT batch_id, (.+) FROM batches WHERE batch_id = (.+)").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, models.BatchRecord{
		BatchID:       "b-3",
		Provider:      "stub",
		Model:         "stub",
		AdmittedCount: 1,
		GroupCount:    1,
		Status:        "ok",
	}))

	rec, err := store.Get(ctx, "b-3")
	require.NoError(t, err)
	assert.Equal(t, "stub", rec.Provider)
	assert.NotEmpty(t, rec.CreatedAt)
}
