package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"photo-grouper/internal/models"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("batch not found")

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	batch_id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	admitted_count INTEGER NOT NULL,
	rejected_count INTEGER NOT NULL,
	group_count INTEGER NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	raw_response TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at);
`

// Store keeps one row per processed batch for debugging model behavior.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the SQLite file at path if needed and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	store := NewWithDB(db)
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an already opened database. The schema is not applied.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, rec models.BatchRecord) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (batch_id, provider, model, admitted_count, rejected_count, group_count, status, error, raw_response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BatchID, rec.Provider, rec.Model,
		rec.AdmittedCount, rec.RejectedCount, rec.GroupCount,
		rec.Status, rec.Error, rec.RawResponse, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive batch %s: %w", rec.BatchID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	var rec models.BatchRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT batch_id, provider, model, admitted_count, rejected_count, group_count, status, error, raw_response, created_at
		FROM batches WHERE batch_id = ?`, batchID,
	).Scan(
		&rec.BatchID, &rec.Provider, &rec.Model,
		&rec.AdmittedCount, &rec.RejectedCount, &rec.GroupCount,
		&rec.Status, &rec.Error, &rec.RawResponse, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	return &rec, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
