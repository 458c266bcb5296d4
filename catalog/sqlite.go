package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register the cgo-free SQLite driver.
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id               TEXT PRIMARY KEY,
	display_name     TEXT NOT NULL,
	created_at       INTEGER NOT NULL,
	storage_location TEXT NOT NULL DEFAULT '',
	index_collection TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts(created_at);
`

// SQLiteStore is a Store backed by an embedded SQLite database.
// Safe for concurrent use; WAL mode is enabled on open.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a SQLite-backed catalog at path.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("catalog: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put inserts or replaces a record.
func (s *SQLiteStore) Put(ctx context.Context, rec ArtifactRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (id, display_name, created_at, storage_location, index_collection)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.DisplayName, rec.CreatedAt.UnixNano(), rec.StorageLocation, rec.IndexCollection,
	)
	if err != nil {
		return fmt.Errorf("catalog: put %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (ArtifactRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, created_at, storage_location, index_collection
		 FROM artifacts WHERE id = ?`, id)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ArtifactRecord{}, ErrNotFound
	}
	if err != nil {
		return ArtifactRecord{}, fmt.Errorf("catalog: get %s: %w", id, err)
	}
	return rec, nil
}

// List returns all records. Rows come back ordered by created_at so callers
// that only truncate see oldest-first, but the coordinator sorts again and
// does not rely on it.
func (s *SQLiteStore) List(ctx context.Context) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, created_at, storage_location, index_collection
		 FROM artifacts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []ArtifactRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return records, nil
}

// Delete removes a record. Deleting a missing record is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("catalog: delete %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRecord(scan func(dest ...any) error) (ArtifactRecord, error) {
	var (
		rec       ArtifactRecord
		createdAt int64
	)
	if err := scan(&rec.ID, &rec.DisplayName, &createdAt, &rec.StorageLocation, &rec.IndexCollection); err != nil {
		return ArtifactRecord{}, err
	}
	rec.CreatedAt = time.Unix(0, createdAt)
	return rec, nil
}
