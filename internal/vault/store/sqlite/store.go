// Package sqlite provides a SQLite-backed record store, the durable pair to
// the in-memory backend. Insertion order is the rowid: upserts keep the
// original rowid, so overwrites never move a record between pages.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vaultd/internal/domain"
	"vaultd/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	data        TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
`

// Store persists one vault's records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite record store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Insert writes the record, overwriting in place. ON CONFLICT DO UPDATE keeps
// the existing rowid, preserving the record's insertion position.
func (s *Store) Insert(ctx context.Context, id string, record domain.Record) error {
	const query = `
		INSERT INTO records (id, title, description, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			data = excluded.data,
			created_at = excluded.created_at
	`
	_, err := s.sqlDB.ExecContext(ctx, query, id, record.Title, record.Description, record.Data, toMillis(record.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get returns the record or sentinel.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.Record, error) {
	const query = `SELECT title, description, data, created_at FROM records WHERE id = $1`
	var rec domain.Record
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx, query, id).Scan(&rec.Title, &rec.Description, &rec.Data, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Record{}, sentinel.ErrNotFound
		}
		return domain.Record{}, fmt.Errorf("load record: %w", err)
	}
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}

// Contains reports whether a record id exists.
func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = $1`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check record: %w", err)
	}
	return true, nil
}

// Page returns the page-th slice of size records in insertion (rowid) order.
// Out-of-range pages return an empty slice.
func (s *Store) Page(ctx context.Context, page, size int) ([]domain.RecordEntry, error) {
	if page < 0 || size <= 0 {
		return []domain.RecordEntry{}, nil
	}
	// An overflowing page*size would reach SQLite as a negative OFFSET, which
	// it treats as 0; bound the index so out-of-range stays an empty page.
	if page > (math.MaxInt-1)/size {
		return []domain.RecordEntry{}, nil
	}
	const query = `
		SELECT id, title, description, data, created_at
		FROM records
		ORDER BY rowid
		LIMIT $1 OFFSET $2
	`
	rows, err := s.sqlDB.QueryContext(ctx, query, size, page*size)
	if err != nil {
		return nil, fmt.Errorf("page records: %w", err)
	}
	defer rows.Close()

	out := []domain.RecordEntry{}
	for rows.Next() {
		var entry domain.RecordEntry
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.Record.Title, &entry.Record.Description, &entry.Record.Data, &createdAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		entry.Record.CreatedAt = fromMillis(createdAt)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
