package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"vaultd/internal/domain"
	"vaultd/pkg/platform/sentinel"
)

// Postgres persists the identity mapping in PostgreSQL for deployments where
// the directory must survive restarts.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects and ensures the schema exists.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	const schema = `
		CREATE TABLE IF NOT EXISTS vault_identities (
			identity_id   TEXT PRIMARY KEY,
			owner_address TEXT NOT NULL,
			vault_address TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close closes the pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

// Save inserts a new mapping. ON CONFLICT DO NOTHING plus the affected-row
// count keeps the write-once invariant without a read-modify-write race.
func (s *Postgres) Save(ctx context.Context, identity domain.Identity) error {
	const query = `
		INSERT INTO vault_identities (identity_id, owner_address, vault_address)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, identity.ID, string(identity.OwnerAddress), string(identity.VaultAddress))
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, id string) (domain.Identity, error) {
	const query = `SELECT identity_id, owner_address, vault_address FROM vault_identities WHERE identity_id = $1`
	var identity domain.Identity
	var owner, vault string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&identity.ID, &owner, &vault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Identity{}, sentinel.ErrNotFound
		}
		return domain.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	identity.OwnerAddress = domain.Address(owner)
	identity.VaultAddress = domain.Address(vault)
	return identity, nil
}
