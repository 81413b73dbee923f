package lockfile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore is an optional shared lockfile backend for teams that
// centralize lockfiles instead of committing them per-project, modeled on
// the same migrate-on-construct discipline as the SQLite-backed thread
// registry.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lockfiles (
			category TEXT NOT NULL,
			scope TEXT NOT NULL,
			tool_id TEXT NOT NULL,
			version TEXT NOT NULL,
			format_version INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			chain JSONB NOT NULL,
			PRIMARY KEY (category, scope, tool_id, version)
		)`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, lock *Lockfile) error {
	chainJSON, err := json.Marshal(lock.Chain)
	if err != nil {
		return fmt.Errorf("lockfile: marshaling chain: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lockfiles (category, scope, tool_id, version, format_version, created_at, chain)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (category, scope, tool_id, version)
		DO UPDATE SET format_version = $5, created_at = $6, chain = $7`,
		lock.Category, lock.Scope, lock.ToolID, lock.Version, lock.FormatVersion, lock.CreatedAt, chainJSON)
	if err != nil {
		return fmt.Errorf("lockfile: saving %s@%s: %w", lock.ToolID, lock.Version, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, category string, scope Scope, toolID, version string) (*Lockfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT format_version, created_at, chain
		FROM lockfiles
		WHERE category = $1 AND scope = $2 AND tool_id = $3 AND version = $4`,
		category, scope, toolID, version)

	var lock Lockfile
	var chainJSON []byte
	if err := row.Scan(&lock.FormatVersion, &lock.CreatedAt, &chainJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lockfile: loading %s@%s: %w", toolID, version, err)
	}
	if err := json.Unmarshal(chainJSON, &lock.Chain); err != nil {
		return nil, fmt.Errorf("lockfile: decoding chain: %w", err)
	}
	lock.Category = category
	lock.Scope = scope
	lock.ToolID = toolID
	lock.Version = version
	return &lock, nil
}
