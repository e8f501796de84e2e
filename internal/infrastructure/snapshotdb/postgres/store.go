// Package postgres provides a PostgreSQL implementation of the snapshot store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

// pgxPool is the subset of *pgxpool.Pool the store uses.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	url TEXT PRIMARY KEY,
	hash TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const upsertSnapshot = `
INSERT INTO snapshots (url, hash, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (url) DO UPDATE SET hash = EXCLUDED.hash, updated_at = NOW()`

// Store implements ports.SnapshotRepository using PostgreSQL.
type Store struct {
	pool pgxPool
}

// NewStore connects to cfg.PostgresURL and ensures the schema exists.
func NewStore(ctx context.Context, cfg config.SnapshotConfig) (*Store, error) {
	if cfg.PostgresURL == "" {
		return nil, errors.New("postgres url is required")
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the snapshots table if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Read returns the snapshot stored for url, or nil when there is none.
func (s *Store) Read(ctx context.Context, url string) (*entities.Snapshot, error) {
	var snap entities.Snapshot
	err := s.pool.QueryRow(ctx,
		`SELECT url, hash, updated_at FROM snapshots WHERE url = $1`, url,
	).Scan(&snap.URL, &snap.Hash, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return &snap, nil
}

// Write upserts the digest for url in a single statement.
func (s *Store) Write(ctx context.Context, url, hash string) error {
	if _, err := s.pool.Exec(ctx, upsertSnapshot, url, hash); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// List returns every stored snapshot ordered by URL.
func (s *Store) List(ctx context.Context) ([]entities.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT url, hash, updated_at FROM snapshots ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []entities.Snapshot{}
	for rows.Next() {
		var snap entities.Snapshot
		if err := rows.Scan(&snap.URL, &snap.Hash, &snap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}
