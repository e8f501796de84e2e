// Package sqlite provides a SQLite implementation of the snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Store implements ports.SnapshotRepository using SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database at cfg.SQLitePath and ensures the schema exists.
func NewStore(ctx context.Context, cfg config.SnapshotConfig) (*Store, error) {
	if cfg.SQLitePath == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &Store{db: db, path: cfg.SQLitePath}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureSchema creates the snapshots table if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		url TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Read returns the snapshot stored for url, or nil when there is none.
func (s *Store) Read(ctx context.Context, url string) (*entities.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, hash, updated_at FROM snapshots WHERE url = ?`, url)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return snap, nil
}

// Write upserts the digest for url in a single statement.
func (s *Store) Write(ctx context.Context, url, hash string) error {
	query := `
		INSERT INTO snapshots (url, hash, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET hash = excluded.hash, updated_at = excluded.updated_at
	`
	updatedAt := timeNow().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, query, url, hash, updatedAt); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// List returns every stored snapshot ordered by URL.
func (s *Store) List(ctx context.Context) ([]entities.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, hash, updated_at FROM snapshots ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []entities.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (*entities.Snapshot, error) {
	var (
		snap      entities.Snapshot
		updatedAt string
	)
	if err := sc.Scan(&snap.URL, &snap.Hash, &updatedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	snap.UpdatedAt = t
	return &snap, nil
}
