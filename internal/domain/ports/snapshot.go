package ports

import (
	"context"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// SnapshotStore persists the last approved digest per URL.
type SnapshotStore interface {
	// Read returns the snapshot for url, or nil when none is stored.
	Read(ctx context.Context, url string) (*entities.Snapshot, error)

	// Write atomically upserts the digest for url.
	Write(ctx context.Context, url, hash string) error
}

// SnapshotRepository is a SnapshotStore that can also enumerate and release itself.
type SnapshotRepository interface {
	SnapshotStore

	// List returns every stored snapshot ordered by URL.
	List(ctx context.Context) ([]entities.Snapshot, error)

	// Close releases the underlying connection.
	Close() error
}
