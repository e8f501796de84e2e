package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
)

// DefaultManualHash is stored by "snapshot set" when no hash is given.
const DefaultManualHash = "deadbeef"

// ErrSnapshotNotFound is returned when no snapshot exists for a URL.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotHandler inspects and edits stored snapshots.
type SnapshotHandler struct {
	store    ports.SnapshotRepository
	validate *validator.Validate
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(store ports.SnapshotRepository) *SnapshotHandler {
	return &SnapshotHandler{
		store:    store,
		validate: validator.New(),
	}
}

// HandleGet returns the stored snapshot for url.
func (h *SnapshotHandler) HandleGet(ctx context.Context, url string) (*entities.Snapshot, error) {
	snap, err := h.store.Read(ctx, url)
	if err != nil {
		return nil, &ports.PersistenceError{Op: "read", Err: err}
	}
	if snap == nil {
		return nil, fmt.Errorf("%s: %w", url, ErrSnapshotNotFound)
	}
	return snap, nil
}

// HandleSet stores hash for url, defaulting to DefaultManualHash.
// Setting a hash that differs from the page forces the next run to report a change.
func (h *SnapshotHandler) HandleSet(ctx context.Context, url, hash string) (*entities.Snapshot, error) {
	if err := h.validate.Var(url, "required,http_url"); err != nil {
		return nil, fmt.Errorf("invalid url %q", url)
	}
	if hash == "" {
		hash = DefaultManualHash
	}

	if err := h.store.Write(ctx, url, hash); err != nil {
		return nil, &ports.PersistenceError{Op: "write", Err: err}
	}
	return h.HandleGet(ctx, url)
}

// HandleList returns every stored snapshot.
func (h *SnapshotHandler) HandleList(ctx context.Context) ([]entities.Snapshot, error) {
	snaps, err := h.store.List(ctx)
	if err != nil {
		return nil, &ports.PersistenceError{Op: "list", Err: err}
	}
	return snaps, nil
}
