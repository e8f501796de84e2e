package mocks

import (
	"context"
	"sort"
	"time"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// SnapshotStore is an in-memory mock of ports.SnapshotRepository.
type SnapshotStore struct {
	Hashes   map[string]string
	ReadErr  error
	WriteErr error

	// Call tracking
	ReadCallCount  int
	WriteCallCount int
	LastWriteURL   string
	LastWriteHash  string
}

// NewSnapshotStore creates an empty mock store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{Hashes: make(map[string]string)}
}

// Read returns the stored snapshot for url, or nil when absent.
func (m *SnapshotStore) Read(_ context.Context, url string) (*entities.Snapshot, error) {
	m.ReadCallCount++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	hash, ok := m.Hashes[url]
	if !ok {
		return nil, nil
	}
	return &entities.Snapshot{URL: url, Hash: hash}, nil
}

// Write upserts the hash for url.
func (m *SnapshotStore) Write(_ context.Context, url, hash string) error {
	m.WriteCallCount++
	m.LastWriteURL = url
	m.LastWriteHash = hash
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Hashes[url] = hash
	return nil
}

// List returns every stored snapshot ordered by URL.
func (m *SnapshotStore) List(_ context.Context) ([]entities.Snapshot, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	urls := make([]string, 0, len(m.Hashes))
	for u := range m.Hashes {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	snaps := make([]entities.Snapshot, 0, len(urls))
	for _, u := range urls {
		snaps = append(snaps, entities.Snapshot{URL: u, Hash: m.Hashes[u], UpdatedAt: time.Time{}})
	}
	return snaps, nil
}

// Close is a no-op.
func (m *SnapshotStore) Close() error {
	return nil
}
