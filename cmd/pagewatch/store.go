package main

import (
	"context"
	"fmt"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// unavailableStore stands in for a snapshot backend that could not be opened.
// Every call fails, so runs proceed as first runs and approvals are not persisted.
type unavailableStore struct {
	err error
}

func (s unavailableStore) Read(context.Context, string) (*entities.Snapshot, error) {
	return nil, s.unavailable()
}

func (s unavailableStore) Write(context.Context, string, string) error {
	return s.unavailable()
}

func (s unavailableStore) List(context.Context) ([]entities.Snapshot, error) {
	return nil, s.unavailable()
}

func (s unavailableStore) Close() error { return nil }

func (s unavailableStore) unavailable() error {
	return fmt.Errorf("snapshot store unavailable: %w", s.err)
}
