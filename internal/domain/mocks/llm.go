// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// DraftGenerator is a mock implementation of ports.DraftGenerator.
type DraftGenerator struct {
	Draft string
	Err   error

	// Call tracking
	CallCount        int
	LastSystemPrompt string
	LastDraftPayload entities.DraftPayload
}

// GenerateDraft returns the configured draft or error.
func (m *DraftGenerator) GenerateDraft(ctx context.Context, systemPrompt string, payload entities.DraftPayload) (string, error) {
	m.CallCount++
	m.LastSystemPrompt = systemPrompt
	m.LastDraftPayload = payload
	if m.Err != nil {
		return "", m.Err
	}
	return m.Draft, nil
}
