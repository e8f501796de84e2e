package mocks

import (
	"context"
	"time"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// Decision is a decision event delivered to the mock channel, tagged with the
// correlation key of the notification it answers.
type Decision struct {
	Key      entities.CorrelationKey
	Approval entities.Approval
}

// ApprovalChannel is a mock implementation of ports.ApprovalChannel.
// AwaitDecision resolves with the first queued decision whose key matches,
// and stays pending otherwise.
type ApprovalChannel struct {
	MessageID string
	PostErr   error
	Decisions []Decision

	// Call tracking
	PostCallCount  int
	AwaitCallCount int
	LastMarkdown   string
	LastKey        entities.CorrelationKey
	LastTimeout    time.Duration
}

// Post records the notification and returns the configured id or error.
func (m *ApprovalChannel) Post(ctx context.Context, markdown string, key entities.CorrelationKey) (string, error) {
	m.PostCallCount++
	m.LastMarkdown = markdown
	m.LastKey = key
	if m.PostErr != nil {
		return "", m.PostErr
	}
	return m.MessageID, nil
}

// AwaitDecision returns the first decision tagged with key, or pending.
func (m *ApprovalChannel) AwaitDecision(ctx context.Context, messageID string, timeout time.Duration, key entities.CorrelationKey) entities.Approval {
	m.AwaitCallCount++
	m.LastTimeout = timeout
	if ctx.Err() != nil {
		return entities.PendingApproval()
	}
	for _, d := range m.Decisions {
		if d.Key == key {
			return d.Approval
		}
	}
	return entities.PendingApproval()
}
