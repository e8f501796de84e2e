package mocks

import (
	"context"
	"time"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// EventSink is a mock implementation of ports.EventSink.
type EventSink struct {
	Events []entities.ApprovalEvent
	Err    error
}

// Emit records the event.
func (m *EventSink) Emit(_ context.Context, event entities.ApprovalEvent) error {
	m.Events = append(m.Events, event)
	return m.Err
}

// RunRecorder is a mock implementation of ports.RunRecorder.
type RunRecorder struct {
	States  []entities.RunState
	Results []*entities.PipelineResult
}

// RecordRun records the finished run.
func (m *RunRecorder) RecordRun(result *entities.PipelineResult, state entities.RunState, _ time.Duration) {
	m.States = append(m.States, state)
	m.Results = append(m.Results, result)
}
