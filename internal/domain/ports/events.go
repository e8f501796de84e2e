package ports

import (
	"context"
	"time"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// EventSink receives events emitted by a completed run.
type EventSink interface {
	Emit(ctx context.Context, event entities.ApprovalEvent) error
}

// RunRecorder observes finished runs, typically for metrics.
type RunRecorder interface {
	RecordRun(result *entities.PipelineResult, state entities.RunState, elapsed time.Duration)
}
