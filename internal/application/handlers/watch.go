// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
	"github.com/ersonp/pagewatch/internal/domain/services"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// WatchRequest describes a single watch run.
type WatchRequest struct {
	URL         string        `validate:"required,http_url"`
	Keywords    []string      `validate:"dive,max=200"`
	Products    []string      `validate:"dive,max=200"`
	Tone        entities.Tone `validate:"omitempty,oneof=neutral challenger friendly"`
	ForcePost   bool
	ForceChange bool
}

// watchRun is the read-only context shared by every stage of one run.
type watchRun struct {
	id       string
	req      WatchRequest
	business entities.BusinessContext
	started  time.Time
	log      *slog.Logger
}

// WatchHandler runs the full detect -> select -> draft -> approve pipeline.
type WatchHandler struct {
	detection *services.DetectionService
	approval  *services.ApprovalService
	events    ports.EventSink
	recorder  ports.RunRecorder
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewWatchHandler creates a new WatchHandler. events and recorder may be nil.
func NewWatchHandler(detection *services.DetectionService, approval *services.ApprovalService, events ports.EventSink, recorder ports.RunRecorder, logger *slog.Logger) *WatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchHandler{
		detection: detection,
		approval:  approval,
		events:    events,
		recorder:  recorder,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With("component", "watch"),
	}
}

// Handle executes one run. It never fails: every outcome, including invalid
// input and unreachable pages, is reported through the returned result.
func (h *WatchHandler) Handle(ctx context.Context, req WatchRequest) *entities.PipelineResult {
	if req.Tone == "" {
		req.Tone = entities.ToneNeutral
	}
	run := watchRun{
		id:  uuid.NewString(),
		req: req,
		business: entities.BusinessContext{
			Products: req.Products,
			Keywords: req.Keywords,
			Tone:     req.Tone,
		},
		started: timeNow(),
	}
	run.log = h.logger.With("run_id", run.id, "url", req.URL)

	result, state := h.execute(ctx, run)
	result.RunID = run.id

	elapsed := timeNow().Sub(run.started)
	if h.recorder != nil {
		h.recorder.RecordRun(result, state, elapsed)
	}
	run.log.Info("run finished",
		"status", result.Status,
		"state", state,
		"significance", result.Significance,
		"elapsed", elapsed)
	return result
}

func (h *WatchHandler) execute(ctx context.Context, run watchRun) (*entities.PipelineResult, entities.RunState) {
	if err := h.validate.Struct(run.req); err != nil {
		run.log.Warn("invalid request", "error", err)
		return entities.NewErrorResult(run.req.URL, describeValidation(err)), entities.RunStateFailed
	}

	scrape, err := h.detection.Scrape(ctx, run.req.URL, run.req.ForceChange)
	if err != nil {
		run.log.Error("fetch failed", "error", err)
		return entities.NewErrorResult(run.req.URL, err.Error()), entities.RunStateFailed
	}

	if !scrape.Changed {
		return noChangeResult(run, scrape), entities.RunStateUnchanged
	}

	selected := services.SelectCandidates(scrape.Candidates, run.req.Keywords, run.req.ForcePost)
	if len(selected) == 0 {
		run.log.Info("no relevant candidates", "candidates", len(scrape.Candidates))
		return noChangeResult(run, scrape), entities.RunStateNoSelection
	}

	significance := services.Classify(entities.Candidates(selected))
	outcome := h.approval.Decide(ctx, services.ApprovalInput{
		URL:          run.req.URL,
		ChangeHash:   scrape.Digest,
		Selected:     selected,
		Significance: significance,
		Business:     run.business,
	})

	result := assembleResult(run, scrape, significance, outcome)
	if outcome.Approval.IsApproved() {
		h.emitApproval(ctx, run, result)
	}
	return result, outcome.State
}

func (h *WatchHandler) emitApproval(ctx context.Context, run watchRun, result *entities.PipelineResult) {
	if h.events == nil {
		return
	}

	event := entities.ApprovalEvent{
		Type:       entities.ApprovalEventType,
		URL:        result.URL,
		Actions:    result.NextActions,
		ApprovedBy: result.Approval.By,
		ApprovedAt: timeNow().UTC(),
	}
	if result.ChangeHash != nil {
		event.ChangeHash = *result.ChangeHash
	}

	if err := h.events.Emit(ctx, event); err != nil {
		run.log.Warn("emitting approval event failed", "error", err)
	}
}

func noChangeResult(run watchRun, scrape *services.ScrapeOutcome) *entities.PipelineResult {
	result := entities.NewResult(entities.StatusNoChange, run.req.URL)
	result.SetChangeHash(scrape.Digest)
	return result
}

func assembleResult(run watchRun, scrape *services.ScrapeOutcome, sig entities.Significance, outcome services.ApprovalOutcome) *entities.PipelineResult {
	result := entities.NewResult(entities.StatusOK, run.req.URL)
	result.SetChangeHash(scrape.Digest)
	result.Highlights = outcome.Highlights
	result.Significance = sig
	result.DraftResponse = outcome.Draft
	result.NextActions = outcome.NextActions
	result.SetMessageID(outcome.MessageID)
	result.Approval = outcome.Approval
	result.Errors = append(result.Errors, outcome.Errors...)
	return result
}

// describeValidation turns validator errors into one readable message.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Sprintf("invalid request: %v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "http_url":
			msgs = append(msgs, fmt.Sprintf("url %q must be an absolute http(s) URL", fe.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("tone %q must be one of: %s", fe.Value(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}
