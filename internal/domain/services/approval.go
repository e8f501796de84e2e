package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
)

const (
	// DefaultApprovalTimeout is how long a notified run waits for a decision.
	DefaultApprovalTimeout = 120 * time.Second
	// DefaultRequestTimeout bounds each outbound call made while drafting and notifying.
	DefaultRequestTimeout = 20 * time.Second
	// MaxDraftLen is the character cap for drafted summaries.
	MaxDraftLen = 1200

	// FallbackDraft is used whenever the generator fails or returns nothing.
	FallbackDraft = "- Summarize detected changes and prepare internal brief."
	// NotificationTitle heads every approval request.
	NotificationTitle = "🔍 Competitor Update Detected"

	whyItMatters = "Matches keywords/pricing/ICP"
)

// DraftSystemPrompt instructs the generator how to write the summary.
const DraftSystemPrompt = "You are Page Watch. Draft a concise, bullet-first, imperative action plan " +
	"(<=1200 chars) based strictly on provided candidates. Include short evidence quotes (<=140 chars). " +
	"Tone must match the provided tone (neutral|challenger|friendly). No speculative claims; only summarize provided content."

// NextActions returns the fixed follow-up actions proposed for every notified change.
func NextActions() []string {
	return []string{
		"Update pricing comparison page if needed",
		"Share summary in sales channel",
		"Evaluate roadmap impact for competing features",
	}
}

// ApprovalOptions configures the approval orchestrator.
type ApprovalOptions struct {
	RequestTimeout  time.Duration
	ApprovalTimeout time.Duration
}

// ApprovalInput is everything the orchestrator needs about a detected change.
type ApprovalInput struct {
	URL          string
	ChangeHash   string // full digest; empty when unknown
	Selected     []entities.ScoredCandidate
	Significance entities.Significance
	Business     entities.BusinessContext
}

// ApprovalOutcome is the orchestrator's contribution to a run.
type ApprovalOutcome struct {
	State         entities.RunState
	Trail         []entities.RunState
	Draft         string
	DraftFallback bool
	Highlights    []entities.Highlight
	NextActions   []string
	Key           entities.CorrelationKey
	MessageID     string
	Approval      entities.Approval
	Persisted     bool
	Errors        []string
}

// approvalTransitions lists the legal moves of the approval state machine.
var approvalTransitions = map[entities.RunState][]entities.RunState{
	entities.RunStateDrafting: {entities.RunStateNotified},
	entities.RunStateNotified: {entities.RunStateApproved, entities.RunStateRejected, entities.RunStateTimedOut},
}

func (o *ApprovalOutcome) advance(to entities.RunState) error {
	for _, next := range approvalTransitions[o.State] {
		if next == to {
			o.State = to
			o.Trail = append(o.Trail, to)
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", o.State, to)
}

// ApprovalService drafts a summary, posts it for review, waits for a decision
// and persists the snapshot only when the change is approved.
type ApprovalService struct {
	drafts  ports.DraftGenerator
	channel ports.ApprovalChannel
	store   ports.SnapshotStore
	opts    ApprovalOptions
	logger  *slog.Logger
}

// NewApprovalService creates a new approval service.
func NewApprovalService(drafts ports.DraftGenerator, channel ports.ApprovalChannel, store ports.SnapshotStore, opts ApprovalOptions, logger *slog.Logger) *ApprovalService {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ApprovalTimeout <= 0 {
		opts.ApprovalTimeout = DefaultApprovalTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalService{
		drafts:  drafts,
		channel: channel,
		store:   store,
		opts:    opts,
		logger:  logger.With("component", "approval"),
	}
}

// Decide runs DRAFTING -> NOTIFIED -> APPROVED|REJECTED|TIMED_OUT for a non-empty selection.
// Every collaborator failure has a fallback, so Decide never fails.
func (s *ApprovalService) Decide(ctx context.Context, in ApprovalInput) ApprovalOutcome {
	out := ApprovalOutcome{
		State:       entities.RunStateDrafting,
		Trail:       []entities.RunState{entities.RunStateDrafting},
		NextActions: NextActions(),
		Approval:    entities.PendingApproval(),
		Errors:      []string{},
	}
	log := s.logger.With("url", in.URL)

	picked := entities.Candidates(in.Selected)
	out.Draft, out.DraftFallback = s.draft(ctx, in, picked, log)
	out.Highlights = buildHighlights(picked)
	out.Key = correlationKey(in.URL, in.ChangeHash, picked)

	markdown := BuildNotification(in.URL, in.Significance, out.Draft, out.NextActions)
	s.mustAdvance(&out, entities.RunStateNotified, log)

	messageID, approval, err := s.Notify(ctx, markdown, out.Key)
	if err != nil {
		log.Warn("posting approval request failed", "error", err)
		out.Errors = append(out.Errors, err.Error())
	}
	out.MessageID = messageID
	out.Approval = approval
	s.mustAdvance(&out, entities.RunStateForApproval(approval), log)

	if approval.IsApproved() && in.ChangeHash != "" {
		out.Persisted = s.persist(ctx, in.URL, in.ChangeHash, log)
	}

	log.Info("approval finished",
		"state", out.State,
		"message_id", out.MessageID,
		"persisted", out.Persisted)
	return out
}

// Notify posts markdown tagged with key and waits one window for a decision.
// A failed post returns a pending approval together with the channel error.
func (s *ApprovalService) Notify(ctx context.Context, markdown string, key entities.CorrelationKey) (string, entities.Approval, error) {
	postCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	messageID, err := s.channel.Post(postCtx, markdown, key)
	cancel()
	if err != nil {
		var ce *ports.ChannelError
		if !errors.As(err, &ce) {
			err = &ports.ChannelError{Op: "post", Err: err}
		}
		return "", entities.PendingApproval(), err
	}

	approval := s.channel.AwaitDecision(ctx, messageID, s.opts.ApprovalTimeout, key)
	return messageID, approval, nil
}

func (s *ApprovalService) draft(ctx context.Context, in ApprovalInput, picked []entities.Candidate, log *slog.Logger) (string, bool) {
	payload := entities.DraftPayload{
		URL:  in.URL,
		Tone: in.Business.Tone,
		BusinessContext: entities.DraftBusinessRef{
			Keywords: nonNil(in.Business.Keywords),
			Products: nonNil(in.Business.Products),
		},
		Candidates: picked,
	}

	draftCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	draft, err := s.drafts.GenerateDraft(draftCtx, DraftSystemPrompt, payload)
	if err != nil {
		log.Warn("draft generation failed, using fallback", "error", err)
		return FallbackDraft, true
	}
	if strings.TrimSpace(draft) == "" {
		log.Warn("draft generation returned nothing, using fallback")
		return FallbackDraft, true
	}
	return truncateRunes(draft, MaxDraftLen), false
}

func (s *ApprovalService) persist(ctx context.Context, url, hash string, log *slog.Logger) bool {
	// The decision is already made; finish the write even if the run is being cancelled.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RequestTimeout)
	defer cancel()

	if err := s.store.Write(writeCtx, url, hash); err != nil {
		log.Error("persisting approved snapshot failed",
			"error", &ports.PersistenceError{Op: "write", Err: err})
		return false
	}
	return true
}

func (s *ApprovalService) mustAdvance(out *ApprovalOutcome, to entities.RunState, log *slog.Logger) {
	if err := out.advance(to); err != nil {
		log.Error("approval state machine", "error", err)
	}
}

// BuildNotification renders the markdown approval request.
func BuildNotification(url string, sig entities.Significance, draft string, actions []string) string {
	lines := []string{
		NotificationTitle,
		"URL: " + url,
		"Significance: " + string(sig),
		"\nSummary:",
		draft,
		"\nRecommended actions:",
	}
	for _, a := range actions {
		lines = append(lines, "- "+a)
	}
	return strings.Join(lines, "\n")
}

// CorrelationKeyFor builds the key binding a notification to a URL and change.
func CorrelationKeyFor(url, changeHash string) entities.CorrelationKey {
	return entities.CorrelationKey{URLHash: ShortHash(url), ChangeHash: shortDigest(changeHash)}
}

func correlationKey(url, changeHash string, picked []entities.Candidate) entities.CorrelationKey {
	if changeHash != "" {
		return CorrelationKeyFor(url, changeHash)
	}
	// Without a digest, the selection itself identifies the change.
	data, err := json.Marshal(picked)
	if err != nil {
		data = []byte(fmt.Sprint(picked))
	}
	return entities.CorrelationKey{URLHash: ShortHash(url), ChangeHash: ShortHash(string(data))}
}

func buildHighlights(picked []entities.Candidate) []entities.Highlight {
	highlights := make([]entities.Highlight, 0, len(picked))
	for _, c := range picked {
		evidence := c.Evidence
		if evidence == "" {
			evidence = c.Selector
		}
		highlights = append(highlights, entities.Highlight{
			Title:        c.Title,
			WhyItMatters: whyItMatters,
			Evidence:     evidence,
		})
	}
	return highlights
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
