package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/mocks"
	"github.com/ersonp/pagewatch/internal/domain/ports"
)

const testURL = "https://competitor.example/pricing"

var testDigest = Digest("Pricing Enterprise plan now available")

func testSelection() []entities.ScoredCandidate {
	return []entities.ScoredCandidate{
		{Candidate: entities.Candidate{Title: "Pricing", Evidence: "Pricing", Selector: "html > body > h1", ChangeType: entities.ChangeAdded}, Score: 2},
		{Candidate: entities.Candidate{Title: "Enterprise plan", Evidence: "", Selector: "html > body > ul > li", ChangeType: entities.ChangeAdded}, Score: 2},
	}
}

func testInput() ApprovalInput {
	return ApprovalInput{
		URL:          testURL,
		ChangeHash:   testDigest,
		Selected:     testSelection(),
		Significance: entities.SignificanceHigh,
		Business: entities.BusinessContext{
			Keywords: []string{"pricing"},
			Tone:     entities.ToneChallenger,
		},
	}
}

type approvalFixture struct {
	drafts  *mocks.DraftGenerator
	channel *mocks.ApprovalChannel
	store   *mocks.SnapshotStore
	svc     *ApprovalService
}

func newApprovalFixture(decisions ...mocks.Decision) *approvalFixture {
	f := &approvalFixture{
		drafts:  &mocks.DraftGenerator{Draft: "- Review the new enterprise tier"},
		channel: &mocks.ApprovalChannel{MessageID: "42", Decisions: decisions},
		store:   mocks.NewSnapshotStore(),
	}
	f.svc = NewApprovalService(f.drafts, f.channel, f.store, ApprovalOptions{
		RequestTimeout:  time.Second,
		ApprovalTimeout: 5 * time.Second,
	}, nil)
	return f
}

func decision(key entities.CorrelationKey, state entities.ApprovalState, by string) mocks.Decision {
	return mocks.Decision{Key: key, Approval: entities.Approval{State: state, By: by}}
}

func TestApprovalService_Decide_Approved(t *testing.T) {
	key := CorrelationKeyFor(testURL, testDigest)
	f := newApprovalFixture(decision(key, entities.ApprovalApproved, "@alice"))

	out := f.svc.Decide(t.Context(), testInput())

	assert.Equal(t, entities.RunStateApproved, out.State)
	assert.Equal(t, []entities.RunState{
		entities.RunStateDrafting,
		entities.RunStateNotified,
		entities.RunStateApproved,
	}, out.Trail)
	assert.Equal(t, "@alice", out.Approval.By)
	assert.Equal(t, "42", out.MessageID)
	assert.True(t, out.Persisted)
	assert.Empty(t, out.Errors)

	assert.Equal(t, 1, f.store.WriteCallCount)
	assert.Equal(t, testDigest, f.store.Hashes[testURL])

	assert.Equal(t, key, f.channel.LastKey)
	assert.Equal(t, 5*time.Second, f.channel.LastTimeout)
	assert.Equal(t, ShortHash(testURL)+":"+testDigest[:12], out.Key.String())
}

func TestApprovalService_Decide_NotApproved(t *testing.T) {
	key := CorrelationKeyFor(testURL, testDigest)
	foreign := entities.CorrelationKey{URLHash: key.URLHash, ChangeHash: "000000000000"}

	tests := []struct {
		name      string
		decisions []mocks.Decision
		wantState entities.RunState
		wantApp   entities.ApprovalState
	}{
		{
			name:      "rejected",
			decisions: []mocks.Decision{decision(key, entities.ApprovalRejected, "bob")},
			wantState: entities.RunStateRejected,
			wantApp:   entities.ApprovalRejected,
		},
		{
			name:      "no decision before timeout",
			wantState: entities.RunStateTimedOut,
			wantApp:   entities.ApprovalPending,
		},
		{
			name:      "decision for another change is ignored",
			decisions: []mocks.Decision{decision(foreign, entities.ApprovalApproved, "eve")},
			wantState: entities.RunStateTimedOut,
			wantApp:   entities.ApprovalPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newApprovalFixture(tt.decisions...)
			out := f.svc.Decide(t.Context(), testInput())

			assert.Equal(t, tt.wantState, out.State)
			assert.Equal(t, tt.wantApp, out.Approval.State)
			assert.False(t, out.Persisted)
			assert.Equal(t, 0, f.store.WriteCallCount)
			assert.Empty(t, f.store.Hashes)
		})
	}
}

func TestApprovalService_Decide_RerunAfterRejection(t *testing.T) {
	f := newApprovalFixture()
	first := f.svc.Decide(t.Context(), testInput())
	require.Equal(t, entities.RunStateTimedOut, first.State)

	snap, err := f.store.Read(t.Context(), testURL)
	require.NoError(t, err)
	assert.Nil(t, snap, "an undecided change must be reported again on the next run")
}

func TestApprovalService_Decide_DraftFallback(t *testing.T) {
	tests := []struct {
		name   string
		drafts *mocks.DraftGenerator
	}{
		{name: "generator error", drafts: &mocks.DraftGenerator{Err: &ports.GenerationError{Err: errors.New("quota")}}},
		{name: "empty draft", drafts: &mocks.DraftGenerator{Draft: "  \n "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newApprovalFixture()
			svc := NewApprovalService(tt.drafts, f.channel, f.store, ApprovalOptions{}, nil)

			out := svc.Decide(t.Context(), testInput())

			assert.Equal(t, FallbackDraft, out.Draft)
			assert.True(t, out.DraftFallback)
			assert.Contains(t, f.channel.LastMarkdown, FallbackDraft)
			assert.Equal(t, 1, f.channel.PostCallCount)
		})
	}
}

func TestApprovalService_Decide_DraftPayload(t *testing.T) {
	f := newApprovalFixture()
	f.drafts.Draft = strings.Repeat("d", 1500)

	out := f.svc.Decide(t.Context(), testInput())

	assert.Equal(t, MaxDraftLen, utf8.RuneCountInString(out.Draft))
	assert.Equal(t, DraftSystemPrompt, f.drafts.LastSystemPrompt)

	payload := f.drafts.LastDraftPayload
	assert.Equal(t, testURL, payload.URL)
	assert.Equal(t, entities.ToneChallenger, payload.Tone)
	assert.Equal(t, []string{"pricing"}, payload.BusinessContext.Keywords)
	assert.NotNil(t, payload.BusinessContext.Products)
	assert.Len(t, payload.Candidates, 2)
}

func TestApprovalService_Decide_Highlights(t *testing.T) {
	f := newApprovalFixture()
	out := f.svc.Decide(t.Context(), testInput())

	require.Len(t, out.Highlights, 2)
	assert.Equal(t, "Pricing", out.Highlights[0].Evidence)
	assert.Equal(t, "Matches keywords/pricing/ICP", out.Highlights[0].WhyItMatters)
	assert.Equal(t, "html > body > ul > li", out.Highlights[1].Evidence, "empty evidence falls back to the selector")
	assert.Equal(t, NextActions(), out.NextActions)
}

func TestApprovalService_Decide_PostFailure(t *testing.T) {
	f := newApprovalFixture(decision(CorrelationKeyFor(testURL, testDigest), entities.ApprovalApproved, "x"))
	f.channel.PostErr = errors.New("connection refused")

	out := f.svc.Decide(t.Context(), testInput())

	assert.Equal(t, entities.RunStateTimedOut, out.State)
	assert.Equal(t, entities.ApprovalPending, out.Approval.State)
	assert.Empty(t, out.MessageID)
	assert.Equal(t, 0, f.channel.AwaitCallCount)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "connection refused")
	assert.Equal(t, 0, f.store.WriteCallCount)
}

func TestApprovalService_Decide_WriteFailure(t *testing.T) {
	f := newApprovalFixture(decision(CorrelationKeyFor(testURL, testDigest), entities.ApprovalApproved, "x"))
	f.store.WriteErr = errors.New("disk full")

	out := f.svc.Decide(t.Context(), testInput())

	assert.Equal(t, entities.RunStateApproved, out.State)
	assert.False(t, out.Persisted)
	assert.Equal(t, 1, f.store.WriteCallCount)
}

func TestApprovalService_Decide_NoChangeHash(t *testing.T) {
	in := testInput()
	in.ChangeHash = ""

	data, err := json.Marshal(entities.Candidates(in.Selected))
	require.NoError(t, err)
	key := entities.CorrelationKey{URLHash: ShortHash(testURL), ChangeHash: ShortHash(string(data))}

	f := newApprovalFixture(decision(key, entities.ApprovalApproved, "x"))
	out := f.svc.Decide(t.Context(), in)

	assert.Equal(t, key, out.Key)
	assert.Equal(t, entities.RunStateApproved, out.State)
	assert.False(t, out.Persisted, "nothing to persist without a digest")
	assert.Equal(t, 0, f.store.WriteCallCount)
}

func TestApprovalService_Decide_Cancelled(t *testing.T) {
	f := newApprovalFixture(decision(CorrelationKeyFor(testURL, testDigest), entities.ApprovalApproved, "x"))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	out := f.svc.Decide(ctx, testInput())

	assert.Equal(t, entities.ApprovalPending, out.Approval.State)
	assert.Equal(t, entities.RunStateTimedOut, out.State)
	assert.Equal(t, 0, f.store.WriteCallCount)
}

func TestApprovalOutcome_Advance(t *testing.T) {
	out := ApprovalOutcome{State: entities.RunStateDrafting}

	require.Error(t, out.advance(entities.RunStateApproved))
	require.NoError(t, out.advance(entities.RunStateNotified))
	require.NoError(t, out.advance(entities.RunStateRejected))
	require.Error(t, out.advance(entities.RunStateApproved))
	assert.Equal(t, entities.RunStateRejected, out.State)
}

func TestBuildNotification(t *testing.T) {
	got := BuildNotification("https://x.test", entities.SignificanceMedium, "- do it", []string{"a", "b"})

	want := "🔍 Competitor Update Detected\n" +
		"URL: https://x.test\n" +
		"Significance: medium\n" +
		"\nSummary:\n" +
		"- do it\n" +
		"\nRecommended actions:\n" +
		"- a\n" +
		"- b"
	assert.Equal(t, want, got)
}
