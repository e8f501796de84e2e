package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]string{"draft": "<b> & co"}))
	assert.Equal(t, "{\n  \"draft\": \"<b> & co\"\n}\n", buf.String())
}

func TestJSONLineSink(t *testing.T) {
	var buf bytes.Buffer
	sink := newJSONLineSink(&buf)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	for _, hash := range []string{"aaa", "bbb"} {
		require.NoError(t, sink.Emit(context.Background(), entities.ApprovalEvent{
			Type:       entities.ApprovalEventType,
			URL:        "https://example.com",
			ChangeHash: hash,
			Actions:    []string{"Review"},
			ApprovedBy: "@pm",
			ApprovedAt: at,
		}))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var event entities.ApprovalEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &event))
	assert.Equal(t, "COMPETITOR_UPDATE_APPROVED", event.Type)
	assert.Equal(t, "bbb", event.ChangeHash)
	assert.True(t, at.Equal(event.ApprovedAt))
}

func TestOpenStore(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		store, err := openStore(t.Context(), config.SnapshotConfig{
			Backend:    config.BackendSQLite,
			SQLitePath: t.TempDir() + "/watchdog.db",
		})
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, store.Write(t.Context(), "https://example.com", "abc"))
		snap, err := store.Read(t.Context(), "https://example.com")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "abc", snap.Hash)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := openStore(t.Context(), config.SnapshotConfig{Backend: "etcd"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown snapshot backend")
	})
}

func TestNewDraftGenerator_WithoutKey(t *testing.T) {
	gen := newDraftGenerator(config.LLMConfig{Model: "gpt-4o-mini"}, slog.New(slog.DiscardHandler))

	_, err := gen.GenerateDraft(t.Context(), "system", entities.DraftPayload{})
	var genErr *ports.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Contains(t, err.Error(), "API key")
}

func TestUnavailableStore(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:1: connection refused")
	store := unavailableStore{err: cause}

	snap, err := store.Read(t.Context(), "https://example.com")
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, store.Write(t.Context(), "https://example.com", "abc"), cause)
	_, err = store.List(t.Context())
	assert.ErrorContains(t, err, "snapshot store unavailable")
	assert.NoError(t, store.Close())
}
