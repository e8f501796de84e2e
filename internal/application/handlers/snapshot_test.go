package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pagewatch/internal/domain/mocks"
	"github.com/ersonp/pagewatch/internal/domain/ports"
)

func TestSnapshotHandler_SetGetList(t *testing.T) {
	store := mocks.NewSnapshotStore()
	h := NewSnapshotHandler(store)

	snap, err := h.HandleSet(t.Context(), watchURL, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultManualHash, snap.Hash)

	_, err = h.HandleSet(t.Context(), "https://other.example", "abc123")
	require.NoError(t, err)

	got, err := h.HandleGet(t.Context(), "https://other.example")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.Hash)

	list, err := h.HandleList(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, watchURL, list[0].URL)
}

func TestSnapshotHandler_HandleGet_NotFound(t *testing.T) {
	h := NewSnapshotHandler(mocks.NewSnapshotStore())

	_, err := h.HandleGet(t.Context(), watchURL)

	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshotHandler_HandleSet_Errors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		store := mocks.NewSnapshotStore()
		_, err := NewSnapshotHandler(store).HandleSet(t.Context(), "not a url", "")

		require.Error(t, err)
		assert.Equal(t, 0, store.WriteCallCount)
	})

	t.Run("write failure", func(t *testing.T) {
		store := mocks.NewSnapshotStore()
		store.WriteErr = errors.New("read-only database")

		_, err := NewSnapshotHandler(store).HandleSet(t.Context(), watchURL, "abc")

		var pe *ports.PersistenceError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "write", pe.Op)
	})
}
