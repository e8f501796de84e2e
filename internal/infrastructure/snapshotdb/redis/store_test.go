package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := NewStore(t.Context(), config.SnapshotConfig{
		Backend:   config.BackendRedis,
		RedisAddr: mr.Addr(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func stubNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
}

func TestNewStore(t *testing.T) {
	t.Run("empty address", func(t *testing.T) {
		_, err := NewStore(t.Context(), config.SnapshotConfig{})
		require.Error(t, err)
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := NewStore(t.Context(), config.SnapshotConfig{RedisAddr: addr})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connecting to redis")
	})
}

func TestStore_ReadMissing(t *testing.T) {
	store, _ := setupTestStore(t)

	snap, err := store.Read(t.Context(), "https://example.com/pricing")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestStore_WriteThenRead(t *testing.T) {
	store, mr := setupTestStore(t)
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	stubNow(t, now)
	url := "https://example.com/pricing"

	require.NoError(t, store.Write(t.Context(), url, "abc123"))

	assert.Equal(t, "abc123", mr.HGet("pagewatch:snapshot:"+url, "hash"))
	isMember, err := mr.SIsMember("pagewatch:snapshots", url)
	require.NoError(t, err)
	assert.True(t, isMember)

	snap, err := store.Read(t.Context(), url)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, url, snap.URL)
	assert.Equal(t, "abc123", snap.Hash)
	assert.True(t, now.Equal(snap.UpdatedAt))
}

func TestStore_WriteOverwrites(t *testing.T) {
	store, _ := setupTestStore(t)
	url := "https://example.com/pricing"

	require.NoError(t, store.Write(t.Context(), url, "old"))
	require.NoError(t, store.Write(t.Context(), url, "new"))

	snap, err := store.Read(t.Context(), url)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "new", snap.Hash)

	all, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_List(t *testing.T) {
	store, mr := setupTestStore(t)

	empty, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Write(t.Context(), "https://b.example.com", "bbb"))
	require.NoError(t, store.Write(t.Context(), "https://a.example.com", "aaa"))
	require.NoError(t, store.Write(t.Context(), "https://c.example.com", "ccc"))
	mr.Del("pagewatch:snapshot:https://c.example.com")

	all, err := store.List(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "https://a.example.com", all[0].URL)
	assert.Equal(t, "aaa", all[0].Hash)
	assert.Equal(t, "https://b.example.com", all[1].URL)
}

func TestStore_ReadBadTimestamp(t *testing.T) {
	store, mr := setupTestStore(t)
	mr.HSet("pagewatch:snapshot:https://example.com", "hash", "x", "updated_at", "yesterday")

	_, err := store.Read(t.Context(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing updated_at")
}

func TestStore_ServerDown(t *testing.T) {
	store, mr := setupTestStore(t)
	mr.Close()

	_, err := store.Read(t.Context(), "https://example.com")
	assert.Error(t, err)
	assert.Error(t, store.Write(t.Context(), "https://example.com", "x"))
}
