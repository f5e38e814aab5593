package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreOnlineSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.MarkOnline(ctx, "u1"))
	require.NoError(t, store.MarkOnline(ctx, "u2"))
	require.NoError(t, store.MarkOffline(ctx, "u2"))

	online, err := store.OnlineSet(ctx, []string{"u1", "u2", "u3"})
	require.NoError(t, err)
	assert.True(t, online["u1"])
	assert.False(t, online["u2"])
	assert.False(t, online["u3"])
}

func TestMemoryStoreLastMessage(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := store.GetLastMessage(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.RecordMessage(ctx, "u1", "first", at))
	require.NoError(t, store.RecordMessage(ctx, "u1", "latest", at.Add(time.Minute)))

	last, ok, err := store.GetLastMessage(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "latest", last.Content)
	assert.True(t, last.At.Equal(at.Add(time.Minute)))
}

func TestNewStoreFallsBackToMemory(t *testing.T) {
	// No redis listening on a reserved port: the store degrades instead of
	// failing startup.
	store := NewStore("127.0.0.1:1")
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}
