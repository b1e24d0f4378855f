package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownStore_SetAndGet_ShouldRoundTripTimestamp(t *testing.T) {
	client, _ := setupRedis(t)
	store := NewCooldownStore(client, "cooldown", 10*time.Second)

	ctx := context.Background()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SetLastVoteAt(ctx, "visitor-1", at))

	got, ok, err := store.LastVoteAt(ctx, "visitor-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, at, got)
}

func TestCooldownStore_LastVoteAt_WhenUnset_ShouldReportAbsent(t *testing.T) {
	client, _ := setupRedis(t)
	store := NewCooldownStore(client, "cooldown", 10*time.Second)

	_, ok, err := store.LastVoteAt(context.Background(), "visitor-unknown")

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCooldownStore_Entry_ShouldExpireAfterWindow(t *testing.T) {
	client, mr := setupRedis(t)
	window := 10 * time.Second
	store := NewCooldownStore(client, "cooldown", window)

	ctx := context.Background()
	require.NoError(t, store.SetLastVoteAt(ctx, "visitor-2", time.Now().UTC()))

	mr.FastForward(window + time.Second)

	_, ok, err := store.LastVoteAt(ctx, "visitor-2")
	require.NoError(t, err)
	assert.False(t, ok)
}
