package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clockAt(start time.Time) (func() time.Time, *time.Time) {
	now := start
	return func() time.Time { return now }, &now
}

func TestMemoryStore_PutGetDelete(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, "k", "v", 0))
	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", v)

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "k", "missing"))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	t.Parallel()

	tick, now := clockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	s := NewMemoryStoreWithClock(tick)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "short", "v", time.Minute))
	require.NoError(t, s.Put(ctx, "forever", "v", 0))

	*now = now.Add(30 * time.Second)
	ok, err := s.Exists(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)

	*now = now.Add(31 * time.Second)
	ok, err = s.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires once the deadline passes")

	ok, err = s.Exists(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok, "zero TTL means no expiry")
}

func TestMemoryStore_Sets(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	members, err := s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, s.AddToSet(ctx, "set", "a", time.Hour))
	require.NoError(t, s.AddToSet(ctx, "set", "b", time.Hour))
	require.NoError(t, s.AddToSet(ctx, "set", "a", time.Hour)) // set semantics

	members, err = s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	require.NoError(t, s.RemoveFromSet(ctx, "set", "a"))
	members, err = s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)

	require.NoError(t, s.Delete(ctx, "set"))
	members, err = s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMemoryStore_SetExpiry(t *testing.T) {
	t.Parallel()

	tick, now := clockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	s := NewMemoryStoreWithClock(tick)
	ctx := context.Background()

	require.NoError(t, s.AddToSet(ctx, "set", "a", time.Minute))
	*now = now.Add(2 * time.Minute)
	members, err := s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMemoryStore_ContextCancellation(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Put(ctx, "k", "v", 0))
	_, _, err := s.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, s.AddToSet(ctx, "set", "a", 0))
}
