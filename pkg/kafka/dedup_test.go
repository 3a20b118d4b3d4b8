package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryDedupStore_ClaimOnce(t *testing.T) {
	s := NewMemoryDedupStore(time.Minute)
	ctx := context.Background()

	first, err := s.Claim(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.Claim(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, s.Release(ctx, "e1"))
	first, _ = s.Claim(ctx, "e1")
	assert.True(t, first)
}

func TestMemoryDedupStore_ExpiresAndSweeps(t *testing.T) {
	s := NewMemoryDedupStore(time.Minute)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = s.Claim(ctx, "old")
	now = now.Add(2 * time.Minute)

	first, err := s.Claim(ctx, "old")
	require.NoError(t, err)
	assert.True(t, first, "expired claim counts as new")

	now = now.Add(2 * time.Minute)
	_, _ = s.Claim(ctx, "fresh")
	assert.Equal(t, 1, s.Len())
}

func TestRedisDedupStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisDedupStore(client, "relay:inst-a:", time.Minute)
	ctx := context.Background()

	first, err := s.Claim(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, mr.Exists("relay:inst-a:e1"))
	assert.Equal(t, time.Minute, mr.TTL("relay:inst-a:e1"))

	again, err := s.Claim(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, s.Release(ctx, "e1"))
	assert.False(t, mr.Exists("relay:inst-a:e1"))
}

type failingStore struct{}

func (failingStore) Claim(context.Context, string) (bool, error) { return false, errors.New("down") }
func (failingStore) Release(context.Context, string) error       { return errors.New("down") }

func TestDeduplicate(t *testing.T) {
	ctx := context.Background()
	calls := 0
	fail := false
	inner := func(context.Context, *Event) error {
		calls++
		if fail {
			return errors.New("boom")
		}
		return nil
	}

	t.Run("second delivery is a duplicate", func(t *testing.T) {
		calls = 0
		h := Deduplicate(NewMemoryDedupStore(time.Minute), inner, quietLogger())
		ev := &Event{EventID: "e1", EventType: "cart.changed"}

		require.NoError(t, h(ctx, ev))
		assert.ErrorIs(t, h(ctx, ev), ErrDuplicate)
		assert.Equal(t, 1, calls)
	})

	t.Run("failure releases the claim", func(t *testing.T) {
		calls = 0
		store := NewMemoryDedupStore(time.Minute)
		h := Deduplicate(store, inner, quietLogger())
		ev := &Event{EventID: "e2", EventType: "cart.changed"}

		fail = true
		require.Error(t, h(ctx, ev))
		fail = false
		require.NoError(t, h(ctx, ev))
		assert.Equal(t, 2, calls)
	})

	t.Run("missing id and store errors pass through", func(t *testing.T) {
		calls = 0
		require.NoError(t, Deduplicate(NewMemoryDedupStore(time.Minute), inner, quietLogger())(ctx, &Event{EventType: "x"}))
		require.NoError(t, Deduplicate(failingStore{}, inner, quietLogger())(ctx, &Event{EventID: "e3", EventType: "x"}))
		assert.Equal(t, 2, calls)
	})
}
