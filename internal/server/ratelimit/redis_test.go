package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.expires[key] = d
	return redis.NewBoolResult(true, nil)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	fc := newFakeCounter()
	l := newRedisLimiter(fc, 2, 15*time.Minute)
	now := time.Date(2025, 1, 1, 10, 5, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	r, err := l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 15, 0, 0, time.UTC), r.ResetAt)

	r, err = l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	r, err = l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	other, err := l.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "clients have separate budgets")

	now = now.Add(10 * time.Minute)
	r, err = l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, r.Allowed, "a new window starts fresh")

	assert.Len(t, fc.expires, 3, "expiry set once per window key")
	for _, d := range fc.expires {
		assert.Equal(t, 15*time.Minute, d)
	}
}

func TestRedisLimiter_Error(t *testing.T) {
	fc := newFakeCounter()
	fc.incrErr = errors.New("connection refused")
	l := newRedisLimiter(fc, 2, time.Minute)

	_, err := l.Allow(context.Background(), "k")
	assert.ErrorContains(t, err, "connection refused")
}
