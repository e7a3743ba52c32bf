package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	_, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "sweep", "someone-else"))
	_, ok, err = locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a foreign token must not release the lock")

	require.NoError(t, locker.Release(ctx, "sweep", token))
	_, ok, err = locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithLock(t *testing.T) {
	_, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	calls := 0
	err := locker.WithLock(ctx, "push", time.Minute, func(ctx context.Context) error {
		calls++
		nested := locker.WithLock(ctx, "push", time.Minute, func(context.Context) error {
			calls++
			return nil
		})
		assert.True(t, errors.Is(nested, ErrLockHeld))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// released after the first run
	require.NoError(t, locker.WithLock(ctx, "push", time.Minute, func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 2, calls)

	var single *Locker
	require.NoError(t, single.WithLock(ctx, "push", time.Minute, func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 3, calls)
}

func TestLimiterExhaustsBurst(t *testing.T) {
	_, client := newRedis(t)
	cfg := config.Config{RateLimit: config.RateLimitConfig{
		Enabled:     true,
		WriteRate:   0.01,
		WriteBurst:  2,
		ReportRate:  0.01,
		ReportBurst: 1,
	}}
	limiter, err := NewLimiter(LimiterParams{Config: cfg, Redis: client})
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, ClassWrite, "42")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := limiter.Allow(ctx, ClassWrite, "42")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	// buckets are per subject and per class
	res, err = limiter.Allow(ctx, ClassWrite, "43")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = limiter.Allow(ctx, ClassReport, "42")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestDisabledLimiterAdmitsAll(t *testing.T) {
	limiter, err := NewLimiter(LimiterParams{Config: config.Config{}})
	require.NoError(t, err)
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), ClassReport, "")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiterRequiresRedis(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, WriteRate: 1, WriteBurst: 1, ReportRate: 1, ReportBurst: 1}}
	_, err := NewLimiter(LimiterParams{Config: cfg})
	assert.Error(t, err)
}
