package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	"github.com/smallbiznis/shaadmin/internal/clock"
	preauthdomain "github.com/smallbiznis/shaadmin/internal/preauth/domain"
	"github.com/smallbiznis/shaadmin/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePreAuths struct {
	preauthdomain.Service

	calls []time.Time
	actor actorcontext.Actor
	n     int64
	err   error
}

func (f *fakePreAuths) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	f.calls = append(f.calls, now)
	f.actor = actorcontext.ActorOrSystem(ctx)
	return f.n, f.err
}

var now = time.Date(2025, time.July, 1, 2, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, svc preauthdomain.Service, locker *ratelimit.Locker) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(now),
		PreAuthSvc: svc,
		Locker:     locker,
	})
	require.NoError(t, err)
	return s
}

func TestRunJobExpiresAtClockTime(t *testing.T) {
	svc := &fakePreAuths{n: 3}
	s := newScheduler(t, svc, nil)

	n, err := s.RunJob(context.Background(), JobExpirePreAuths)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []time.Time{now}, svc.calls)
	assert.True(t, svc.actor.IsSystem())
}

func TestRunJobUnknown(t *testing.T) {
	s := newScheduler(t, &fakePreAuths{}, nil)
	_, err := s.RunJob(context.Background(), "reindex")
	require.Error(t, err)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := ratelimit.NewLocker(client)

	_, ok, err := locker.TryLock(context.Background(), lockKeyPrefix+JobExpirePreAuths, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	svc := &fakePreAuths{}
	s := newScheduler(t, svc, locker)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, svc.calls)

	_, err = s.RunJob(context.Background(), JobExpirePreAuths)
	assert.ErrorIs(t, err, ratelimit.ErrLockHeld)
}

func TestRunOnceReportsJobErrors(t *testing.T) {
	boom := errors.New("boom")
	s := newScheduler(t, &fakePreAuths{err: boom}, nil)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestProvideConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Duration(0), cfg.RunInterval)
	assert.Equal(t, 2*time.Minute, cfg.LockTTL)
	assert.Equal(t, 30*time.Second, cfg.JobTimeout)
}

func TestRunJobKeepsRequestingActor(t *testing.T) {
	svc := &fakePreAuths{}
	s := newScheduler(t, svc, nil)

	officer := actorcontext.Actor{UserID: 42, Role: "CLAIMS_OFFICER"}
	_, err := s.RunJob(actorcontext.WithActor(context.Background(), officer), JobExpirePreAuths)
	require.NoError(t, err)
	assert.Equal(t, officer, svc.actor)
}
