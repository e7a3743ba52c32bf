package schememetrics

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/config"
	dashboarddomain "github.com/smallbiznis/shaadmin/internal/dashboard/domain"
	"github.com/smallbiznis/shaadmin/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pushLockKey = "sha:lock:scheme-metrics-push"

var Module = fx.Module("scheme.metrics",
	fx.Provide(NewGauges),
	fx.Provide(NewPusher),
	fx.Provide(NewWorker),
	fx.Invoke(func(lc fx.Lifecycle, w *Worker) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					defer close(done)
					w.Run(ctx)
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
					return nil
				case <-stopCtx.Done():
					return stopCtx.Err()
				}
			},
		})
	}),
)

type WorkerParams struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   dashboarddomain.Repository
	Gauges *Gauges
	Pusher Pusher            `optional:"true"`
	Locker *ratelimit.Locker `optional:"true"`
}

// Worker refreshes the gauges on every replica and pushes them from
// whichever replica holds the push lock.
type Worker struct {
	cfg    config.Config
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   dashboarddomain.Repository
	gauges *Gauges
	pusher Pusher
	locker *ratelimit.Locker
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{
		cfg:    p.Config,
		db:     p.DB,
		log:    p.Log.Named("scheme.metrics"),
		clock:  p.Clock,
		repo:   p.Repo,
		gauges: p.Gauges,
		pusher: p.Pusher,
		locker: p.Locker,
	}
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.cfg.Metrics.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ticker.C:
			w.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick performs one refresh and, when configured, one push.
func (w *Worker) Tick(ctx context.Context) {
	if err := w.gauges.Refresh(ctx, w.db, w.repo, w.clock.Now()); err != nil {
		w.log.Warn("scheme metrics refresh failed", zap.Error(err))
		return
	}
	if w.pusher == nil {
		return
	}
	ttl := w.cfg.RateLimit.MetricLockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	err := w.locker.WithLock(ctx, pushLockKey, ttl, func(ctx context.Context) error {
		return w.pusher.Push(ctx, w.gauges.Registry())
	})
	switch {
	case errors.Is(err, ratelimit.ErrLockHeld):
		w.log.Debug("scheme metrics push skipped, another replica holds the lock")
	case err != nil:
		w.log.Warn("scheme metrics push failed", zap.Error(err))
	}
}
