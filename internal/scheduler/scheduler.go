package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/clock"
	preauthdomain "github.com/smallbiznis/shaadmin/internal/preauth/domain"
	"github.com/smallbiznis/shaadmin/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobExpirePreAuths = "expire_preauths"

	lockKeyPrefix = "sha:lock:scheduler:"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	PreAuthSvc preauthdomain.Service
	Locker     *ratelimit.Locker `optional:"true"`
	Config     Config            `optional:"true"`
}

type job struct {
	name string
	fn   func(ctx context.Context) (int64, error)
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	locker     *ratelimit.Locker
	preAuthSvc preauthdomain.Service
	jobs       []job
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.PreAuthSvc == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		locker:     p.Locker,
		preAuthSvc: p.PreAuthSvc,
	}
	s.jobs = []job{
		{name: JobExpirePreAuths, fn: s.ExpirePreAuthorizations},
	}
	return s, nil
}

// ExpirePreAuthorizations expires approvals whose validity has lapsed.
func (s *Scheduler) ExpirePreAuthorizations(ctx context.Context) (int64, error) {
	return s.preAuthSvc.ExpireStale(ctx, s.clock.Now())
}

// RunJob runs one named job under its replica lock. A job whose lock is held
// elsewhere is skipped and reported as ratelimit.ErrLockHeld.
func (s *Scheduler) RunJob(parent context.Context, name string) (int64, error) {
	for _, j := range s.jobs {
		if j.name == name {
			return s.runJob(parent, j)
		}
	}
	return 0, fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) runJob(parent context.Context, j job) (int64, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, run := s.newJobRun(ctx, j.name)
	err := s.locker.WithLock(ctx, lockKeyPrefix+j.name, s.cfg.LockTTL, func(ctx context.Context) error {
		s.logJobStart(run)
		n, err := j.fn(ctx)
		run.processedCount = n
		s.logJobFinish(run, err)
		return err
	})
	if err != nil {
		if errors.Is(err, ratelimit.ErrLockHeld) {
			s.log.Debug("scheduler.job.skipped", zap.String("job", j.name), zap.String("run_id", run.runID))
		}
		return 0, err
	}
	return run.processedCount, nil
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	for _, j := range s.jobs {
		_, jobErr := s.runJob(ctx, j)
		if jobErr == nil || errors.Is(jobErr, ratelimit.ErrLockHeld) {
			continue
		}
		err = errors.Join(err, fmt.Errorf("%s: %w", j.name, jobErr))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	if s.cfg.RunInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
