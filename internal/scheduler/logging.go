package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	"go.uber.org/zap"
)

type jobRun struct {
	job            string
	runID          string
	startedAt      time.Time
	processedCount int64
}

func (s *Scheduler) newJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: time.Now(),
	}
	// On-demand runs keep the requesting actor for the audit trail.
	if _, ok := actorcontext.ActorFromContext(ctx); !ok {
		ctx = actorcontext.WithActor(ctx, actorcontext.System)
	}
	if actorcontext.RequestIDFromContext(ctx) == "" {
		ctx = actorcontext.WithRequestID(ctx, run.runID)
	}
	return ctx, run
}

func (s *Scheduler) logJobStart(run *jobRun) {
	s.log.Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
	)
}

func (s *Scheduler) logJobFinish(run *jobRun, err error) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int64("processed_count", run.processedCount),
	}
	if err != nil {
		s.log.Warn("scheduler.job.finish", append(fields, zap.Error(err))...)
		return
	}
	s.log.Info("scheduler.job.finish", fields...)
}
