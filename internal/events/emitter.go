package events

import (
	"context"

	"github.com/smallbiznis/shaadmin/internal/clock"
	obsmetrics "github.com/smallbiznis/shaadmin/internal/observability/metrics"
	"go.uber.org/zap"
)

// Emitter is what services hold. Publish failures are logged and counted,
// never returned, because the state change has already committed.
type Emitter struct {
	pub     Publisher
	log     *zap.Logger
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func NewEmitter(pub Publisher, log *zap.Logger, clk clock.Clock, metrics *obsmetrics.Metrics) *Emitter {
	if pub == nil {
		pub = NewNoopPublisher()
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Emitter{pub: pub, log: log.Named("events"), clock: clk, metrics: metrics}
}

func (e *Emitter) Emit(ctx context.Context, evs ...Event) {
	if e == nil {
		return
	}
	for _, ev := range evs {
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = e.clock.Now()
		}
		err := e.pub.Publish(ctx, ev)
		e.metrics.RecordEventPublished(ctx, string(ev.Type), err == nil)
		if err != nil {
			e.log.Warn("failed to publish event",
				zap.String("type", string(ev.Type)),
				zap.String("entity_id", ev.EntityID.String()),
				zap.Error(err),
			)
		}
	}
}
