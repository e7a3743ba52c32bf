package events

import (
	"context"

	"github.com/smallbiznis/shaadmin/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
	fx.Provide(NewEmitter),
)

// NewPublisher connects to the broker when AMQP_URL is set.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	if cfg.AMQP.URL == "" {
		log.Info("amqp not configured, workflow events are dropped")
		return NewNoopPublisher(), nil
	}
	pub, err := DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AppName)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return pub.Close() },
	})
	log.Info("amqp publisher ready", zap.String("exchange", cfg.AMQP.Exchange))
	return pub, nil
}
