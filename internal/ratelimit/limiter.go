package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shaadmin/internal/config"
	obsmetrics "github.com/smallbiznis/shaadmin/internal/observability/metrics"
	"go.uber.org/fx"
)

// Class groups endpoints sharing one bucket per actor.
type Class string

const (
	ClassWrite  Class = "write"
	ClassReport Class = "report"
)

const keyBucket = "sha:ratelimit:%s:%s"

type rule struct {
	rate  float64
	burst int
}

// Limiter admits requests per actor and endpoint class. A nil or disabled
// Limiter admits everything.
type Limiter struct {
	bucket  *TokenBucket
	rules   map[Class]rule
	metrics *obsmetrics.Metrics
}

type LimiterParams struct {
	fx.In

	Config  config.Config
	Redis   *redis.Client       `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewLimiter(p LimiterParams) (*Limiter, error) {
	cfg := p.Config.RateLimit
	if !cfg.Enabled {
		return nil, nil
	}
	if p.Redis == nil {
		return nil, errors.New("rate limiting requires REDIS_ADDR")
	}
	if cfg.WriteRate <= 0 || cfg.WriteBurst <= 0 {
		return nil, errors.New("write rate limit must be positive")
	}
	if cfg.ReportRate <= 0 || cfg.ReportBurst <= 0 {
		return nil, errors.New("report rate limit must be positive")
	}
	return &Limiter{
		bucket: NewTokenBucket(p.Redis),
		rules: map[Class]rule{
			ClassWrite:  {rate: cfg.WriteRate, burst: cfg.WriteBurst},
			ClassReport: {rate: cfg.ReportRate, burst: cfg.ReportBurst},
		},
		metrics: p.Metrics,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow takes one token from subject's bucket for class.
func (l *Limiter) Allow(ctx context.Context, class Class, subject string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	r, ok := l.rules[class]
	if !ok {
		return nil, fmt.Errorf("unknown rate limit class %q", class)
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyBucket, class, subject), r.rate, r.burst)
	if err != nil {
		l.metrics.RecordRateLimitDenied(ctx, string(class), "error")
		return nil, err
	}
	if res.Allowed {
		l.metrics.RecordRateLimitAllowed(ctx, string(class))
	} else {
		l.metrics.RecordRateLimitDenied(ctx, string(class), "exhausted")
	}
	return res, nil
}
