package scheduler

import (
	"time"

	"github.com/smallbiznis/shaadmin/internal/config"
)

// Config controls the sweep loop. A zero RunInterval disables the loop; the
// jobs can still be run once from the command line.
type Config struct {
	RunInterval time.Duration
	LockTTL     time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		LockTTL:    2 * time.Minute,
		JobTimeout: 30 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.PreAuthSweepInterval,
		LockTTL:     cfg.RateLimit.SweepLockTTL,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
