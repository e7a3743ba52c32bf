package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SchemePolicy carries the tunable parameters of the insurance scheme.
// Money is in minor units and rates in basis points.
type SchemePolicy struct {
	ContributionRateBps    int64         `mapstructure:"contributionRateBps"`
	MinimumContribution    int64         `mapstructure:"minimumContribution"`
	PreAuthValidityDays    int           `mapstructure:"preAuthValidityDays"`
	EligibilityGraceMonths int           `mapstructure:"eligibilityGraceMonths"`
	DashboardCacheTTL      time.Duration `mapstructure:"dashboardCacheTTL"`
}

func DefaultSchemePolicy() SchemePolicy {
	return SchemePolicy{
		ContributionRateBps:    275,
		MinimumContribution:    30000,
		PreAuthValidityDays:    30,
		EligibilityGraceMonths: 1,
		DashboardCacheTTL:      time.Minute,
	}
}

type SchemePolicyHolder struct {
	current atomic.Value // holds SchemePolicy
}

// NewStaticSchemePolicy returns a holder that never reloads.
func NewStaticSchemePolicy(policy SchemePolicy) *SchemePolicyHolder {
	holder := &SchemePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewSchemePolicyHolder(cfg Config, log *zap.Logger) (*SchemePolicyHolder, error) {
	log = log.Named("config.scheme")
	v := viper.New()

	if path := strings.TrimSpace(cfg.SchemeConfigPath); path != "" {
		v.SetConfigFile(filepath.Clean(path))
	} else {
		v.SetConfigName("scheme")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/shaadmin")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SHA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSchemePolicy()
	v.SetDefault("scheme.contributionRateBps", defaults.ContributionRateBps)
	v.SetDefault("scheme.minimumContribution", defaults.MinimumContribution)
	v.SetDefault("scheme.preAuthValidityDays", defaults.PreAuthValidityDays)
	v.SetDefault("scheme.eligibilityGraceMonths", defaults.EligibilityGraceMonths)
	v.SetDefault("scheme.dashboardCacheTTL", defaults.DashboardCacheTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		fileLoaded = false
	}

	var policy SchemePolicy
	if err := v.UnmarshalKey("scheme", &policy); err != nil {
		return nil, err
	}
	if err := ValidateSchemePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticSchemePolicy(policy)
	if !fileLoaded {
		log.Info("scheme config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SchemePolicy
		if err := v.UnmarshalKey("scheme", &updated); err != nil {
			log.Warn("scheme policy reload failed", zap.Error(err))
			return
		}
		if err := ValidateSchemePolicy(updated); err != nil {
			log.Warn("invalid scheme policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("scheme policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *SchemePolicyHolder) Get() SchemePolicy {
	if h == nil {
		return DefaultSchemePolicy()
	}
	policy, ok := h.current.Load().(SchemePolicy)
	if !ok {
		return DefaultSchemePolicy()
	}
	return policy
}

func ValidateSchemePolicy(p SchemePolicy) error {
	if p.ContributionRateBps <= 0 || p.ContributionRateBps > 10000 {
		return errors.New("scheme.contributionRateBps must be within (0, 10000]")
	}
	if p.MinimumContribution < 0 {
		return errors.New("scheme.minimumContribution cannot be negative")
	}
	if p.PreAuthValidityDays <= 0 {
		return errors.New("scheme.preAuthValidityDays must be positive")
	}
	if p.EligibilityGraceMonths < 0 {
		return errors.New("scheme.eligibilityGraceMonths cannot be negative")
	}
	if p.DashboardCacheTTL < 0 {
		return errors.New("scheme.dashboardCacheTTL cannot be negative")
	}
	return nil
}
