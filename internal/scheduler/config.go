package scheduler

import (
	"time"

	"github.com/smallbiznis/backoffice/internal/config"
)

// Config controls the audit interval and whether drift is repaired.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	AutoRepair  bool
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		JobTimeout:  5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Ledger.AuditInterval,
		AutoRepair:  cfg.Ledger.AuditRepair,
	}
}
