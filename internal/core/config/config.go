package config

import (
	"time"

	"github.com/idcvault/idcvault/internal/collector/identitycenter"
	redisclient "github.com/idcvault/idcvault/internal/infra/redis"
	"github.com/idcvault/idcvault/internal/infra/storage/postgres"
	"github.com/idcvault/idcvault/internal/resilience"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig          `yaml:"server"`
	AWS       identitycenter.Config `yaml:"aws"`
	Database  postgres.Config       `yaml:"database"`
	Redis     redisclient.Config    `yaml:"redis"`
	Logging   LoggingConfig         `yaml:"logging"`
	Retry     RetryConfig           `yaml:"retry"`
	Operation OperationConfig       `yaml:"operation"`
}

// ServerConfig holds HTTP server settings for health and metrics.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig tunes the retry executor. Zero values fall back to the
// built-in policy defaults.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	ExponentialBase float64       `yaml:"exponential_base"`
}

// Policy converts the configured overrides into a full retry policy.
func (c RetryConfig) Policy() resilience.RetryPolicy {
	p := resilience.DefaultRetryPolicy()
	if c.MaxRetries > 0 {
		p.MaxRetries = c.MaxRetries
	}
	if c.BaseDelay > 0 {
		p.BaseDelay = c.BaseDelay
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay
	}
	if c.ExponentialBase > 1 {
		p.ExponentialBase = c.ExponentialBase
	}
	return p
}

// OperationConfig holds workflow-level settings.
type OperationConfig struct {
	// RetentionPeriod bounds how long finished operation states and error
	// reports are kept.
	RetentionPeriod time.Duration `yaml:"retention_period"`
	// DisableRollback leaves applied changes in place when a restore fails.
	DisableRollback bool `yaml:"disable_rollback"`
}
