package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Settings : migration tunables shared by every source/target pairing
type Settings struct {
	BatchSize         int    `json:"batch_size"`
	RetryCount        int    `json:"retry_count"`
	LogLevel          string `json:"log_level"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	// SkipExisting : treat creating an already existing list as success
	SkipExisting bool `json:"skip_existing"`
}

// Config : configuration for the job
type Config[S any, T any] struct {
	MaxConcurrency int      `json:"max_concurrency"`
	Settings       Settings `json:"migration_settings"`
	SourceConfig   S        `json:"source"`
	Target         T        `json:"target"`
}

// Validatable : source/target configs that can check their own connection
// parameters
type Validatable interface {
	Validate() error
}

// RequestTimeout : per collaborator call timeout, zero disables deadlines
func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

// Level : parses the configured log level, unknown values fall back to info
func (s Settings) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil || s.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate : rejects bad tunables and bad connection parameters before any
// connection attempt is made
func (c *Config[S, T]) Validate() error {
	if c.Settings.BatchSize < 1 {
		return fmt.Errorf("migration_settings.batch_size must be >= 1 got %d", c.Settings.BatchSize)
	}
	if c.Settings.RetryCount < 0 {
		return fmt.Errorf("migration_settings.retry_count must be >= 0 got %d", c.Settings.RetryCount)
	}
	if c.Settings.RequestTimeoutSec < 0 {
		return fmt.Errorf("migration_settings.request_timeout_sec must be >= 0 got %d", c.Settings.RequestTimeoutSec)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0 got %d", c.MaxConcurrency)
	}
	if v, ok := any(&c.SourceConfig).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("source : %w", err)
		}
	}
	if v, ok := any(&c.Target).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("target : %w", err)
		}
	}
	return nil
}
