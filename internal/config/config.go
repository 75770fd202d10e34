// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - All loaders accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/glicko2/pkg/engine"
	"github.com/okian/glicko2/pkg/glicko2"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// StartRating, StartDeviation and StartVolatility describe a new player.
	StartRating     float64 `koanf:"start_rating"`
	StartDeviation  float64 `koanf:"start_deviation"`
	StartVolatility float64 `koanf:"start_volatility"`

	// VolatilityChange is tau.
	VolatilityChange float64 `koanf:"volatility_change"`

	// ConvergenceTolerance is epsilon for the volatility solver.
	ConvergenceTolerance float64 `koanf:"convergence_tolerance"`

	// RatingPeriodSeconds is the width of one rating period.
	RatingPeriodSeconds int `koanf:"rating_period_seconds"`

	// MaxIterations bounds the volatility solver.
	MaxIterations int `koanf:"max_iterations"`

	// QueueSize bounds the in-memory match report queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the report deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// CloseIntervalMS is how often the service tries to seal periods. Zero
	// disables the close loop.
	CloseIntervalMS int `koanf:"close_interval_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	def := engine.DefaultSettings()
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		StartRating:          def.StartRating.Rating,
		StartDeviation:       def.StartRating.Deviation,
		StartVolatility:      def.StartRating.Volatility,
		VolatilityChange:     def.VolatilityChange,
		ConvergenceTolerance: def.ConvergenceTolerance,
		RatingPeriodSeconds:  int(def.RatingPeriodDuration / time.Second),
		MaxIterations:        glicko2.DefaultMaxIterations,
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU(),
		DedupeSize:           100_000,
		CloseIntervalMS:      1_000,
	}
}

// Validate checks the fields that have no sensible zero value.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	}
	if c.RatingPeriodSeconds <= 0 {
		return fmt.Errorf("%w: rating_period_seconds must be positive", ErrInvalidConfig)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.DedupeSize < 0 || c.CloseIntervalMS < 0 {
		return fmt.Errorf("%w: dedupe_size and close_interval_ms must not be negative", ErrInvalidConfig)
	}
	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Settings maps the engine-related fields to engine.Settings.
func (c *Config) Settings() engine.Settings {
	return engine.Settings{
		StartRating:          glicko2.NewRating(c.StartRating, c.StartDeviation, c.StartVolatility),
		VolatilityChange:     c.VolatilityChange,
		ConvergenceTolerance: c.ConvergenceTolerance,
		RatingPeriodDuration: time.Duration(c.RatingPeriodSeconds) * time.Second,
	}
}

// CloseInterval returns CloseIntervalMS as a duration.
func (c *Config) CloseInterval() time.Duration {
	return time.Duration(c.CloseIntervalMS) * time.Millisecond
}
