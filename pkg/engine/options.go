package engine

import (
	"time"

	"github.com/okian/glicko2/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the logger. The engine is silent by default.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the wall clock used by the untimed operations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEpoch fixes the first period boundary. Defaults to construction time.
func WithEpoch(epoch time.Time) Option {
	return func(e *Engine) {
		if !epoch.IsZero() {
			e.epoch = epoch
		}
	}
}

// WithMaxIterations bounds the volatility solver.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}
