// Package worker applies queued match reports to the rating engine.
package worker

import (
	"github.com/okian/glicko2/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithObserver registers a callback invoked after every report, with the
// error RegisterResultAt returned.
func WithObserver(fn func(Report, error)) Option {
	return func(w *InMemoryWorker) {
		w.observe = fn
	}
}
