// Package worker runs queued tasks.
package worker

import (
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
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

// WithPool sets the pool label used in metrics.
func WithPool(pool string) Option {
	return func(w *InMemoryWorker) {
		if pool != "" {
			w.pool = pool
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
