package app

import (
	"time"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithTargets names the engine targets of each chart.
func WithTargets(t Targets) Option {
	return func(c *Controller) {
		c.targets = t
	}
}

// WithDebounce sets the date-range debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounceDelay = d
		}
	}
}

// WithFetchWorkers sets how many backend fetches run concurrently.
func WithFetchWorkers(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.fetchWorkers = n
		}
	}
}

// WithEventQueueSize bounds pending loop events.
func WithEventQueueSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.eventQueueSize = n
		}
	}
}

// WithFetchQueueSize bounds pending fetches.
func WithFetchQueueSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.fetchQueueSize = n
		}
	}
}

// WithAnalysisDefaults replaces the similarity defaults restored by Reset.
func WithAnalysisDefaults(o analysis.Options) Option {
	return func(c *Controller) {
		if o.Validate() == nil {
			c.defaults = o
		}
	}
}

// WithNotifier sets where notices are shown.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
