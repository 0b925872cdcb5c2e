package app

import (
	"context"
	"time"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

// debouncer coalesces date-range changes. Every trigger cancels the pending
// one; only the last trigger of a quiet period fires. Loop-owned.
type debouncer struct {
	timer *time.Timer
	seq   uint64
	armed bool
	start filter.YearMonth
	end   filter.YearMonth
}

func (d *debouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
	d.seq++
}

// scheduleDateRange arms the debounce timer for a slider change.
func (c *Controller) scheduleDateRange(start, end filter.YearMonth) {
	metrics.RecordDebounceTrigger()
	c.deb.stop()
	c.deb.armed = true
	c.deb.start, c.deb.end = start, end
	seq := c.deb.seq
	c.deb.timer = time.AfterFunc(c.debounceDelay, func() {
		err := c.events.Put(c.ctx, func(context.Context) {
			if c.deb.seq != seq || !c.deb.armed {
				return
			}
			c.deb.armed = false
			c.applyDateRange(c.deb.start, c.deb.end)
		})
		if err != nil {
			c.logger.Debug(c.ctx, "debounced date range dropped", logger.Error(err))
		}
	})
}
