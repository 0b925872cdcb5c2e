package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

// SetDateRange feeds a slider value. Values are debounced; only the last one
// of a quiet period is applied.
func (c *Controller) SetDateRange(ctx context.Context, start, end filter.YearMonth) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: both bounds are required", filter.ErrInvalidYearMonth)
	}
	return c.call(ctx, func() error {
		c.scheduleDateRange(start, end)
		return nil
	})
}

// SelectCategory sets or clears the category. The subcategory is cleared and
// only the products chart is refreshed.
func (c *Controller) SelectCategory(ctx context.Context, category string) error {
	return c.call(ctx, func() error {
		if category != "" && len(c.taxonomy.Categories) > 0 && !slices.Contains(c.taxonomy.Categories, category) {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		c.filters.SetCategory(category)
		metrics.RecordFilterMutation("category")
		c.refresh(query.Products)
		return nil
	})
}

// SelectSubcategory sets or clears the subcategory of the current category.
func (c *Controller) SelectSubcategory(ctx context.Context, subcategory string) error {
	return c.call(ctx, func() error {
		if subcategory != "" {
			if subs, ok := c.taxonomy.Subcategories[c.filters.Category()]; ok && !slices.Contains(subs, subcategory) {
				return fmt.Errorf("%w: subcategory %q", ErrUnknownCategory, subcategory)
			}
		}
		if err := c.filters.SetSubcategory(subcategory); err != nil {
			return err
		}
		metrics.RecordFilterMutation("subcategory")
		c.refresh(query.Products)
		return nil
	})
}

// OpenSimilarity shows the similarity panel and loads its data.
func (c *Controller) OpenSimilarity(ctx context.Context) error {
	return c.call(ctx, func() error {
		if c.similarityOpen {
			return nil
		}
		c.similarityOpen = true
		c.refreshSimilarity()
		return nil
	})
}

// CloseSimilarity hides the similarity panel.
func (c *Controller) CloseSimilarity(ctx context.Context) error {
	return c.call(ctx, func() error {
		c.similarityOpen = false
		return nil
	})
}

// SubmitSimilarity validates and applies new analysis options. Invalid
// options are rejected synchronously and nothing is requested.
func (c *Controller) SubmitSimilarity(ctx context.Context, opts analysis.Options) error {
	return c.call(ctx, func() error {
		if err := opts.Validate(); err != nil {
			c.reject(err)
			return err
		}
		c.opts = opts
		c.computeSimilarity()
		return nil
	})
}

// Reset returns the dashboard to its initial state. Only the country and
// profile survive: dates, categories and the lasso selection are cleared,
// the analysis defaults restored, the response caches emptied and the map
// view reset. Charts whose query changed are reloaded.
func (c *Controller) Reset(ctx context.Context) error {
	return c.call(ctx, func() error {
		prev := c.filters.Snapshot()
		lasso := len(prev.SelectedCustomers) > 0 || len(c.lassoCountries) > 0 || len(c.lassoProfiles) > 0

		c.deb.stop()
		c.opts = c.defaults
		c.charts.Clear()
		c.embeddings.Clear()
		c.customers.Clear()

		c.filters.Reset()
		c.filters.SetCountry(prev.Country)
		c.filters.SetProfile(prev.Profile)
		c.lassoCountries = map[string]bool{}
		c.lassoProfiles = map[string]bool{}
		metrics.RecordFilterMutation("reset")
		c.highlightMap()
		c.highlightProfiles()
		if _, err := c.mapProxy.ResetView(); err != nil {
			c.logger.Warn(c.ctx, "map view not reset", logger.Error(err))
		}

		switch {
		case prev.HasDateRange():
			c.refresh(query.Profiles, query.Sales, query.Products)
		case prev.Category != "" || lasso:
			c.refresh(query.Products)
		}
		if prev.HasDateRange() && c.similarityOpen {
			c.loadCustomerIDs()
		}
		c.computeSimilarity()
		return nil
	})
}

// Pan moves the map by the given degrees.
func (c *Controller) Pan(ctx context.Context, dLon, dLat float64) (render.View, error) {
	var v render.View
	err := c.call(ctx, func() error {
		var err error
		v, err = c.mapProxy.Pan(dLon, dLat)
		return err
	})
	return v, err
}

// Zoom applies wheel ticks to the map; positive ticks zoom in.
func (c *Controller) Zoom(ctx context.Context, ticks int) (render.View, error) {
	var v render.View
	err := c.call(ctx, func() error {
		var err error
		v, err = c.mapProxy.Zoom(ticks)
		return err
	})
	return v, err
}
