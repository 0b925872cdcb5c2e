package app

import (
	"context"
	"slices"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/backend"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
)

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Filters         filter.State                    `json:"filters"`
	Analysis        analysis.Options                `json:"analysis"`
	KEnabled        bool                            `json:"k_enabled"`
	Charts          map[query.ChartKind]ChartStatus `json:"charts"`
	SimilarityOpen  bool                            `json:"similarity_open"`
	Computing       bool                            `json:"computing"`
	CustomerOptions []string                        `json:"customer_options,omitempty"`
	Categories      []string                        `json:"categories,omitempty"`
	Subcategories   []string                        `json:"subcategories,omitempty"`
	Lasso           Lasso                           `json:"lasso"`
	SalesDetail     *backend.SalesDetail            `json:"sales_detail,omitempty"`
	DateSpan        filter.Span                     `json:"date_span"`
	Inflight        int                             `json:"inflight"`
	CacheEntries    int                             `json:"cache_entries"`
	Notices         []Notice                        `json:"notices,omitempty"`
}

// Lasso is the similarity multi-selection and what it covers.
type Lasso struct {
	Customers []string `json:"customers,omitempty"`
	Countries []string `json:"countries,omitempty"`
	Profiles  []string `json:"profiles,omitempty"`
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := c.call(ctx, func() error {
		s = Snapshot{
			Filters:         c.filters.Snapshot(),
			Analysis:        c.opts,
			KEnabled:        c.opts.KEnabled(),
			Charts:          make(map[query.ChartKind]ChartStatus, len(c.status)),
			SimilarityOpen:  c.similarityOpen,
			Computing:       c.computing,
			CustomerOptions: slices.Clone(c.customerOptions),
			Categories:      slices.Clone(c.taxonomy.Categories),
			Subcategories:   slices.Clone(c.taxonomy.Subcategories[c.filters.Category()]),
			Lasso: Lasso{
				Customers: c.filters.SelectedCustomers(),
				Countries: sortedKeys(c.lassoCountries),
				Profiles:  sortedKeys(c.lassoProfiles),
			},
			DateSpan:     c.span,
			Inflight:     c.inflight,
			CacheEntries: c.charts.Len() + c.embeddings.Len() + c.customers.Len(),
			Notices:      slices.Clone(c.notices),
		}
		for k, v := range c.status {
			s.Charts[k] = v
		}
		if c.detail != nil {
			d := *c.detail
			s.SalesDetail = &d
		}
		return nil
	})
	return s, err
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
