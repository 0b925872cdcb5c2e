package app

import (
	"context"
	"time"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/backend"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/similarity"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

// bind subscribes the controller to the chart interactions it reacts to.
func (c *Controller) bind() {
	c.mapProxy.On(render.Click, c.handle(query.Map, c.onMapClick))
	c.mapProxy.On(render.Hover, c.handle(query.Map, c.onMapHover))
	c.mapProxy.On(render.Unhover, c.handle(query.Map, c.onMapUnhover))
	c.proxies[query.Profiles].On(render.Click, c.handle(query.Profiles, c.onProfileClick))
	c.proxies[query.Sales].On(render.Click, c.handle(query.Sales, c.onSalesClick))
	c.proxies[query.Similarity].On(render.Click, c.handle(query.Similarity, c.onSimilarityClick))
	c.proxies[query.Similarity].On(render.Select, c.handle(query.Similarity, c.onSimilaritySelect))
	c.proxies[query.Similarity].On(render.Deselect, c.handle(query.Similarity, c.onSimilarityDeselect))
}

// handle moves an engine event onto the loop.
func (c *Controller) handle(kind query.ChartKind, fn func(render.Event)) render.Handler {
	return func(ev render.Event) {
		metrics.RecordInteraction(string(kind), string(ev.Kind))
		if err := c.post(func() { fn(ev) }); err != nil {
			c.logger.Warn(c.ctx, "interaction dropped",
				logger.String("chart", string(kind)),
				logger.String("event", string(ev.Kind)),
				logger.Error(err))
		}
	}
}

func firstLocation(ev render.Event) string {
	for _, p := range ev.Points {
		if p.Location != "" {
			return p.Location
		}
	}
	return ""
}

func (c *Controller) onMapHover(ev render.Event) {
	loc := firstLocation(ev)
	if loc == "" {
		return
	}
	if c.countries[loc] {
		c.mapProxy.SetCursor(render.CursorPointer)
		return
	}
	c.mapProxy.SetCursor(render.CursorNotAllowed)
}

func (c *Controller) onMapUnhover(render.Event) {
	c.mapProxy.SetCursor(render.CursorDefault)
}

// onMapClick toggles the country filter. Countries without data are ignored
// before any state changes.
func (c *Controller) onMapClick(ev render.Event) {
	loc := firstLocation(ev)
	if loc == "" {
		return
	}
	if !c.countries[loc] {
		c.mapProxy.SetCursor(render.CursorNotAllowed)
		c.logger.Debug(c.ctx, "ignored click on country without data", logger.String("country", loc))
		return
	}
	if c.filters.Country() == loc {
		c.filters.SetCountry("")
	} else {
		c.filters.SetCountry(loc)
	}
	metrics.RecordFilterMutation("country")
	c.highlightMap()
	c.refresh(query.Profiles, query.Sales, query.Products)
	if c.similarityOpen {
		c.refreshSimilarity()
	}
}

// onProfileClick toggles the profile filter. The profiles chart is only
// restyled; sales and products are refetched.
func (c *Controller) onProfileClick(ev render.Event) {
	if len(ev.Points) == 0 {
		return
	}
	label := ev.Points[0].Label
	if label == "" {
		return
	}
	if c.filters.Profile() == label {
		c.filters.SetProfile("")
	} else {
		c.filters.SetProfile(label)
	}
	metrics.RecordFilterMutation("profile")
	c.highlightProfiles()
	c.refresh(query.Sales, query.Products)
}

// onSalesClick opens the drill-down of the clicked day.
func (c *Controller) onSalesClick(ev render.Event) {
	if len(ev.Points) == 0 {
		return
	}
	day := dayOf(ev.Points[0].X)
	if day == "" {
		return
	}
	req := query.BuildSalesDetail(c.filters.Snapshot(), day)
	load[backend.SalesDetail](c, query.SalesDetail, req, nil, func(ctx context.Context) (backend.SalesDetail, error) {
		return c.backend.SalesDetail(ctx, req)
	}, func(d backend.SalesDetail, err error) {
		if err != nil {
			c.fail(query.SalesDetail, err)
			return
		}
		c.detail = &d
		c.setState(query.SalesDetail, Idle, "")
	})
}

func dayOf(x any) string {
	s, ok := x.(string)
	if !ok || len(s) < len(time.DateOnly) {
		return ""
	}
	s = s[:len(time.DateOnly)]
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return ""
	}
	return s
}

// applyDateRange commits a debounced slider value. A range covering the whole
// dataset is the same as no date filter.
func (c *Controller) applyDateRange(start, end filter.YearMonth) {
	metrics.RecordDebounceFire()
	if c.span.Covers(start, end) {
		c.filters.ClearDateRange()
	} else {
		c.filters.SetDateRange(start, end)
	}
	metrics.RecordFilterMutation("date_range")
	c.refresh(query.Profiles, query.Sales, query.Products)
	if c.similarityOpen {
		c.refreshSimilarity()
	}
}

// onSimilaritySelect applies a lasso or box selection of customers.
func (c *Controller) onSimilaritySelect(ev render.Event) {
	var ids []string
	for _, p := range ev.Points {
		if p.CustomerID != "" {
			ids = append(ids, p.CustomerID)
		}
	}
	if len(ids) == 0 {
		c.onSimilarityDeselect(ev)
		return
	}
	sel := c.embedding.Select(ids)
	c.filters.SetSelectedCustomers(sel.CustomerIDs)
	c.lassoCountries = sel.Countries
	c.lassoProfiles = sel.Profiles
	metrics.RecordFilterMutation("selected_customers")
	c.highlightMap()
	c.highlightProfiles()
	c.refresh(query.Products)
}

// onSimilarityDeselect clears the lasso selection and reverts the products
// chart to the ordinary view.
func (c *Controller) onSimilarityDeselect(render.Event) {
	if len(c.filters.SelectedCustomers()) == 0 && len(c.lassoCountries) == 0 && len(c.lassoProfiles) == 0 {
		return
	}
	c.clearLasso()
	c.refresh(query.Products)
}

func (c *Controller) clearLasso() {
	c.filters.ClearSelectedCustomers()
	c.lassoCountries = map[string]bool{}
	c.lassoProfiles = map[string]bool{}
	metrics.RecordFilterMutation("selected_customers")
	c.highlightMap()
	c.highlightProfiles()
}

// onSimilarityClick toggles the clicked customer as the focused customer.
func (c *Controller) onSimilarityClick(ev render.Event) {
	id := ""
	for _, p := range ev.Points {
		if p.CustomerID != "" {
			id = p.CustomerID
			break
		}
	}
	if id == "" {
		return
	}
	c.opts = c.opts.WithCustomer(id, c.defaults.K)
	c.computeSimilarity()
}

// refresh reloads the given charts from the current filters. The filters are
// read again for every chart: a cached profiles chart resolves synchronously
// and may clear the profile before the later charts are built.
func (c *Controller) refresh(kinds ...query.ChartKind) {
	for _, kind := range kinds {
		st := c.filters.Snapshot()
		var req query.Request
		if kind == query.Products {
			req = query.BuildProductsView(st)
		} else {
			r, ok := query.Build(st, kind)
			if !ok {
				continue
			}
			req = r
		}
		if c.latest[kind] == req.Key() && c.status[kind].State == Loading {
			continue
		}
		c.loadChart(kind, req)
	}
}

func (c *Controller) loadChart(slot query.ChartKind, req query.Request) {
	load(c, slot, req, c.charts, func(ctx context.Context) (chart.Spec, error) {
		return c.backend.Chart(ctx, req)
	}, func(spec chart.Spec, err error) {
		c.showChart(slot, spec, err)
	})
}

// showChart applies a resolved chart request.
func (c *Controller) showChart(slot query.ChartKind, spec chart.Spec, err error) {
	p := c.proxies[slot]
	switch {
	case backend.IsNoData(err), err == nil && spec.IsEmpty():
		c.showEmpty(slot)
	case err != nil:
		c.fail(slot, err)
	default:
		if rerr := p.Render(spec); rerr != nil {
			c.fail(slot, rerr)
			return
		}
		c.setState(slot, Idle, "")
	}
	if slot == query.Profiles {
		c.afterProfiles()
	}
}

// afterProfiles keeps the profile selection consistent with the new profiles
// chart: a profile no longer on the axis is dropped, otherwise its highlight
// is reapplied.
func (c *Controller) afterProfiles() {
	profile := c.filters.Profile()
	if profile == "" {
		c.highlightProfiles()
		return
	}
	st := c.status[query.Profiles]
	if st.State == Error {
		return
	}
	spec, _ := c.proxies[query.Profiles].Spec()
	if st.Empty || !spec.Contains(profile) {
		c.filters.SetProfile("")
		metrics.RecordFilterMutation("profile")
		c.logger.Info(c.ctx, "profile no longer available, selection cleared", logger.String("profile", profile))
		c.refresh(query.Sales, query.Products)
	}
	c.highlightProfiles()
}

func (c *Controller) showEmpty(slot query.ChartKind) {
	if p := c.proxies[slot]; p != nil {
		if err := p.Render(chart.Notice(NoDataMessage)); err != nil {
			c.fail(slot, err)
			return
		}
	}
	c.setEmpty(slot)
	c.notify(slot, LevelInfo, CategoryEmpty, NoDataMessage)
}

// fail moves a chart to Error. The filters are left as they are.
func (c *Controller) fail(slot query.ChartKind, err error) {
	cat, msg := Describe(err)
	c.setState(slot, Error, msg)
	c.logger.Warn(c.ctx, "chart request failed",
		logger.String("chart", string(slot)),
		logger.String("category", string(cat)),
		logger.Error(err))
	if p := c.proxies[slot]; p != nil {
		p.ShowNotice(msg)
	}
	c.notify(slot, LevelError, cat, msg)
}

func (c *Controller) notify(slot query.ChartKind, level Level, cat Category, msg string) {
	n := Notice{Time: time.Now(), Chart: slot, Level: level, Category: cat, Message: msg}
	c.notices = append(c.notices, n)
	if len(c.notices) > maxNotices {
		c.notices = c.notices[len(c.notices)-maxNotices:]
	}
	c.notifier.Notify(c.ctx, n)
}

func (c *Controller) highlightMap() {
	spec, ok := c.mapProxy.Spec()
	if !ok || len(spec.Data) == 0 {
		return
	}
	r := chart.MapHighlight(spec.Categories(), c.filters.Country(), c.lassoCountries)
	if err := c.mapProxy.RestyleHighlight(r); err != nil {
		c.logger.Warn(c.ctx, "map highlight failed", logger.Error(err))
	}
}

func (c *Controller) highlightProfiles() {
	p := c.proxies[query.Profiles]
	spec, ok := p.Spec()
	st := c.status[query.Profiles]
	if !ok || len(spec.Data) == 0 || st.Empty || st.State != Idle {
		return
	}
	r := chart.ProfileHighlight(spec.Categories(), c.filters.Profile(), c.lassoProfiles)
	if err := p.RestyleHighlight(r); err != nil {
		c.logger.Warn(c.ctx, "profile highlight failed", logger.Error(err))
	}
}

// refreshSimilarity reloads the customer list and the embedding.
func (c *Controller) refreshSimilarity() {
	c.loadCustomerIDs()
	c.computeSimilarity()
}

func (c *Controller) loadCustomerIDs() {
	req, _ := query.Build(c.filters.Snapshot(), query.CustomerIDs)
	load(c, query.CustomerIDs, req, c.customers, func(ctx context.Context) (backend.CustomerIDs, error) {
		return c.backend.CustomerIDs(ctx, req)
	}, func(ids backend.CustomerIDs, err error) {
		if err != nil {
			c.fail(query.CustomerIDs, err)
			return
		}
		c.customerOptions = make([]string, len(ids.IDs))
		for i, id := range ids.IDs {
			c.customerOptions[i] = string(id)
		}
		c.setState(query.CustomerIDs, Idle, "")
	})
}

// computeSimilarity requests the embedding for the current options. The
// computing flag is raised until the current request resolves either way.
func (c *Controller) computeSimilarity() {
	req, err := query.BuildSimilarity(c.filters.Snapshot(), c.opts)
	if err != nil {
		c.reject(err)
		return
	}
	c.computing = true
	load(c, query.Similarity, req, c.embeddings, func(ctx context.Context) (similarity.Result, error) {
		return c.backend.Similarity(ctx, req)
	}, func(res similarity.Result, err error) {
		c.computing = false
		switch {
		case backend.IsNoData(err), err == nil && res.IsEmpty():
			c.embedding = similarity.Result{}
			c.showEmpty(query.Similarity)
		case err != nil:
			c.fail(query.Similarity, err)
		default:
			c.embedding = res
			if rerr := c.proxies[query.Similarity].Render(res.Spec(c.opts.CustomerID)); rerr != nil {
				c.fail(query.Similarity, rerr)
				return
			}
			c.setState(query.Similarity, Idle, "")
		}
	})
}

// reject reports a validation error. No request is issued.
func (c *Controller) reject(err error) {
	cat, msg := Describe(err)
	field := "unknown"
	if cat == CategoryValidation {
		field = validationField(err)
	}
	metrics.RecordValidationError(field)
	c.logger.Info(c.ctx, "rejected input", logger.Error(err))
	c.notify(query.Similarity, LevelError, cat, msg)
}
