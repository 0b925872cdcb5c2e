// Package app is the synchronization controller of the dashboard. It owns
// the filter state and the similarity options, turns chart interactions into
// backend requests and keeps every chart consistent with the filters.
//
// All state is owned by a single event loop: a one-worker pool draining the
// event queue. Backend fetches run on a separate pool and post their results
// back to the loop, where responses for requests that are no longer current
// are discarded.
package app

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/backend"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/cache"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/mq/queue"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/mq/worker"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/similarity"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

const (
	defaultDebounce       = 300 * time.Millisecond
	defaultEventQueueSize = 1024
	defaultFetchQueueSize = 256
	maxNotices            = 50
	settlePoll            = 5 * time.Millisecond
)

// NoDataMessage is shown in place of a chart whose result is empty.
const NoDataMessage = "No hay datos disponibles para la selección actual"

// Backend is the subset of the backend client the controller calls.
type Backend interface {
	Chart(ctx context.Context, req query.Request) (chart.Spec, error)
	Categories(ctx context.Context) (backend.Taxonomy, error)
	CustomerIDs(ctx context.Context, req query.Request) (backend.CustomerIDs, error)
	Similarity(ctx context.Context, req query.Request) (similarity.Result, error)
	SalesDetail(ctx context.Context, req query.Request) (backend.SalesDetail, error)
}

// Controller synchronizes the charts with the filter state.
type Controller struct {
	backend Backend
	engine  render.Engine
	data    InitialData

	targets        Targets
	debounceDelay  time.Duration
	fetchWorkers   int
	eventQueueSize int
	fetchQueueSize int
	defaults       analysis.Options
	notifier       Notifier
	logger         logger.Logger

	events   *queue.InMemoryQueue
	loop     *worker.Pool
	fetchQ   *queue.InMemoryQueue
	fetchers *worker.Pool

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	started  atomic.Bool
	stopped  atomic.Bool
	fatalErr error

	charts     *cache.Store[chart.Spec]
	embeddings *cache.Store[similarity.Result]
	customers  *cache.Store[backend.CustomerIDs]

	// Owned by the event loop.
	filters         *filter.Store
	opts            analysis.Options
	mapProxy        *render.MapProxy
	proxies         map[query.ChartKind]*render.Proxy
	status          map[query.ChartKind]ChartStatus
	latest          map[query.ChartKind]string
	inflight        int
	countries       map[string]bool
	span            filter.Span
	taxonomy        backend.Taxonomy
	similarityOpen  bool
	computing       bool
	embedding       similarity.Result
	customerOptions []string
	lassoCountries  map[string]bool
	lassoProfiles   map[string]bool
	detail          *backend.SalesDetail
	notices         []Notice
	deb             debouncer
}

// New creates a controller. Nothing runs until Start.
func New(b Backend, engine render.Engine, data InitialData, opts ...Option) *Controller {
	c := &Controller{
		backend:        b,
		engine:         engine,
		data:           data,
		targets:        DefaultTargets(),
		debounceDelay:  defaultDebounce,
		fetchWorkers:   runtime.NumCPU(),
		eventQueueSize: defaultEventQueueSize,
		fetchQueueSize: defaultFetchQueueSize,
		defaults:       analysis.Defaults(),
		filters:        filter.NewStore(),
		status:         make(map[query.ChartKind]ChartStatus),
		latest:         make(map[query.ChartKind]string),
		lassoCountries: map[string]bool{},
		lassoProfiles:  map[string]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("controller")
	}
	if c.notifier == nil {
		c.notifier = logNotifier{logger: c.logger}
	}
	c.opts = c.defaults
	c.charts = cache.New[chart.Spec](cache.WithName("charts"), cache.WithLogger(c.logger.Named("cache")))
	c.embeddings = cache.New[similarity.Result](cache.WithName("embeddings"), cache.WithLogger(c.logger.Named("cache")))
	c.customers = cache.New[backend.CustomerIDs](cache.WithName("customer_ids"), cache.WithLogger(c.logger.Named("cache")))
	return c
}

// Start checks the prerequisites, draws the initial dashboard and starts the
// event loop. A missing prerequisite is fatal: a single error notice is shown
// on the dashboard target and nothing else is drawn.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started.Load() {
		return nil
	}
	if c.stopped.Load() {
		return ErrStopped
	}

	boot, err := c.prerequisites()
	if err != nil {
		c.fatal(ctx, err)
		return err
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.events = queue.NewInMemoryQueue(queue.WithName("events"), queue.WithCapacity(c.eventQueueSize))
	c.fetchQ = queue.NewInMemoryQueue(queue.WithName("fetches"), queue.WithCapacity(c.fetchQueueSize))
	c.loop = worker.NewPool("loop", 1, c.events)
	c.fetchers = worker.NewPool("fetch", c.fetchWorkers, c.fetchQ)

	c.mapProxy = render.NewMapProxy(c.engine, c.targets.Map)
	c.proxies = map[query.ChartKind]*render.Proxy{
		query.Map:        c.mapProxy.Proxy,
		query.Profiles:   render.NewProxy(c.engine, query.Profiles, c.targets.Profiles),
		query.Sales:      render.NewProxy(c.engine, query.Sales, c.targets.Sales),
		query.Products:   render.NewProxy(c.engine, query.Products, c.targets.Products),
		query.Similarity: render.NewProxy(c.engine, query.Similarity, c.targets.Similarity),
	}
	c.countries = boot.countries
	c.span = boot.span

	seeded, tax, taxErr := c.seed(ctx, boot)

	c.loop.Start(c.ctx)
	c.fetchers.Start(c.ctx)
	c.started.Store(true)

	err = c.call(ctx, func() error {
		c.bind()
		if err := c.mapProxy.Render(boot.worldMap); err != nil {
			return fmt.Errorf("%w: %w", ErrMissingPrerequisite, err)
		}
		c.highlightMap()
		for _, kind := range []query.ChartKind{query.Profiles, query.Sales, query.Products} {
			s := seeded[kind]
			c.latest[kind] = s.key
			c.showChart(kind, s.spec, s.err)
		}
		if taxErr != nil {
			c.fail(query.Categories, taxErr)
		} else {
			c.taxonomy = tax
			c.setState(query.Categories, Idle, "")
		}
		return nil
	})
	if err != nil {
		c.logger.Error(ctx, "initial render failed", logger.Error(err))
		return err
	}

	c.logger.Info(ctx, "controller started",
		logger.Int("countries", len(c.countries)),
		logger.String("span_min", c.span.Min.String()),
		logger.String("span_max", c.span.Max.String()),
		logger.Int("fetch_workers", c.fetchWorkers),
		logger.Duration("debounce", c.debounceDelay),
	)
	return nil
}

func (c *Controller) prerequisites() (bootstrap, error) {
	if c.engine == nil {
		return bootstrap{}, fmt.Errorf("%w: no rendering engine", ErrMissingPrerequisite)
	}
	if c.backend == nil {
		return bootstrap{}, fmt.Errorf("%w: no backend", ErrMissingPrerequisite)
	}
	for _, t := range c.targets.All() {
		if !c.engine.Has(t) {
			return bootstrap{}, fmt.Errorf("%w: target %q not found", ErrMissingPrerequisite, t)
		}
	}
	return c.data.prepare()
}

func (c *Controller) fatal(ctx context.Context, err error) {
	c.fatalErr = err
	c.logger.Error(ctx, "dashboard cannot start", logger.Error(err))
	if c.engine != nil && c.engine.Has(c.targets.Dashboard) {
		c.engine.Notice(c.targets.Dashboard, "Error al cargar el dashboard: "+err.Error())
	}
}

type seededChart struct {
	key  string
	spec chart.Spec
	err  error
}

// seed fills the cache with the global charts, fetching the ones the initial
// data lacks, and loads the category taxonomy.
func (c *Controller) seed(ctx context.Context, boot bootstrap) (map[query.ChartKind]*seededChart, backend.Taxonomy, error) {
	out := make(map[query.ChartKind]*seededChart, 3)
	var (
		tax    backend.Taxonomy
		taxErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(c.fetchWorkers + 1)
	for _, kind := range []query.ChartKind{query.Profiles, query.Sales, query.Products} {
		req, _ := query.Build(filter.State{}, kind)
		s := &seededChart{key: req.Key()}
		out[kind] = s
		initial, ok := boot.initial[kind]
		g.Go(func() error {
			s.spec, _, s.err = c.charts.GetOrFetch(ctx, s.key, func(ctx context.Context) (chart.Spec, error) {
				if ok {
					return initial, nil
				}
				return c.backend.Chart(ctx, req)
			})
			return nil
		})
	}
	g.Go(func() error {
		tax, taxErr = c.backend.Categories(ctx)
		return nil
	})
	_ = g.Wait()
	return out, tax, taxErr
}

// Stop drains pending fetches and events and stops the loop.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started.Load() || c.stopped.Swap(true) {
		return nil
	}

	var errs []error
	if err := c.fetchers.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	done := make(chan struct{})
	if c.events.Put(ctx, func(context.Context) {
		c.deb.stop()
		close(done)
	}) == nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	if err := c.loop.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	c.cancel()
	c.logger.Info(ctx, "controller stopped")
	if len(errs) > 0 {
		return fmt.Errorf("stop controller: %v", errs)
	}
	return nil
}

// post schedules fn on the event loop without waiting.
func (c *Controller) post(fn func()) error {
	if !c.started.Load() {
		return ErrNotStarted
	}
	if c.stopped.Load() {
		return ErrStopped
	}
	if !c.events.Enqueue(c.ctx, func(context.Context) { fn() }) {
		if c.events.IsClosed() {
			return ErrStopped
		}
		return ErrBackpressure
	}
	return nil
}

// call runs fn on the event loop and waits for its result.
func (c *Controller) call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if err := c.post(func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load resolves req into the chart slot. A cached value is applied at once;
// otherwise the fetch runs on the fetch pool and its result is applied on the
// loop unless a newer request for the slot was issued meanwhile. A nil store
// disables caching.
func load[V any](c *Controller, slot query.ChartKind, req query.Request, store *cache.Store[V], fetch cache.FetchFunc[V], done func(V, error)) {
	key := req.Key()
	c.latest[slot] = key
	if store != nil {
		if v, ok := store.Get(key); ok {
			done(v, nil)
			return
		}
	}

	c.setState(slot, Loading, "")
	c.inflight++
	task := func(ctx context.Context) {
		var (
			v   V
			err error
		)
		if store != nil {
			v, _, err = store.GetOrFetch(ctx, key, fetch)
		} else {
			v, err = fetch(ctx)
		}
		perr := c.events.Put(c.ctx, func(context.Context) {
			c.inflight--
			if c.latest[slot] != key {
				metrics.RecordStaleResponse(string(slot))
				c.logger.Debug(c.ctx, "discarded stale response",
					logger.String("chart", string(slot)),
					logger.String("key", key))
				return
			}
			done(v, err)
		})
		if perr != nil {
			c.logger.Debug(ctx, "dropped fetch result", logger.String("key", key), logger.Error(perr))
		}
	}
	if !c.fetchQ.Enqueue(c.ctx, task) {
		c.inflight--
		var zero V
		done(zero, fmt.Errorf("%w: fetch %s", ErrBackpressure, slot))
	}
}

// Settle waits until no fetch is in flight and no debounce is pending.
func (c *Controller) Settle(ctx context.Context) error {
	for {
		var idle bool
		if err := c.call(ctx, func() error {
			idle = c.inflight == 0 && !c.deb.armed
			return nil
		}); err != nil {
			return err
		}
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settlePoll):
		}
	}
}

// Targets returns the engine targets in use.
func (c *Controller) Targets() Targets { return c.targets }

// Fatal returns the prerequisite error that stopped Start, if any.
func (c *Controller) Fatal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatalErr
}
