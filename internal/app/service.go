package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/backend"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/config"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
)

// Service runs one headless dashboard session: the backend client, a memory
// rendering engine and the controller, wired from the configuration.
type Service struct {
	mu sync.RWMutex

	cfg      *config.Config
	data     InitialData
	targets  Targets
	backend  Backend
	notifier Notifier

	engine     *render.MemoryEngine
	controller *Controller

	started bool
	logger  logger.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBackend replaces the HTTP backend client.
func WithBackend(b Backend) ServiceOption {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithServiceTargets replaces the engine target names.
func WithServiceTargets(t Targets) ServiceOption {
	return func(s *Service) {
		s.targets = t
	}
}

// WithServiceNotifier sets where notices are shown.
func WithServiceNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithServiceLogger sets a custom logger for the service.
func WithServiceLogger(l logger.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService constructs a session from cfg and the initial page data.
func NewService(cfg *config.Config, data InitialData, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:     cfg,
		data:    data,
		targets: DefaultTargets(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the controller.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting dashboard session...",
		logger.String("backend", s.cfg.BackendURL))

	if s.backend == nil {
		client, err := backend.New(s.cfg.BackendURL,
			backend.WithTimeout(s.cfg.RequestTimeout()),
			backend.WithCSRF(s.cfg.CSRFCookieName, s.cfg.CSRFHeaderName),
			backend.WithBreaker(uint32(max(s.cfg.BreakerMaxFailures, 0)), s.cfg.BreakerTimeout()),
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMissingPrerequisite, err)
		}
		s.backend = client
	}

	s.engine = render.NewMemoryEngine(s.targets.All()...)
	opts := []Option{
		WithTargets(s.targets),
		WithDebounce(s.cfg.Debounce()),
		WithFetchWorkers(s.cfg.FetchWorkers),
		WithEventQueueSize(s.cfg.EventQueueSize),
		WithFetchQueueSize(s.cfg.FetchQueueSize),
		WithAnalysisDefaults(s.cfg.AnalysisDefaults()),
		WithLogger(s.logger.Named("controller")),
	}
	if s.notifier != nil {
		opts = append(opts, WithNotifier(s.notifier))
	}
	s.controller = New(s.backend, s.engine, s.data, opts...)
	if err := s.controller.Start(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "dashboard session started")
	return nil
}

// Stop shuts the session down.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping dashboard session...")
	err := s.controller.Stop(ctx)
	s.started = false
	s.logger.Info(ctx, "dashboard session stopped")
	return err
}

func (s *Service) ctl() (*Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.controller, nil
}

// Engine returns the memory engine, nil before Start.
func (s *Service) Engine() *render.MemoryEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Interact delivers a user interaction to a chart as if it happened on screen.
func (s *Service) Interact(ctx context.Context, kind query.ChartKind, ev render.Event) error {
	if _, err := s.ctl(); err != nil {
		return err
	}
	target, ok := s.targets.For(kind)
	if !ok {
		return fmt.Errorf("%w: chart %q", render.ErrUnknownTarget, kind)
	}
	n, err := s.Engine().Emit(target, ev)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s on %s", ErrNoHandler, ev.Kind, kind)
	}
	return nil
}

// Frame returns what a chart currently shows.
func (s *Service) Frame(kind query.ChartKind) (render.Frame, error) {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return render.Frame{}, ErrNotStarted
	}
	target, ok := s.targets.For(kind)
	if !ok {
		return render.Frame{}, fmt.Errorf("%w: chart %q", render.ErrUnknownTarget, kind)
	}
	return engine.Frame(target)
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	c, err := s.ctl()
	if err != nil {
		return Snapshot{}, err
	}
	return c.Snapshot(ctx)
}

func (s *Service) Settle(ctx context.Context) error {
	c, err := s.ctl()
	if err != nil {
		return err
	}
	return c.Settle(ctx)
}

func (s *Service) SetDateRange(ctx context.Context, start, end filter.YearMonth) error {
	c, err := s.ctl()
	if err != nil {
		return err
	}
	return c.SetDateRange(ctx, start, end)
}

func (s *Service) SelectCategory(ctx context.Context, category string) error {
	c, err := s.ctl()
	if err != nil {
		return err
	}
	return c.SelectCategory(ctx, category)
}

func (s *Service) SelectSubcategory(ctx context.Context, subcategory string) error {
	c, err := s.ctl()
	if err != nil {
		return err
	}
	return c.SelectSubcategory(ctx, subcategory)
}

func (s *Service) OpenSimilarity(ctx context.Context) error {
	c, err := s.ctl()
	if err != nil {
		return err
	}
	return c.OpenSimilarity(ctx)
}

func (s *Service) CloseSimilarity(ctx context.Context) error {
	c, err := s.ctl()
	if err != nil {
		return err
	}
	return c.CloseSimilarity(ctx)
}

func (s *Service) SubmitSimilarity(ctx context.Context, opts analysis.Options) error {
	c, err := s.ctl()
	if err != nil {
		return err
	}
	return c.SubmitSimilarity(ctx, opts)
}

func (s *Service) Reset(ctx context.Context) error {
	c, err := s.ctl()
	if err != nil {
		return err
	}
	return c.Reset(ctx)
}

func (s *Service) Pan(ctx context.Context, dLon, dLat float64) (render.View, error) {
	c, err := s.ctl()
	if err != nil {
		return render.View{}, err
	}
	return c.Pan(ctx, dLon, dLat)
}

func (s *Service) Zoom(ctx context.Context, ticks int) (render.View, error) {
	c, err := s.ctl()
	if err != nil {
		return render.View{}, err
	}
	return c.Zoom(ctx, ticks)
}
