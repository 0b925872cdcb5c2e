// Package worker runs queued tasks. A pool of one worker is the controller's
// event loop; a larger pool performs backend fetches concurrently.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/mq/queue"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Worker executes tasks until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for queued tasks.
type InMemoryWorker struct {
	queue Queue
	name  string
	pool  string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		pool:     "default",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			w.process(ctx, task)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// process runs one task; a panicking task is logged and does not stop the worker.
func (w *InMemoryWorker) process(ctx context.Context, task queue.Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerPanic(w.pool)
			w.logger.Error(ctx, "task panicked",
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
		}
		metrics.RecordWorkerProcessingLatency(w.pool, float64(time.Since(start).Milliseconds()))
	}()
	task(ctx)
}

// Pool manages multiple workers reading one queue.
type Pool struct {
	name    string
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	wg      sync.WaitGroup
}

// NewPool creates a pool of workerCount workers (at least one).
func NewPool(name string, workerCount int, q Queue) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	p := &Pool{
		name:    name,
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named(name + "-pool"),
	}

	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(q,
			WithName(name+"-"+strconv.Itoa(i)),
			WithPool(name),
		)
	}

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	metrics.UpdateWorkerActiveCount(p.name, len(p.workers))
}

// Shutdown closes the queue so workers drain it, then waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		metrics.UpdateWorkerActiveCount(p.name, 0)
		return nil
	case <-shutdownCtx.Done():
		for i, w := range p.workers {
			select {
			case <-w.done:
			default:
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				w.shutdownOnce.Do(func() { close(w.shutdown) })
			}
		}
		return fmt.Errorf("pool %s shutdown: %w", p.name, shutdownCtx.Err())
	}
}
