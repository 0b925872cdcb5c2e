// Package queue defines the contract for enqueuing and consuming tasks.
//
// A queue feeds either the controller's event loop (one consumer, so tasks
// run strictly in order) or the fetch pool (several consumers).
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Task is a unit of work executed by a worker.
type Task func(ctx context.Context)

// Queue provides enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task without blocking.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, t Task) bool

	// Put adds a task, waiting for room until ctx is done.
	Put(ctx context.Context, t Task) error

	// Dequeue returns a channel that will receive tasks as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Task

	// Len returns the current number of queued tasks.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	name     string
	tasks    chan Task
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		name:     "tasks",
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.tasks = make(chan Task, q.capacity)

	metrics.UpdateQueueCapacity(q.name, q.capacity)
	metrics.UpdateQueueSize(q.name, 0)

	return q
}

// Enqueue adds a task to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError(q.name, "closed")
		return false
	}

	select {
	case q.tasks <- t:
		metrics.RecordQueueEnqueue(q.name)
		metrics.UpdateQueueSize(q.name, len(q.tasks))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError(q.name, "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError(q.name, "queue_full")
		return false
	}
}

// Put blocks until the task is queued, the queue closes or ctx is done.
func (q *InMemoryQueue) Put(ctx context.Context, t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError(q.name, "closed")
		return ErrClosed
	}

	select {
	case q.tasks <- t:
		metrics.RecordQueueEnqueue(q.name)
		metrics.UpdateQueueSize(q.name, len(q.tasks))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError(q.name, "context_cancelled")
		return fmt.Errorf("%w: %w", ErrFull, ctx.Err())
	}
}

// Dequeue returns a channel that will receive tasks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Task {
	out := make(chan Task)
	go func() {
		defer close(out)
		for t := range q.tasks {
			select {
			case out <- t:
				metrics.UpdateQueueSize(q.name, len(q.tasks))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.tasks)
	metrics.UpdateQueueSize(q.name, size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.tasks)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
