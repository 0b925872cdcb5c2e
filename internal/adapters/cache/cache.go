// Package cache memoizes backend responses by canonical request key.
//
// Entries never expire: they are created on the first successful fetch for a
// key and dropped only by Clear. Failed fetches are never stored. Concurrent
// misses for the same key share one fetch.
package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

// FetchFunc loads the value for a missed key.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Store is a get-or-fetch response cache.
type Store[V any] struct {
	name    string
	mu      sync.RWMutex
	entries map[string]V
	// gen is bumped by Clear so fetches started before it cannot repopulate.
	gen    atomic.Uint64
	flight singleflight.Group
	logger logger.Logger
}

// Option applies a configuration option to a Store.
type Option func(*settings)

type settings struct {
	name   string
	logger logger.Logger
}

// WithName labels the store in metrics and logs.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty store.
func New[V any](opts ...Option) *Store[V] {
	cfg := settings{name: "responses"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("cache")
	}
	metrics.UpdateCacheEntries(cfg.name, 0)
	return &Store[V]{
		name:    cfg.name,
		entries: make(map[string]V),
		logger:  cfg.logger,
	}
}

// Get returns a cached value without fetching.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		metrics.RecordCacheHit(s.name)
	}
	return v, ok
}

// GetOrFetch returns the cached value for key, or runs fetch once, stores a
// successful result and returns it. hit is true when no fetch was needed.
func (s *Store[V]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[V]) (v V, hit bool, err error) {
	if v, ok := s.Get(key); ok {
		return v, true, nil
	}

	gen := s.gen.Load()
	res, err, shared := s.flight.Do(strconv.FormatUint(gen, 10)+"|"+key, func() (any, error) {
		metrics.RecordCacheMiss(s.name)
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.store(gen, key, val)
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	if shared {
		s.logger.Debug(ctx, "joined in-flight fetch", logger.String("key", key))
	}
	return res.(V), false, nil
}

func (s *Store[V]) store(gen uint64, key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		return
	}
	s.entries[key] = v
	metrics.UpdateCacheEntries(s.name, len(s.entries))
}

// Clear drops every entry.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]V)
	s.gen.Add(1)
	s.mu.Unlock()

	metrics.RecordCacheClear(s.name)
	metrics.UpdateCacheEntries(s.name, 0)
	s.logger.Info(context.Background(), "cache cleared", logger.Int("entries", n))
}

// Len returns the number of cached entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
