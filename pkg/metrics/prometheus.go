// Package metrics provides Prometheus metrics for the retail dashboard session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the dashboard session.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Response cache
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheEntries *prometheus.GaugeVec
	cacheClears  *prometheus.CounterVec

	// Backend calls
	backendRequests      *prometheus.CounterVec
	backendLatency       *prometheus.HistogramVec
	breakerStateChanges  *prometheus.CounterVec
	staleResponses       *prometheus.CounterVec
	chartStateChanges    *prometheus.CounterVec
	validationErrors     *prometheus.CounterVec
	debounceTriggers     prometheus.Counter
	debounceFires        prometheus.Counter
	filterMutations      *prometheus.CounterVec
	interactionsReceived *prometheus.CounterVec

	// Queue metrics
	queueSize          *prometheus.GaugeVec
	queueCapacity      *prometheus.GaugeVec
	queueEnqueued      *prometheus.CounterVec
	queueEnqueueErrors *prometheus.CounterVec

	// Worker metrics
	workerActiveCount       *prometheus.GaugeVec
	workerProcessingLatency *prometheus.HistogramVec
	workerPanics            *prometheus.CounterVec

	// HTTP API
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "retailviz",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.cacheHits = m.counterVec("cache_hits_total", "Response cache hits", "cache")
	m.cacheMisses = m.counterVec("cache_misses_total", "Response cache misses (one backend call each)", "cache")
	m.cacheEntries = m.gaugeVec("cache_entries", "Current number of cached responses", "cache")
	m.cacheClears = m.counterVec("cache_clears_total", "Full cache clears issued by reset", "cache")

	m.backendRequests = m.counterVec("backend_requests_total", "Backend requests by endpoint and outcome", "endpoint", "status")
	m.backendLatency = m.histogramVec("backend_request_duration_milliseconds", "Backend request latency in milliseconds", "endpoint")
	m.breakerStateChanges = m.counterVec("breaker_state_changes_total", "Circuit breaker transitions", "breaker", "to")
	m.staleResponses = m.counterVec("stale_responses_total", "Responses discarded because a newer request superseded them", "chart")
	m.chartStateChanges = m.counterVec("chart_state_changes_total", "Chart state transitions", "chart", "state")
	m.validationErrors = m.counterVec("validation_errors_total", "Rejected analysis options", "field")
	m.filterMutations = m.counterVec("filter_mutations_total", "Filter state mutations by field", "field")
	m.interactionsReceived = m.counterVec("interactions_total", "User interaction events by chart and kind", "chart", "event")

	m.debounceTriggers = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "debounce_triggers_total",
		Help:      "Slider inputs received by the debounce timer",
	})
	m.debounceFires = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "debounce_fires_total",
		Help:      "Debounce periods that elapsed and produced a refresh",
	})

	m.queueSize = m.gaugeVec("queue_size", "Current number of queued tasks", "queue")
	m.queueCapacity = m.gaugeVec("queue_capacity", "Configured queue capacity", "queue")
	m.queueEnqueued = m.counterVec("queue_enqueued_total", "Tasks accepted by the queue", "queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Tasks rejected by the queue", "queue", "reason")

	m.workerActiveCount = m.gaugeVec("worker_active_count", "Workers currently running", "pool")
	m.workerProcessingLatency = m.histogramVec("worker_task_duration_milliseconds", "Task processing latency in milliseconds", "pool")
	m.workerPanics = m.counterVec("worker_panics_total", "Tasks that panicked and were recovered", "pool")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Allocated heap bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Number of goroutines",
	})
}

// Cache Metrics Functions.

// RecordCacheHit increments the hit counter of the named cache.
func RecordCacheHit(cache string) {
	globalManager.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the miss counter of the named cache.
func RecordCacheMiss(cache string) {
	globalManager.cacheMisses.WithLabelValues(cache).Inc()
}

// UpdateCacheEntries sets the entry count of the named cache.
func UpdateCacheEntries(cache string, n int) {
	globalManager.cacheEntries.WithLabelValues(cache).Set(float64(n))
}

// RecordCacheClear increments the clear counter of the named cache.
func RecordCacheClear(cache string) {
	globalManager.cacheClears.WithLabelValues(cache).Inc()
}

// Backend Metrics Functions.

// RecordBackendRequest counts one backend call with its outcome.
func RecordBackendRequest(endpoint, status string) {
	globalManager.backendRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordBackendLatency records backend latency in milliseconds.
func RecordBackendLatency(endpoint string, latencyMs float64) {
	globalManager.backendLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordBreakerStateChange counts a circuit breaker transition.
func RecordBreakerStateChange(breaker, to string) {
	globalManager.breakerStateChanges.WithLabelValues(breaker, to).Inc()
}

// Controller Metrics Functions.

// RecordStaleResponse counts a response dropped by the staleness guard.
func RecordStaleResponse(chart string) {
	globalManager.staleResponses.WithLabelValues(chart).Inc()
}

// RecordChartState counts a chart entering state.
func RecordChartState(chart, state string) {
	globalManager.chartStateChanges.WithLabelValues(chart, state).Inc()
}

// RecordValidationError counts a rejected analysis option.
func RecordValidationError(field string) {
	globalManager.validationErrors.WithLabelValues(field).Inc()
}

// RecordFilterMutation counts a filter state change.
func RecordFilterMutation(field string) {
	globalManager.filterMutations.WithLabelValues(field).Inc()
}

// RecordInteraction counts an interaction event delivered by a chart.
func RecordInteraction(chart, event string) {
	globalManager.interactionsReceived.WithLabelValues(chart, event).Inc()
}

// RecordDebounceTrigger counts an input that (re)armed the debounce timer.
func RecordDebounceTrigger() {
	globalManager.debounceTriggers.Inc()
}

// RecordDebounceFire counts an elapsed debounce period.
func RecordDebounceFire() {
	globalManager.debounceFires.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current size of the named queue.
func UpdateQueueSize(queue string, size int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

// UpdateQueueCapacity sets the capacity of the named queue.
func UpdateQueueCapacity(queue string, capacity int) {
	globalManager.queueCapacity.WithLabelValues(queue).Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue(queue string) {
	globalManager.queueEnqueued.WithLabelValues(queue).Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError(queue, reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(queue, reason).Inc()
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of running workers in a pool.
func UpdateWorkerActiveCount(pool string, count int) {
	globalManager.workerActiveCount.WithLabelValues(pool).Set(float64(count))
}

// RecordWorkerProcessingLatency records task latency in milliseconds.
func RecordWorkerProcessingLatency(pool string, latencyMs float64) {
	globalManager.workerProcessingLatency.WithLabelValues(pool).Observe(latencyMs)
}

// RecordWorkerPanic counts a recovered task panic.
func RecordWorkerPanic(pool string) {
	globalManager.workerPanics.WithLabelValues(pool).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
