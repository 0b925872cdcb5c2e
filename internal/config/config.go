// Package config defines session configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the session API listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL of the analytics backend serving /api/*.
	BackendURL string `koanf:"backend_url"`

	// RequestTimeoutMS bounds a single backend round trip.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// DebounceMS is the quiet period applied to date-range slider input.
	DebounceMS int `koanf:"debounce_ms"`

	// EventQueueSize bounds the controller's event loop queue.
	EventQueueSize int `koanf:"event_queue_size"`

	// FetchWorkers sets the number of concurrent backend fetches.
	FetchWorkers int `koanf:"fetch_workers"`

	// FetchQueueSize bounds pending backend fetches.
	FetchQueueSize int `koanf:"fetch_queue_size"`

	// BootstrapFile points at the JSON document with the initial page data.
	BootstrapFile string `koanf:"bootstrap_file"`

	// CSRFCookieName and CSRFHeaderName configure the token echoed on POSTs.
	CSRFCookieName string `koanf:"csrf_cookie_name"`
	CSRFHeaderName string `koanf:"csrf_header_name"`

	// BreakerMaxFailures consecutive backend failures open the circuit.
	BreakerMaxFailures int `koanf:"breaker_max_failures"`

	// BreakerTimeoutMS is how long the circuit stays open.
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms"`

	// CORSOrigins lists origins allowed to call the session API.
	CORSOrigins []string `koanf:"cors_origins"`

	// Similarity defaults applied at startup and on reset.
	SimilarityK             int    `koanf:"similarity_k"`
	SimilarityMetric        string `koanf:"similarity_metric"`
	SimilarityNormalization string `koanf:"similarity_normalization"`
	SimilarityEmbedding     string `koanf:"similarity_embedding"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":8090",
		BackendURL:              "http://localhost:8000",
		RequestTimeoutMS:        30_000,
		DebounceMS:              300,
		EventQueueSize:          1024,
		FetchWorkers:            runtime.NumCPU(),
		FetchQueueSize:          256,
		CSRFCookieName:          "csrftoken",
		CSRFHeaderName:          "X-CSRFToken",
		BreakerMaxFailures:      5,
		BreakerTimeoutMS:        30_000,
		CORSOrigins:             []string{"*"},
		SimilarityK:             10,
		SimilarityMetric:        "euclidean",
		SimilarityNormalization: "zscore",
		SimilarityEmbedding:     "pca",
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Debounce returns DebounceMS as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// BreakerTimeout returns BreakerTimeoutMS as a duration.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}
