package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
)

// Environment variable names read by Load.
const (
	EnvPrefix = "RETAILVIZ_"
	EnvFile   = "RETAILVIZ_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RETAILVIZ_CONFIG is set
//  3. env (prefix RETAILVIZ_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RETAILVIZ_DEBOUNCE_MS -> debounce_ms; RETAILVIZ_CORS_ORIGINS is comma separated.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "cors_origins" {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.BackendURL) == "":
		return fmt.Errorf("%w: backend_url must not be empty", ErrInvalidConfig)
	case c.DebounceMS < 0:
		return fmt.Errorf("%w: debounce_ms must not be negative", ErrInvalidConfig)
	case c.FetchWorkers < 1:
		return fmt.Errorf("%w: fetch_workers must be at least 1", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: event_queue_size must be at least 1", ErrInvalidConfig)
	}
	if err := c.AnalysisDefaults().Validate(); err != nil {
		return fmt.Errorf("%w: similarity defaults: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AnalysisDefaults returns the similarity options restored on reset.
func (c *Config) AnalysisDefaults() analysis.Options {
	return analysis.Options{
		K:             c.SimilarityK,
		Metric:        c.SimilarityMetric,
		Normalization: c.SimilarityNormalization,
		Embedding:     c.SimilarityEmbedding,
	}
}
