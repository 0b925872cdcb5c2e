package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/config"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Our own system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := newRootCommand().Execute(); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "retailviz",
		Short:         "Headless online-retail dashboard session",
		Long:          "retailviz keeps the cross-filtered dashboard state of the online-retail\nanalytics backend and serves it over HTTP, or replays scripted interactions.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (overrides "+config.EnvFile+")")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")

	cmd.AddCommand(newServeCommand(opts), newReplayCommand(opts))
	return cmd
}

// setup loads the configuration and initializes logging on stderr. Flags win
// over the configuration file and environment.
func setup(ctx context.Context, opts *rootOptions) (*config.Config, error) {
	if opts.configPath != "" {
		if err := os.Setenv(config.EnvFile, opts.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(os.Stderr)); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// newService reads the initial page data and builds a session.
func newService(cfg *config.Config, opts ...app.ServiceOption) (*app.Service, error) {
	data, err := app.LoadInitialData(cfg.BootstrapFile)
	if err != nil {
		return nil, err
	}
	return app.NewService(cfg, data, append([]app.ServiceOption{app.WithServiceLogger(logger.Named("service"))}, opts...)...), nil
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
