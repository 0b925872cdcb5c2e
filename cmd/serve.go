package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/http/api"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/config"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
)

var _ api.Dependencies = (*app.Service)(nil)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a dashboard session behind the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the configuration)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := svc.Stop(context.Background()); err != nil {
			log.Error(ctx, "session stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	server := api.NewServer(svc,
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithLogger(logger.Named("http")),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(ctx),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}
