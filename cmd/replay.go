package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/scenario"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
)

func newReplayCommand(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay scripted interactions and print the final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			script, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer func() {
				if err := svc.Stop(context.Background()); err != nil {
					logger.Get().Error(ctx, "session stop failed", logger.Error(err))
				}
			}()

			rep, runErr := scenario.Run(ctx, svc, script)
			if rep != nil {
				if err := scenario.WriteReport(ctx, rep, output); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "report file, - for stdout")
	return cmd
}
