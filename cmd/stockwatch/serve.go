package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run checks on an interval and serve the HTTP API.",
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime) error {
			rt.logger.Info("serving",
				zap.Int("port", rt.cfg.Server.Port),
				zap.Duration("interval", rt.cfg.Monitor.Interval),
			)
			return rt.app.Serve(cmd.Context())
		}),
	}
}
