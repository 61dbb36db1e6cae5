package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/logging"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/server"
)

// application is what the commands need from the assembled services.
type application interface {
	Check(ctx context.Context, trigger monitor.Trigger) (monitor.Report, error)
	Report(ctx context.Context) (monitor.StockState, error)
	Serve(ctx context.Context) error
	PushMetrics(ctx context.Context)
	Close(ctx context.Context) error
}

type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// runtime carries what PersistentPreRunE built to the subcommands.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	app    application
}

// newApp is the application factory. Tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (application, error) {
	return server.Build(ctx, cfg, logger)
}

// newLogger is the logger factory. Tests replace it.
var newLogger = func(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "stockwatch",
		Short:         "Alert on product restocks and sell-outs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("application init failed", zap.Error(err))
				return fmt.Errorf("application init failed: %w", err)
			}
			rt := &runtime{cfg: cfg, logger: logger, app: app}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, rt))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("STOCKWATCH_CONFIG"), "config file (YAML, optional)")

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// withRuntime runs fn with the initialized runtime and always releases it afterwards.
func withRuntime(fn func(cmd *cobra.Command, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		rt, ok := cmd.Context().Value(runtimeKey).(*runtime)
		if !ok || rt == nil {
			return errors.New("application not initialized")
		}
		runErr := fn(cmd, rt)
		closeErr := rt.app.Close(context.WithoutCancel(cmd.Context()))
		// Syncing a console logger fails on some platforms.
		_ = rt.logger.Sync()
		return errors.Join(runErr, closeErr)
	}
}
