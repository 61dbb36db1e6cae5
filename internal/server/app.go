// Package server assembles the application from configuration and runs it once or as a service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/api"
	"github.com/JakeFAU/stockwatch/internal/catalog"
	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// App contains the application's dependencies.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	monitor *monitor.Orchestrator
	closers []func(context.Context) error

	// runMu serialises checks; a second request fails fast instead of queueing.
	runMu sync.Mutex
}

// NewApp wraps an orchestrator built elsewhere.
func NewApp(cfg config.Config, orchestrator *monitor.Orchestrator, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger, monitor: orchestrator}
}

// Products loads the catalog. A missing catalog is an empty one.
func (a *App) Products() ([]monitor.Product, error) {
	products, err := catalog.Load(a.cfg.Catalog.Path)
	if errors.Is(err, catalog.ErrNotFound) {
		a.logger.Warn("catalog not found; nothing to monitor", zap.String("path", a.cfg.Catalog.Path))
		return nil, nil
	}
	if err != nil {
		return nil, &monitor.ConfigError{Source: a.cfg.Catalog.Path, Err: err}
	}
	return products, nil
}

// Check runs one full check. It returns monitor.ErrRunInProgress if another check is running.
func (a *App) Check(ctx context.Context, trigger monitor.Trigger) (monitor.Report, error) {
	if !a.runMu.TryLock() {
		return monitor.Report{}, monitor.ErrRunInProgress
	}
	defer a.runMu.Unlock()

	products, err := a.Products()
	if err != nil {
		return monitor.Report{}, err
	}
	report, err := a.monitor.Run(ctx, products, trigger)
	if err != nil {
		return report, fmt.Errorf("check run: %w", err)
	}
	return report, nil
}

// Report sends the summary of the persisted state without probing.
func (a *App) Report(ctx context.Context) (monitor.StockState, error) {
	if a.cfg.Notify.WebhookURL == "" {
		return nil, monitor.ErrWebhookRequired
	}
	products, err := a.Products()
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		a.logger.Warn("catalog is empty; no summary sent", zap.String("path", a.cfg.Catalog.Path))
		return monitor.StockState{}, nil
	}
	state, err := a.monitor.Summarize(ctx, products)
	if err != nil {
		return state, fmt.Errorf("send summary: %w", err)
	}
	return state, nil
}

// Snapshot returns the catalog and the persisted state.
func (a *App) Snapshot(ctx context.Context) ([]monitor.Product, monitor.StockState, error) {
	products, err := a.Products()
	if err != nil {
		return nil, nil, err
	}
	state, err := a.monitor.State(ctx)
	if err != nil {
		return nil, nil, err
	}
	return products, state, nil
}

// PushMetrics sends the process metrics to the configured Pushgateway, if any.
func (a *App) PushMetrics(ctx context.Context) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Warn("metrics push failed", zap.Error(err))
	}
}

// Serve runs checks every monitor.interval and serves the HTTP API until the context is
// canceled or the process is signaled.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           api.NewServer(a, a.logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	a.schedule(ctx, a.cfg.Monitor.Interval)

	a.logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// schedule runs a check immediately and then on every tick until ctx is done.
func (a *App) schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		a.scheduledCheck(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) scheduledCheck(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := a.Check(ctx, monitor.TriggerScheduled)
	switch {
	case err == nil:
	case errors.Is(err, monitor.ErrRunInProgress):
		a.logger.Info("scheduled check skipped; a manual check is running")
	default:
		a.logger.Error("scheduled check failed", zap.Error(err))
	}
}

// Close releases clients opened by Build.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown incomplete", zap.Error(err))
		return err
	}
	a.logger.Debug("shutdown complete")
	return nil
}
