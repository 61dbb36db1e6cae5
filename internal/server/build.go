package server

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/clock/system"
	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/id/uuid"
	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/notifier"
	pubsubnotifier "github.com/JakeFAU/stockwatch/internal/notifier/pubsub"
	"github.com/JakeFAU/stockwatch/internal/notifier/webhook"
	"github.com/JakeFAU/stockwatch/internal/policy/ratelimit"
	collyprober "github.com/JakeFAU/stockwatch/internal/prober/colly"
	gcsstore "github.com/JakeFAU/stockwatch/internal/storage/gcs"
	localstore "github.com/JakeFAU/stockwatch/internal/storage/local"
	memorystore "github.com/JakeFAU/stockwatch/internal/storage/memory"
	pgstore "github.com/JakeFAU/stockwatch/internal/storage/postgres"
)

// Build creates the application's dependencies from cfg.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	app := NewApp(cfg, nil, logger)
	app.logger.Info("building application dependencies",
		zap.String("catalog", cfg.Catalog.Path),
		zap.String("state_backend", cfg.State.Backend),
		zap.Bool("webhook", cfg.Notify.WebhookURL != ""),
	)

	recorder := metrics.NewRecorder()

	store, err := setupStore(ctx, app)
	if err != nil {
		return nil, err
	}

	sink, err := setupNotifier(ctx, app)
	if err != nil {
		return nil, app.closeAfter(ctx, err)
	}

	policy, err := cfg.SummaryPolicy()
	if err != nil {
		return nil, app.closeAfter(ctx, &monitor.ConfigError{Source: "summary", Err: err})
	}

	app.monitor = monitor.New(
		setupProber(app),
		store,
		sink,
		system.New(policy.Location),
		uuid.New(),
		recorder,
		monitor.Config{Concurrency: cfg.Monitor.Concurrency, Summary: policy},
		app.logger.Named("monitor"),
	)
	return app, nil
}

func setupStore(ctx context.Context, app *App) (monitor.StatusStore, error) {
	cfg := app.cfg.State
	switch cfg.Backend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		store, err := gcsstore.New(client, gcsstore.Config{Bucket: cfg.GCS.Bucket, Object: cfg.GCS.Object})
		if err != nil {
			return nil, app.closeAfter(ctx, fmt.Errorf("gcs status store init failed: %w", err))
		}
		app.logger.Info("using GCS state backend", zap.String("uri", store.URI()))
		return store, nil
	case config.BackendPostgres:
		store, err := pgstore.New(ctx, pgstore.Config{
			DSN:      cfg.Postgres.DSN,
			Table:    cfg.Postgres.Table,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres status store init failed: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error {
			store.Close()
			return nil
		})
		app.logger.Info("using postgres state backend", zap.String("table", cfg.Postgres.Table))
		return store, nil
	case config.BackendMemory:
		app.logger.Warn("using in-memory state backend; state is lost on exit")
		return memorystore.NewStatusStore(nil), nil
	default:
		store, err := localstore.New(localstore.Config{Path: cfg.Path})
		if err != nil {
			return nil, fmt.Errorf("local status store init failed: %w", err)
		}
		app.logger.Info("using local state backend", zap.String("path", store.Path()))
		return store, nil
	}
}

func setupNotifier(ctx context.Context, app *App) (monitor.Notifier, error) {
	cfg := app.cfg.Notify
	sinks := notifier.Fanout{
		webhook.New(webhook.Config{
			URL:       cfg.WebhookURL,
			Format:    cfg.Format,
			Username:  cfg.Username,
			Timeout:   app.cfg.HTTP.Timeout,
			UserAgent: app.cfg.Probe.UserAgent,
		}, app.logger.Named("webhook")),
	}
	if cfg.WebhookURL == "" {
		app.logger.Warn("no webhook configured; alerts will only be logged")
	}

	if !cfg.PubSub.Enabled() {
		return sinks, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	publisher := pubsubnotifier.NewFromClient(client, cfg.PubSub.Topic)
	app.closers = append(app.closers, func(context.Context) error {
		publisher.Stop()
		return client.Close()
	})
	app.logger.Info("Pub/Sub alert publisher initialized",
		zap.String("project", cfg.PubSub.ProjectID),
		zap.String("topic", cfg.PubSub.Topic),
	)
	return append(sinks, publisher), nil
}

func setupProber(app *App) monitor.Prober {
	limiter := ratelimit.New(ratelimit.Config{
		PerHostRPS: app.cfg.Probe.PerHostRPS,
		Burst:      app.cfg.Probe.Burst,
	}, metrics.ObserveRateLimitDelay)
	app.logger.Info("using colly prober",
		zap.String("suffix", app.cfg.Probe.Suffix),
		zap.Duration("timeout", app.cfg.HTTP.Timeout),
		zap.Float64("per_host_rps", app.cfg.Probe.PerHostRPS),
	)
	return collyprober.New(collyprober.Config{
		UserAgent: app.cfg.Probe.UserAgent,
		Timeout:   app.cfg.HTTP.Timeout,
		Suffix:    app.cfg.Probe.Suffix,
	}, limiter, metrics.ObserveProbe)
}

// closeAfter releases anything opened so far and returns err.
func (a *App) closeAfter(ctx context.Context, err error) error {
	_ = a.Close(ctx)
	return err
}
