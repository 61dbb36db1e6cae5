package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config controls Orchestrator behavior.
type Config struct {
	// Concurrency bounds parallel probes; values below 2 probe strictly in catalog order.
	Concurrency int
	Summary     SummaryPolicy
}

// Report summarizes one run.
type Report struct {
	RunID       string
	Trigger     Trigger
	StartedAt   time.Time
	Products    int
	Failures    int
	Alerts      int
	SummarySent bool
	State       StockState
}

// Orchestrator drives a full check: probe, evaluate, alert, persist, summarize.
type Orchestrator struct {
	prober   Prober
	store    StatusStore
	notifier Notifier
	clock    Clock
	ids      IDGenerator
	recorder Recorder
	cfg      Config
	logger   *zap.Logger
}

// New constructs an Orchestrator. recorder may be nil.
func New(
	prober Prober,
	store StatusStore,
	notifier Notifier,
	clock Clock,
	ids IDGenerator,
	recorder Recorder,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Orchestrator{
		prober:   prober,
		store:    store,
		notifier: notifier,
		clock:    clock,
		ids:      ids,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run checks every product once and persists the resulting state.
// Per-product failures never abort the run; only state load/save failures are returned.
// The saved state covers exactly the catalog's products.
func (o *Orchestrator) Run(ctx context.Context, products []Product, trigger Trigger) (Report, error) {
	report := Report{
		RunID:     o.newRunID(),
		Trigger:   trigger,
		StartedAt: o.clock.Now(),
		Products:  len(products),
	}
	logger := o.logger.With(zap.String("run_id", report.RunID), zap.String("trigger", string(trigger)))

	if len(products) == 0 {
		logger.Warn("catalog is empty; nothing to check")
		report.State = StockState{}
		return report, nil
	}

	previous, err := o.store.Load(ctx)
	if err != nil {
		stateErr := &StateError{Op: "load", Err: err}
		logger.Error("failed to load stock state", zap.Error(err))
		o.deliver(ctx, logger, StateFailedAlert(stateErr), report.RunID)
		return report, stateErr
	}
	logger.Info("run started", zap.Int("products", len(products)), zap.Int("known", len(previous)))

	var (
		mu   sync.Mutex
		next = StockState{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, product := range products {
		product := product
		g.Go(func() error {
			result := o.prober.Probe(gctx, product)

			mu.Lock()
			prevAvailable, prevKnown := previous.Lookup(product.ID)
			decision := Evaluate(product, prevAvailable, prevKnown, result)
			if decision.Known {
				next[product.ID] = decision.Available
			}
			if result.Kind == ProbeError {
				report.Failures++
			}
			if decision.Alert != nil {
				report.Alerts++
			}
			mu.Unlock()

			fields := []zap.Field{
				zap.String("product_id", product.ID),
				zap.String("result", string(result.Kind)),
			}
			if result.Reason != "" {
				fields = append(fields, zap.String("reason", result.Reason))
			}
			logger.Info("product checked", fields...)

			if decision.Alert != nil {
				if decision.Alert.Kind != AlertProbeFailed && o.recorder != nil {
					o.recorder.ObserveTransition(decision.Alert.Kind)
				}
				o.deliver(ctx, logger, *decision.Alert, report.RunID)
			}
			return nil
		})
	}
	// Workers never return an error.
	_ = g.Wait()

	report.State = next

	if err := o.store.Save(ctx, next); err != nil {
		logger.Error("failed to save stock state", zap.Error(err))
		return report, &StateError{Op: "save", Err: err}
	}

	if o.recorder != nil {
		o.recorder.ObserveRun(len(products), report.Failures, o.clock.Now().Sub(report.StartedAt))
		o.recorder.ObserveState(next)
	}

	if o.cfg.Summary.ShouldSend(trigger, report.StartedAt) {
		o.deliver(ctx, logger, SummaryAlert(products, next), report.RunID)
		report.SummarySent = true
	} else {
		logger.Debug("summary skipped by trigger policy")
	}

	logger.Info("run finished",
		zap.Int("failures", report.Failures),
		zap.Int("alerts", report.Alerts),
		zap.Bool("summary_sent", report.SummarySent),
	)
	return report, nil
}

// Summarize sends the summary of the persisted state without probing.
func (o *Orchestrator) Summarize(ctx context.Context, products []Product) (StockState, error) {
	state, err := o.store.Load(ctx)
	if err != nil {
		return nil, &StateError{Op: "load", Err: err}
	}
	alert := SummaryAlert(products, state)
	alert.SentAt = o.clock.Now()
	if err := o.notifier.Send(ctx, alert); err != nil {
		return state, &NotifyError{Sink: "summary", Err: err}
	}
	return state, nil
}

// State returns the persisted state.
func (o *Orchestrator) State(ctx context.Context) (StockState, error) {
	state, err := o.store.Load(ctx)
	if err != nil {
		return nil, &StateError{Op: "load", Err: err}
	}
	return state, nil
}

// deliver sends an alert and swallows any failure after logging it.
func (o *Orchestrator) deliver(ctx context.Context, logger *zap.Logger, alert Alert, runID string) {
	alert.SentAt = o.clock.Now()
	alert.RunID = runID
	err := o.notifier.Send(ctx, alert)
	if o.recorder != nil {
		o.recorder.ObserveNotify(alert.Kind, err)
	}
	if err != nil {
		var notifyErr *NotifyError
		if !errors.As(err, &notifyErr) {
			notifyErr = &NotifyError{Sink: "notifier", Err: err}
		}
		logger.Warn("alert delivery failed", zap.String("kind", string(alert.Kind)), zap.Error(notifyErr))
	}
}

func (o *Orchestrator) newRunID() string {
	if o.ids == nil {
		return ""
	}
	id, err := o.ids.NewID()
	if err != nil {
		o.logger.Warn("run id generation failed", zap.Error(err))
		return fmt.Sprintf("run-%d", o.clock.Now().UnixNano())
	}
	return id
}
