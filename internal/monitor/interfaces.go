package monitor

import (
	"context"
	"time"
)

// Prober fetches the current availability of a product.
// Implementations never return an error; failures are reported as ProbeError results.
type Prober interface {
	Probe(ctx context.Context, product Product) ProbeResult
}

// StatusStore loads and persists the confirmed stock state.
type StatusStore interface {
	// Load returns an empty state when nothing has been persisted yet.
	Load(ctx context.Context) (StockState, error)
	// Save replaces the persisted state as a whole.
	Save(ctx context.Context, state StockState) error
}

// Notifier delivers one alert to an external sink.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Recorder receives run-level observations. A nil Recorder is ignored.
type Recorder interface {
	ObserveTransition(kind AlertKind)
	ObserveNotify(kind AlertKind, err error)
	ObserveRun(products int, failures int, duration time.Duration)
	ObserveState(state StockState)
}
