// Package monitor tracks product stock state across runs and decides which alerts to emit.
package monitor

import (
	"sort"
	"time"
)

// Product is one monitored catalog entry.
type Product struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}

// StockState maps product IDs to their last confirmed availability.
// A missing key means the product has never been confirmed.
type StockState map[string]bool

// Lookup returns the confirmed availability and whether one exists.
func (s StockState) Lookup(productID string) (available bool, known bool) {
	available, known = s[productID]
	return available, known
}

// Clone returns an independent copy of the state.
func (s StockState) Clone() StockState {
	out := make(StockState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// IDs returns the product IDs in lexical order.
func (s StockState) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ProbeKind classifies a probe outcome.
type ProbeKind string

// Probe outcomes.
const (
	ProbeAvailable   ProbeKind = "available"
	ProbeUnavailable ProbeKind = "unavailable"
	ProbeError       ProbeKind = "error"
)

// ProbeResult is the outcome of fetching one product's availability.
// Reason is only set for ProbeError.
type ProbeResult struct {
	Kind   ProbeKind
	Reason string
}

// Available builds an available result.
func Available() ProbeResult { return ProbeResult{Kind: ProbeAvailable} }

// Unavailable builds an unavailable result.
func Unavailable() ProbeResult { return ProbeResult{Kind: ProbeUnavailable} }

// Failed builds an error result carrying a human-readable reason.
func Failed(reason string) ProbeResult { return ProbeResult{Kind: ProbeError, Reason: reason} }

// AlertKind identifies the class of a notification.
type AlertKind string

// Alert classes.
const (
	AlertRestocked   AlertKind = "restocked"
	AlertSoldOut     AlertKind = "sold_out"
	AlertProbeFailed AlertKind = "probe_failed"
	AlertStateFailed AlertKind = "state_failed"
	AlertSummary     AlertKind = "summary"
)

// Alert is a rendered notification ready for delivery.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Product *Product  `json:"product,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	// Entries holds the body's self-contained items when it lists several.
	Entries []string  `json:"entries,omitempty"`
	SentAt  time.Time `json:"sent_at"`
	RunID   string    `json:"run_id,omitempty"`
}

// Text renders the alert as a single plain-text message.
func (a Alert) Text() string {
	if a.Body == "" {
		return a.Title
	}
	return a.Title + "\n" + a.Body
}

// Trigger describes why a run was started.
type Trigger string

// Trigger values.
const (
	TriggerManual      Trigger = "manual"
	TriggerScheduled   Trigger = "scheduled"
	TriggerUnspecified Trigger = "unspecified"
	TriggerOther       Trigger = "other"
)

// ClassifyTrigger maps a CI event name to a Trigger.
func ClassifyTrigger(event string) Trigger {
	switch event {
	case "":
		return TriggerUnspecified
	case "workflow_dispatch", "manual":
		return TriggerManual
	case "schedule", "scheduled":
		return TriggerScheduled
	default:
		return TriggerOther
	}
}
