package monitor

import (
	"fmt"
	"strings"
)

// Icons used in alerts and summaries.
const (
	IconAvailable   = "🟢"
	IconUnavailable = "🔴"
	IconUnknown     = "⚪"
	IconError       = "❌"
	IconSummary     = "📊"
)

// TransitionAlert renders a restocked or sold-out alert.
func TransitionAlert(product Product, available bool) Alert {
	p := product
	if available {
		return Alert{
			Kind:    AlertRestocked,
			Product: &p,
			Title:   IconAvailable + " Back in stock!",
			Body:    fmt.Sprintf("Product: %s\nURL: %s", product.Name, product.URL),
		}
	}
	return Alert{
		Kind:    AlertSoldOut,
		Product: &p,
		Title:   IconUnavailable + " Sold out!",
		Body:    fmt.Sprintf("Product: %s\nURL: %s", product.Name, product.URL),
	}
}

// ProbeFailedAlert renders an error alert for one product.
func ProbeFailedAlert(product Product, reason string) Alert {
	p := product
	if reason == "" {
		reason = "unknown error"
	}
	return Alert{
		Kind:    AlertProbeFailed,
		Product: &p,
		Reason:  reason,
		Title:   IconError + " Stock check failed",
		Body:    fmt.Sprintf("Product: %s\nURL: %s\nReason: %s", product.Name, product.URL, reason),
	}
}

// StateFailedAlert renders an error alert for an unreadable status store.
func StateFailedAlert(err error) Alert {
	return Alert{
		Kind:   AlertStateFailed,
		Reason: err.Error(),
		Title:  IconError + " Stock status unreadable",
		Body:   fmt.Sprintf("Reason: %v\nThe run was aborted and the stored status was left untouched.", err),
	}
}

// SummaryAlert renders one entry per product in catalog order.
func SummaryAlert(products []Product, state StockState) Alert {
	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, fmt.Sprintf("%s %s\n%s", stateIcon(state, p.ID), p.Name, p.URL))
	}
	return Alert{
		Kind:    AlertSummary,
		Title:   IconSummary + " Stock summary",
		Body:    strings.Join(lines, "\n"),
		Entries: lines,
	}
}

func stateIcon(state StockState, productID string) string {
	available, known := state.Lookup(productID)
	switch {
	case !known:
		return IconUnknown
	case available:
		return IconAvailable
	default:
		return IconUnavailable
	}
}
