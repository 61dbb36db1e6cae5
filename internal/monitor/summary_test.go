package monitor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummaryPolicyShouldSend(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	at := func(h int) time.Time { return time.Date(2026, 10, 19, h, 5, 0, 0, time.UTC) }

	tests := []struct {
		name    string
		policy  SummaryPolicy
		trigger Trigger
		now     time.Time
		want    bool
	}{
		{"manual always", SummaryPolicy{Enabled: true, Hour: 0}, TriggerManual, at(13), true},
		{"unspecified always", SummaryPolicy{Enabled: true, Hour: 0}, TriggerUnspecified, at(13), true},
		{"scheduled matching hour", SummaryPolicy{Enabled: true, Hour: 13}, TriggerScheduled, at(13), true},
		{"scheduled wrong hour", SummaryPolicy{Enabled: true, Hour: 0}, TriggerScheduled, at(13), false},
		{"scheduled in location", SummaryPolicy{Enabled: true, Hour: 9, Location: tokyo}, TriggerScheduled, at(0), true},
		{"other trigger", SummaryPolicy{Enabled: true}, TriggerOther, at(0), false},
		{"disabled", SummaryPolicy{Enabled: false}, TriggerManual, at(0), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.policy.ShouldSend(tt.trigger, tt.now))
		})
	}
}

func TestSummaryAlertLines(t *testing.T) {
	t.Parallel()

	products := []Product{
		{ID: "a", Name: "Widget", URL: "https://x/a"},
		{ID: "b", Name: "Gadget", URL: "https://x/b"},
		{ID: "c", Name: "Gizmo", URL: "https://x/c"},
	}
	alert := SummaryAlert(products, StockState{"a": true, "b": false})

	assert.Equal(t, AlertSummary, alert.Kind)
	assert.Equal(t, "🟢 Widget\nhttps://x/a\n🔴 Gadget\nhttps://x/b\n⚪ Gizmo\nhttps://x/c", alert.Body)
}

func TestSummaryAlertEntriesPerProduct(t *testing.T) {
	t.Parallel()

	products := []Product{
		{ID: "a", Name: "Widget", URL: "https://x/a"},
		{ID: "b", Name: "Gadget", URL: "https://x/b"},
	}
	alert := SummaryAlert(products, StockState{"a": true})

	assert.Equal(t, []string{"🟢 Widget\nhttps://x/a", "⚪ Gadget\nhttps://x/b"}, alert.Entries)
	assert.Equal(t, strings.Join(alert.Entries, "\n"), alert.Body)
}
