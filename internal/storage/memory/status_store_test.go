package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

func TestStatusStoreRoundTripIsolated(t *testing.T) {
	t.Parallel()

	seed := monitor.StockState{"a": true}
	store := NewStatusStore(seed)
	seed["a"] = false

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got["a"] {
		t.Fatal("expected seed to be copied on construction")
	}

	got["b"] = true
	if err := store.Save(context.Background(), got); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got["c"] = true

	again, _ := store.Load(context.Background())
	if len(again) != 2 || !again["b"] {
		t.Fatalf("unexpected state after save: %+v", again)
	}
	if store.Saves() != 1 {
		t.Fatalf("expected 1 save, got %d", store.Saves())
	}
}

func TestStatusStoreEmpty(t *testing.T) {
	t.Parallel()

	got, err := NewStatusStore(nil).Load(context.Background())
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil state, got %v err=%v", got, err)
	}
}
