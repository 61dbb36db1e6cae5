// Package memory provides in-memory implementations for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// StatusStore keeps the stock state in process memory.
type StatusStore struct {
	mu    sync.RWMutex
	state monitor.StockState
	saves int
}

// NewStatusStore constructs a StatusStore seeded with an optional initial state.
func NewStatusStore(initial monitor.StockState) *StatusStore {
	if initial == nil {
		initial = monitor.StockState{}
	}
	return &StatusStore{state: initial.Clone()}
}

// Load returns a copy of the stored state.
func (s *StatusStore) Load(_ context.Context) (monitor.StockState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone(), nil
}

// Save replaces the stored state.
func (s *StatusStore) Save(_ context.Context, state monitor.StockState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *StatusStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
