// Package storage holds the status store encoding shared by the file-like backends.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// ContentType is the media type of an encoded stock state.
const ContentType = "application/json"

// EncodeState renders the state as indented JSON with sorted keys.
func EncodeState(state monitor.StockState) ([]byte, error) {
	if state == nil {
		state = monitor.StockState{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeState parses a persisted state. Empty input yields an empty state.
func DecodeState(data []byte) (monitor.StockState, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return monitor.StockState{}, nil
	}
	var state monitor.StockState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if state == nil {
		state = monitor.StockState{}
	}
	return state, nil
}
