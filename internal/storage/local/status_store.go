// Package local implements a local filesystem status store.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/storage"
)

// Config captures the parameters for the local filesystem status store.
type Config struct {
	// Path is the JSON file holding the stock state.
	Path string `mapstructure:"path" yaml:"path"`
}

// StatusStore reads and writes the stock state as a JSON file.
type StatusStore struct {
	path string
}

// New creates a file-backed status store. The file itself may not exist yet.
func New(cfg Config) (*StatusStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("state path is required")
	}
	info, err := os.Stat(cfg.Path)
	switch {
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("state path %q is a directory", cfg.Path)
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to stat state path: %w", err)
	}
	return &StatusStore{path: filepath.Clean(cfg.Path)}, nil
}

// Load reads the state file. A missing file yields an empty state.
func (s *StatusStore) Load(_ context.Context) (monitor.StockState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return monitor.StockState{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	state, err := storage.DecodeState(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return state, nil
}

// Save replaces the state file atomically (write to temp file, then rename).
func (s *StatusStore) Save(_ context.Context, state monitor.StockState) error {
	data, err := storage.EncodeState(state)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Path returns the state file location.
func (s *StatusStore) Path() string {
	return s.path
}
