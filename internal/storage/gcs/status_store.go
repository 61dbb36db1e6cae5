// Package gcs provides a status store backed by a Google Cloud Storage object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/stockwatch/internal/monitor"
	appstorage "github.com/JakeFAU/stockwatch/internal/storage"
)

// Config captures the parameters required to locate the state object.
type Config struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

// ObjectClient reads and writes whole objects. It exists so tests can avoid a live bucket.
type ObjectClient interface {
	// Read returns storage.ErrObjectNotExist when the object is missing.
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// StatusStore persists the stock state as a single JSON object.
type StatusStore struct {
	client ObjectClient
	bucket string
	object string
}

// New creates a GCS-backed status store.
func New(client *storage.Client, cfg Config) (*StatusStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return NewWithObjectClient(&clientAdapter{client: client}, cfg)
}

// NewWithObjectClient constructs a store from an existing object client (primarily for testing).
func NewWithObjectClient(client ObjectClient, cfg Config) (*StatusStore, error) {
	if client == nil {
		return nil, fmt.Errorf("object client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	object := strings.TrimPrefix(cfg.Object, "/")
	if object == "" {
		object = "stock_status.json"
	}
	return &StatusStore{client: client, bucket: cfg.Bucket, object: object}, nil
}

// Load downloads and decodes the state object. A missing object yields an empty state.
func (s *StatusStore) Load(ctx context.Context) (monitor.StockState, error) {
	data, err := s.client.Read(ctx, s.bucket, s.object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return monitor.StockState{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.URI(), err)
	}
	state, err := appstorage.DecodeState(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.URI(), err)
	}
	return state, nil
}

// Save uploads the full state, replacing the previous object.
func (s *StatusStore) Save(ctx context.Context, state monitor.StockState) error {
	data, err := appstorage.EncodeState(state)
	if err != nil {
		return err
	}
	if err := s.client.Write(ctx, s.bucket, s.object, appstorage.ContentType, data); err != nil {
		return fmt.Errorf("write %s: %w", s.URI(), err)
	}
	return nil
}

// URI returns the gs:// location of the state object.
func (s *StatusStore) URI() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

type clientAdapter struct {
	client *storage.Client
}

func (a *clientAdapter) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open reader: %w", err)
	}
	defer reader.Close() //nolint:errcheck // read-only
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (a *clientAdapter) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	writer := a.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}
