package monitor

import (
	"errors"
	"fmt"
)

// ErrWebhookRequired is returned when a command must deliver a report but no webhook is configured.
var ErrWebhookRequired = errors.New("notify.webhook_url is required for this command")

// ConfigError reports an unreadable or invalid catalog/configuration.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StateError reports a status store that could not be read or written.
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s failed: %v", e.Op, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// NotifyError reports a failed alert delivery.
type NotifyError struct {
	Sink string
	Err  error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Sink, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// ErrRunInProgress is returned when a check is requested while another is still running.
var ErrRunInProgress = errors.New("a check is already running")
