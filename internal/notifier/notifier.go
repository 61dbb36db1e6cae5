// Package notifier combines alert sinks.
package notifier

import (
	"context"
	"errors"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// Fanout delivers every alert to each configured sink.
type Fanout []monitor.Notifier

// Send tries every sink and joins their errors.
func (f Fanout) Send(ctx context.Context, alert monitor.Alert) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
