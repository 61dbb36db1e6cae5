// Package pubsub publishes alerts to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// Topic is the subset of *pubsub.Topic the notifier uses.
type Topic interface {
	Publish(ctx context.Context, msg *pubsub.Message) PublishResult
	Stop()
}

// PublishResult is the subset of *pubsub.PublishResult the notifier uses.
type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

// Notifier publishes each alert as a JSON message.
type Notifier struct {
	topic Topic
}

// New creates a Notifier for the provided topic.
func New(topic Topic) *Notifier {
	return &Notifier{topic: topic}
}

// NewFromClient wraps a client topic.
func NewFromClient(client *pubsub.Client, topicID string) *Notifier {
	return New(topicAdapter{topic: client.Topic(topicID)})
}

// Send marshals the alert and waits for the server acknowledgement.
func (n *Notifier) Send(ctx context.Context, alert monitor.Alert) error {
	if n.topic == nil {
		return &monitor.NotifyError{Sink: "pubsub", Err: fmt.Errorf("pubsub topic is not configured")}
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return &monitor.NotifyError{Sink: "pubsub", Err: fmt.Errorf("marshal alert: %w", err)}
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":   string(alert.Kind),
			"run_id": alert.RunID,
		},
	}
	if alert.Product != nil {
		msg.Attributes["product_id"] = alert.Product.ID
	}
	if _, err := n.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return &monitor.NotifyError{Sink: "pubsub", Err: fmt.Errorf("publish message: %w", err)}
	}
	return nil
}

// Stop flushes pending messages and releases the topic's goroutines.
func (n *Notifier) Stop() {
	if n.topic != nil {
		n.topic.Stop()
	}
}

type topicAdapter struct {
	topic *pubsub.Topic
}

func (t topicAdapter) Publish(ctx context.Context, msg *pubsub.Message) PublishResult {
	return t.topic.Publish(ctx, msg)
}

func (t topicAdapter) Stop() {
	t.topic.Stop()
}
