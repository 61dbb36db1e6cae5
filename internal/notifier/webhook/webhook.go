// Package webhook delivers alerts to a Discord-compatible webhook.
package webhook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// Payload formats.
const (
	FormatContent = "content"
	FormatEmbed   = "embed"
)

// Discord rejects longer message content and embed descriptions.
const (
	maxContentRunes     = 2000
	maxDescriptionRunes = 4096
)

// Embed colors per alert kind.
var embedColors = map[monitor.AlertKind]int{
	monitor.AlertRestocked:   0x2ecc71,
	monitor.AlertSoldOut:     0xe74c3c,
	monitor.AlertProbeFailed: 0xe67e22,
	monitor.AlertStateFailed: 0xe67e22,
	monitor.AlertSummary:     0x3498db,
}

// Config controls webhook delivery.
type Config struct {
	URL       string
	Format    string
	Username  string
	Timeout   time.Duration
	UserAgent string
}

// Notifier posts alerts to the webhook URL. With no URL it only logs.
type Notifier struct {
	cfg    Config
	client *resty.Client
	logger *zap.Logger
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type payload struct {
	Content  string  `json:"content,omitempty"`
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds,omitempty"`
}

// New builds a Notifier.
func New(cfg Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Format == "" {
		cfg.Format = FormatContent
	}
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Notifier{cfg: cfg, client: client, logger: logger}
}

// Configured reports whether a webhook URL is set.
func (n *Notifier) Configured() bool {
	return n.cfg.URL != ""
}

// Send posts one alert, split over several messages when it is too long
// for one. Non-2xx responses are errors; nothing is retried.
func (n *Notifier) Send(ctx context.Context, alert monitor.Alert) error {
	if !n.Configured() {
		n.logger.Info("webhook not configured; alert logged only",
			zap.String("kind", string(alert.Kind)),
			zap.String("message", alert.Text()),
		)
		return nil
	}

	payloads := n.render(alert)
	for i, p := range payloads {
		if err := n.post(ctx, p); err != nil {
			return err
		}
		n.logger.Debug("alert delivered",
			zap.String("kind", string(alert.Kind)),
			zap.Int("part", i+1),
			zap.Int("parts", len(payloads)),
		)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, p payload) error {
	res, err := n.client.R().
		SetContext(ctx).
		SetBody(p).
		Post(n.cfg.URL)
	if err != nil {
		return &monitor.NotifyError{Sink: "webhook", Err: err}
	}
	if res.IsError() {
		return &monitor.NotifyError{
			Sink: "webhook",
			Err:  fmt.Errorf("unexpected status %d: %s", res.StatusCode(), truncate(res.String(), 200)),
		}
	}
	return nil
}

// render builds one payload per message. Bodies that exceed Discord's
// limits are split between entries, so no entry straddles two messages.
func (n *Notifier) render(alert monitor.Alert) []payload {
	parts := entries(alert)
	if n.cfg.Format != FormatEmbed {
		budget := maxContentRunes - len([]rune(alert.Title)) - 1
		chunks := pack(parts, budget)
		out := make([]payload, 0, len(chunks))
		for _, chunk := range chunks {
			text := alert.Title
			if chunk != "" {
				text += "\n" + chunk
			}
			out = append(out, payload{Username: n.cfg.Username, Content: truncate(text, maxContentRunes)})
		}
		return out
	}

	chunks := pack(parts, maxDescriptionRunes)
	out := make([]payload, 0, len(chunks))
	for _, chunk := range chunks {
		e := embed{
			Title:       alert.Title,
			Description: chunk,
			Color:       embedColors[alert.Kind],
		}
		if alert.Product != nil {
			e.URL = alert.Product.URL
		}
		if !alert.SentAt.IsZero() {
			e.Timestamp = alert.SentAt.UTC().Format(time.RFC3339)
		}
		out = append(out, payload{Username: n.cfg.Username, Embeds: []embed{e}})
	}
	return out
}

func entries(alert monitor.Alert) []string {
	if len(alert.Entries) > 0 {
		return alert.Entries
	}
	if alert.Body == "" {
		return nil
	}
	return strings.Split(alert.Body, "\n")
}

// pack joins parts with newlines into as few chunks as fit within limit
// runes. A single part longer than limit is truncated. It always returns
// at least one chunk.
func pack(parts []string, limit int) []string {
	var chunks []string
	var cur string
	curLen, started := 0, false
	for _, part := range parts {
		part = truncate(part, limit)
		n := len([]rune(part))
		switch {
		case !started:
			cur, curLen, started = part, n, true
		case curLen+1+n <= limit:
			cur += "\n" + part
			curLen += 1 + n
		default:
			chunks = append(chunks, cur)
			cur, curLen = part, n
		}
	}
	return append(chunks, cur)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
