// Package config loads and validates stockwatch configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// State backends.
const (
	BackendLocal    = "local"
	BackendMemory   = "memory"
	BackendGCS      = "gcs"
	BackendPostgres = "postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	State   StateConfig   `mapstructure:"state"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Summary SummaryConfig `mapstructure:"summary"`
	Trigger TriggerConfig `mapstructure:"trigger"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Server  ServerConfig  `mapstructure:"server"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// CatalogConfig locates the product list.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// StateConfig selects where the stock state lives.
type StateConfig struct {
	Backend  string         `mapstructure:"backend"`
	Path     string         `mapstructure:"path"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// GCSConfig locates the state object.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

// PostgresConfig controls access to the state table.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ProbeConfig shapes availability requests.
type ProbeConfig struct {
	Suffix     string  `mapstructure:"suffix"`
	UserAgent  string  `mapstructure:"user_agent"`
	PerHostRPS float64 `mapstructure:"per_host_rps"`
	Burst      int     `mapstructure:"burst"`
}

// HTTPConfig bounds every outbound request.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// NotifyConfig configures alert sinks.
type NotifyConfig struct {
	WebhookURL string       `mapstructure:"webhook_url"`
	Format     string       `mapstructure:"format"`
	Username   string       `mapstructure:"username"`
	PubSub     PubSubConfig `mapstructure:"pubsub"`
}

// PubSubConfig holds the optional Pub/Sub alert topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Enabled reports whether alerts should also be published.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.Topic != ""
}

// SummaryConfig gates the daily digest.
type SummaryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Hour     int    `mapstructure:"hour"`
	Timezone string `mapstructure:"timezone"`
}

// TriggerConfig carries the event that started the run.
type TriggerConfig struct {
	Event string `mapstructure:"event"`
}

// MonitorConfig controls run scheduling.
type MonitorConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Interval    time.Duration `mapstructure:"interval"`
}

// MetricsConfig configures the optional Pushgateway push after one-shot runs.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// ServerConfig controls the serve command's HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STOCKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &monitor.ConfigError{Source: path, Err: fmt.Errorf("read config: %w", err)}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &monitor.ConfigError{Source: "config", Err: fmt.Errorf("unmarshal config: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, &monitor.ConfigError{Source: "config", Err: err}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("catalog.path", "products.json")
	v.SetDefault("state.backend", BackendLocal)
	v.SetDefault("state.path", "stock_status.json")
	v.SetDefault("state.gcs.bucket", "")
	v.SetDefault("state.gcs.object", "stock_status.json")
	v.SetDefault("state.postgres.dsn", "")
	v.SetDefault("state.postgres.table", "stock_status")
	v.SetDefault("state.postgres.max_conns", 2)
	v.SetDefault("probe.suffix", ".js")
	v.SetDefault("probe.user_agent", "stockwatch/1.0")
	v.SetDefault("probe.per_host_rps", 0)
	v.SetDefault("probe.burst", 1)
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.format", "content")
	v.SetDefault("notify.username", "")
	v.SetDefault("notify.pubsub.project_id", "")
	v.SetDefault("notify.pubsub.topic", "")
	v.SetDefault("summary.enabled", true)
	v.SetDefault("summary.hour", 0)
	v.SetDefault("summary.timezone", "UTC")
	v.SetDefault("trigger.event", "")
	v.SetDefault("monitor.concurrency", 1)
	v.SetDefault("monitor.interval", time.Hour)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "stockwatch")
	v.SetDefault("server.port", 8080)
}

// bindAliases accepts the env names the CI workflow already exports.
func bindAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"notify.webhook_url": {"STOCKWATCH_NOTIFY_WEBHOOK_URL", "DISCORD_WEBHOOK_URL"},
		"trigger.event":      {"STOCKWATCH_TRIGGER_EVENT", "GITHUB_EVENT_NAME"},
	}
	for key, envs := range aliases {
		input := append([]string{key}, envs...)
		if err := v.BindEnv(input...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.State.Backend {
	case BackendLocal:
		if c.State.Path == "" {
			return fmt.Errorf("state.path must be set for the local backend")
		}
	case BackendMemory:
	case BackendGCS:
		if c.State.GCS.Bucket == "" {
			return fmt.Errorf("state.gcs.bucket must be set for the gcs backend")
		}
	case BackendPostgres:
		if c.State.Postgres.DSN == "" {
			return fmt.Errorf("state.postgres.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("state.backend %q is not one of local, memory, gcs, postgres", c.State.Backend)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path must be set")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Monitor.Concurrency <= 0 {
		return fmt.Errorf("monitor.concurrency must be > 0")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be > 0")
	}
	if c.Notify.Format != "content" && c.Notify.Format != "embed" {
		return fmt.Errorf("notify.format must be content or embed, got %q", c.Notify.Format)
	}
	if (c.Notify.PubSub.ProjectID == "") != (c.Notify.PubSub.Topic == "") {
		return fmt.Errorf("notify.pubsub.project_id and notify.pubsub.topic must be set together")
	}
	if c.Summary.Hour < 0 || c.Summary.Hour > 23 {
		return fmt.Errorf("summary.hour must be between 0 and 23")
	}
	if _, err := time.LoadLocation(c.Summary.Timezone); err != nil {
		return fmt.Errorf("summary.timezone: %w", err)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// SummaryPolicy converts the summary section into the orchestrator's gate.
func (c Config) SummaryPolicy() (monitor.SummaryPolicy, error) {
	loc, err := time.LoadLocation(c.Summary.Timezone)
	if err != nil {
		return monitor.SummaryPolicy{}, fmt.Errorf("summary.timezone: %w", err)
	}
	return monitor.SummaryPolicy{Enabled: c.Summary.Enabled, Hour: c.Summary.Hour, Location: loc}, nil
}

// RunTrigger classifies the configured event name.
func (c Config) RunTrigger() monitor.Trigger {
	return monitor.ClassifyTrigger(c.Trigger.Event)
}
