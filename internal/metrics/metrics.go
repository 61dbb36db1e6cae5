// Package metrics exposes Prometheus collectors for stock checks.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

var (
	probesTotal           *prometheus.CounterVec
	probeDurationSeconds  *prometheus.HistogramVec
	transitionsTotal      *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	rateLimitDelaySeconds *prometheus.HistogramVec
	runDurationSeconds    prometheus.Histogram
	runProductsTotal      prometheus.Counter
	runFailuresTotal      prometheus.Counter
	lastRunTimestamp      prometheus.Gauge
	productAvailable      *prometheus.GaugeVec
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		probesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_probes_total",
				Help: "Total number of availability probes, labeled by site and result.",
			},
			[]string{"site", "result"},
		)

		probeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockwatch_probe_duration_seconds",
				Help:    "Histogram of probe latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		transitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_transitions_total",
				Help: "Total number of confirmed stock transitions, labeled by kind.",
			},
			[]string{"kind"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_notifications_total",
				Help: "Total number of notifications attempted, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockwatch_rate_limit_delay_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockwatch_run_duration_seconds",
				Help:    "Histogram of full check run durations.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		)

		runProductsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "stockwatch_run_products_total",
				Help: "Total number of products processed by completed runs.",
			},
		)

		runFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "stockwatch_run_probe_failures_total",
				Help: "Total number of failed probes in completed runs.",
			},
		)

		lastRunTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockwatch_last_run_timestamp_seconds",
				Help: "Unix time of the last completed run.",
			},
		)

		productAvailable = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockwatch_product_available",
				Help: "Last confirmed availability per product (1 available, 0 unavailable).",
			},
			[]string{"product_id"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		)

		httpRequestSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockwatch_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProbe records one probe outcome.
func ObserveProbe(product monitor.Product, result monitor.ProbeResult, d time.Duration) {
	site := SanitizeSite(product.URL)
	probesTotal.WithLabelValues(site, string(result.Kind)).Inc()
	probeDurationSeconds.WithLabelValues(site).Observe(d.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// Recorder implements monitor.Recorder on the package collectors.
type Recorder struct{}

// NewRecorder initializes the collectors and returns a Recorder.
func NewRecorder() Recorder {
	Init()
	return Recorder{}
}

// ObserveTransition counts a confirmed restock or sell-out.
func (Recorder) ObserveTransition(kind monitor.AlertKind) {
	transitionsTotal.WithLabelValues(string(kind)).Inc()
}

// ObserveNotify counts a delivery attempt.
func (Recorder) ObserveNotify(kind monitor.AlertKind, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	notificationsTotal.WithLabelValues(string(kind), outcome).Inc()
}

// ObserveRun records a completed run.
func (Recorder) ObserveRun(products int, failures int, d time.Duration) {
	runDurationSeconds.Observe(d.Seconds())
	runProductsTotal.Add(float64(products))
	runFailuresTotal.Add(float64(failures))
	lastRunTimestamp.SetToCurrentTime()
}

// ObserveState exports the confirmed availability of every product.
func (Recorder) ObserveState(state monitor.StockState) {
	productAvailable.Reset()
	for id, available := range state {
		v := 0.0
		if available {
			v = 1
		}
		productAvailable.WithLabelValues(id).Set(v)
	}
}

// Push sends every registered metric to a Prometheus Pushgateway under job.
// Cron runs exit before a scrape could happen, so this is how they report.
func Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	pusher := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
