package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/notifier/webhook"
	"github.com/JakeFAU/stockwatch/internal/storage/memory"
)

const catalogJSON = `[
  {"id": "a", "name": "Widget", "url": "https://shop.test/products/widget"},
  {"id": "b", "name": "Gadget", "url": "https://shop.test/products/gadget"},
]`

type stubProber struct {
	calls   atomic.Int32
	release chan struct{}
}

func (p *stubProber) Probe(ctx context.Context, _ monitor.Product) monitor.ProbeResult {
	p.calls.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
		}
	}
	return monitor.Available()
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

type seqIDs struct{ n atomic.Int32 }

func (s *seqIDs) NewID() (string, error) {
	return "run-" + string(rune('0'+s.n.Add(1))), nil
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testConfig(catalogPath string) config.Config {
	return config.Config{
		Catalog: config.CatalogConfig{Path: catalogPath},
		Monitor: config.MonitorConfig{Concurrency: 1, Interval: time.Hour},
		Metrics: config.MetricsConfig{Job: "stockwatch"},
	}
}

func newTestApp(
	cfg config.Config,
	prober monitor.Prober,
	store monitor.StatusStore,
	sink monitor.Notifier,
) *App {
	orch := monitor.New(prober, store, sink, fixedClock{}, &seqIDs{}, nil,
		monitor.Config{Summary: monitor.SummaryPolicy{Enabled: true}}, zap.NewNop())
	return NewApp(cfg, orch, zap.NewNop())
}

type discardNotifier struct {
	mu     sync.Mutex
	alerts []monitor.Alert
}

func (d *discardNotifier) Send(_ context.Context, a monitor.Alert) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, a)
	return nil
}

func TestCheckPersistsState(t *testing.T) {
	t.Parallel()

	store := memory.NewStatusStore(nil)
	prober := &stubProber{}
	app := newTestApp(testConfig(writeCatalog(t, catalogJSON)), prober, store, &discardNotifier{})

	report, err := app.Check(context.Background(), monitor.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Products)
	assert.Equal(t, int32(2), prober.calls.Load())

	_, state, err := app.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, monitor.StockState{"a": true, "b": true}, state)
}

func TestCheckMissingCatalogIsNoop(t *testing.T) {
	t.Parallel()

	store := memory.NewStatusStore(nil)
	app := newTestApp(testConfig(filepath.Join(t.TempDir(), "products.json")), &stubProber{}, store, &discardNotifier{})

	report, err := app.Check(context.Background(), monitor.TriggerScheduled)
	require.NoError(t, err)
	assert.Zero(t, report.Products)
	assert.Zero(t, store.Saves())
}

func TestCheckMalformedCatalogIsConfigError(t *testing.T) {
	t.Parallel()

	app := newTestApp(testConfig(writeCatalog(t, `{"id": 1`)), &stubProber{}, memory.NewStatusStore(nil), &discardNotifier{})

	_, err := app.Check(context.Background(), monitor.TriggerScheduled)
	var cfgErr *monitor.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckRejectsOverlappingRuns(t *testing.T) {
	t.Parallel()

	prober := &stubProber{release: make(chan struct{})}
	app := newTestApp(testConfig(writeCatalog(t, catalogJSON)), prober, memory.NewStatusStore(nil), &discardNotifier{})

	done := make(chan error, 1)
	go func() {
		_, err := app.Check(context.Background(), monitor.TriggerScheduled)
		done <- err
	}()
	require.Eventually(t, func() bool { return prober.calls.Load() > 0 }, time.Second, 5*time.Millisecond)

	_, err := app.Check(context.Background(), monitor.TriggerManual)
	assert.ErrorIs(t, err, monitor.ErrRunInProgress)

	close(prober.release)
	require.NoError(t, <-done)
}

func TestReportRequiresWebhook(t *testing.T) {
	t.Parallel()

	app := newTestApp(testConfig(writeCatalog(t, catalogJSON)), &stubProber{}, memory.NewStatusStore(nil), &discardNotifier{})
	_, err := app.Report(context.Background())
	assert.ErrorIs(t, err, monitor.ErrWebhookRequired)
}

func TestReportSendsSummaryWithoutProbing(t *testing.T) {
	t.Parallel()

	var bodies []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := testConfig(writeCatalog(t, catalogJSON))
	cfg.Notify.WebhookURL = srv.URL
	prober := &stubProber{}
	app := newTestApp(cfg, prober, memory.NewStatusStore(monitor.StockState{"a": false}),
		webhook.New(webhook.Config{URL: srv.URL}, zap.NewNop()))

	state, err := app.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, monitor.StockState{"a": false}, state)
	assert.Zero(t, prober.calls.Load())
	require.Len(t, bodies, 1)
	assert.True(t, strings.Contains(bodies[0], "Stock summary"))
}

func TestReportMissingCatalogSendsNothing(t *testing.T) {
	t.Parallel()

	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := testConfig(filepath.Join(t.TempDir(), "missing.json"))
	cfg.Notify.WebhookURL = srv.URL
	app := newTestApp(cfg, &stubProber{}, memory.NewStatusStore(monitor.StockState{"a": true}),
		webhook.New(webhook.Config{URL: srv.URL}, zap.NewNop()))

	state, err := app.Report(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state)
	assert.Zero(t, posts.Load())
}

func TestScheduleRunsUntilCanceled(t *testing.T) {
	t.Parallel()

	prober := &stubProber{}
	app := newTestApp(testConfig(writeCatalog(t, catalogJSON)), prober, memory.NewStatusStore(nil), &discardNotifier{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	app.schedule(ctx, 10*time.Millisecond)

	assert.GreaterOrEqual(t, prober.calls.Load(), int32(4), "expected several scheduled runs of two products")
}

func TestBuildMemoryBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig(writeCatalog(t, `[]`))
	cfg.State.Backend = config.BackendMemory
	cfg.HTTP.Timeout = time.Second
	cfg.Notify.Format = webhook.FormatContent
	cfg.Summary.Timezone = "UTC"

	app, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	report, err := app.Check(context.Background(), monitor.TriggerManual)
	require.NoError(t, err)
	assert.Zero(t, report.Products)
	assert.NoError(t, app.Close(context.Background()))
}

func TestCloseJoinsErrors(t *testing.T) {
	t.Parallel()

	app := NewApp(config.Config{}, nil, nil)
	var order []int
	app.closers = append(app.closers,
		func(context.Context) error { order = append(order, 1); return errors.New("first") },
		func(context.Context) error { order = append(order, 2); return nil },
	)
	err := app.Close(context.Background())
	require.Error(t, err)
	assert.Equal(t, []int{2, 1}, order)
}
