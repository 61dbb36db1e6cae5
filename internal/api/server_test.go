package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

type fakeRunner struct {
	report   monitor.Report
	checkErr error
	products []monitor.Product
	state    monitor.StockState
	snapErr  error
	triggers []monitor.Trigger
	panicOn  bool
}

func (f *fakeRunner) Check(_ context.Context, trigger monitor.Trigger) (monitor.Report, error) {
	if f.panicOn {
		panic("boom")
	}
	f.triggers = append(f.triggers, trigger)
	return f.report, f.checkErr
}

func (f *fakeRunner) Snapshot(context.Context) ([]monitor.Product, monitor.StockState, error) {
	return f.products, f.state, f.snapErr
}

func serve(t *testing.T, runner Runner, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewServer(runner, zap.NewNop()).Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeRunner{}, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	serve(t, &fakeRunner{}, http.MethodGet, "/healthz")
	rec := serve(t, &fakeRunner{}, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockwatch_http_requests_total")
}

func TestStatusJoinsCatalogAndState(t *testing.T) {
	runner := &fakeRunner{
		products: []monitor.Product{
			{ID: "a", Name: "Widget", URL: "https://x/a"},
			{ID: "b", Name: "Gadget", URL: "https://x/b"},
			{ID: "c", Name: "Gizmo", URL: "https://x/c"},
		},
		state: monitor.StockState{"a": true, "b": false},
	}
	rec := serve(t, runner, http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Products []ProductStatus `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Products, 3)
	assert.Equal(t, "available", body.Products[0].Status)
	assert.Equal(t, "unavailable", body.Products[1].Status)
	assert.Equal(t, "unknown", body.Products[2].Status)
}

func TestStatusStateError(t *testing.T) {
	runner := &fakeRunner{snapErr: &monitor.StateError{Op: "load", Err: errors.New("bad json")}}
	rec := serve(t, runner, http.MethodGet, "/v1/status")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad json")
}

func TestRunStartsManualCheck(t *testing.T) {
	started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	runner := &fakeRunner{report: monitor.Report{
		RunID:       "run-7",
		Trigger:     monitor.TriggerManual,
		StartedAt:   started,
		Products:    2,
		Alerts:      1,
		SummarySent: true,
	}}
	rec := serve(t, runner, http.MethodPost, "/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []monitor.Trigger{monitor.TriggerManual}, runner.triggers)

	var body RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-7", body.RunID)
	assert.Equal(t, "manual", body.Trigger)
	assert.True(t, body.SummarySent)
	assert.True(t, started.Equal(body.StartedAt))
}

func TestRunConflictWhileBusy(t *testing.T) {
	rec := serve(t, &fakeRunner{checkErr: monitor.ErrRunInProgress}, http.MethodPost, "/v1/runs")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRunFailure(t *testing.T) {
	runner := &fakeRunner{checkErr: &monitor.StateError{Op: "save", Err: errors.New("disk full")}}
	rec := serve(t, runner, http.MethodPost, "/v1/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	rec := serve(t, &fakeRunner{panicOn: true}, http.MethodPost, "/v1/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestRequestIDIsEchoed(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	NewServer(&fakeRunner{}, nil).Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
