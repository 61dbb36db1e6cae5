package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// Runner performs checks and exposes the current state.
type Runner interface {
	Check(ctx context.Context, trigger monitor.Trigger) (monitor.Report, error)
	Snapshot(ctx context.Context) ([]monitor.Product, monitor.StockState, error)
}

// Server wires HTTP handlers to the Runner.
type Server struct {
	router chi.Router
	runner Runner
	logger *zap.Logger
}

// ProductStatus is one row of the status response.
type ProductStatus struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// RunResponse describes a finished manual run.
type RunResponse struct {
	RunID       string    `json:"run_id"`
	Trigger     string    `json:"trigger"`
	StartedAt   time.Time `json:"started_at"`
	Products    int       `json:"products"`
	Failures    int       `json:"failures"`
	Alerts      int       `json:"alerts"`
	SummarySent bool      `json:"summary_sent"`
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{runner: runner, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(metrics.Middleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Post("/runs", s.run)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	products, state, err := s.runner.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("status snapshot failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rows := make([]ProductStatus, 0, len(products))
	for _, p := range products {
		rows = append(rows, ProductStatus{ID: p.ID, Name: p.Name, URL: p.URL, Status: statusLabel(state, p.ID)})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"products": rows})
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	// The run outlives a disconnecting client so the state is always saved.
	ctx := context.WithoutCancel(r.Context())
	report, err := s.runner.Check(ctx, monitor.TriggerManual)
	if err != nil {
		if errors.Is(err, monitor.ErrRunInProgress) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("manual run failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, RunResponse{
		RunID:       report.RunID,
		Trigger:     string(report.Trigger),
		StartedAt:   report.StartedAt,
		Products:    report.Products,
		Failures:    report.Failures,
		Alerts:      report.Alerts,
		SummarySent: report.SummarySent,
	})
}

func statusLabel(state monitor.StockState, productID string) string {
	available, known := state.Lookup(productID)
	switch {
	case !known:
		return "unknown"
	case available:
		return "available"
	default:
		return "unavailable"
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Info("request completed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
