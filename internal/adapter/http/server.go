package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/jhu-snapshot-etl/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// SnapshotReader loads the current record collection from the cache.
type SnapshotReader interface {
	Snapshot(ctx context.Context) ([]domain.Record, error)
}

// Server exposes health, readiness, metrics, and snapshot read endpoints.
// The data routes are read-only views over the cached snapshot; they never
// write to the cache.
type Server struct {
	httpServer *http.Server
	reader     SnapshotReader
	logger     *slog.Logger
}

// NewServer creates an HTTP server with health and snapshot routes.
func NewServer(addr string, reader SnapshotReader, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reader: reader,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v2/locations", s.handleLocations)
	mux.HandleFunc("GET /v2/jhucsse", s.handleSnapshot)
	mux.HandleFunc("GET /v2/jhucsse/counties", s.handleCounties)
	mux.HandleFunc("GET /v2/jhucsse/counties/{county}", s.handleCounty)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleSnapshot serves the raw cached record collection.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	records, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleLocations serves the generalized view: county records rolled up
// into province totals.
func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	records, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, domain.Generalize(records))
}

// handleCounties serves every county-level record.
func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	records, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, domain.FilterCounties(records, ""))
}

// handleCounty serves the county-level records matching one county name.
func (s *Server) handleCounty(w http.ResponseWriter, r *http.Request) {
	records, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	county := r.PathValue("county")
	matches := domain.FilterCounties(records, county)
	if len(matches) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message": fmt.Sprintf("no records for county %q", county),
		})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// loadSnapshot reads the cached collection, answering 503 when no snapshot
// is available yet. The second return value is false when a response has
// already been written.
func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request) ([]domain.Record, bool) {
	records, err := s.reader.Snapshot(r.Context())
	if err != nil {
		s.logger.Warn("load snapshot failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"message": "snapshot unavailable",
		})
		return nil, false
	}
	return records, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
