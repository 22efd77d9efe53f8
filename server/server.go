// Package server serves the generated dashboard, the status API and metrics.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"service-dashboard/icons"
	"service-dashboard/metrics"
	"service-dashboard/models"

	"github.com/rs/zerolog/log"
)

//go:embed assets
var assetsFS embed.FS

// BuildFunc produces a fresh dashboard page
type BuildFunc func(ctx context.Context) ([]byte, icons.Report, error)

// StatusLister returns the latest known status of every service
type StatusLister interface {
	ListStatuses(ctx context.Context) ([]models.Status, error)
}

// Server is the dashboard HTTP server
type Server struct {
	build    BuildFunc
	statuses StatusLister
	metrics  *metrics.DashboardMetrics

	mu      sync.RWMutex
	page    []byte
	builtAt time.Time

	// serializes rebuilds
	buildMu sync.Mutex

	mux    *http.ServeMux
	server *http.Server
}

// New creates a server. statuses and m may be nil.
func New(build BuildFunc, statuses StatusLister, m *metrics.DashboardMetrics) *Server {
	s := &Server{
		build:    build,
		statuses: statuses,
		metrics:  m,
		mux:      http.NewServeMux(),
	}

	assets, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err)
	}

	s.mux.HandleFunc("GET /{$}", s.handleDashboard)
	s.mux.HandleFunc("POST /-/rebuild", s.handleRebuild)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(assets)))
	s.mux.HandleFunc("GET /healthz", healthHandler)
	s.mux.Handle("GET /metrics", metrics.Handler())

	return s
}

// Handler returns the root handler with request logging
func (s *Server) Handler() http.Handler {
	return requestLogger(s.mux)
}

// Rebuild renders the dashboard again and swaps it in on success
func (s *Server) Rebuild(ctx context.Context) (icons.Report, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	page, report, err := s.build(ctx)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.page = page
	s.builtAt = time.Now()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Rebuilds.Inc()
	}
	return report, nil
}

// Start binds addr and serves in the background. Bind errors are returned.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.server.Addr).Msg("Dashboard server listening")
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Dashboard server failed")
		}
	}()
	return nil
}

// Addr returns the bound address once Start succeeded
func (s *Server) Addr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	page, builtAt := s.page, s.builtAt
	s.mu.RUnlock()

	if page == nil {
		http.Error(w, "dashboard not built yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Last-Modified", builtAt.UTC().Format(http.TimeFormat))
	_, _ = w.Write(page)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	report, err := s.Rebuild(r.Context())
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("Dashboard rebuild failed")
		http.Error(w, fmt.Sprintf("rebuild failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"matched":  report.Matched,
		"resolved": report.Resolved,
		"fallback": report.Fallback,
		"skipped":  report.Skipped,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.statuses == nil {
		writeJSON(w, http.StatusOK, []models.Status{})
		return
	}

	statuses, err := s.statuses.ListStatuses(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list statuses")
		http.Error(w, "failed to list statuses", http.StatusInternalServerError)
		return
	}
	if statuses == nil {
		statuses = []models.Status{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
