// Package monitoring serves health, stats and Prometheus endpoints while a
// run is in progress.
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"apirush/internal/metrics"
	"apirush/internal/utils"
)

// StatsFunc returns the current run snapshot for the /stats endpoint.
type StatsFunc func() any

// Server is the monitoring HTTP server.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer builds the server. stats may be nil; /stats then serves an
// empty object.
func NewServer(addr string, m *metrics.Metrics, stats StatsFunc) *Server {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler).Methods("GET")
	r.HandleFunc("/stats", statsHandler(stats)).Methods("GET")
	if reg := m.Registry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	}

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: utils.NewComponentLogger("monitoring"),
	}
}

// Start serves in a background goroutine until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("monitoring server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("monitoring server stopped")
		}
	}()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func statsHandler(stats StatsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stats == nil {
			writeJSON(w, struct{}{})
			return
		}
		writeJSON(w, stats())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
