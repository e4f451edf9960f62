// Package server exposes the search pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/sift/pkg/observability"
	"github.com/kadirpekel/sift/pkg/search"
	"github.com/kadirpekel/sift/pkg/store"
)

const (
	requestTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Searcher serves validated search requests.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// StatsStore reports reachability and usage counters.
type StatsStore interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (store.Stats, error)
}

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelGate reports cross-encoder readiness.
type ModelGate interface {
	Ready(ctx context.Context) bool
}

type Config struct {
	Port         int
	DefaultLimit int
}

// Server wires handlers, middleware and lifecycle.
type Server struct {
	config   Config
	searcher Searcher
	stats    StatsStore
	backend  Pinger
	model    ModelGate

	httpServer *http.Server
	startTime  time.Time
}

func New(config Config, searcher Searcher, stats StatsStore, backend Pinger, model ModelGate) *Server {
	return &Server{
		config:    config,
		searcher:  searcher,
		stats:     stats,
		backend:   backend,
		model:     model,
		startTime: time.Now(),
	}
}

// Handler builds the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(recoverMiddleware)

	r.Get("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/metrics", observability.Handler().ServeHTTP)

	return http.TimeoutHandler(r, requestTimeout, `{"error":"Internal","detail":"request timed out"}`)
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}
