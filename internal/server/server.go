// Package server exposes the record store over HTTP: the live table, the
// save/list API the table page talks to, a CSV export and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/wordrules/internal/matrix"
	"github.com/ppiankov/wordrules/internal/metrics"
	"github.com/ppiankov/wordrules/internal/rules"
	"github.com/ppiankov/wordrules/internal/store"
)

// Server serves one record store
type Server struct {
	store    store.Store
	catalog  *rules.Catalog
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	mu     sync.Mutex
	cached *matrix.Matrix
}

// Option configures a Server
type Option func(*Server)

// WithMetrics records save and build metrics and serves gatherer on /metrics
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server over st; catalog supplies column questions
func New(st store.Store, catalog *rules.Catalog, opts ...Option) *Server {
	s := &Server{
		store:   st,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	return s
}

// Routes mounts every endpoint on a chi router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.HandleTable)
	r.Get("/export.csv", s.HandleExportCSV)
	r.Get("/api/words", s.HandleListWords)
	r.Get("/api/words/{id}", s.HandleGetWord)
	r.Post("/api/save-word/{id}", s.HandleSaveWord)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return r
}

// MarkStale drops the cached matrix; the next request rebuilds it
func (s *Server) MarkStale() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Matrix returns the cached matrix, rebuilding it from the store when stale
func (s *Server) Matrix() (*matrix.Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached, nil
	}

	ids, err := s.store.IDs()
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	entries, err := s.store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	m := matrix.Build(entries)
	skipped := skippedRecords(len(ids), len(entries))
	s.metrics.SetMatrix(len(m.Rows), skipped)
	s.logger.Debug("matrix rebuilt", "rows", len(m.Rows), "skipped", skipped)

	s.cached = m
	return m, nil
}

// skippedRecords estimates corrupt records from two separate store reads.
// Saves landing between the reads can push the difference below zero.
func skippedRecords(listed, loaded int) int {
	return max(listed-loaded, 0)
}

// Run serves on addr until ctx ends, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
