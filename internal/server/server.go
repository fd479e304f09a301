// Package server provides the HTTP API for vecsearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/config"
	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/search"
)

// Server is the HTTP server for the vecsearch API.
type Server struct {
	engine  *search.Engine
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	openers []dataset.OpenOption

	// reloadMu serializes reloads.
	reloadMu sync.Mutex
	started  time.Time
}

// NewServer creates a server with the given dependencies. opts are passed to
// dataset.Open when the dataset is reloaded.
func NewServer(engine *search.Engine, cfg *config.ServerConfig, logger *zap.Logger, opts ...dataset.OpenOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:  engine,
		config:  cfg,
		logger:  logger,
		openers: opts,
		started: time.Now(),
	}
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/reload", s.handleReload)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Reload reopens the served dataset directory and swaps it into the engine. The
// previous dataset is closed after the configured drain delay.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cur := s.engine.Dataset()
	if cur == nil {
		return search.ErrNoDataset
	}
	ds, err := dataset.Open(ctx, cur.Layout.Dir, s.openers...)
	if err != nil {
		return err
	}
	old, err := s.engine.Reload(ds)
	if err != nil {
		ds.Close()
		return err
	}
	if old != nil {
		time.AfterFunc(s.config.DrainDelay, func() {
			if err := old.Close(); err != nil {
				s.logger.Warn("failed to close replaced dataset", zap.Error(err))
			}
		})
	}
	return nil
}
