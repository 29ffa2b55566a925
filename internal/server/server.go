// Package server provides the techtree HTTP API.
//
// The server holds the current tech table behind an atomic pointer. A reload
// (manual or from the file watcher) loads and validates the new table first
// and swaps it in wholesale; requests in flight keep the table they started
// with.
package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/techtree/pkg/pipeline"
	"github.com/matzehuels/techtree/pkg/save"
	"github.com/matzehuels/techtree/pkg/techdata"
	"github.com/matzehuels/techtree/pkg/watcher"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "127.0.0.1:8080"

// Config configures a Server.
type Config struct {
	// Addr is the listen address. Defaults to DefaultAddr.
	Addr string

	// Source is the tech table path, empty for the built-in table.
	Source string

	// Watch reloads the table when Source changes on disk.
	Watch bool

	// Runner executes the pipeline. Defaults to an uncached runner.
	Runner *pipeline.Runner

	// Store persists saves. Without one the save routes answer 501.
	Store save.Store

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Logger *log.Logger
}

// Server serves the API for one tech table.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	store  save.Store
	logger *log.Logger
	table  atomic.Pointer[techdata.Table]
}

// New loads the configured tech table and returns a server for it.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}

	s := &Server{
		cfg:    cfg,
		runner: cfg.Runner,
		store:  cfg.Store,
		logger: cfg.Logger,
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Table returns the current tech table.
func (s *Server) Table() *techdata.Table { return s.table.Load() }

// Reload loads the tech table again. On error the current table is kept.
func (s *Server) Reload(ctx context.Context) error {
	t, err := s.runner.Load(ctx, pipeline.Options{Source: s.cfg.Source, Logger: s.logger})
	if err != nil {
		return err
	}
	s.table.Store(t)
	return nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.Watch && s.cfg.Source != "" {
		w, err := s.watcher(ctx)
		if err != nil {
			return err
		}
		go func() { _ = w.Run(ctx) }()
	}

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// watcher returns a watcher that reloads the table on change.
func (s *Server) watcher(ctx context.Context) (*watcher.Watcher, error) {
	w, err := watcher.New(s.cfg.Source, watcher.Config{
		OnChange: func() {
			if err := s.Reload(ctx); err != nil {
				s.logger.Error("reload failed, keeping current table", "source", s.cfg.Source, "error", err)
				return
			}
			s.logger.Info("reloaded tech table", "source", s.cfg.Source, "techs", s.Table().Len())
		},
		OnError: func(err error) {
			s.logger.Warn("watch", "source", s.cfg.Source, "error", err)
		},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("watching tech table", "source", w.Path(), "mode", w.Mode())
	return w, nil
}
