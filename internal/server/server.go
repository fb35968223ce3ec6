// Package server exposes the snapshot normalizer, differ, and graph
// builder over HTTP, together with read access to the snapshot store.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/schemawatch/schemawatch/internal/state"
	"github.com/schemawatch/schemawatch/pkg/graph"
)

// defaultMaxBodyBytes caps request payloads. Schema metadata for even
// very large databases stays well under this.
const defaultMaxBodyBytes = 32 << 20 // 32 MiB

// Config holds configuration for the HTTP facade.
type Config struct {
	Host         string
	Port         int
	Store        state.Store
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// Server is the schemawatch HTTP facade.
type Server struct {
	host         string
	port         int
	store        state.Store
	logger       *slog.Logger
	maxBodyBytes int64

	// graphs memoizes built graphs of stored snapshots by content
	// hash. The pure core stays cache-free; this wrapper owns the
	// memoization for long-lived callers.
	mu     sync.RWMutex
	graphs map[string]*graph.Graph
}

// New creates a new server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return &Server{
		host:         cfg.Host,
		port:         cfg.Port,
		store:        cfg.Store,
		logger:       logger,
		maxBodyBytes: maxBody,
		graphs:       make(map[string]*graph.Graph),
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/normalize", s.handleNormalize)
		r.Post("/diff", s.handleDiff)
		r.Post("/graph", s.handleGraph)

		r.Get("/snapshots", s.handleSnapshotList)
		r.Get("/snapshots/{id}", s.handleSnapshotGet)
		r.Get("/snapshots/{id}/graph", s.handleSnapshotGraph)
		r.Get("/drift", s.handleDrift)
	})

	return r
}

// Serve starts the HTTP server and blocks until the context is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.Info("starting schemawatch server", "addr", fmt.Sprintf("http://%s", addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// graphForStored returns the memoized graph of a stored snapshot,
// building it on first use.
func (s *Server) graphForStored(rec *state.SnapshotRecord) *graph.Graph {
	s.mu.RLock()
	g, cached := s.graphs[rec.ContentHash]
	s.mu.RUnlock()
	if cached {
		return g
	}

	g = graph.Build(rec.Snapshot)
	s.mu.Lock()
	s.graphs[rec.ContentHash] = g
	s.mu.Unlock()
	return g
}
