// Package api exposes one live cluster over HTTP: inspection, dispatch,
// snapshots and a server-sent event feed of dispatch activity.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/mattjoyce/msgcluster/internal/cluster"
	"github.com/mattjoyce/msgcluster/internal/events"
	"github.com/mattjoyce/msgcluster/internal/snapshot"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/mattjoyce/msgcluster/internal/api SnapshotStore

// SnapshotStore persists named wrapped trees.
type SnapshotStore interface {
	Save(ctx context.Context, name string, w cluster.Wrapped) (snapshot.Entry, error)
	Load(ctx context.Context, name string) (cluster.Wrapped, snapshot.Entry, error)
	List(ctx context.Context) ([]snapshot.Entry, error)
	Delete(ctx context.Context, name string) error
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey enables bearer authentication on every route except /healthz.
	APIKey string
	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS headers.
	CORSOrigins []string
}

// Server serves one cluster root. The tree is not safe for concurrent use,
// so every handler that touches it holds mu.
type Server struct {
	config    Config
	store     SnapshotStore
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
	events    *events.Hub

	mu   sync.Mutex
	root cluster.Node
}

// New creates a server for root. Dispatch on root is published to hub,
// which replaces any observer already installed on the cluster.
func New(config Config, root cluster.Node, store SnapshotStore, hub *events.Hub, logger *slog.Logger) *Server {
	if hub == nil {
		hub = events.NewHub(events.DefaultCapacity)
	}
	name := ""
	if reg := root.AsObject().Registry(); reg != nil {
		name = reg.Name()
	}
	root.AsObject().SetObserver(events.NewClusterObserver(hub, name))

	return &Server{
		config:    config,
		store:     store,
		logger:    logger,
		startedAt: time.Now(),
		events:    hub,
		root:      root,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	if len(s.config.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Last-Event-ID"},
		}).Handler)
	}

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(s.authMiddleware)
		}
		r.Get("/tree", s.handleTree)
		r.Get("/subscribers/{kind}/{key}", s.handleSubscribers)
		r.Post("/emit/{key}", s.handleEmit)
		r.Post("/calculate/{key}", s.handleCalculate)

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Get("/{name}", s.handleGetSnapshot)
			r.Put("/{name}", s.handleSaveSnapshot)
			r.Delete("/{name}", s.handleDeleteSnapshot)
			r.Post("/{name}/restore", s.handleRestoreSnapshot)
		})

		r.Get("/events", s.handleEvents)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
