// Package server provides the HTTP server and routing for the simulation.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/backend"
	"github.com/dudecon/SpaceWheat-sub021/internal/batch"
	"github.com/dudecon/SpaceWheat-sub021/internal/forcegraph"
	"github.com/dudecon/SpaceWheat-sub021/internal/scheduler"
	"github.com/dudecon/SpaceWheat-sub021/internal/storage"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	DataDir   string
	Batcher   *batch.Batcher
	Store     *storage.Store
	Backup    *storage.S3Backup // optional
	Scheduler *scheduler.Scheduler
	Selection backend.Selection
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger

	batcher   *batch.Batcher
	store     *storage.Store
	backup    *storage.S3Backup
	scheduler *scheduler.Scheduler
	selection backend.Selection
	dataDir   string

	hub     *Hub
	layouts *LayoutHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		batcher:   cfg.Batcher,
		store:     cfg.Store,
		backup:    cfg.Backup,
		scheduler: cfg.Scheduler,
		selection: cfg.Selection,
		dataDir:   cfg.DataDir,
		hub:       NewHub(cfg.Batcher, cfg.Log),
		layouts:   NewLayoutHandlers(forcegraph.DefaultConfig(), cfg.Batcher, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Hub returns the websocket broadcast hub, for wiring to the tick loop.
func (s *Server) Hub() *Hub { return s.hub }

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/system", s.handleSystemInfo)
		r.Get("/backend", s.handleBackend)
		r.Get("/stats", s.handleStats)

		r.Route("/subsystems", func(r chi.Router) {
			r.Get("/", s.handleListSubsystems)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleSubsystem)
				r.Get("/probabilities", s.handleProbabilities)
				r.Get("/mi", s.handleMutualInformation)
				r.Get("/bloch", s.handleBlochPacket)
				r.Post("/layout/step", s.layouts.HandleStep)
				r.Get("/layout", s.layouts.HandleGet)
			})
		})

		r.Post("/save", s.handleSave)
		r.Get("/saves", s.handleListSaves)
		r.Post("/backup", s.handleBackup)

		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs/{name}/run", s.handleRunJob)
	})

	s.router.Get("/ws", s.hub.HandleWebSocket)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.hub.CloseAll()
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
