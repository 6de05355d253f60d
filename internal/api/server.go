// Package api provides the HTTP API server for the build orchestrator.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/forgelabs/appforge/internal/api/handlers"
	"github.com/forgelabs/appforge/internal/api/health"
	"github.com/forgelabs/appforge/internal/api/middleware"
	"github.com/forgelabs/appforge/internal/auth"
	"github.com/forgelabs/appforge/internal/build"
	"github.com/forgelabs/appforge/internal/logs"
	"github.com/forgelabs/appforge/internal/run"
	"github.com/forgelabs/appforge/internal/store"
	"github.com/forgelabs/appforge/internal/workflow"
	"github.com/forgelabs/appforge/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	config        *config.Config
	store         store.Store
	auth          *auth.Service
	registry      *workflow.Registry
	executor      *workflow.Executor
	buildService  *build.Service
	runService    *run.Service
	broker        *logs.Broker
	logger        *slog.Logger
	healthChecker *health.Checker
}

// Deps carries the collaborators the server routes requests to.
type Deps struct {
	Store        store.Store
	Auth         *auth.Service
	Registry     *workflow.Registry
	Executor     *workflow.Executor
	BuildService *build.Service
	RunService   *run.Service
	Broker       *logs.Broker
	Pinger       health.Pinger
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:       cfg,
		store:        deps.Store,
		auth:         deps.Auth,
		registry:     deps.Registry,
		executor:     deps.Executor,
		buildService: deps.BuildService,
		runService:   deps.RunService,
		broker:       deps.Broker,
		logger:       logger,
	}
	s.healthChecker = health.NewChecker(deps.Pinger, cfg.FlutterBin, Version)

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	// Health check endpoint (no auth required)
	r.Get("/health", s.healthChecker.Handler())

	// Token issuance (no auth required)
	authHandler := handlers.NewAuthHandler(s.auth, s.logger)
	r.Post("/auth/token", authHandler.Token)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)
		r.Use(authMiddleware.Authenticate)

		// Realtime event feed
		eventsHandler := handlers.NewEventsHandler(s.broker, s.logger)
		r.Get("/events/ws", eventsHandler.Serve)

		// Project routes
		projectHandler := handlers.NewProjectHandler(s.store, s.logger)
		appHandler := handlers.NewAppHandler(s.store, s.logger)
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", projectHandler.Create)
			r.Get("/", projectHandler.List)
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Patch("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)

				// App routes nested under projects
				r.Route("/apps", func(r chi.Router) {
					r.Post("/", appHandler.Create)
					r.Get("/", appHandler.List)
					r.Route("/{appID}", func(r chi.Router) {
						r.Get("/", appHandler.Get)
						r.Patch("/", appHandler.Update)
						r.Delete("/", appHandler.Delete)
						r.Get("/history", appHandler.History)
					})
				})
			})
		})

		// Step metadata and ad-hoc workflow routes
		stepHandler := handlers.NewStepHandler(s.registry, s.executor, s.logger)
		r.Get("/steps", stepHandler.ListTypes)
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/execute", stepHandler.Execute)
			r.Post("/stop", stepHandler.Stop)
			r.Get("/status", stepHandler.Status)
			r.Get("/{runID}/logs", stepHandler.Logs)
		})

		// Build pipeline routes
		buildHandler := handlers.NewBuildHandler(s.buildService, s.config.BuildOutputDir, s.logger)
		r.Route("/build", func(r chi.Router) {
			r.Post("/start", buildHandler.Start)
			r.Post("/stop", buildHandler.Stop)
			r.Get("/status", buildHandler.Status)
			r.Get("/{buildID}/logs", buildHandler.Logs)
			r.Get("/output/{filename}", buildHandler.Download)
		})

		// Run session routes
		runHandler := handlers.NewRunHandler(s.runService, s.logger)
		r.Route("/run", func(r chi.Router) {
			r.Post("/start", runHandler.Start)
			r.Post("/stop", runHandler.Stop)
			r.Post("/reload", runHandler.HotReload)
			r.Post("/restart", runHandler.HotRestart)
			r.Get("/status", runHandler.Status)
			r.Get("/logs", runHandler.Logs)
		})
		r.Get("/devices", runHandler.Devices)
	})

	s.router = r
}

// Start starts the HTTP server and blocks until the context is cancelled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        s.config.Addr(),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: build responses are held open for the
		// duration of the pipeline and websockets outlive any bound.
		IdleTimeout: 120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", s.config.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
