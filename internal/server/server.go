// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
//   - which URL patterns map to which handler functions
//   - which gates (authentication, role) guard which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New():
//	  sqlite.Open → UserDB / PostDB
//	             → AuthService / UserService / PostService
//	             → AuthHandler / UserHandler / PostHandler
//
// This is the "composition root": every dependency is built here and nowhere
// else.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/edublog/internal/auth"
	"github.com/sakif/edublog/internal/config"
	"github.com/sakif/edublog/internal/handler"
	"github.com/sakif/edublog/internal/middleware"
	"github.com/sakif/edublog/internal/model"
	sqliteRepo "github.com/sakif/edublog/internal/repository/sqlite"
	"github.com/sakif/edublog/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database handle. Start closes it after shutdown;
// callers that never call Start (tests) must call Close.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
}

// New opens the database, builds every layer and registers the routes.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it is not mistaken for the
// driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.Open(context.Background(), cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, for httptest servers and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                  public
//	GET    /metrics                  public (path configurable, may be off)
//	POST   /api/auth/register        public
//	POST   /api/auth/login           public
//	GET    /api/auth/me              token
//	GET    /api/posts                public
//	GET    /api/posts/search?q=      public
//	GET    /api/posts/{id}           public
//	POST   /api/posts                token + professor|admin
//	PUT    /api/posts/{id}           token + professor|admin + owner|admin
//	DELETE /api/posts/{id}           token + professor|admin + owner|admin
//	PUT    /api/users/{id}/profile   token, caller must be {id}
//	PUT    /api/users/{id}/password  token, caller must be {id}
//	GET    /api/users                token + admin
//	POST   /api/users                token + admin
//	GET    /api/users/{id}           token + admin
//	PUT    /api/users/{id}           token + admin
//	DELETE /api/users/{id}           token + admin
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns the id the logger and recoverer print
//  2. RealIP: client IP from proxy headers
//  3. Logger: sees the final status, including recovered panics
//  4. Recoverer: panics become JSON 500s
//  5. Metrics: reads the chi route pattern after routing
//  6. CORS: answers preflight requests before any gate runs
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	tokens = tokens.WithIssuer(cfg.Auth.Issuer)
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)

	// === Services and handlers ===
	// The services receive repository interfaces; *UserDB and *PostDB
	// satisfy them.
	users := s.db.Users()
	posts := s.db.Posts()

	authHandler := handler.NewAuthHandler(service.NewAuthService(users, tokens, passwords, s.logger), s.logger)
	userHandler := handler.NewUserHandler(service.NewUserService(users, passwords, s.logger), s.logger)
	postHandler := handler.NewPostHandler(service.NewPostService(posts, users, s.logger), s.logger)

	// === Global middleware ===
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recoverer(s.logger))
	if cfg.Metrics.Enabled {
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		r.Use(middleware.NewMetrics(s.registry).Handler)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// Registered before any sub-router so chi copies them into each one.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// === Operational routes ===
	r.Get("/healthz", handler.HealthHandler(s.db, s.logger))
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	// === API routes ===
	requireAuth := auth.RequireAuth(tokens)
	authors := auth.RequireRole(model.RoleProfessor, model.RoleAdmin)
	adminOnly := auth.RequireRole(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.HandleList)
			r.Get("/search", postHandler.HandleSearch)
			r.Get("/{id}", postHandler.HandleGetByID)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, authors)
				r.Post("/", postHandler.HandleCreate)
				r.Put("/{id}", postHandler.HandleUpdate)
				r.Delete("/{id}", postHandler.HandleDelete)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)

			r.Put("/{id}/profile", userHandler.HandleUpdateProfile)
			r.Put("/{id}/password", userHandler.HandleChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", userHandler.HandleList)
				r.Post("/", userHandler.HandleCreate)
				r.Get("/{id}", userHandler.HandleGetByID)
				r.Put("/{id}", userHandler.HandleUpdate)
				r.Delete("/{id}", userHandler.HandleDelete)
			})
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to server.shutdownTimeout for in-flight requests
//  3. Close the database (flushes the WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	cfg := s.config.Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", cfg.Port)),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
