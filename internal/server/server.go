// Package server wires handlers, middleware and routes, and runs the HTTP
// server with graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	cmd/server opens a repository.Store and builds the auth pieces
//	New():  Store → EventService / AuthService → handlers → chi routes
//
// All wiring happens here (the composition root); handlers never see the
// store and services never see HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/handler"
	"github.com/sakif/event-board/internal/middleware"
	"github.com/sakif/event-board/internal/repository"
	"github.com/sakif/event-board/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port        int
	StaticDir   string   // built SPA; empty disables static hosting
	CORSOrigins []string // empty disables CORS headers
	Cookies     auth.CookieConfig
	Location    *time.Location // zone for event dates without an offset
}

// Deps are the collaborators the server does not build itself.
type Deps struct {
	Store     repository.Store
	Codec     *auth.SessionCodec
	Verifier  auth.Verifier
	Passwords *auth.PasswordService
}

// Server represents the HTTP server and everything it owns.
//
// The store is closed when Start returns.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

// New builds the router. It does not start listening.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler, traced with otelhttp. Without a
// configured tracer provider the spans are no-ops.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "event-board",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET    /healthz
//	GET    /api/events                  list (title, place, category, from, to)
//	POST   /api/events                  create            admin
//	GET    /api/events/{id}             fetch one
//	PUT    /api/events/{id}             partial update    admin + owner
//	DELETE /api/events/{id}             delete            admin + owner
//	POST   /api/events/{id}/attend      join              any identity
//	DELETE /api/events/{id}/attend      leave             any identity
//	GET    /api/profile
//	GET    /api/user-profile
//	POST   /api/login/accessToken
//	POST   /api/admin/login
//	POST   /api/logout
//	GET    /*                           SPA (when StaticDir is set)
//
// Middleware order: RequestID, RealIP, Logger, Recoverer, CORS, then the
// session resolver on /api.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	if len(s.config.CORSOrigins) > 0 {
		// Cookies carry the session, so credentials must be allowed.
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	eventService := service.NewEventService(s.deps.Store, s.logger, s.config.Location)
	authService := service.NewAuthService(s.deps.Store, s.deps.Verifier, s.deps.Passwords, s.logger)

	eventHandler := handler.NewEventHandler(eventService, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.deps.Codec, s.config.Cookies, s.logger)
	healthHandler := handler.NewHealthHandler(s.deps.Store, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.Resolve(
			auth.AdminSession(s.deps.Codec),
			auth.ProviderSession(s.deps.Codec, s.deps.Verifier, s.config.Cookies, s.logger),
		))

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.HandleList)
			r.Post("/", eventHandler.HandleCreate)
			r.Get("/{id}", eventHandler.HandleGet)
			r.Put("/{id}", eventHandler.HandleUpdate)
			r.Delete("/{id}", eventHandler.HandleDelete)
			r.Post("/{id}/attend", eventHandler.HandleJoin)
			r.Delete("/{id}/attend", eventHandler.HandleLeave)
		})

		r.Get("/profile", authHandler.HandleProfile)
		r.Get("/user-profile", authHandler.HandleUserProfile)
		r.Post("/login/accessToken", authHandler.HandleAccessTokenLogin)
		r.Post("/admin/login", authHandler.HandleAdminLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	if s.config.StaticDir != "" {
		s.router.NotFound(spaHandler(s.config.StaticDir))
	}
}

// Start listens on the configured port and blocks until SIGINT/SIGTERM or
// a server error, then drains in-flight requests (30s) and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.deps.Store.Close(); err != nil {
			s.logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("static", s.config.StaticDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
