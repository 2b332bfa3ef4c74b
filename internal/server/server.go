// Package server is the composition root: it wires the database, the
// session codec, the services, the handlers, and the middleware chain
// into one router, and owns startup and graceful shutdown.
//
// Nothing below this package knows about the whole graph — the service
// layer sees repository interfaces, the handlers see services — so this
// is the single place where the dependency chain is assembled.
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

	"github.com/zackriver/carvalue/internal/auth"
	"github.com/zackriver/carvalue/internal/config"
	"github.com/zackriver/carvalue/internal/handler"
	"github.com/zackriver/carvalue/internal/metrics"
	"github.com/zackriver/carvalue/internal/middleware"
	sqliteRepo "github.com/zackriver/carvalue/internal/repository/sqlite"
	"github.com/zackriver/carvalue/internal/service"
)

// Server holds the router and the resources it must release on shutdown:
// the database connection and the rate limiter's janitor goroutine.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New assembles the full dependency chain. The returned server owns the
// database connection; Start closes it on the way out.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	codec, err := auth.NewSessionCodec(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session codec: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst),
	}
	s.setupRoutes(codec)

	return s, nil
}

// setupRoutes configures the middleware chain and all routes.
//
// Middleware order: RequestID and RealIP first (so the log line carries
// both), then the logger, then Recoverer. Identity resolution runs only
// inside /api — the OAuth redirect routes and /metrics don't need it.
func (s *Server) setupRoutes(codec *auth.SessionCodec) {
	collector := metrics.NewCollector()
	passwords := auth.NewPasswordService()

	users := s.db.Users()
	reports := s.db.Reports()

	authService := service.NewAuthService(users, passwords, collector, s.logger)
	userService := service.NewUserService(users, passwords, s.logger)
	reportService := service.NewReportService(reports, collector, s.logger)

	var github *auth.GitHubProvider
	if s.cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
	}

	authHandler := handler.NewAuthHandler(authService, codec, github)
	userHandler := handler.NewUserHandler(userService)
	reportHandler := handler.NewReportHandler(reportService)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger, collector))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Handle("/metrics", collector.Handler())

	if github != nil {
		s.router.Route("/auth/github", func(r chi.Router) {
			r.Get("/login", authHandler.GitHubLogin)
			r.Get("/callback", authHandler.GitHubCallback)
		})
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.ResolveIdentity(codec, users))

		// Credential endpoints: open, but rate limited per IP.
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Handler)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})
		r.Post("/auth/logout", authHandler.Logout)

		// Everything below requires a signed-in user.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth())

			r.Get("/me", authHandler.Me)
			r.Get("/users/{id}", userHandler.Get)
			r.Put("/users/{id}", userHandler.Update)
			r.Delete("/users/{id}", userHandler.Delete)

			r.Post("/reports", reportHandler.Create)
			r.Get("/reports", reportHandler.List)
			r.Get("/reports/{id}", reportHandler.Get)
			r.Get("/estimate", reportHandler.Estimate)
		})

		// Moderation and user lookup: privileged users only.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequirePrivileged())

			r.Get("/users", userHandler.LookupByEmail)
			r.Post("/reports/{id}/approve", reportHandler.Approve)
			r.Post("/reports/{id}/reject", reportHandler.Reject)
		})
	})
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests for up to 30
// seconds, stop the rate limiter, close the database.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.limiter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
			slog.Bool("githubSignIn", s.cfg.GitHubEnabled()),
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
