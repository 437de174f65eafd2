// Package server is the composition root: it builds the stores, services and
// handlers from a config.Config, mounts the routes and runs the HTTP server.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rumora/website/internal/auth"
	"github.com/rumora/website/internal/config"
	"github.com/rumora/website/internal/handler"
	"github.com/rumora/website/internal/middleware"
	"github.com/rumora/website/internal/render"
	"github.com/rumora/website/internal/repository/memory"
	"github.com/rumora/website/internal/service"
	"github.com/rumora/website/web"
)

const (
	metricsNamespace = "rumora"

	// JanitorInterval is how often expired sessions are purged.
	JanitorInterval = 10 * time.Minute

	shutdownTimeout = 30 * time.Second
)

// Server holds the router and the few dependencies that outlive a request.
type Server struct {
	router   *chi.Mux
	cfg      config.Config
	logger   *slog.Logger
	sessions *service.SessionService
	metrics  *middleware.Metrics
}

// Option customizes a Server built by New.
type Option func(*options)

type options struct {
	providers []auth.Provider
}

// WithProviders replaces the identity providers New would build from the
// configuration.
func WithProviders(providers ...auth.Provider) Option {
	return func(o *options) { o.providers = providers }
}

// New wires every component:
//
//	memory stores → AccountService / SessionService / CatalogService → handlers
//
// Missing Discord credentials leave sign-in disabled; a missing or short
// session secret is replaced with a random one, so sessions do not survive a
// restart.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	pages, err := loadPages(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(sessionSecret(cfg))
	if err != nil {
		return nil, fmt.Errorf("server: session tokens: %w", err)
	}

	catalog, err := service.NewCatalogService(logger)
	if err != nil {
		return nil, fmt.Errorf("server: catalog: %w", err)
	}

	users := memory.NewUserStore()
	sessionStore := memory.NewSessionStore()
	accounts := service.NewAccountService(users, cfg.AdminIDs, logger)
	sessions := service.NewSessionService(sessionStore, users, tokens, cfg.SessionTTL, logger)

	providers := o.providers
	if providers == nil && cfg.DiscordConfigured() {
		providers = append(providers, auth.NewDiscordProvider(auth.DiscordConfig{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Timeout:      cfg.OAuthTimeout,
		}))
	}

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		metrics:  middleware.NewMetrics(metricsNamespace),
	}

	s.routes(handler.Routes{
		Pages:    handler.NewPageHandler(pages, logger),
		Auth:     handler.NewAuthHandler(providers, accounts, sessions, strings.HasPrefix(cfg.BaseURL, "https://"), logger),
		User:     handler.NewUserHandler(accounts, logger),
		Catalog:  handler.NewCatalogHandler(catalog, logger),
		Health:   handler.NewHealthHandler(cfg),
		Sessions: sessions,
	})

	return s, nil
}

// routes mounts the global middleware, the static assets, /metrics and the
// site's route table.
//
// Recover sits inside Logger and Metrics so a recovered panic is still
// logged and counted as a 500.
func (s *Server) routes(site handler.Routes) {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recover(s.logger, s.cfg.IsDevelopment()))

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	r.Handle("/metrics", s.metrics.Handler())

	site.Mount(r)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves HTTP until ctx is cancelled, then shuts down gracefully,
// giving in-flight requests up to 30 seconds. The session janitor runs for
// the lifetime of the server.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.RunJanitor(janitorCtx, JanitorInterval)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", s.cfg.BaseURL),
			slog.String("environment", s.cfg.Environment),
			slog.Bool("discord", s.cfg.DiscordConfigured()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.sessions.PurgeExpired(ctx); err != nil {
				s.logger.Error("session janitor", slog.String("error", err.Error()))
			}
		}
	}
}

// loadPages reads the HTML documents from dir, or the embedded ones when dir
// is empty.
func loadPages(dir string) (*render.Set, error) {
	var fsys fs.FS = web.Templates()
	if dir != "" {
		fsys = os.DirFS(dir)
	}

	pages, err := render.LoadFS(fsys)
	if err != nil {
		return nil, fmt.Errorf("server: loading templates: %w", err)
	}
	for _, name := range []string{
		handler.PageHome, handler.PageSignIn, handler.PageSignUp,
		handler.PageDashboard, handler.PageNotFound,
	} {
		if !pages.Has(name) {
			return nil, fmt.Errorf("server: template %s.html is missing", name)
		}
	}
	return pages, nil
}

// sessionSecret returns the configured secret, or a random one when it is
// missing or too short (config.Warnings reports that case).
func sessionSecret(cfg config.Config) string {
	if len(cfg.SessionSecret) >= auth.MinSecretLength {
		return cfg.SessionSecret
	}
	return rand.Text()
}
