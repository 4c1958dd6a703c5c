package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/feed"
	"github.com/freestartupia/startupia/internal/platform/config"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

type appService interface {
	Login(ctx context.Context, accessToken string) (*domain.Identity, error)
	Logout(userID uuid.UUID)
	Identity(ctx context.Context, userID uuid.UUID) (*domain.Identity, error)
	Toggle(ctx context.Context, identity *domain.Identity, subject domain.SubjectRef, dir domain.Direction) (domain.VoteState, error)
	Feed(ctx context.Context, identity *domain.Identity, filter feed.Filter) ([]domain.Post, error)
	Refresh(ctx context.Context, identity *domain.Identity, kind domain.SubjectKind) ([]domain.Post, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app            appService
	sessionStore   *sessions.CookieStore
	healthChecks   []HealthCheck
	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	startTime      time.Time
}

// NewServer wires routes and middleware. httpMetrics and metricsHandler may be
// nil, in which case requests are not metered and /metrics is not served.
func NewServer(cfg *config.Config, app appService, healthChecks []HealthCheck, httpMetrics *metrics.HTTPMetrics, metricsHandler http.Handler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		app:            app,
		sessionStore:   setupSessionStore(cfg),
		healthChecks:   healthChecks,
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys
const (
	sessionName        = "startupia-session"
	sessionKeyUserID   = "user_id"
	contextKeyIdentity = "identity"
)

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	}
	return sessionStore
}
