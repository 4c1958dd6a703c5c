package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/platform/correlation"
	apperrors "github.com/freestartupia/startupia/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerAuthRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.POST("/auth/session", s.handleLogin, rateLimiter)
	s.echo.GET("/auth/session", s.handleWhoAmI, s.requireAuth)
	s.echo.DELETE("/auth/session", s.handleLogout, s.requireAuth)
}

type loginRequest struct {
	AccessToken string `json:"access_token"`
}

type identityResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
}

// sessionUserID reads the signed-in user id from the cookie.
func (s *Server) sessionUserID(c echo.Context) (uuid.UUID, bool) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return uuid.Nil, false
	}
	raw, ok := session.Values[sessionKeyUserID].(string)
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// resolveIdentity loads the identity behind the cookie. A cookie naming a
// user the backend no longer knows is cleared.
func (s *Server) resolveIdentity(c echo.Context) (*domain.Identity, error) {
	userID, ok := s.sessionUserID(c)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	identity, err := s.app.Identity(c.Request().Context(), userID)
	if errors.Is(err, domain.ErrUnauthenticated) {
		slog.WarnContext(c.Request().Context(), "Session references unknown user, invalidating", "user_id", userID)
		s.clearSession(c)
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session identity: %w", err)
	}
	return identity, nil
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := s.resolveIdentity(c)
		if err != nil {
			return err
		}
		setIdentity(c, identity)
		return next(c)
	}
}

// optionalAuth attaches the identity when the cookie carries one and lets
// anonymous requests through.
func (s *Server) optionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := s.sessionUserID(c); !ok {
			return next(c)
		}
		identity, err := s.resolveIdentity(c)
		if errors.Is(err, domain.ErrUnauthenticated) {
			return next(c)
		}
		if err != nil {
			return err
		}
		setIdentity(c, identity)
		return next(c)
	}
}

// setIdentity exposes the identity to handlers and tags the request context
// so every log line of the request names the user.
func setIdentity(c echo.Context, identity *domain.Identity) {
	c.Set(contextKeyIdentity, identity)
	ctx := correlation.WithUser(c.Request().Context(), identity.UserID.String())
	c.SetRequest(c.Request().WithContext(ctx))
}

func identityFrom(c echo.Context) *domain.Identity {
	identity, _ := c.Get(contextKeyIdentity).(*domain.Identity)
	return identity
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		return apperrors.ValidationError("access_token is required")
	}

	identity, err := s.app.Login(c.Request().Context(), token)
	if err != nil {
		return err
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Discarding unreadable session cookie", "error", err)
	}
	session.Values[sessionKeyUserID] = identity.UserID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(c.Request().Context(), "User signed in", "user_id", identity.UserID)
	if err := c.JSON(http.StatusOK, identityResponse{UserID: identity.UserID, Email: identity.Email}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleWhoAmI(c echo.Context) error {
	identity := identityFrom(c)
	if err := c.JSON(http.StatusOK, identityResponse{UserID: identity.UserID, Email: identity.Email}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	identity := identityFrom(c)
	s.app.Logout(identity.UserID)
	s.clearSession(c)

	slog.InfoContext(c.Request().Context(), "User signed out", "user_id", identity.UserID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) clearSession(c echo.Context) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return
	}
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to clear session", "error", err)
	}
}
