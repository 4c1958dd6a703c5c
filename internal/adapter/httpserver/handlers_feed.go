package httpserver

import (
	"fmt"
	"net/http"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/feed"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerFeedRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/api/feed", s.handleFeed, s.optionalAuth)
	s.echo.POST("/api/feed/refresh", s.handleRefresh, s.requireAuth, rateLimiter)
}

type feedResponse struct {
	Kind  domain.SubjectKind `json:"kind"`
	Items []domain.Post      `json:"items"`
}

func (s *Server) handleFeed(c echo.Context) error {
	filter := feed.Filter{
		Kind:     domain.ParseSubjectKind(c.QueryParam("kind")),
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
	}

	posts, err := s.app.Feed(c.Request().Context(), identityFrom(c), filter)
	if err != nil {
		return err
	}
	return sendFeed(c, filter.Kind, posts)
}

func (s *Server) handleRefresh(c echo.Context) error {
	kind := domain.ParseSubjectKind(c.QueryParam("kind"))

	posts, err := s.app.Refresh(c.Request().Context(), identityFrom(c), kind)
	if err != nil {
		return err
	}
	return sendFeed(c, kind, posts)
}

func sendFeed(c echo.Context, kind domain.SubjectKind, posts []domain.Post) error {
	if posts == nil {
		posts = []domain.Post{}
	}
	if err := c.JSON(http.StatusOK, feedResponse{Kind: kind, Items: posts}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
