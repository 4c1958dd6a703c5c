package httpserver

import (
	"fmt"
	"net/http"

	"github.com/freestartupia/startupia/internal/domain"
	apperrors "github.com/freestartupia/startupia/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerVoteRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.POST("/api/posts/:id/vote", s.handlePostVote, s.requireAuth, rateLimiter)
	s.echo.POST("/api/startups/:id/upvote", s.handleStartupUpvote, s.requireAuth, rateLimiter)
}

type voteRequest struct {
	Direction string `json:"direction"`
}

type voteResponse struct {
	SubjectID uuid.UUID          `json:"subject_id"`
	Kind      domain.SubjectKind `json:"kind"`
	domain.VoteState
}

func (s *Server) handlePostVote(c echo.Context) error {
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	dir, err := domain.ParseDirection(req.Direction)
	if err != nil {
		return apperrors.ValidationError("direction must be \"up\" or \"down\"").WithField("direction", req.Direction)
	}
	return s.toggle(c, domain.SubjectPost, dir)
}

func (s *Server) handleStartupUpvote(c echo.Context) error {
	return s.toggle(c, domain.SubjectStartup, domain.DirectionUp)
}

func (s *Server) toggle(c echo.Context, kind domain.SubjectKind, dir domain.Direction) error {
	rawID := c.Param("id")
	id, err := uuid.Parse(rawID)
	if err != nil {
		return apperrors.ValidationError("invalid id format").WithField("id", rawID)
	}
	subject := domain.SubjectRef{Kind: kind, ID: id}

	state, err := s.app.Toggle(c.Request().Context(), identityFrom(c), subject, dir)
	if err != nil {
		// state is the rolled-back value after a failed write.
		return toStructuredError(err).
			WithField("subject_id", id.String()).
			WithField("state", state)
	}

	resp := voteResponse{SubjectID: id, Kind: kind, VoteState: state}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
