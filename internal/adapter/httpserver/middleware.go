package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freestartupia/startupia/internal/adapter/resilience"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/platform/correlation"
	apperrors "github.com/freestartupia/startupia/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

// correlationMiddleware adopts a well-formed incoming correlation id or mints
// a new one, and echoes it back on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(correlation.Header)
		if !correlation.Valid(id) {
			id = correlation.NewID()
		}
		c.Response().Header().Set(correlation.Header, id)

		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			return HandleError(c, err)
		}
	}
}

func HandleError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	structuredErr := toStructuredError(err)
	logError(c, structuredErr)
	if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

// toStructuredError maps domain failures onto typed HTTP errors. Errors that
// are already typed pass through unchanged.
func toStructuredError(err error) *apperrors.Error {
	var structuredErr *apperrors.Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return apperrors.UnauthorizedError("authentication required")
	case errors.Is(err, domain.ErrTokenInvalid):
		return apperrors.UnauthorizedError("access token invalid or expired")
	case errors.Is(err, domain.ErrInvalidDirection):
		return apperrors.ValidationError("invalid vote direction").WithCause(err)
	case errors.Is(err, domain.ErrSubjectNotFound):
		return apperrors.NotFoundError("subject not found").WithCause(err)
	case resilience.IsOpen(err):
		return apperrors.UnavailableError("backend temporarily unavailable", err)
	case errors.Is(err, domain.ErrRemoteWriteFailed):
		return apperrors.ExternalError("vote could not be saved", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.UnavailableError("request timed out", err)
	default:
		return apperrors.AsStructuredError(err)
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if identity := identityFrom(c); identity != nil {
		attrs = append(attrs, "user_id", identity.UserID)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeUnauthorized:
		slog.InfoContext(ctx, "Unauthorized", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeRateLimited:
		slog.InfoContext(ctx, "Rate limited", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal, apperrors.TypeUnavailable:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}
