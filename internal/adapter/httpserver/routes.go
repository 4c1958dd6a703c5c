package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) registerRoutes() {
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.requestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	}))

	voteLimiter := newRateLimiter("vote", s.config.VoteRateLimit, s.config.VoteRateBurst, byUserOrIP)
	loginLimiter := newRateLimiter("login", loginRatePerSecond, loginBurst, byIP)

	s.registerHealthRoutes()
	s.registerAuthRoutes(loginLimiter)
	s.registerFeedRoutes(voteLimiter)
	s.registerVoteRoutes(voteLimiter)
}

// requestLogger logs one line per request at a level derived from the status.
// The route template is logged next to the URI so lines group by endpoint.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogRoutePath: true,
		LogLatency:   true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			switch {
			case v.Status >= 500:
				level = slog.LevelError
			case v.Status >= 400:
				level = slog.LevelWarn
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("route", v.RoutePath),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "Request", attrs...)
			return nil
		},
	})
}
