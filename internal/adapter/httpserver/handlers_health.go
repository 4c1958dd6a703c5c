package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/freestartupia/startupia/internal/platform/version"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// HealthCheck tests one dependency. Check must honour ctx.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type checkResult struct {
	OK         bool    `json:"ok"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

type healthReport struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// The startup check is polled while pools warm up and gets the tighter budget.
const (
	startupCheckBudget   = 2 * time.Second
	readinessCheckBudget = 5 * time.Second
)

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleHealthChecks(startupCheckBudget))
	s.echo.GET("/health/ready", s.handleHealthChecks(readinessCheckBudget))
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/version", s.handleVersion)
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

// handleHealthChecks runs every check concurrently under budget and reports each one, so
// a slow Redis does not hide a broken Postgres.
func (s *Server) handleHealthChecks(budget time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), budget)
		defer cancel()

		report := s.runChecks(ctx)
		code := http.StatusOK
		if report.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, report)
	}
}

func (s *Server) runChecks(ctx context.Context) healthReport {
	results := make([]checkResult, len(s.healthChecks))

	var g errgroup.Group
	for i, hc := range s.healthChecks {
		g.Go(func() error {
			start := time.Now()
			err := hc.Check(ctx)
			results[i] = checkResult{OK: err == nil, DurationMS: float64(time.Since(start).Microseconds()) / 1000}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := healthReport{Status: "ready", Checks: make(map[string]checkResult, len(results))}
	for i, hc := range s.healthChecks {
		report.Checks[hc.Name] = results[i]
		if !results[i].OK {
			report.Status = "unhealthy"
		}
	}
	return report
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
