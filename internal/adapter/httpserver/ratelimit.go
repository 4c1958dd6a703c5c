package httpserver

import (
	"time"

	apperrors "github.com/freestartupia/startupia/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Login attempts are limited per client IP regardless of the vote settings.
const (
	loginRatePerSecond = 0.2
	loginBurst         = 5
	limiterIdleExpiry  = 5 * time.Minute
)

type limitKey func(c echo.Context) string

// byUserOrIP buckets signed-in users by id and anonymous callers by IP, so
// users behind one NAT do not share a vote budget.
func byUserOrIP(c echo.Context) string {
	if identity := identityFrom(c); identity != nil {
		return "user:" + identity.UserID.String()
	}
	return byIP(c)
}

func byIP(c echo.Context) string {
	return "ip:" + c.RealIP()
}

func newRateLimiter(scope string, perSecond float64, burst int, key limitKey) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: limiterIdleExpiry,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return key(c), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return apperrors.RateLimitedError("too many " + scope + " requests")
		},
	})
}
