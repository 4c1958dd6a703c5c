package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var v *VoteMetrics
	var s *SessionMetrics
	var g *GatewayMetrics

	assert.NotPanics(t, func() {
		v.ObserveToggle("post", "applied")
		v.ObserveRollback("post")
		v.ObserveStaleRead()
		v.ObserveRemote("insert", time.Millisecond)
		v.TrackInFlight()()
		s.SetActive(3)
		s.ObserveEvictions(1)
		s.ObserveRefresh("ok")
		s.ObserveBroadcast()
		g.ObserveCall("get_count", nil)
		g.SetBreakerState("postgres", 2)
	})
}

func TestVoteMetrics(t *testing.T) {
	m := NewVoteMetrics(prometheus.NewRegistry())

	m.ObserveToggle("post", "applied")
	m.ObserveToggle("post", "applied")
	m.ObserveToggle("startup", "retracted")
	m.ObserveRollback("post")
	m.ObserveStaleRead()

	assert.InDelta(t, 2, testutil.ToFloat64(m.Toggles.WithLabelValues("post", "applied")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Toggles.WithLabelValues("startup", "retracted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Rollbacks.WithLabelValues("post")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StaleReads), 0)

	done := m.TrackInFlight()
	assert.InDelta(t, 1, testutil.ToFloat64(m.InFlight), 0)
	done()
	assert.InDelta(t, 0, testutil.ToFloat64(m.InFlight), 0)
}

func TestGatewayMetrics(t *testing.T) {
	m := NewGatewayMetrics(prometheus.NewRegistry())

	m.ObserveCall("write_vote", nil)
	m.ObserveCall("write_vote", errors.New("timeout"))
	m.SetBreakerState("postgres", 2)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Calls.WithLabelValues("write_vote", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Calls.WithLabelValues("write_vote", "error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.BreakerState.WithLabelValues("postgres")), 0)
}

func TestSessionMetrics(t *testing.T) {
	m := NewSessionMetrics(prometheus.NewRegistry())

	m.SetActive(4)
	m.ObserveEvictions(3)
	m.ObserveRefresh("ok")
	m.ObserveBroadcast()

	assert.InDelta(t, 4, testutil.ToFloat64(m.Active), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.Evictions), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Refreshes.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Broadcasts), 0)
}

func TestHTTPMiddleware_RecordsByRouteTemplate(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	e := echo.New()
	e.Use(m.Middleware())
	e.POST("/api/posts/:id/vote", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/health/live", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, id := range []string{"a", "b"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/posts/"+id+"/vote", nil))
	}
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.InDelta(t, 2, testutil.ToFloat64(m.served.WithLabelValues("/api/posts/:id/vote", http.MethodPost, "2xx")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.served), "health checks are not metered")
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
	assert.InDelta(t, 0, testutil.ToFloat64(m.inFlight), 0)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "4xx", statusClass(http.StatusTooManyRequests))
	assert.Equal(t, "5xx", statusClass(http.StatusBadGateway))
	assert.Equal(t, "unknown", statusClass(0))
}

func TestHandlerServesRegistry(t *testing.T) {
	set := NewSet()
	set.Vote.ObserveStaleRead()

	rec := httptest.NewRecorder()
	Handler(set.Registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "startupia_votes_stale_reads_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "startupia_build_info{")
}
