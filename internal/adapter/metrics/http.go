package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Latency buckets sized for a JSON API whose slowest path is a vote write
// plus read-back against Postgres.
var apiBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HTTPMetrics tracks API traffic by route template and status class.
type HTTPMetrics struct {
	served   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "responses_total",
			Help:      "API responses by route template, method and status class.",
		}, []string{"route", "method", "class"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "response_seconds",
			Help:      "API response latency by route template.",
			Buckets:   apiBuckets,
		}, []string{"route", "method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "in_flight",
			Help:      "API requests being served.",
		}),
	}
	reg.MustRegister(m.served, m.latency, m.inFlight)
	return m
}

// statusClass folds a status code into "2xx", "4xx" and so on.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// metered reports whether a route is part of the public API. Health checks, version
// and the scrape endpoint itself are skipped, as are unmatched paths.
func metered(route string) bool {
	switch {
	case route == "", route == "/metrics", route == "/version":
		return false
	case strings.HasPrefix(route, "/health/"):
		return false
	}
	return true
}

// Middleware records one observation per API request. Register it outside
// the error-mapping middleware so the class matches what the client got.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if !metered(route) {
				return next(c)
			}

			m.inFlight.Inc()
			start := time.Now()
			defer func() {
				m.inFlight.Dec()
				method := c.Request().Method
				m.latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
				m.served.WithLabelValues(route, method, statusClass(c.Response().Status)).Inc()
			}()

			return next(c)
		}
	}
}
