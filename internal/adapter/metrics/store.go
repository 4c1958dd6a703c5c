package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics covers the raw traffic to PostgreSQL and Redis, below the
// gateway abstraction.
type StoreMetrics struct {
	QueryDuration   *prometheus.HistogramVec
	QueryErrors     *prometheus.CounterVec
	RedisOps        *prometheus.CounterVec
	RedisDuration   *prometheus.HistogramVec
	RedisDialErrors prometheus.Counter
}

// NewStoreMetrics creates and registers store metrics on the given registry.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "PostgreSQL query duration by statement verb.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"statement"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Failed PostgreSQL queries by statement verb.",
		}, []string{"statement"}),
		RedisOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Redis commands by name and status.",
		}, []string{"operation", "status"}),
		RedisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Redis command duration by name.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"operation"}),
		RedisDialErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "dial_errors_total",
			Help:      "Failed Redis connection attempts.",
		}),
	}

	reg.MustRegister(m.QueryDuration, m.QueryErrors, m.RedisOps, m.RedisDuration, m.RedisDialErrors)
	return m
}

func (m *StoreMetrics) ObserveQuery(statement string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(statement).Observe(d.Seconds())
	if err != nil {
		m.QueryErrors.WithLabelValues(statement).Inc()
	}
}

func (m *StoreMetrics) ObserveRedis(operation string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	status := "success"
	if failed {
		status = "error"
	}
	m.RedisOps.WithLabelValues(operation, status).Inc()
	m.RedisDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *StoreMetrics) ObserveRedisDialError() {
	if m == nil {
		return
	}
	m.RedisDialErrors.Inc()
}
