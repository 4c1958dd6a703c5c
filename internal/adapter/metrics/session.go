package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics holds Prometheus metrics for the session registry.
type SessionMetrics struct {
	Active     prometheus.Gauge
	Evictions  prometheus.Counter
	Refreshes  *prometheus.CounterVec
	Broadcasts prometheus.Counter
}

// NewSessionMetrics creates and registers session metrics on the given registry.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of live user sessions.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "evictions_total",
			Help:      "Total number of sessions evicted after idling.",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "feed_refreshes_total",
			Help:      "Total number of feed refetches, by result.",
		}, []string{"result"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "count_broadcasts_total",
			Help:      "Total number of realtime count updates fanned out to sessions.",
		}),
	}

	reg.MustRegister(m.Active, m.Evictions, m.Refreshes, m.Broadcasts)
	return m
}

func (m *SessionMetrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.Active.Set(float64(n))
}

func (m *SessionMetrics) ObserveEvictions(n int) {
	if m == nil {
		return
	}
	m.Evictions.Add(float64(n))
}

func (m *SessionMetrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

func (m *SessionMetrics) ObserveBroadcast() {
	if m == nil {
		return
	}
	m.Broadcasts.Inc()
}
