package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// VoteMetrics holds Prometheus metrics for optimistic vote reconciliation.
// All methods are safe on a nil receiver so callers may run without metrics.
type VoteMetrics struct {
	Toggles        *prometheus.CounterVec
	Rollbacks      *prometheus.CounterVec
	StaleReads     prometheus.Counter
	RemoteDuration *prometheus.HistogramVec
	InFlight       prometheus.Gauge
}

// NewVoteMetrics creates and registers vote metrics on the given registry.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		Toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "toggles_total",
			Help:      "Total number of vote toggles, by subject kind and result.",
		}, []string{"kind", "result"}),
		Rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "rollbacks_total",
			Help:      "Total number of optimistic predictions rolled back, by subject kind.",
		}, []string{"kind"}),
		StaleReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "stale_reads_total",
			Help:      "Total number of writes whose authoritative count could not be read back.",
		}),
		RemoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "remote_write_duration_seconds",
			Help:      "Duration of the remote mutation and recount, by mutation.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"mutation"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "in_flight",
			Help:      "Number of toggles waiting on the remote gateway.",
		}),
	}

	reg.MustRegister(m.Toggles, m.Rollbacks, m.StaleReads, m.RemoteDuration, m.InFlight)
	return m
}

func (m *VoteMetrics) ObserveToggle(kind, result string) {
	if m == nil {
		return
	}
	m.Toggles.WithLabelValues(kind, result).Inc()
}

func (m *VoteMetrics) ObserveRollback(kind string) {
	if m == nil {
		return
	}
	m.Rollbacks.WithLabelValues(kind).Inc()
}

func (m *VoteMetrics) ObserveStaleRead() {
	if m == nil {
		return
	}
	m.StaleReads.Inc()
}

func (m *VoteMetrics) ObserveRemote(mutation string, d time.Duration) {
	if m == nil {
		return
	}
	m.RemoteDuration.WithLabelValues(mutation).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *VoteMetrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}
