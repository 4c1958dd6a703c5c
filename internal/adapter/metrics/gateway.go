package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics holds Prometheus metrics for the remote data gateway.
type GatewayMetrics struct {
	Calls        *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
}

// NewGatewayMetrics creates and registers gateway metrics on the given registry.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of gateway calls, by operation and result.",
		}, []string{"operation", "result"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per dependency (0=closed, 1=half-open, 2=open).",
		}, []string{"dependency"}),
	}

	reg.MustRegister(m.Calls, m.BreakerState)
	return m
}

func (m *GatewayMetrics) ObserveCall(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Calls.WithLabelValues(operation, result).Inc()
}

func (m *GatewayMetrics) SetBreakerState(dependency string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(dependency).Set(state)
}
