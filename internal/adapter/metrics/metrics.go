package metrics

import (
	"net/http"

	"github.com/freestartupia/startupia/internal/platform/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "startupia"

// Set bundles every metric family the server exposes.
type Set struct {
	Registry *prometheus.Registry
	Vote     *VoteMetrics
	Session  *SessionMetrics
	Gateway  *GatewayMetrics
	Store    *StoreMetrics
	HTTP     *HTTPMetrics
}

// NewRegistry returns a registry carrying runtime, process and build info.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo(version.Get()),
	)
	return reg
}

// buildInfo is a constant 1 labelled with the running build, for joining
// other series against a deploy.
func buildInfo(info version.Info) prometheus.Collector {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build of the running server.",
		ConstLabels: prometheus.Labels{
			"version":    info.Version,
			"commit":     info.Short(),
			"go_version": info.GoVersion,
		},
	})
	g.Set(1)
	return g
}

// NewSet registers all metric families on a fresh registry.
func NewSet() *Set {
	reg := NewRegistry()
	return &Set{
		Registry: reg,
		Vote:     NewVoteMetrics(reg),
		Session:  NewSessionMetrics(reg),
		Gateway:  NewGatewayMetrics(reg),
		Store:    NewStoreMetrics(reg),
		HTTP:     NewHTTPMetrics(reg),
	}
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
