package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the daemon's collectors on a dedicated registry.
type Metrics struct {
	reg *prometheus.Registry

	FlowsTotal        *prometheus.CounterVec
	RejectedTriggers  prometheus.Counter
	TransformDuration prometheus.Histogram
	BufferChanges     prometheus.Counter
	Restores          prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		FlowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipflow_flows_total",
			Help: "Transformation flows by terminal outcome.",
		}, []string{"outcome"}),
		RejectedTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipflow_rejected_triggers_total",
			Help: "Triggers rejected because a flow was already in flight.",
		}),
		TransformDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipflow_transform_duration_seconds",
			Help:    "Wall time of the transformation strategy call.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		BufferChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipflow_buffer_changes_total",
			Help: "External buffer changes seen by the detector.",
		}),
		Restores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipflow_restores_total",
			Help: "Original-content restorations after failed flows.",
		}),
	}
	reg.MustRegister(m.FlowsTotal, m.RejectedTriggers, m.TransformDuration, m.BufferChanges, m.Restores)
	return m
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Expose serves /metrics on its own port.
func Expose(m *Metrics, port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}
