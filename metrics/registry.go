// Package metrics is sop's Prometheus wrapper: a counter vector
// tracking quads crossing every stage boundary, a per-stage error
// counter vector, plus Go runtime and process collectors, exposed over
// HTTP when --metrics-addr is set.
//
// A prometheus.Registry wrapped in a small struct, with sop's own
// metrics pre-registered at construction time rather than registered ad
// hoc by callers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is sop's metrics collection: a quad CounterVec labeled by
// stage and direction ("in"/"out") and an error CounterVec labeled by
// stage, implementing stage.MetricsRecorder so the stages package never
// needs to import this one.
type Registry struct {
	prom        *prometheus.Registry
	quadsTotal  *prometheus.CounterVec
	stageErrors *prometheus.CounterVec
}

// New creates a Registry with sop's metrics and Go's runtime collectors
// pre-registered.
func New() *Registry {
	prom := prometheus.NewRegistry()

	quadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sop",
			Subsystem: "pipeline",
			Name:      "quads_total",
			Help:      "Total quads observed crossing a stage boundary.",
		},
		[]string{"stage", "direction"},
	)
	stageErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sop",
			Subsystem: "pipeline",
			Name:      "stage_errors_total",
			Help:      "Total errors raised by a stage.",
		},
		[]string{"stage"},
	)

	prom.MustRegister(
		quadsTotal,
		stageErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{prom: prom, quadsTotal: quadsTotal, stageErrors: stageErrors}
}

// ObserveQuads implements stage.MetricsRecorder.
func (r *Registry) ObserveQuads(stage string, direction string, n int) {
	r.quadsTotal.WithLabelValues(stage, direction).Add(float64(n))
}

// ObserveStageError records one failure attributed to stage.
func (r *Registry) ObserveStageError(stage string) {
	r.stageErrors.WithLabelValues(stage).Inc()
}

// Prometheus returns the underlying registry, for wiring into an HTTP
// exposition handler.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prom
}
