// Package monitoring provides Prometheus metrics and request
// instrumentation for the evaluation service.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/exprbox/exprbox/internal/boundary"
)

// Metrics holds all service metrics, registered on construction.
type Metrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	BoundaryCalls      *prometheus.CounterVec
	BoundaryErrors     *prometheus.CounterVec
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	PreviewSessions    prometheus.Gauge
	SnapshotsLoaded    prometheus.Gauge

	// Durations feeds the /v1/stats summary with recent evaluation
	// latencies; Prometheus histograms lose the raw samples.
	Durations *Window

	registry *prometheus.Registry
}

// New creates metrics registered on a private registry, exposed via
// Handler. A private registry keeps tests from colliding on duplicate
// registration.
func New() *Metrics {
	return NewWith(prometheus.NewRegistry())
}

// NewWith creates metrics registered on the given registry.
func NewWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exprbox_evaluations_total",
			Help: "Expression evaluations by outcome",
		}, []string{"status"}),

		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "exprbox_evaluation_duration_seconds",
			Help:    "Expression evaluation latency",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),

		BoundaryCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exprbox_boundary_calls_total",
			Help: "Boundary primitive calls by type",
		}, []string{"primitive"}),

		BoundaryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exprbox_boundary_errors_total",
			Help: "Failed boundary primitive calls by type",
		}, []string{"primitive"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exprbox_http_requests_total",
			Help: "HTTP requests by method, path, and status",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exprbox_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		PreviewSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exprbox_preview_sessions",
			Help: "Open preview WebSocket sessions",
		}),

		SnapshotsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exprbox_snapshots_loaded",
			Help: "Execution snapshots currently stored",
		}),

		Durations: NewWindow(1024),
	}

	m.registry = reg
	return m
}

// RecordEvaluation tracks one evaluation outcome.
func (m *Metrics) RecordEvaluation(status string, duration time.Duration) {
	m.EvaluationsTotal.WithLabelValues(status).Inc()
	m.EvaluationDuration.Observe(duration.Seconds())
	m.Durations.Observe(duration)
}

// RecordBoundaryCall tracks one boundary primitive call.
func (m *Metrics) RecordBoundaryCall(primitive string, err error) {
	m.BoundaryCalls.WithLabelValues(primitive).Inc()
	if err != nil {
		m.BoundaryErrors.WithLabelValues(primitive).Inc()
	}
}

// instrumentedCalls decorates a boundary.Calls with call counting.
type instrumentedCalls struct {
	next    boundary.Calls
	metrics *Metrics
}

// InstrumentCalls wraps calls so every primitive crossing is counted.
func InstrumentCalls(m *Metrics, next boundary.Calls) boundary.Calls {
	return &instrumentedCalls{next: next, metrics: m}
}

func (c *instrumentedCalls) ResolveValue(path boundary.Path) (any, error) {
	v, err := c.next.ResolveValue(path)
	c.metrics.RecordBoundaryCall("resolve", err)
	return v, err
}

func (c *instrumentedCalls) ResolveElement(path boundary.Path, index int) (any, error) {
	v, err := c.next.ResolveElement(path, index)
	c.metrics.RecordBoundaryCall("element", err)
	return v, err
}

func (c *instrumentedCalls) InvokeFunction(path boundary.Path, args []any) (any, error) {
	v, err := c.next.InvokeFunction(path, args)
	c.metrics.RecordBoundaryCall("invoke", err)
	return v, err
}
