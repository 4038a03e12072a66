package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	received    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	forwarded   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		received: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalrelay_signals_received_total",
				Help: "Total number of raw signals received per source",
			},
			[]string{"source"},
		),
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalrelay_pipeline_results_total",
				Help: "Terminal pipeline outcomes",
			},
			[]string{"outcome"},
		),
		forwarded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalrelay_signals_forwarded_total",
				Help: "Normalized signals forwarded to the destination",
			},
			[]string{"source", "asset"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalrelay_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalrelay_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordReceived counts a raw signal received from a source group.
func (r *Recorder) RecordReceived(source string) {
	r.received.WithLabelValues(source).Inc()
}

// RecordOutcome counts a terminal pipeline outcome.
func (r *Recorder) RecordOutcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}

// RecordForwarded counts a forwarded signal.
func (r *Recorder) RecordForwarded(source, asset string) {
	r.forwarded.WithLabelValues(source, asset).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
