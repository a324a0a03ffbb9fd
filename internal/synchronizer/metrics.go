package synchronizer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run results recorded by Metrics.
const (
	RunResultClean   = "clean"
	RunResultErrors  = "errors"
	RunResultAborted = "aborted"
)

// DefaultRunBuckets are the run duration histogram buckets in seconds.
var DefaultRunBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// Metrics records reconciliation outcomes as Prometheus metrics.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
type Metrics struct {
	artifacts *prometheus.CounterVec
	malformed *prometheus.CounterVec
	stalled   *prometheus.GaugeVec
	runs      *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewMetrics creates the artisync metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		artifacts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "artisync",
				Name:      "artifacts_processed_total",
				Help:      "Artifacts processed by kind, flow and outcome",
			},
			[]string{"kind", "flow", "outcome"},
		),
		malformed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "artisync",
				Name:      "declarations_malformed_total",
				Help:      "Declarations that failed to parse, by kind",
			},
			[]string{"kind"},
		),
		stalled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "artisync",
				Name:      "artifacts_stalled",
				Help:      "Artifacts left stalled by the last run, by kind and flow",
			},
			[]string{"kind", "flow"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "artisync",
				Name:      "runs_total",
				Help:      "Synchronization runs by result",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "artisync",
				Name:      "run_duration_seconds",
				Help:      "Duration of synchronization runs in seconds",
				Buckets:   DefaultRunBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.artifacts, m.malformed, m.stalled, m.runs, m.duration)
	}
	return m
}

// RecordArtifact counts one artifact outcome.
func (m *Metrics) RecordArtifact(kind, flow, outcome string) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(kind, flow, outcome).Inc()
}

// RecordMalformed counts one declaration that failed to parse.
func (m *Metrics) RecordMalformed(kind string) {
	if m == nil {
		return
	}
	m.malformed.WithLabelValues(kind).Inc()
}

// SetStalled sets the stalled count of one kind's flow.
func (m *Metrics) SetStalled(kind, flow string, n int) {
	if m == nil {
		return
	}
	m.stalled.WithLabelValues(kind, flow).Set(float64(n))
}

// RecordRun counts one finished run and observes its duration.
func (m *Metrics) RecordRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}
