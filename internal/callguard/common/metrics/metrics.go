// Package metrics defines the Prometheus collectors exported by callguard.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "callguard"

// Outcome labels for screening decisions.
const (
	OutcomeAllow = "allow"
	OutcomeBlock = "block"
)

// Metrics groups every collector. Construct with New.
type Metrics struct {
	decisions       *prometheus.CounterVec
	decisionLatency prometheus.Histogram
	failOpen        *prometheus.CounterVec
	recordsWritten  prometheus.Counter
	recordsFailed   prometheus.Counter
	recordsDropped  prometheus.Counter
	recordsPruned   prometheus.Counter
	rulesEnabled    prometheus.Gauge
}

// New registers all collectors on reg. Passing prometheus.NewRegistry() keeps
// tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screen",
			Name:      "decisions_total",
			Help:      "Screening decisions by outcome",
		}, []string{"outcome"}),
		decisionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "screen",
			Name:      "decision_duration_seconds",
			Help:      "Time spent producing a screening decision",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~0.5s
		}),
		failOpen: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screen",
			Name:      "fail_open_total",
			Help:      "Decisions degraded to allow because of an internal failure",
		}, []string{"reason"}),
		recordsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calllog",
			Name:      "records_written_total",
			Help:      "Blocked-call records persisted",
		}),
		recordsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calllog",
			Name:      "records_failed_total",
			Help:      "Blocked-call records that failed to persist",
		}),
		recordsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calllog",
			Name:      "records_dropped_total",
			Help:      "Blocked-call records dropped because the write queue was full",
		}),
		recordsPruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calllog",
			Name:      "records_pruned_total",
			Help:      "Blocked-call records removed by retention pruning",
		}),
		rulesEnabled: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "enabled",
			Help:      "Enabled prefix rules in the active snapshot",
		}),
	}
}

func (m *Metrics) ObserveDecision(blocked bool, took time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeAllow
	if blocked {
		outcome = OutcomeBlock
	}
	m.decisions.WithLabelValues(outcome).Inc()
	m.decisionLatency.Observe(took.Seconds())
}

func (m *Metrics) FailOpen(reason string) {
	if m == nil {
		return
	}
	m.failOpen.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordWritten() {
	if m != nil {
		m.recordsWritten.Inc()
	}
}

func (m *Metrics) RecordFailed() {
	if m != nil {
		m.recordsFailed.Inc()
	}
}

func (m *Metrics) RecordDropped() {
	if m != nil {
		m.recordsDropped.Inc()
	}
}

func (m *Metrics) RecordsPruned(n int) {
	if m != nil && n > 0 {
		m.recordsPruned.Add(float64(n))
	}
}

func (m *Metrics) SetEnabledRules(n int) {
	if m != nil {
		m.rulesEnabled.Set(float64(n))
	}
}
