package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDecision(true, time.Millisecond)
	m.ObserveDecision(false, time.Microsecond)
	m.ObserveDecision(false, time.Microsecond)
	m.FailOpen("store")
	m.RecordWritten()
	m.RecordFailed()
	m.RecordDropped()
	m.RecordsPruned(3)
	m.RecordsPruned(0)
	m.SetEnabledRules(16)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues(OutcomeBlock)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues(OutcomeAllow)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failOpen.WithLabelValues("store")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsDropped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.recordsPruned))
	assert.Equal(t, 16.0, testutil.ToFloat64(m.rulesEnabled))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecision(true, time.Second)
		m.FailOpen("x")
		m.RecordWritten()
		m.RecordFailed()
		m.RecordDropped()
		m.RecordsPruned(1)
		m.SetEnabledRules(1)
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
