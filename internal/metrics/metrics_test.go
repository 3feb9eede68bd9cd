package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meditimer/internal/timer"
)

func TestTimerMetricsAsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTimerMetrics(reg)

	src := timer.NewManualSource()
	e := timer.New(timer.WithTickSource(src), timer.WithSink(m))

	require.NoError(t, e.Start(4))
	src.FireN(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.remaining))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.progress))

	src.FireN(2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("start")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("tick")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completionsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.remaining))
}

func TestObserveRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTimerMetrics(reg)

	m.ObserveRejected("invalid_duration")
	m.ObserveRejected("invalid_duration")
	m.ObserveRejected("bad_request")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rejectedTotal.WithLabelValues("invalid_duration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectedTotal.WithLabelValues("bad_request")))
}

func TestNilMetricsSafe(t *testing.T) {
	var m *TimerMetrics
	assert.NotPanics(t, func() {
		m.Update(timer.Snapshot{Event: timer.EventTick})
		m.Completed()
		m.ObserveRejected("x")
	})
}
