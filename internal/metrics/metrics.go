package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"meditimer/internal/timer"
)

// TimerMetrics exposes counters and gauges for the countdown. It implements
// timer.Sink so it can be attached to an engine directly.
type TimerMetrics struct {
	eventsTotal      *prometheus.CounterVec
	rejectedTotal    *prometheus.CounterVec
	completionsTotal prometheus.Counter
	remaining        prometheus.Gauge
	progress         prometheus.Gauge
}

func NewTimerMetrics(reg prometheus.Registerer) *TimerMetrics {
	m := &TimerMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meditimer",
			Subsystem: "timer",
			Name:      "events_total",
			Help:      "Timer notifications by event",
		}, []string{"event"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meditimer",
			Subsystem: "timer",
			Name:      "rejected_total",
			Help:      "Requests rejected before reaching the timer",
		}, []string{"reason"}),
		completionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meditimer",
			Subsystem: "timer",
			Name:      "completions_total",
			Help:      "Countdowns that reached zero",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meditimer",
			Subsystem: "timer",
			Name:      "remaining_seconds",
			Help:      "Seconds left on the current countdown",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meditimer",
			Subsystem: "timer",
			Name:      "progress_ratio",
			Help:      "Elapsed fraction of the current countdown",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.rejectedTotal, m.completionsTotal, m.remaining, m.progress)
	return m
}

// Update implements timer.Sink.
func (m *TimerMetrics) Update(s timer.Snapshot) {
	if m == nil {
		return
	}
	if s.Event != "" {
		m.eventsTotal.WithLabelValues(string(s.Event)).Inc()
	}
	m.remaining.Set(float64(s.Remaining))
	m.progress.Set(s.Progress)
}

// Completed implements timer.Sink.
func (m *TimerMetrics) Completed() {
	if m == nil {
		return
	}
	m.completionsTotal.Inc()
}

// ObserveRejected counts a request that never became a transition.
func (m *TimerMetrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}
