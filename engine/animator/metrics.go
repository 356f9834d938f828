package animator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the animator's Prometheus collectors. A nil *metrics records nothing.
type metrics struct {
	updates prometheus.Counter
	tick    prometheus.Histogram
	events  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oxyanim_animator_updates_total",
			Help: "Total number of animator and animable updates.",
		}),
		tick: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oxyanim_animator_tick_seconds",
			Help:    "Duration of animator module ticks.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oxyanim_animation_events_total",
			Help: "Total number of animation events dispatched.",
		}),
	}
	reg.MustRegister(m.updates, m.tick, m.events)
	return m
}

func (m *metrics) observeTick(start time.Time, updated int) {
	if m == nil {
		return
	}
	m.updates.Add(float64(updated))
	m.tick.Observe(time.Since(start).Seconds())
}

func (m *metrics) addEvents(n int) {
	if m == nil || n == 0 {
		return
	}
	m.events.Add(float64(n))
}
