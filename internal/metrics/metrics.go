// Package metrics provides Prometheus metrics for the LED driver loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/led-blinker/internal/blink"
)

// Recorder holds the LED collectors. Use New with a dedicated registry in
// tests; Default is registered with the global Prometheus registry.
type Recorder struct {
	toggles      prometheus.Counter
	state        prometheus.Gauge
	delay        prometheus.Gauge
	delayClamped prometheus.Counter
}

// Default is the recorder served on /metrics.
var Default = New(prometheus.DefaultRegisterer)

// New creates a Recorder whose collectors are registered with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		toggles: f.NewCounter(prometheus.CounterOpts{
			Namespace: "blinker",
			Subsystem: "led",
			Name:      "toggles_total",
			Help:      "Total LED state toggles",
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "blinker",
			Subsystem: "led",
			Name:      "state",
			Help:      "Current logical LED state (1 = on)",
		}),
		delay: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "blinker",
			Subsystem: "led",
			Name:      "delay_ms",
			Help:      "Configured blink half-period in milliseconds",
		}),
		delayClamped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "blinker",
			Subsystem: "led",
			Name:      "delay_clamped_total",
			Help:      "Delay requests that were outside the configured bounds",
		}),
	}
}

// Observe records the state and delay currently driven.
func (r *Recorder) Observe(state blink.LedState, delayMs uint64) {
	if blink.StateToLevel(state) {
		r.state.Set(1)
	} else {
		r.state.Set(0)
	}
	r.delay.Set(float64(delayMs))
}

// Toggled counts one toggle.
func (r *Recorder) Toggled() {
	r.toggles.Inc()
}

// RecordDelayRequest counts a delay request whose value was altered by clamping.
func (r *Recorder) RecordDelayRequest(requested, applied uint64) {
	if requested != applied {
		r.delayClamped.Inc()
	}
	r.delay.Set(float64(applied))
}
