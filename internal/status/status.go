// Package status provides a thread-safe status tracker for the led-blinker daemon.
// The driver loop writes to it; HTTP handlers and MQTT system events read from it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/led-blinker/internal/blink"
)

// Config contains daemon configuration for display.
type Config struct {
	DefaultDelayMs uint64
	MinDelayMs     uint64
	MaxDelayMs     uint64
	GPIO           string // e.g. "gpiochip0:16"
	ActiveLow      bool
	HeartbeatMs    int64
	Broker         string
	HTTPAddr       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         blink.LedState
	DelayMs       uint64
	ToggleCount   uint64
	Running       bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			DelayMs:   cfg.DefaultDelayMs,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the controller's state. Called by the driver loop after
// every pin write and delay change.
func (t *Tracker) Update(state blink.LedState, delayMs, toggleCount uint64) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.DelayMs = delayMs
	t.snap.ToggleCount = toggleCount
	t.snap.Running = true
	t.mu.Unlock()
}

// SetStopped marks the driver loop as no longer running.
func (t *Tracker) SetStopped() {
	t.mu.Lock()
	t.snap.Running = false
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
