// Package blink contains the LED blink state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or timers).
// The caller owns scheduling and the hardware write.
package blink

import (
	"math"
	"time"
)

// LedState is the logical state of the LED, independent of pin polarity.
type LedState int

const (
	Off LedState = iota
	On
)

// String returns "ON" or "OFF".
func (s LedState) String() string {
	if s == On {
		return "ON"
	}
	return "OFF"
}

// Config holds the default blink delay and the bounds every delay is clamped to.
// MinDelayMs <= DelayMs <= MaxDelayMs is expected but not checked.
type Config struct {
	DelayMs    uint64
	MinDelayMs uint64
	MaxDelayMs uint64
}

// DefaultConfig returns a 500ms half-period clamped to [10ms, 10s].
func DefaultConfig() Config {
	return Config{
		DelayMs:    500,
		MinDelayMs: 10,
		MaxDelayMs: 10000,
	}
}

// ClampDelay restricts delayMs to the configured bounds.
func (c Config) ClampDelay(delayMs uint64) uint64 {
	return ClampDelay(delayMs, c.MinDelayMs, c.MaxDelayMs)
}

// ClampDelay restricts delayMs to [lo, hi].
func ClampDelay(delayMs, lo, hi uint64) uint64 {
	if delayMs < lo {
		return lo
	}
	if delayMs > hi {
		return hi
	}
	return delayMs
}

// Controller tracks LED state, blink delay and the number of toggles.
// Not safe for concurrent use: one goroutine must own it.
type Controller struct {
	cfg         Config
	state       LedState
	delayMs     uint64
	toggleCount uint64
}

// New creates a controller with the LED off and the configured default delay.
func New(cfg Config) *Controller {
	return &Controller{
		cfg:     cfg,
		state:   Off,
		delayMs: cfg.DelayMs,
	}
}

// NewWithDelay creates a controller with the LED off and delayMs clamped
// to the configured bounds.
func NewWithDelay(cfg Config, delayMs uint64) *Controller {
	return &Controller{
		cfg:     cfg,
		state:   Off,
		delayMs: cfg.ClampDelay(delayMs),
	}
}

// Toggle flips the LED state, increments the toggle count and returns the new state.
func (c *Controller) Toggle() LedState {
	if c.state == On {
		c.state = Off
	} else {
		c.state = On
	}
	c.toggleCount++
	return c.state
}

// State returns the current LED state.
func (c *Controller) State() LedState {
	return c.state
}

// DelayMs returns the blink delay in milliseconds.
func (c *Controller) DelayMs() uint64 {
	return c.delayMs
}

// maxDurationMs is the largest millisecond count a time.Duration can hold.
const maxDurationMs = uint64(math.MaxInt64 / int64(time.Millisecond))

// Delay returns the blink delay as a time.Duration, saturating at the
// largest representable duration.
func (c *Controller) Delay() time.Duration {
	if c.delayMs > maxDurationMs {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(c.delayMs) * time.Millisecond
}

// ToggleCount returns the number of toggles since construction.
func (c *Controller) ToggleCount() uint64 {
	return c.toggleCount
}

// IsOn reports whether the LED is on.
func (c *Controller) IsOn() bool {
	return c.state == On
}

// IsOff reports whether the LED is off.
func (c *Controller) IsOff() bool {
	return c.state == Off
}

// SetDelay replaces the blink delay, clamped to the configured bounds.
func (c *Controller) SetDelay(delayMs uint64) {
	c.delayMs = c.cfg.ClampDelay(delayMs)
}

// Config returns the configuration the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// StateToLevel maps On to a high output level and Off to low.
func StateToLevel(s LedState) bool {
	return s == On
}
