// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/led-blinker/internal/blink"
)

// DefaultTopicPrefix is the root of every topic the daemon uses.
const DefaultTopicPrefix = "home/led/blinker"

// Topics holds the concrete topic names derived from a prefix.
type Topics struct {
	Events   string // toggle events, QoS 0
	System   string // lifecycle events, QoS 1
	DelaySet string // inbound delay commands
}

// NewTopics derives topic names from prefix. An empty prefix uses DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Events:   prefix + "/events",
		System:   prefix + "/system",
		DelaySet: prefix + "/delay/set",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a toggle event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event ToggleEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ToggleEvent is emitted each time the controller flips the LED.
type ToggleEvent struct {
	Timestamp   time.Time
	State       blink.LedState
	ToggleCount uint64
	DelayMs     uint64
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	LED LEDPayload `json:"led"`
}

// LEDPayload contains the toggle event details.
type LEDPayload struct {
	Timestamp   string `json:"timestamp"`
	Event       string `json:"event"`
	State       string `json:"state"`
	ToggleCount uint64 `json:"toggle_count"`
	DelayMs     uint64 `json:"delay_ms"`
}

// FormatPayload creates the JSON payload for a toggle event.
func FormatPayload(event ToggleEvent) ([]byte, error) {
	payload := Payload{
		LED: LEDPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Event:       "TOGGLE",
			State:       event.State.String(),
			ToggleCount: event.ToggleCount,
			DelayMs:     event.DelayMs,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ErrEmptyCommand is returned by ParseDelayCommand for a blank payload.
var ErrEmptyCommand = errors.New("empty delay command")

type delayCommand struct {
	DelayMs *uint64 `json:"delay_ms"`
}

// ParseDelayCommand decodes a delay request: either a bare decimal
// ("250") or a JSON object ({"delay_ms":250}). The value is not clamped.
func ParseDelayCommand(payload []byte) (uint64, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return 0, ErrEmptyCommand
	}

	if payload[0] == '{' {
		var cmd delayCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return 0, fmt.Errorf("decode delay command: %w", err)
		}
		if cmd.DelayMs == nil {
			return 0, errors.New("delay command missing delay_ms")
		}
		return *cmd.DelayMs, nil
	}

	v, err := strconv.ParseUint(string(payload), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse delay command: %w", err)
	}
	return v, nil
}
