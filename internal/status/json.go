package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/led-blinker/internal/blink"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	LED           string     `json:"led"`
	Level         bool       `json:"level"`
	DelayMs       uint64     `json:"delay_ms"`
	ToggleCount   uint64     `json:"toggle_count"`
	Running       bool       `json:"running"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DefaultDelayMs uint64 `json:"default_delay_ms"`
	MinDelayMs     uint64 `json:"min_delay_ms"`
	MaxDelayMs     uint64 `json:"max_delay_ms"`
	GPIO           string `json:"gpio"`
	ActiveLow      bool   `json:"active_low"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		LED:           snap.State.String(),
		Level:         blink.StateToLevel(snap.State),
		DelayMs:       snap.DelayMs,
		ToggleCount:   snap.ToggleCount,
		Running:       snap.Running,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			DefaultDelayMs: snap.Config.DefaultDelayMs,
			MinDelayMs:     snap.Config.MinDelayMs,
			MaxDelayMs:     snap.Config.MaxDelayMs,
			GPIO:           snap.Config.GPIO,
			ActiveLow:      snap.Config.ActiveLow,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
