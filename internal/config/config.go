// Package config loads daemon settings from a TOML file.
// Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/sweeney/led-blinker/internal/blink"
	"github.com/sweeney/led-blinker/internal/gpio"
	"github.com/sweeney/led-blinker/internal/mqtt"
)

// Config is the full daemon configuration.
type Config struct {
	Blink  BlinkConfig  `toml:"blink"`
	GPIO   GPIOConfig   `toml:"gpio"`
	MQTT   MQTTConfig   `toml:"mqtt"`
	HTTP   HTTPConfig   `toml:"http"`
	Daemon DaemonConfig `toml:"daemon"`
}

type BlinkConfig struct {
	DelayMs    uint64 `toml:"delay_ms"`
	MinDelayMs uint64 `toml:"min_delay_ms"`
	MaxDelayMs uint64 `toml:"max_delay_ms"`
}

type GPIOConfig struct {
	Chip      string `toml:"chip"`
	Line      int    `toml:"line"`
	ActiveLow bool   `toml:"active_low"`
}

type MQTTConfig struct {
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"` // empty disables the status server
}

type DaemonConfig struct {
	Heartbeat Duration `toml:"heartbeat"` // 0 disables
}

// Duration decodes TOML strings such as "15m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	b := blink.DefaultConfig()
	return Config{
		Blink: BlinkConfig{
			DelayMs:    b.DelayMs,
			MinDelayMs: b.MinDelayMs,
			MaxDelayMs: b.MaxDelayMs,
		},
		GPIO: GPIOConfig{
			Chip: gpio.DefaultChip,
			Line: gpio.DefaultLine,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "led-blinker",
			TopicPrefix: mqtt.DefaultTopicPrefix,
		},
		HTTP:   HTTPConfig{Addr: ":8080"},
		Daemon: DaemonConfig{Heartbeat: Duration(15 * time.Minute)},
	}
}

// Load returns Default overlaid with the TOML file at path. Keys missing
// from the file keep their defaults. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals TOML into cfg, rejecting unknown keys.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return err
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Controller returns the blink controller configuration.
func (c Config) Controller() blink.Config {
	return blink.Config{
		DelayMs:    c.Blink.DelayMs,
		MinDelayMs: c.Blink.MinDelayMs,
		MaxDelayMs: c.Blink.MaxDelayMs,
	}
}

// Warnings reports blink settings that are inconsistent. They are not
// errors: the controller clamps every externally requested delay regardless.
func (c Config) Warnings() []string {
	var w []string
	b := c.Blink
	if b.MinDelayMs > b.MaxDelayMs {
		w = append(w, fmt.Sprintf("min_delay_ms (%d) is greater than max_delay_ms (%d)", b.MinDelayMs, b.MaxDelayMs))
	}
	if b.DelayMs < b.MinDelayMs || b.DelayMs > b.MaxDelayMs {
		w = append(w, fmt.Sprintf("delay_ms (%d) is outside [%d, %d]", b.DelayMs, b.MinDelayMs, b.MaxDelayMs))
	}
	return w
}
