package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/led-blinker/internal/blink"
)

func TestDefaultMatchesController(t *testing.T) {
	cfg := Default()
	if got := cfg.Controller(); got != blink.DefaultConfig() {
		t.Errorf("Controller(): got %+v, want %+v", got, blink.DefaultConfig())
	}
	if cfg.GPIO.Chip != "gpiochip0" || cfg.GPIO.Line != 16 {
		t.Errorf("GPIO defaults: got %+v", cfg.GPIO)
	}
	if time.Duration(cfg.Daemon.Heartbeat) != 15*time.Minute {
		t.Errorf("Heartbeat default: got %v", time.Duration(cfg.Daemon.Heartbeat))
	}
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("default config should have no warnings, got %v", w)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blinker.toml")
	content := `
[blink]
delay_ms = 250
max_delay_ms = 2000

[gpio]
line = 17
active_low = true

[mqtt]
broker = "tcp://192.168.1.200:1883"

[daemon]
heartbeat = "30s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Blink.DelayMs != 250 || cfg.Blink.MaxDelayMs != 2000 {
		t.Errorf("blink: got %+v", cfg.Blink)
	}
	if cfg.Blink.MinDelayMs != 10 {
		t.Errorf("missing key should keep default min 10, got %d", cfg.Blink.MinDelayMs)
	}
	if cfg.GPIO.Line != 17 || !cfg.GPIO.ActiveLow || cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("gpio: got %+v", cfg.GPIO)
	}
	if cfg.MQTT.Broker != "tcp://192.168.1.200:1883" || cfg.MQTT.ClientID != "led-blinker" {
		t.Errorf("mqtt: got %+v", cfg.MQTT)
	}
	if time.Duration(cfg.Daemon.Heartbeat) != 30*time.Second {
		t.Errorf("heartbeat: got %v", time.Duration(cfg.Daemon.Heartbeat))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{"unknown key", "[blink]\nspeed = 3\n", "unknown keys"},
		{"bad duration", "[daemon]\nheartbeat = \"soon\"\n", ""},
		{"negative delay", "[blink]\ndelay_ms = -1\n", ""},
		{"syntax", "[blink\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := Decode([]byte(tt.content), &cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantSub != "" && !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not contain %q", err, tt.wantSub)
			}
		})
	}
}

func TestEncodeDecodeKeepsDuration(t *testing.T) {
	cfg := Default()
	cfg.Daemon.Heartbeat = Duration(90 * time.Second)

	data, err := Encode(cfg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `heartbeat = '1m30s'`) && !strings.Contains(string(data), `heartbeat = "1m30s"`) {
		t.Errorf("heartbeat not rendered as duration string:\n%s", data)
	}

	got := Default()
	if err := Decode(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != cfg {
		t.Errorf("got %+v, want %+v", got, cfg)
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name  string
		blink BlinkConfig
		want  int
	}{
		{"valid", BlinkConfig{DelayMs: 500, MinDelayMs: 10, MaxDelayMs: 10000}, 0},
		{"default below min", BlinkConfig{DelayMs: 5, MinDelayMs: 10, MaxDelayMs: 10000}, 1},
		{"default above max", BlinkConfig{DelayMs: 20000, MinDelayMs: 10, MaxDelayMs: 10000}, 1},
		{"min above max", BlinkConfig{DelayMs: 500, MinDelayMs: 1000, MaxDelayMs: 100}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Blink = tt.blink
			if got := cfg.Warnings(); len(got) != tt.want {
				t.Errorf("got %d warnings %v, want %d", len(got), got, tt.want)
			}
		})
	}
}

func TestExampleFileMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "blinker.example.toml"))
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	def := Default()
	if cfg.Blink != def.Blink || cfg.GPIO != def.GPIO || cfg.Daemon != def.Daemon {
		t.Errorf("example drifted from defaults:\n got %+v\nwant %+v", cfg, def)
	}
}
