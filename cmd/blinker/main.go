// Command blinker drives an LED on a GPIO line, toggling it every blink delay.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/led-blinker/internal/blink"
	"github.com/sweeney/led-blinker/internal/config"
	"github.com/sweeney/led-blinker/internal/gpio"
	"github.com/sweeney/led-blinker/internal/metrics"
	"github.com/sweeney/led-blinker/internal/mqtt"
	"github.com/sweeney/led-blinker/internal/status"
	"github.com/sweeney/led-blinker/internal/web"
)

func main() {
	cfg, printConfig, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if printConfig {
		out, err := config.Encode(cfg)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// flagOverrides copies a single flag's value from the flag-bound config
// into the loaded one. Only flags set on the command line are applied, so
// the file wins over flag defaults.
var flagOverrides = map[string]func(dst *config.Config, src config.Config){
	"delay":        func(d *config.Config, s config.Config) { d.Blink.DelayMs = s.Blink.DelayMs },
	"min-delay":    func(d *config.Config, s config.Config) { d.Blink.MinDelayMs = s.Blink.MinDelayMs },
	"max-delay":    func(d *config.Config, s config.Config) { d.Blink.MaxDelayMs = s.Blink.MaxDelayMs },
	"chip":         func(d *config.Config, s config.Config) { d.GPIO.Chip = s.GPIO.Chip },
	"line":         func(d *config.Config, s config.Config) { d.GPIO.Line = s.GPIO.Line },
	"active-low":   func(d *config.Config, s config.Config) { d.GPIO.ActiveLow = s.GPIO.ActiveLow },
	"broker":       func(d *config.Config, s config.Config) { d.MQTT.Broker = s.MQTT.Broker },
	"client-id":    func(d *config.Config, s config.Config) { d.MQTT.ClientID = s.MQTT.ClientID },
	"topic-prefix": func(d *config.Config, s config.Config) { d.MQTT.TopicPrefix = s.MQTT.TopicPrefix },
	"http":         func(d *config.Config, s config.Config) { d.HTTP.Addr = s.HTTP.Addr },
	"heartbeat":    func(d *config.Config, s config.Config) { d.Daemon.Heartbeat = s.Daemon.Heartbeat },
}

// parseFlags builds the effective config: defaults, then the TOML file
// named by -config, then any flags given explicitly.
func parseFlags(args []string) (config.Config, bool, error) {
	fs := flag.NewFlagSet("blinker", flag.ContinueOnError)
	f := config.Default()

	configPath := fs.String("config", "", "TOML config file (optional)")
	fs.Uint64Var(&f.Blink.DelayMs, "delay", f.Blink.DelayMs, "Blink half-period in milliseconds")
	fs.Uint64Var(&f.Blink.MinDelayMs, "min-delay", f.Blink.MinDelayMs, "Lower bound for requested delays (ms)")
	fs.Uint64Var(&f.Blink.MaxDelayMs, "max-delay", f.Blink.MaxDelayMs, "Upper bound for requested delays (ms)")
	fs.StringVar(&f.GPIO.Chip, "chip", f.GPIO.Chip, "GPIO chip name")
	fs.IntVar(&f.GPIO.Line, "line", f.GPIO.Line, "GPIO line offset driving the LED")
	fs.BoolVar(&f.GPIO.ActiveLow, "active-low", f.GPIO.ActiveLow, "LED lights when the line is driven low")
	fs.StringVar(&f.MQTT.Broker, "broker", f.MQTT.Broker, "MQTT broker address")
	fs.StringVar(&f.MQTT.ClientID, "client-id", f.MQTT.ClientID, "MQTT client ID")
	fs.StringVar(&f.MQTT.TopicPrefix, "topic-prefix", f.MQTT.TopicPrefix, "MQTT topic prefix")
	fs.StringVar(&f.HTTP.Addr, "http", f.HTTP.Addr, "HTTP status address (empty to disable)")
	fs.DurationVar((*time.Duration)(&f.Daemon.Heartbeat), "heartbeat", time.Duration(f.Daemon.Heartbeat), "Heartbeat interval (0 to disable)")
	printConfig := fs.Bool("print-config", false, "Print effective config as TOML and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, false, err
	}
	fs.Visit(func(fl *flag.Flag) {
		if apply, ok := flagOverrides[fl.Name]; ok {
			apply(&cfg, f)
		}
	})
	return cfg, *printConfig, nil
}

func run(cfg config.Config) error {
	for _, w := range cfg.Warnings() {
		log.Printf("config warning: %s", w)
	}

	// Initialize GPIO
	pin, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.GPIO.Line, cfg.GPIO.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := pin.Close(); err != nil {
			log.Printf("gpio close: %v", err)
		}
	}()

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	heartbeat := time.Duration(cfg.Daemon.Heartbeat)
	tracker := status.NewTracker(time.Now(), status.Config{
		DefaultDelayMs: cfg.Blink.DelayMs,
		MinDelayMs:     cfg.Blink.MinDelayMs,
		MaxDelayMs:     cfg.Blink.MaxDelayMs,
		GPIO:           fmt.Sprintf("%s:%d", cfg.GPIO.Chip, cfg.GPIO.Line),
		ActiveLow:      cfg.GPIO.ActiveLow,
		HeartbeatMs:    heartbeat.Milliseconds(),
		Broker:         cfg.MQTT.Broker,
		HTTPAddr:       cfg.HTTP.Addr,
	})

	// Delay requests from HTTP and MQTT are applied by the loop goroutine,
	// which is the only owner of the controller.
	delays := make(chan uint64, 4)
	if err := publisher.OnDelayCommand(func(ms uint64) { offerDelay(delays, ms) }); err != nil {
		log.Printf("mqtt delay command disabled: %v", err)
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, delays)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	d := &driver{
		ctrl:       blink.New(cfg.Controller()),
		pin:        pin,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    metrics.Default,
		heartbeat:  heartbeat,
		now:        time.Now,
		after:      time.After,
	}

	log.Printf("started: delay=%dms bounds=[%d,%d]ms gpio=%s:%d broker=%s heartbeat=%v",
		cfg.Blink.DelayMs, cfg.Blink.MinDelayMs, cfg.Blink.MaxDelayMs, cfg.GPIO.Chip, cfg.GPIO.Line, cfg.MQTT.Broker, heartbeat)

	return d.run(delays, sigCh)
}

// offerDelay hands a request to the loop without stalling the MQTT client.
func offerDelay(delays chan<- uint64, ms uint64) {
	select {
	case delays <- ms:
	default:
		log.Printf("delay request %dms dropped: loop busy", ms)
	}
}
