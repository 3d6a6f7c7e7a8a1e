package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/led-blinker/internal/blink"
	"github.com/sweeney/led-blinker/internal/gpio"
	"github.com/sweeney/led-blinker/internal/metrics"
	"github.com/sweeney/led-blinker/internal/mqtt"
	"github.com/sweeney/led-blinker/internal/status"
)

// driver owns the blink controller and is its only caller. Each cycle it
// drives the pin for the current state, waits the blink delay, then toggles.
type driver struct {
	ctrl       *blink.Controller
	pin        gpio.Writer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // optional
	tracker    *status.Tracker
	metrics    *metrics.Recorder
	heartbeat  time.Duration // 0 disables
	now        func() time.Time
	after      func(time.Duration) <-chan time.Time
}

// run blocks until a signal arrives on sig. Delay requests received while
// waiting are applied immediately and take effect from the next wait.
func (d *driver) run(delays <-chan uint64, sig <-chan os.Signal) error {
	lastHeartbeat := d.now()
	d.refreshStatus()
	d.publishSystem("STARTUP", "", true)

	for {
		d.drive()

		wait := d.after(d.ctrl.Delay())
		for waiting := true; waiting; {
			select {
			case s := <-sig:
				d.shutdown(s)
				return nil
			case ms := <-delays:
				d.applyDelay(ms)
			case <-wait:
				waiting = false
			}
		}

		state := d.ctrl.Toggle()
		d.metrics.Toggled()
		t := d.now()
		event := mqtt.ToggleEvent{
			Timestamp:   t,
			State:       state,
			ToggleCount: d.ctrl.ToggleCount(),
			DelayMs:     d.ctrl.DelayMs(),
		}
		if err := d.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't stop blinking on publish failure
		}

		if d.heartbeat > 0 && t.Sub(lastHeartbeat) >= d.heartbeat {
			lastHeartbeat = t
			log.Printf("heartbeat: toggles=%d delay=%dms", d.ctrl.ToggleCount(), d.ctrl.DelayMs())
			d.publishSystem("HEARTBEAT", "", false)
		}
	}
}

// drive writes the level for the current state and refreshes status consumers.
func (d *driver) drive() {
	state := d.ctrl.State()
	if err := d.pin.Set(blink.StateToLevel(state)); err != nil {
		log.Printf("gpio write error: %v", err)
	}
	d.metrics.Observe(state, d.ctrl.DelayMs())
	d.refreshStatus()
}

func (d *driver) applyDelay(ms uint64) {
	d.ctrl.SetDelay(ms)
	applied := d.ctrl.DelayMs()
	d.metrics.RecordDelayRequest(ms, applied)
	if applied != ms {
		log.Printf("delay request %dms clamped to %dms", ms, applied)
	} else {
		log.Printf("delay set to %dms", applied)
	}
	d.refreshStatus()
}

func (d *driver) refreshStatus() {
	d.tracker.Update(d.ctrl.State(), d.ctrl.DelayMs(), d.ctrl.ToggleCount())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d *driver) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	if err := d.pin.Set(false); err != nil {
		log.Printf("gpio write error: %v", err)
	}
	d.refreshStatus()
	d.tracker.SetStopped()
	d.publishSystem("SHUTDOWN", signalName, true)
}

// publishSystem sends a lifecycle event carrying a full status snapshot.
func (d *driver) publishSystem(event, reason string, retained bool) {
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}
