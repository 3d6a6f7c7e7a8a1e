package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// bufferCapacity bounds how many messages are held while the broker is unreachable.
const bufferCapacity = 256

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed when the connection comes back.
type RealPublisher struct {
	client paho.Client
	topics Topics

	mu        sync.Mutex
	buf       *ringBuffer
	replaying bool // onConnect is draining buf
	onDelay   func(uint64)
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is not reachable within the connect timeout the publisher is still
// returned; paho keeps retrying in the background and messages are buffered.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "led-blinker"
	}
	p := &RealPublisher{
		topics: NewTopics(o.TopicPrefix),
		buf:    newRingBuffer(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(p.topics.System, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays buffered messages and restores the command subscription.
// Publishes that arrive during the replay are queued behind it so the broker
// sees messages in the order they were produced.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.replaying = true
	handler := p.onDelay
	p.mu.Unlock()

	for {
		p.mu.Lock()
		pending := p.buf.drainAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			break
		}
		p.mu.Unlock()

		log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
		for _, m := range pending {
			token := c.Publish(m.topic, m.qos, m.retained, m.payload)
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				log.Printf("mqtt: replay to %s failed: %v", m.topic, token.Error())
			}
		}
	}

	if handler != nil {
		if err := p.subscribeDelay(c, handler); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}
}

// Publish sends a toggle event to the MQTT broker.
func (p *RealPublisher) Publish(event ToggleEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.publish(p.topics.Events, 0, false, payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	if err := p.publish(p.topics.System, 1, event.Retained, payload); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if p.replaying || !p.client.IsConnectionOpen() {
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout on %s", topic)
	}
	return token.Error()
}

// OnDelayCommand subscribes to the delay command topic. Every valid command
// is passed to handler; malformed payloads are logged and dropped.
// The subscription is restored after a reconnect.
func (p *RealPublisher) OnDelayCommand(handler func(uint64)) error {
	p.mu.Lock()
	p.onDelay = handler
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		// onConnect subscribes once the broker is reachable.
		return nil
	}
	return p.subscribeDelay(p.client, handler)
}

func (p *RealPublisher) subscribeDelay(c paho.Client, handler func(uint64)) error {
	token := c.Subscribe(p.topics.DelaySet, 1, func(_ paho.Client, msg paho.Message) {
		v, err := ParseDelayCommand(msg.Payload())
		if err != nil {
			log.Printf("mqtt: ignoring delay command on %s: %v", msg.Topic(), err)
			return
		}
		handler(v)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", p.topics.DelaySet)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.topics.DelaySet, err)
	}
	return nil
}

// IsConnected reports whether the client currently holds an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	dropped := p.buf.len()
	p.mu.Unlock()
	if dropped > 0 {
		log.Printf("mqtt: closing with %d unsent messages", dropped)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
