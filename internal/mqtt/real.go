package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/smoker-controller/internal/logic"
)

const (
	defaultConnectTimeout = 10 * time.Second
	publishTimeout        = 5 * time.Second
	retryInterval         = 5 * time.Second
	closeTimeout          = 2 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker         string
	ClientID       string
	BufferSize     int           // messages queued for the sender, including while disconnected
	ConnectTimeout time.Duration // how long NewRealPublisher waits for the first connection
	Logger         *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker. Publish and PublishSystem
// only enqueue: a sender goroutine owned by the publisher delivers the queue
// while connected, so a slow or silent broker never stalls the caller. When
// the queue is full the oldest message is discarded.
type RealPublisher struct {
	client paho.Client
	logger *slog.Logger

	mu        sync.Mutex
	queue     *outbox
	connected bool
	connects  int

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewRealPublisher creates a publisher for the given broker. An unreachable
// broker is not an error: the client keeps retrying in the background.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt: broker address is required")
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	p := &RealPublisher{
		logger:  opts.Logger,
		queue:   newOutbox(opts.BufferSize),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(clientOpts)
	go p.run()

	token := p.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		p.logger.Warn("mqtt broker not reachable yet, buffering until connected", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		p.Close()
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.connects++
	if p.connects > 1 {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		p.queue.push(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: true})
	}
	pending := p.queue.len()
	p.mu.Unlock()

	p.logger.Info("mqtt connected", "queued", pending)
	p.notify()
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.logger.Warn("mqtt connection lost", "err", err)
}

// Publish queues a controller event for the broker. It never blocks.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	p.enqueue(bufferedMsg{topic: Topic, payload: payload})
	return nil
}

// PublishSystem queues a system lifecycle event for the broker. It never blocks.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	p.enqueue(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	if p.queue.push(msg) {
		p.logger.Warn("mqtt queue full, dropping oldest", "capacity", p.queue.capacity())
	}
	p.mu.Unlock()
	p.notify()
}

func (p *RealPublisher) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run is the sender goroutine. On Close it makes one last pass over the queue.
func (p *RealPublisher) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.done:
			p.flush()
			return
		}
	}
}

// flush sends queued messages while the connection is up.
func (p *RealPublisher) flush() {
	for {
		p.mu.Lock()
		if !p.connected {
			p.mu.Unlock()
			return
		}
		msg, ok := p.queue.pop()
		p.mu.Unlock()
		if !ok {
			return
		}

		token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warn("mqtt publish timed out", "topic", msg.topic)
			continue
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("mqtt publish failed", "topic", msg.topic, "err", err)
		}
	}
}

// Buffered returns the number of messages waiting for the sender.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Close gives the sender a bounded chance to deliver what is queued, then
// disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		select {
		case <-p.stopped:
		case <-time.After(closeTimeout):
			p.logger.Warn("mqtt sender did not finish before close", "queued", p.Buffered())
		}
		p.client.Disconnect(250)
	})
	return nil
}
