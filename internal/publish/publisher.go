// Package publish pushes link status, telemetry and events to the presentation layer
// over MQTT.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/telemetry"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"

	defaultTimeout   = 5 * time.Second
	defaultQueueSize = 256
)

var (
	ErrQueueFull = errors.New("publish queue full")
	ErrClosed    = errors.New("publisher closed")
)

// Config describes the broker connection
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

func (c Config) Validate() error {
	if c.Broker == "" {
		return errors.New("mqtt broker required")
	}
	if c.ClientID == "" {
		return errors.New("mqtt client id required")
	}
	if strings.Trim(c.TopicPrefix, "/") == "" {
		return errors.New("mqtt topic prefix required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", c.QoS)
	}
	return nil
}

// WithLogger sets the logger for the publisher
func WithLogger(logger *slog.Logger) func(*Publisher) {
	return func(p *Publisher) {
		p.logger = logger.With(slog.String("component", "publish"))
	}
}

// WithTimeout bounds how long a single publish waits for the broker
func WithTimeout(d time.Duration) func(*Publisher) {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// WithQueueSize sets how many messages may wait for the broker before new ones are dropped
func WithQueueSize(n int) func(*Publisher) {
	return func(p *Publisher) {
		p.queueSize = n
	}
}

type outbound struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// Publisher is an event.Sink that also carries telemetry and the retained link status.
// Events and telemetry are queued and published by a single worker, so a slow or
// unreachable broker never holds up the caller; when the queue is full new messages
// are dropped.
type Publisher struct {
	client    mqtt.Client
	topics    topics
	qos       byte
	timeout   time.Duration
	queueSize int
	logger    *slog.Logger

	queue  chan outbound
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New creates a publisher with a paho client. The broker is told to publish
// "disconnected" on the status topic if the service drops off.
func New(c Config, options ...func(*Publisher)) (*Publisher, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	t := newTopics(c.TopicPrefix)
	opts := mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetKeepAlive(30*time.Second).
		SetOrderMatters(false).
		SetWill(t.status, StatusDisconnected, c.QoS, true)

	p := NewWithClient(nil, c.TopicPrefix, c.QoS, options...)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.logger.Info("mqtt connected", slog.String("broker", c.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Warn("mqtt connection lost", slog.String("error", err.Error()))
	})

	p.client = mqtt.NewClient(opts)
	return p, nil
}

// NewWithClient creates a publisher on an existing client
func NewWithClient(client mqtt.Client, prefix string, qos byte, options ...func(*Publisher)) *Publisher {
	p := Publisher{
		client:    client,
		topics:    newTopics(prefix),
		qos:       qos,
		timeout:   defaultTimeout,
		queueSize: defaultQueueSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}
	if p.queueSize <= 0 {
		p.queueSize = defaultQueueSize
	}

	p.queue = make(chan outbound, p.queueSize)
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go p.run()

	return &p
}

func (p *Publisher) run() {
	defer p.wg.Done()

	for m := range p.queue {
		if err := p.wait(p.ctx, p.client.Publish(m.topic, m.qos, m.retained, m.payload)); err != nil {
			p.logger.Warn("publishing", slog.String("topic", m.topic), slog.String("error", err.Error()))
		}
	}
}

func (p *Publisher) enqueue(m outbound) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Connect starts the client and waits for the broker at most for the publish
// timeout. With connect retry enabled the client keeps trying in the background and
// queued messages are delivered once the broker is reachable.
func (p *Publisher) Connect(ctx context.Context) error {
	return p.wait(ctx, p.client.Connect())
}

// PublishStatus sets the retained link status and waits for the broker
func (p *Publisher) PublishStatus(ctx context.Context, connected bool) error {
	return p.wait(ctx, p.client.Publish(p.topics.status, p.qos, true, statusText(connected)))
}

// PublishTelemetry queues a snapshot as JSON. It does not wait for the broker and
// returns ErrQueueFull when the snapshot was dropped.
func (p *Publisher) PublishTelemetry(s telemetry.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling telemetry: %w", err)
	}
	return p.enqueue(outbound{topic: p.topics.telemetry, payload: payload})
}

// Emit queues the record under its type; connection events also update the
// retained status. Records that do not fit in the queue are dropped.
func (p *Publisher) Emit(r event.Record) {
	payload, err := json.Marshal(r)
	if err != nil {
		p.logger.Error("marshalling event", slog.String("event", r.Type.String()), slog.String("error", err.Error()))
		return
	}

	messages := []outbound{{topic: p.topics.event(r.Type), qos: p.qos, payload: payload}}
	if connected, ok := statusFor(r.Type); ok {
		messages = append(messages, outbound{
			topic:    p.topics.status,
			qos:      p.qos,
			retained: true,
			payload:  []byte(statusText(connected)),
		})
	}

	for _, m := range messages {
		if err = p.enqueue(m); err != nil {
			p.logger.Warn("event not published", slog.String("event", r.Type.String()), slog.String("error", err.Error()))
		}
	}
}

// Close delivers what is queued, waiting at most for the publish timeout, then
// publishes the disconnected status and disconnects from the broker.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	drain := time.AfterFunc(p.timeout, p.cancel)
	p.wg.Wait()
	drain.Stop()
	p.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err := p.PublishStatus(ctx, false)
	p.client.Disconnect(250)
	return err
}

func (p *Publisher) wait(ctx context.Context, token mqtt.Token) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("waiting for broker: %w", ctx.Err())
	}
}

func statusText(connected bool) string {
	if connected {
		return StatusConnected
	}
	return StatusDisconnected
}

func statusFor(t event.Type) (connected bool, ok bool) {
	switch t {
	case event.ConnectionEstablished:
		return true, true
	case event.ConnectionFailed, event.ConnectionLost, event.ConnectionClosed:
		return false, true
	default:
		return false, false
	}
}

type topics struct {
	prefix    string
	status    string
	telemetry string
}

func newTopics(prefix string) topics {
	prefix = strings.Trim(prefix, "/")
	return topics{
		prefix:    prefix,
		status:    prefix + "/status",
		telemetry: prefix + "/telemetry",
	}
}

func (t topics) event(et event.Type) string {
	return t.prefix + "/events/" + et.String()
}
