// Package link owns the vehicle link: the transport lifecycle, the connection state
// and the inbound message loop that feeds the telemetry store and the
// acknowledgment signal.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/firelink/internal/ack"
	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/telemetry"
	"github.com/roman-kulish/firelink/internal/transport"
)

const (
	// DefaultReceiveTimeout bounds a single receive so the loop observes shutdown
	DefaultReceiveTimeout = time.Second

	// AckMarker is the text the operator sends back once an alert is received
	AckMarker = "FIRE_RECEIVED"
)

var (
	// ErrAlreadyConnected is returned by Connect while connecting or connected
	ErrAlreadyConnected = errors.New("already connected")

	// ErrClosed is returned by Connect after Close
	ErrClosed = errors.New("connection closed")
)

// WithLogger sets the logger for the connection
func WithLogger(logger *slog.Logger) func(*Connection) {
	return func(c *Connection) {
		c.logger = logger.With(slog.String("component", "link"))
	}
}

// WithReceiveTimeout sets the per-iteration receive timeout of the inbound loop
func WithReceiveTimeout(d time.Duration) func(*Connection) {
	return func(c *Connection) {
		c.receiveTimeout = d
	}
}

// WithEvents sets the sink for connection events
func WithEvents(sink event.Sink) func(*Connection) {
	return func(c *Connection) {
		c.events = sink
	}
}

// WithAckMarker overrides the acknowledgment marker
func WithAckMarker(marker string) func(*Connection) {
	return func(c *Connection) {
		c.marker = marker
	}
}

// Stats are counters of the inbound message loop
type Stats struct {
	Frames       int64 // Frames dispatched
	DecodeErrors int64 // Frames dropped as undecodable
	Acks         int64 // Acknowledgments detected
}

// Connection manages a Transport and runs the inbound message loop while connected
type Connection struct {
	transport transport.Transport
	store     *telemetry.Store
	signal    *ack.Signal
	events    event.Sink
	logger    *slog.Logger

	receiveTimeout time.Duration
	marker         string

	mu     sync.Mutex // serializes Connect and Close
	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup

	frames       atomic.Int64
	decodeErrors atomic.Int64
	acks         atomic.Int64
}

// New creates a disconnected Connection with a discard logger
func New(t transport.Transport, store *telemetry.Store, signal *ack.Signal, options ...func(*Connection)) *Connection {
	c := Connection{
		transport:      t,
		store:          store,
		signal:         signal,
		events:         event.Discard,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		receiveTimeout: DefaultReceiveTimeout,
		marker:         AckMarker,
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Connect performs the transport handshake and starts the inbound message loop. On
// failure the connection stays Disconnected and no loop is started. Connect is also
// the way back after the loop stopped on a link error.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case Connecting, Connected:
		return ErrAlreadyConnected
	case Closed:
		return ErrClosed
	}

	c.wg.Wait() // a loop that stopped on a link error may still be returning
	c.state.Store(int32(Connecting))

	if err := c.transport.Connect(ctx); err != nil {
		c.state.Store(int32(Disconnected))
		c.logger.Error("connection failed", slog.String("error", err.Error()))
		c.events.Emit(event.New(event.ConnectionFailed, map[string]any{"error": err.Error()}))
		return fmt.Errorf("connecting: %w", err)
	}

	var loopCtx context.Context
	loopCtx, c.cancel = context.WithCancel(context.Background())
	c.state.Store(int32(Connected))

	c.wg.Add(1)
	go c.receiveLoop(loopCtx)

	c.logger.Info("connection established")
	c.events.Emit(event.New(event.ConnectionEstablished, nil))

	return nil
}

// Close stops the inbound message loop, waits for it to exit and only then releases
// the transport. It is safe to call when never connected and more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == Closed {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.transport.Close()
	c.state.Store(int32(Closed))

	c.logger.Info("connection closed")
	c.events.Emit(event.New(event.ConnectionClosed, nil))

	if err != nil {
		return fmt.Errorf("closing transport: %w", err)
	}
	return nil
}

// State returns the current connection state
func (c *Connection) State() State {
	return State(c.state.Load())
}

// IsConnected returns true while the inbound message loop is running
func (c *Connection) IsConnected() bool {
	return c.State() == Connected
}

// Telemetry returns the latest vehicle snapshot
func (c *Connection) Telemetry() telemetry.Snapshot {
	return c.store.Get()
}

// Stats returns the inbound message loop counters
func (c *Connection) Stats() Stats {
	return Stats{
		Frames:       c.frames.Load(),
		DecodeErrors: c.decodeErrors.Load(),
		Acks:         c.acks.Load(),
	}
}
