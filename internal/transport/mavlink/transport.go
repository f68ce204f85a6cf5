// Package mavlink implements the vehicle link over MAVLink using gomavlib for framing
// and endpoints. Only the messages the ground link consumes are translated to frames.
package mavlink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v2"
	"github.com/bluenviron/gomavlib/v2/pkg/dialects/common"

	"github.com/roman-kulish/firelink/internal/frame"
	"github.com/roman-kulish/firelink/internal/transport"
)

var (
	errNoHeartbeat = errors.New("no heartbeat received")
	errLinkClosed  = errors.New("link channel closed")
)

// WithLogger sets the logger for the transport
func WithLogger(logger *slog.Logger) func(*Transport) {
	return func(t *Transport) {
		t.logger = logger.With(slog.String("transport", "mavlink"))
	}
}

// Transport is the MAVLink vehicle link
type Transport struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	node   *gomavlib.Node
	closed bool

	lastText []byte
	lastID   uint16
}

// New creates a MAVLink transport; no I/O happens until Connect
func New(config Config, options ...func(*Transport)) (*Transport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	t := Transport{
		config: config.withDefaults(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&t)
	}

	return &t, nil
}

// Connect opens the endpoint and waits for the first heartbeat from the vehicle.
// Calling Connect again replaces the previous node.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return transport.ErrClosed
	}

	if t.node != nil {
		t.node.Close()
		t.node = nil
	}

	endpoint, err := endpointFor(t.config.Address, t.config.Baud)
	if err != nil {
		return transport.NewConnectionError(t.config.Address, err)
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:      []gomavlib.EndpointConf{endpoint},
		Dialect:        common.Dialect,
		OutVersion:     gomavlib.V2,
		OutSystemID:    t.config.LocalSystemID,
		OutComponentID: t.config.LocalComponentID,
	})
	if err != nil {
		return transport.NewConnectionError(t.config.Address, err)
	}

	t.logger.Info("waiting for heartbeat", slog.String("address", t.config.Address), slog.Duration("timeout", t.config.HandshakeTimeout))

	if err = t.awaitHeartbeat(ctx, node); err != nil {
		node.Close()
		return transport.NewConnectionError(t.config.Address, err)
	}

	t.node = node
	t.logger.Info("vehicle connected", slog.String("address", t.config.Address))

	return nil
}

func (t *Transport) awaitHeartbeat(ctx context.Context, node *gomavlib.Node) error {
	timer := time.NewTimer(t.config.HandshakeTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return fmt.Errorf("%w within %s", errNoHeartbeat, t.config.HandshakeTimeout)

		case evt, ok := <-node.Events():
			if !ok {
				return errLinkClosed
			}
			e, isFrame := evt.(*gomavlib.EventFrame)
			if !isFrame || !t.accepts(e) {
				continue
			}
			if _, ok = e.Message().(*common.MessageHeartbeat); ok {
				return nil
			}
		}
	}
}

// Receive returns the next frame from the vehicle
func (t *Transport) Receive(ctx context.Context, timeout time.Duration) (frame.Frame, error) {
	node, err := t.current()
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timer.C:
			return nil, transport.ErrTimeout

		case evt, ok := <-node.Events():
			if !ok {
				return nil, transport.NewReceiveError(errLinkClosed)
			}

			switch e := evt.(type) {
			case *gomavlib.EventFrame:
				if !t.accepts(e) {
					continue
				}
				f := decode(e.Message())
				if hb, ok := f.(frame.Heartbeat); ok {
					hb.SystemID, hb.ComponentID = e.SystemID(), e.ComponentID()
					f = hb
				}
				return f, nil

			case *gomavlib.EventParseError:
				return nil, transport.NewDecodeError(e.Error)

			case *gomavlib.EventChannelClose:
				return nil, transport.NewReceiveError(errLinkClosed)
			}
		}
	}
}

// Transmit broadcasts text as STATUSTEXT at warning severity. Identical text is sent
// with the same chunk id, so retransmissions are byte for byte identical.
func (t *Transport) Transmit(_ context.Context, text []byte) error {
	node, err := t.current()
	if err != nil {
		return err
	}

	for _, msg := range statusTextChunks(text, t.chunkID(text)) {
		node.WriteMessageAll(msg)
	}

	return nil
}

// Disconnect releases the endpoint after the link was lost; Connect opens a new one
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.node != nil {
		t.node.Close()
		t.node = nil
		t.logger.Info("vehicle link released")
	}

	return nil
}

// Close releases the endpoint. The transport cannot be reconnected afterwards.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.node != nil {
		t.node.Close()
		t.node = nil
		t.logger.Info("vehicle link closed")
	}

	return nil
}

func (t *Transport) current() (*gomavlib.Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.closed:
		return nil, transport.ErrClosed
	case t.node == nil:
		return nil, transport.ErrNotConnected
	}
	return t.node, nil
}

func (t *Transport) accepts(e *gomavlib.EventFrame) bool {
	return t.config.RemoteSystemID == 0 || e.SystemID() == t.config.RemoteSystemID
}

func (t *Transport) chunkID(text []byte) uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !bytes.Equal(text, t.lastText) {
		t.lastID++
		if t.lastID == 0 {
			t.lastID = 1
		}
		t.lastText = bytes.Clone(text)
	}
	return t.lastID
}
