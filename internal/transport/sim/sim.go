// Package sim implements a transport that needs no vehicle: Connect succeeds at once,
// a generator produces drifting telemetry and every Transmit is answered by a
// synthetic operator acknowledgment after a fixed delay.
package sim

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/firelink/internal/frame"
	"github.com/roman-kulish/firelink/internal/telemetry"
	"github.com/roman-kulish/firelink/internal/transport"
)

const (
	DefaultTick     = time.Second
	DefaultAckDelay = 500 * time.Millisecond

	// AckText is the text of the synthetic acknowledgment
	AckText = "FIRE_RECEIVED"

	driftPerTick = 0.00001 // degrees
	frameBuffer  = 64

	severityInfo = 6
)

// WithLogger sets the logger for the transport
func WithLogger(logger *slog.Logger) func(*Transport) {
	return func(t *Transport) {
		t.logger = logger.With(slog.String("transport", "sim"))
	}
}

// WithTick sets the telemetry generator period
func WithTick(d time.Duration) func(*Transport) {
	return func(t *Transport) {
		t.tick = d
	}
}

// WithAckDelay sets the delay between Transmit and the synthetic acknowledgment
func WithAckDelay(d time.Duration) func(*Transport) {
	return func(t *Transport) {
		t.ackDelay = d
	}
}

// WithOrigin sets the position the generator starts drifting from
func WithOrigin(lat, lon float64) func(*Transport) {
	return func(t *Transport) {
		t.lat, t.lon = lat, lon
	}
}

// WithoutAcks disables synthetic acknowledgments, the operator never answers
func WithoutAcks() func(*Transport) {
	return func(t *Transport) {
		t.ackDelay = -1
	}
}

// Transport is the simulated vehicle link
type Transport struct {
	tick     time.Duration
	ackDelay time.Duration
	lat, lon float64
	logger   *slog.Logger

	frames    chan frame.Frame
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pending map[*time.Timer]struct{}

	transmits atomic.Int64
}

// New creates a simulated transport
func New(options ...func(*Transport)) *Transport {
	t := Transport{
		tick:     DefaultTick,
		ackDelay: DefaultAckDelay,
		lat:      telemetry.DefaultLatitude,
		lon:      telemetry.DefaultLongitude,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		frames:   make(chan frame.Frame, frameBuffer),
		closed:   make(chan struct{}),
		pending:  make(map[*time.Timer]struct{}),
	}

	for _, option := range options {
		option(&t)
	}

	return &t
}

// Connect skips the handshake and starts the telemetry generator
func (t *Transport) Connect(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.closed:
		return transport.ErrClosed
	default:
	}

	if t.running {
		return nil
	}

	var ctx context.Context
	ctx, t.cancel = context.WithCancel(context.Background())
	t.running = true

	t.wg.Add(1)
	go t.generate(ctx)

	t.logger.Info("simulated link up", slog.Duration("tick", t.tick), slog.Duration("ackDelay", t.ackDelay))
	return nil
}

// Receive returns the next generated frame or ErrTimeout
func (t *Transport) Receive(ctx context.Context, timeout time.Duration) (frame.Frame, error) {
	if !t.isRunning() {
		return nil, transport.ErrNotConnected
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-t.frames:
		return f, nil
	case <-timer.C:
		return nil, transport.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, transport.ErrClosed
	}
}

// Transmit sends nothing; it schedules a synthetic acknowledgment instead
func (t *Transport) Transmit(_ context.Context, text []byte) error {
	if !t.isRunning() {
		return transport.ErrNotConnected
	}

	n := t.transmits.Add(1)
	t.logger.Debug("status text not sent in simulation mode", slog.Int64("transmit", n), slog.Int("bytes", len(text)))

	if t.ackDelay < 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var timer *time.Timer
	timer = time.AfterFunc(t.ackDelay, func() {
		t.mu.Lock()
		_, ok := t.pending[timer]
		delete(t.pending, timer)
		t.mu.Unlock()

		if !ok {
			return // cancelled
		}

		select {
		case t.frames <- frame.StatusText{Severity: severityInfo, Text: []byte(AckText)}:
		case <-t.closed:
		}
	})
	t.pending[timer] = struct{}{}

	return nil
}

// CancelPending stops all synthetic acknowledgments not yet delivered
func (t *Transport) CancelPending() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for timer := range t.pending {
		timer.Stop()
	}
	clear(t.pending)
}

// Transmits returns how many times Transmit was called
func (t *Transport) Transmits() int64 {
	return t.transmits.Load()
}

// Disconnect stops the generator and drops pending acknowledgments. Connect starts
// the generator again.
func (t *Transport) Disconnect() error {
	t.CancelPending()

	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.running = false
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()

	return nil
}

// Close stops the generator and drops pending acknowledgments
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.CancelPending()

		t.mu.Lock()
		close(t.closed)
		cancel := t.cancel
		t.running = false
		t.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		t.wg.Wait()

		t.logger.Info("simulated link closed")
	})

	return nil
}

func (t *Transport) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Transport) generate(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	start := time.Now()
	lat, lon := t.lat, t.lon
	var heading uint16

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		elapsed := time.Since(start).Seconds()
		lat += driftPerTick
		lon += driftPerTick
		heading = (heading + 1) % 360
		alt := 150 + 10*math.Sin(elapsed)
		yaw := 15 * math.Sin(elapsed) * math.Pi / 180

		frames := []frame.Frame{
			frame.Position{
				LatE7: int32(math.Round(lat * 1e7)),
				LonE7: int32(math.Round(lon * 1e7)),
				AltMM: int32(math.Round(alt * 1000)),
			},
			frame.Heading{Degrees: heading},
			frame.Orientation{Yaw: float32(yaw)},
		}

		for _, f := range frames {
			select {
			case t.frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}
}
