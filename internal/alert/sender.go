package alert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/firelink/internal/ack"
	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/transport"
)

// WithLogger sets the logger for the sender
func WithLogger(logger *slog.Logger) func(*Sender) {
	return func(s *Sender) {
		s.logger = logger.With(slog.String("component", "alert"))
	}
}

// WithEvents sets the sink for delivery events
func WithEvents(sink event.Sink) func(*Sender) {
	return func(s *Sender) {
		s.events = sink
	}
}

// WithClock overrides the clock used to stamp payloads
func WithClock(now func() time.Time) func(*Sender) {
	return func(s *Sender) {
		s.now = now
	}
}

// Sender delivers alerts over a transport and waits for the operator acknowledgment
// raised on signal by the inbound message loop. Only one delivery runs at a time.
type Sender struct {
	transport transport.Transport
	signal    *ack.Signal
	policy    RetryPolicy
	events    event.Sink
	logger    *slog.Logger
	now       func() time.Time

	inFlight atomic.Bool
}

// NewSender creates a Sender. The policy is copied.
func NewSender(t transport.Transport, signal *ack.Signal, policy RetryPolicy, options ...func(*Sender)) (*Sender, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("alert sender: %w", err)
	}

	s := Sender{
		transport: t,
		signal:    signal,
		policy:    append(RetryPolicy(nil), policy...),
		events:    event.Discard,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Policy returns a copy of the retry schedule
func (s *Sender) Policy() RetryPolicy {
	return append(RetryPolicy(nil), s.policy...)
}

// InFlight reports whether a delivery is running
func (s *Sender) InFlight() bool {
	return s.inFlight.Load()
}

// SendAlert builds one alert and transmits the same bytes on every attempt until the
// acknowledgment arrives or the schedule is exhausted. It returns true only when the
// acknowledgment was observed. A call made while another delivery is running is
// rejected and returns false at once.
func (s *Sender) SendAlert(ctx context.Context, lat, lon, alt, confidence float64) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("alert rejected, another delivery is in flight")
		s.events.Emit(event.New(event.FireCoordsRejected, map[string]any{
			"lat": lat, "lon": lon, "alt": alt, "confidence": confidence,
		}))
		return false
	}
	defer s.inFlight.Store(false)

	payload := NewPayload(lat, lon, alt, confidence, s.now())
	text, err := s.encode(payload)
	if err != nil {
		s.logger.Error("alert not sent", slog.String("error", err.Error()))
		s.events.Emit(event.New(event.SendCoordsError, map[string]any{
			"error":   err.Error(),
			"payload": payload,
		}))
		return false
	}

	attempts := s.policy.Attempts()
	for i, timeout := range s.policy {
		attempt := i + 1

		s.logger.Info("sending alert",
			slog.Int("attempt", attempt),
			slog.Int("attempts", attempts),
			slog.Duration("timeout", timeout),
			slog.String("payload", string(text)))
		s.events.Emit(event.New(event.FireCoordsAttempt, map[string]any{
			"attempt":  attempt,
			"attempts": attempts,
			"timeout":  timeout.String(),
		}))

		if s.attempt(ctx, text, timeout) {
			s.cancelPending()

			s.logger.Info("alert acknowledged", slog.Int("attempt", attempt))
			s.events.Emit(event.New(event.FireCoordsSent, map[string]any{
				"attempt": attempt,
				"payload": payload,
			}))
			return true
		}

		if ctx.Err() != nil {
			break
		}

		s.logger.Warn("no acknowledgment", slog.Int("attempt", attempt), slog.Duration("timeout", timeout))
	}

	data := map[string]any{
		"attempts": attempts,
		"schedule": s.policy.Strings(),
		"payload":  payload,
	}
	if err := ctx.Err(); err != nil {
		data["error"] = err.Error()
	}

	s.logger.Error("alert delivery failed", slog.Int("attempts", attempts))
	s.events.Emit(event.New(event.FireCoordsFailed, data))

	return false
}

func (s *Sender) encode(p Payload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p.Marshal()
}

// attempt runs a single reset, transmit and wait cycle. Deferred acknowledgments of
// earlier transmissions are cancelled and the signal is reset before transmitting, so
// only an acknowledgment of this transmission can satisfy the wait. A failed transmit
// is spent as a timeout, without watching the signal.
func (s *Sender) attempt(ctx context.Context, text []byte, timeout time.Duration) bool {
	s.cancelPending()
	s.signal.Reset()

	if err := s.transport.Transmit(ctx, text); err != nil {
		s.logger.Warn("transmit failed", slog.String("error", err.Error()))

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		return false
	}

	return s.signal.Wait(ctx, timeout)
}

func (s *Sender) cancelPending() {
	if pc, ok := s.transport.(transport.PendingCanceler); ok {
		pc.CancelPending()
	}
}
