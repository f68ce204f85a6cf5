package storage

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roman-kulish/firelink/internal/event"
)

const (
	defaultWriteTimeout  = 2 * time.Second
	defaultSinkQueueSize = 1024
)

// EventSink stores every emitted event under a session. Records are written by a
// single worker in the order they were emitted, so Emit never waits for the database.
// Records emitted while the queue is full, or after Close, are dropped and logged.
type EventSink struct {
	store     Store
	sessionID int64
	timeout   time.Duration
	queueSize int
	logger    *slog.Logger

	queue chan event.Record
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// WithSinkLogger sets the logger used to report failed writes
func WithSinkLogger(logger *slog.Logger) func(*EventSink) {
	return func(s *EventSink) {
		s.logger = logger.With(slog.String("component", "storage"))
	}
}

// WithSinkQueueSize sets how many records may wait to be written
func WithSinkQueueSize(n int) func(*EventSink) {
	return func(s *EventSink) {
		s.queueSize = n
	}
}

// NewEventSink creates a sink writing to sessionID and starts its writer
func NewEventSink(store Store, sessionID int64, options ...func(*EventSink)) *EventSink {
	s := EventSink{
		store:     store,
		sessionID: sessionID,
		timeout:   defaultWriteTimeout,
		queueSize: defaultSinkQueueSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}
	if s.queueSize <= 0 {
		s.queueSize = defaultSinkQueueSize
	}

	s.queue = make(chan event.Record, s.queueSize)

	s.wg.Add(1)
	go s.run()

	return &s
}

// Emit queues the record for writing
func (s *EventSink) Emit(r event.Record) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn("event not stored, sink closed", slog.String("event", r.Type.String()))
		return
	}

	select {
	case s.queue <- r:
	default:
		s.logger.Warn("event not stored, queue full", slog.String("event", r.Type.String()))
	}
}

// Close writes the queued records and stops the writer. The store itself is not
// closed.
func (s *EventSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *EventSink) run() {
	defer s.wg.Done()

	for r := range s.queue {
		s.write(r)
	}
}

func (s *EventSink) write(r event.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.store.StoreEvent(ctx, s.sessionID, r); err != nil {
		s.logger.Error("storing event",
			slog.String("event", r.Type.String()),
			slog.String("error", err.Error()))
	}
}
