// Package ack provides the resettable one-shot signal used to hand an operator
// acknowledgment from the inbound message loop to the alert sender.
package ack

import (
	"context"
	"sync"
	"time"
)

// Signal is a boolean condition with wait-with-timeout and explicit reset. A Set that
// happens between Reset and Wait is never lost: Wait observes the channel that Set closed.
type Signal struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// New creates a cleared Signal
func New() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set raises the signal, waking any waiter. Setting an already raised signal is a no-op.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		s.set = true
		close(s.ch)
	}
}

// Reset clears the signal. Must be called before each transmit so that an
// acknowledgment left over from an earlier attempt is not taken for the current one.
func (s *Signal) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set {
		s.set = false
		s.ch = make(chan struct{})
	}
}

// IsSet reports whether the signal is raised
func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Wait blocks until the signal is raised, the timeout elapses or ctx is done.
// It returns true only if the signal was raised.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) bool {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}

	// the signal may have been raised at the same instant the timer fired
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
