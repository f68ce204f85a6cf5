package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/roman-kulish/firelink/internal/frame"
)

// Store holds the latest Snapshot. It has a single writer (the inbound message loop)
// and any number of readers; the snapshot is swapped as a whole, readers never see a
// partially applied frame.
type Store struct {
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewStore creates a Store seeded with the default snapshot
func NewStore() *Store {
	return NewStoreWith(Default())
}

// NewStoreWith creates a Store seeded with the given snapshot
func NewStoreWith(initial Snapshot) *Store {
	s := Store{now: time.Now}
	s.current.Store(&initial)
	return &s
}

// Get returns a copy of the latest snapshot
func (s *Store) Get() Snapshot {
	return *s.current.Load()
}

// Update applies f to the latest snapshot and publishes the result. It reports
// whether f carried any telemetry.
func (s *Store) Update(f frame.Frame) bool {
	now := s.now().UTC()
	for {
		prev := s.current.Load()
		next, ok := Overlay(*prev, f, now)
		if !ok {
			return false
		}
		if s.current.CompareAndSwap(prev, &next) {
			return true
		}
	}
}
