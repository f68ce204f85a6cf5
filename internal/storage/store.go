package storage

import (
	"context"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/telemetry"
)

// Store provides an interface for managing ground link data storage operations.
// It handles sessions, telemetry snapshots and event records in a thread-safe manner.
// All operations that write to the database should be considered atomic.
type Store interface {
	// CreateSession initializes a new link session and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - mode: Link mode (e.g., "mavlink", "simulation")
	//   - vehicle: Vehicle endpoint (e.g., "serial:/dev/ttyTHS1")
	//   - config: Optional service configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, mode, vehicle string, config any) (sessionID int64, err error)

	// Session retrieves a specific link session by its ID.
	//
	// Returns:
	//   - session: Pointer to session data
	//   - error: ErrNotFound if there is no such session, or if retrieval fails
	Session(ctx context.Context, id int64) (session *Session, err error)

	// Sessions returns all link sessions stored in the database.
	// Results are ordered by start time in ascending order.
	Sessions(ctx context.Context) (sessions []*Session, err error)

	// StoreTelemetry saves a vehicle telemetry snapshot for a specific session.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - sessionID: ID of the session this telemetry belongs to
	//   - s: Snapshot to store; a zero timestamp is stored as the current time
	//
	// Returns:
	//   - telemetryID: Unique identifier for the stored telemetry record
	//   - error: If storage fails or context is cancelled
	StoreTelemetry(ctx context.Context, sessionID int64, s telemetry.Snapshot) (telemetryID int64, err error)

	// StoreEvent saves an event record for a specific session. The record data is
	// stored as JSON.
	StoreEvent(ctx context.Context, sessionID int64, r event.Record) (eventID int64, err error)

	// ReadTrack returns a reader over the stored telemetry of a session in time order.
	// The returned reader must be closed after use.
	ReadTrack(ctx context.Context, sessionID int64, opts ...TrackOption) (TrackReader, error)

	// ReadEvents returns the stored events of a session in time order, optionally
	// restricted to the given types.
	ReadEvents(ctx context.Context, sessionID int64, types ...event.Type) ([]event.Record, error)

	// Close releases all database connections and resources.
	// After Close is called, the store instance cannot be reused.
	// It is safe to call Close multiple times.
	Close() error
}

// TrackReader iterates over the telemetry track of a session
type TrackReader interface {
	// Session returns metadata about the session this reader is accessing.
	Session() *Session

	// Next advances the iterator and returns true if there is another point to read,
	// false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current point. If called after Next() returns false, the
	// behavior is undefined.
	Current() *TrackPoint

	// Error returns any error that occurred during iteration.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}
