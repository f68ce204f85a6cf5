package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultBatchSize is the number of track points fetched per query
const DefaultBatchSize = 1000

var maxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// TrackOption configures a track reader with specific filtering criteria
type TrackOption func(*SqliteTrackReader)

// WithTimeRange restricts the track to points within [start, end]
func WithTimeRange(start, end time.Time) TrackOption {
	return func(r *SqliteTrackReader) {
		r.startTime = &start
		r.endTime = &end
	}
}

// WithStartTime restricts the track to points at or after start
func WithStartTime(start time.Time) TrackOption {
	return func(r *SqliteTrackReader) {
		r.startTime = &start
	}
}

// WithEndTime restricts the track to points at or before end
func WithEndTime(end time.Time) TrackOption {
	return func(r *SqliteTrackReader) {
		r.endTime = &end
	}
}

// WithBatchSize sets how many points are fetched per query
func WithBatchSize(n int) TrackOption {
	return func(r *SqliteTrackReader) {
		r.batchSize = n
	}
}

// SqliteTrackReader implements TrackReader for the SQLite database backend. It pages
// through the telemetry table by ID so no query holds the database for long.
type SqliteTrackReader struct {
	db *sql.DB

	sessionID int64
	session   *Session
	batchSize int

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter

	batch   []*telemetryData
	pos     int
	lastID  int64
	drained bool
	current *TrackPoint
	err     error
}

func newSqliteTrackReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...TrackOption) (*SqliteTrackReader, error) {
	tr := &SqliteTrackReader{
		db:        db,
		sessionID: sessionID,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(tr)
	}
	if err := tr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return tr, nil
}

func (tr *SqliteTrackReader) init(ctx context.Context) error {
	if tr.db == nil {
		return errors.New("database connection required")
	}
	if tr.sessionID <= 0 {
		return errors.New("session ID required")
	}
	if tr.batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", tr.batchSize)
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: tr.loadSession},
		{msg: "initializing filters", fn: tr.initFilters},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (tr *SqliteTrackReader) loadSession(ctx context.Context) (err error) {
	tr.session, err = loadSession(ctx, tr.db, tr.sessionID)
	return
}

func (tr *SqliteTrackReader) initFilters(context.Context) error {
	if tr.startTime == nil {
		start := time.Time{}
		tr.startTime = &start
	}
	if tr.endTime == nil {
		end := maxTime
		tr.endTime = &end
	}
	if tr.startTime.After(*tr.endTime) {
		return fmt.Errorf("start time %s is after end time %s", tr.startTime, tr.endTime)
	}

	start, end := tr.startTime.UTC(), tr.endTime.UTC()
	tr.startTime, tr.endTime = &start, &end
	return nil
}

func (tr *SqliteTrackReader) fetch(ctx context.Context) (err error) {
	rows, err := tr.db.QueryContext(ctx, selectTrackSQL, tr.sessionID, tr.lastID, *tr.startTime, *tr.endTime, tr.batchSize)
	if err != nil {
		return fmt.Errorf("querying track: %w", err)
	}
	defer closeWithError(rows, &err)

	tr.batch = tr.batch[:0]
	tr.pos = 0

	for rows.Next() {
		var d telemetryData
		if err = rows.Scan(&d.ID, &d.Timestamp, &d.Latitude, &d.Longitude, &d.Altitude, &d.Heading, &d.Yaw, &d.Pitch, &d.Roll); err != nil {
			return fmt.Errorf("scanning track point: %w", err)
		}
		tr.batch = append(tr.batch, &d)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("iterating track: %w", err)
	}

	if len(tr.batch) < tr.batchSize {
		tr.drained = true
	}
	if n := len(tr.batch); n > 0 {
		tr.lastID = tr.batch[n-1].ID
	}
	return nil
}

func (tr *SqliteTrackReader) Session() *Session {
	return tr.session
}

func (tr *SqliteTrackReader) Next(ctx context.Context) bool {
	if tr.err != nil || tr.db == nil {
		return false
	}

	if tr.pos >= len(tr.batch) {
		if tr.drained {
			tr.current = nil
			return false
		}

		select {
		case <-ctx.Done():
			tr.err = ctx.Err()
			return false
		default:
		}

		if tr.err = tr.fetch(ctx); tr.err != nil {
			return false
		}
		if len(tr.batch) == 0 {
			tr.current = nil
			return false
		}
	}

	tr.current = tr.batch[tr.pos].toTrackPoint()
	tr.pos++
	return true
}

func (tr *SqliteTrackReader) Current() *TrackPoint {
	return tr.current
}

func (tr *SqliteTrackReader) Error() error {
	return tr.err
}

func (tr *SqliteTrackReader) Close() error {
	tr.batch = nil
	tr.current = nil
	tr.db = nil
	return nil
}
