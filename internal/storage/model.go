package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/roman-kulish/firelink/internal/telemetry"
)

// ErrNotFound is returned when a session does not exist
var ErrNotFound = errors.New("not found")

// Session is a single run of the ground link service
type Session struct {
	ID        int64
	StartTime time.Time
	Mode      string
	Vehicle   string
	Config    *string
}

// TrackPoint is a stored telemetry snapshot
type TrackPoint struct {
	ID int64
	telemetry.Snapshot
}

type sessionData struct {
	ID        int64
	StartTime time.Time
	Mode      string
	Vehicle   string
	Config    sql.NullString
}

type telemetryData struct {
	ID        int64
	SessionID int64
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	Altitude  float64
	Heading   float64
	Yaw       float64
	Pitch     float64
	Roll      float64
}

type eventData struct {
	ID        int64
	SessionID int64
	Timestamp time.Time
	Type      string
	Data      sql.NullString
}
