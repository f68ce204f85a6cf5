package telemetry

import (
	"math"
	"time"

	"github.com/roman-kulish/firelink/internal/frame"
)

const (
	DefaultLatitude  = 50.4501
	DefaultLongitude = 30.5234
	DefaultAltitude  = 150.0
)

// Snapshot is the point-in-time vehicle state, position and orientation. It is a value:
// every update produces a new Snapshot.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"` // Time of the last applied frame, zero for defaults
	Latitude  float64   `json:"lat"`       // GPS latitude in degrees
	Longitude float64   `json:"lon"`       // GPS longitude in degrees
	Altitude  float64   `json:"alt"`       // Altitude in meters
	Heading   float64   `json:"heading"`   // Heading in degrees
	Yaw       float64   `json:"yaw"`       // Yaw angle in degrees
	Pitch     float64   `json:"pitch"`     // Pitch angle in degrees
	Roll      float64   `json:"roll"`      // Roll angle in degrees
}

// Default returns the snapshot reported before any frame has been received
func Default() Snapshot {
	return Snapshot{
		Latitude:  DefaultLatitude,
		Longitude: DefaultLongitude,
		Altitude:  DefaultAltitude,
	}
}

// Overlay returns a copy of s with the fields carried by f applied on top. Fields that
// the frame kind does not carry are left as they were. The second result is false when
// f carries no telemetry.
func Overlay(s Snapshot, f frame.Frame, now time.Time) (Snapshot, bool) {
	switch v := f.(type) {
	case frame.Position:
		s.Latitude = float64(v.LatE7) / 1e7
		s.Longitude = float64(v.LonE7) / 1e7
		s.Altitude = float64(v.AltMM) / 1000

	case frame.Heading:
		s.Heading = float64(v.Degrees)

	case frame.Orientation:
		s.Yaw = degrees(v.Yaw)
		s.Pitch = degrees(v.Pitch)
		s.Roll = degrees(v.Roll)

	default:
		return s, false
	}

	s.Timestamp = now
	return s, true
}

func degrees(rad float32) float64 {
	return float64(rad) * 180 / math.Pi
}
