package app

import (
	"math"
	"time"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/storage"
)

const earthRadius = 6371008.8 // metres

// Marker is an alert position on the map
type Marker struct {
	Latitude, Longitude float64
	Acknowledged        bool
	Timestamp           time.Time
}

// TrackData accumulates a session track and its alerts for rendering
type TrackData struct {
	Session *storage.Session
	Points  []storage.TrackPoint
	Markers []Marker

	LatMin, LatMax               float64
	LonMin, LonMax               float64
	AltMin, AltMax               float64
	TimestampStart, TimestampEnd time.Time
	Distance                     float64 // Path length in metres
}

func NewTrackData(session *storage.Session) *TrackData {
	return &TrackData{
		Session: session,
		LatMin:  math.MaxFloat64,
		LatMax:  -math.MaxFloat64,
		LonMin:  math.MaxFloat64,
		LonMax:  -math.MaxFloat64,
		AltMin:  math.MaxFloat64,
		AltMax:  -math.MaxFloat64,
	}
}

func (t *TrackData) Update(p *storage.TrackPoint) {
	if n := len(t.Points); n > 0 {
		prev := t.Points[n-1]
		t.Distance += haversine(prev.Latitude, prev.Longitude, p.Latitude, p.Longitude)
	}

	t.extend(p.Latitude, p.Longitude)
	t.AltMin = min(t.AltMin, p.Altitude)
	t.AltMax = max(t.AltMax, p.Altitude)

	if t.TimestampStart.IsZero() || t.TimestampStart.After(p.Timestamp) {
		t.TimestampStart = p.Timestamp
	}
	if t.TimestampEnd.IsZero() || t.TimestampEnd.Before(p.Timestamp) {
		t.TimestampEnd = p.Timestamp
	}

	t.Points = append(t.Points, *p)
}

// AddAlert adds the position of a delivered or failed alert. Records without a
// payload position are skipped.
func (t *TrackData) AddAlert(r event.Record) bool {
	payload, ok := r.Data["payload"].(map[string]any)
	if !ok {
		return false
	}
	lat, latOK := payload["lat"].(float64)
	lon, lonOK := payload["lon"].(float64)
	if !latOK || !lonOK {
		return false
	}

	t.extend(lat, lon)
	t.Markers = append(t.Markers, Marker{
		Latitude:     lat,
		Longitude:    lon,
		Acknowledged: r.Type == event.FireCoordsSent,
		Timestamp:    r.Timestamp,
	})
	return true
}

func (t *TrackData) Empty() bool {
	return len(t.Points) == 0 && len(t.Markers) == 0
}

func (t *TrackData) Duration() time.Duration {
	return t.TimestampEnd.Sub(t.TimestampStart)
}

func (t *TrackData) extend(lat, lon float64) {
	t.LatMin = min(t.LatMin, lat)
	t.LatMax = max(t.LatMax, lat)
	t.LonMin = min(t.LonMin, lon)
	t.LonMax = max(t.LonMax, lon)
}

// haversine returns the great circle distance in metres
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := lat1*math.Pi/180, lat2*math.Pi/180
	dPhi := phi2 - phi1
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadius * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
