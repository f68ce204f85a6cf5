package app

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/storage"
	"github.com/roman-kulish/firelink/internal/telemetry"
)

func point(ts time.Time, lat, lon, alt float64) *storage.TrackPoint {
	return &storage.TrackPoint{Snapshot: telemetry.Snapshot{
		Timestamp: ts,
		Latitude:  lat,
		Longitude: lon,
		Altitude:  alt,
	}}
}

func TestHaversine(t *testing.T) {
	// one degree of latitude
	assert.InDelta(t, 111195.0, haversine(0, 0, 1, 0), 1)
	// Kyiv to Lviv
	assert.InDelta(t, 468000.0, haversine(50.4501, 30.5234, 49.8397, 24.0297), 2000)
	assert.Zero(t, haversine(50, 30, 50, 30))
}

func TestTrackData_Update(t *testing.T) {
	start := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	track := NewTrackData(nil)
	assert.True(t, track.Empty())

	track.Update(point(start.Add(2*time.Second), 50.001, 30.0, 120))
	track.Update(point(start, 50.0, 30.0, 150))
	track.Update(point(start.Add(time.Second), 50.0, 30.002, 90))

	assert.False(t, track.Empty())
	assert.Len(t, track.Points, 3)
	assert.Equal(t, 50.0, track.LatMin)
	assert.Equal(t, 50.001, track.LatMax)
	assert.Equal(t, 30.0, track.LonMin)
	assert.Equal(t, 30.002, track.LonMax)
	assert.Equal(t, 90.0, track.AltMin)
	assert.Equal(t, 150.0, track.AltMax)
	assert.Equal(t, start, track.TimestampStart)
	assert.Equal(t, 2*time.Second, track.Duration())
	assert.InDelta(t, 111.2+143.0, track.Distance, 1)
}

func TestTrackData_AddAlert(t *testing.T) {
	track := NewTrackData(nil)

	sent := event.Record{
		Type: event.FireCoordsSent,
		Data: map[string]any{"payload": map[string]any{"lat": 50.5, "lon": 30.5}},
	}
	failed := event.Record{
		Type: event.FireCoordsFailed,
		Data: map[string]any{"payload": map[string]any{"lat": 50.4, "lon": 30.6}},
	}
	noPayload := event.Record{Type: event.FireCoordsFailed, Data: map[string]any{"error": "context canceled"}}

	require.True(t, track.AddAlert(sent))
	require.True(t, track.AddAlert(failed))
	assert.False(t, track.AddAlert(noPayload))

	require.Len(t, track.Markers, 2)
	assert.True(t, track.Markers[0].Acknowledged)
	assert.False(t, track.Markers[1].Acknowledged)
	assert.Equal(t, 50.4, track.LatMin)
	assert.Equal(t, 30.6, track.LonMax)
	assert.False(t, track.Empty())
}

func TestProjection(t *testing.T) {
	area := image.Rect(10, 10, 1010, 1010)
	p := NewProjection(area, 50.0, 50.01, 30.0, 30.01)

	center := p.Point(50.005, 30.005)
	assert.Equal(t, image.Pt(510, 510), center)

	north := p.Point(50.01, 30.005)
	assert.Less(t, north.Y, center.Y)
	east := p.Point(50.005, 30.01)
	assert.Greater(t, east.X, center.X)

	for _, pt := range []image.Point{p.Point(50, 30), p.Point(50.01, 30.01)} {
		assert.True(t, pt.In(area), "%v outside %v", pt, area)
	}

	// equal ground distance on both axes
	dLat := center.Y - p.Point(50.006, 30.005).Y
	dLon := p.Point(50.005, 30.005+0.001/0.6428).X - center.X
	assert.InDelta(t, dLat, dLon, 1)

	// latitude span of 0.01 degrees fills 90% of the height
	assert.InDelta(t, 111195.0*0.01/900, p.MetresPerPixel(), 0.01)
}

func TestProjection_SinglePoint(t *testing.T) {
	area := image.Rect(0, 0, 500, 500)
	p := NewProjection(area, 50, 50, 30, 30)

	assert.Equal(t, image.Pt(250, 250), p.Point(50, 30))
	assert.Greater(t, p.MetresPerPixel(), 0.0)
}

func TestColorMapper(t *testing.T) {
	cm := NewColorMapper(GrayscaleTheme, 100, 200)

	assert.Equal(t, cm.colorMap[0], cm.Color(100))
	assert.Equal(t, cm.colorMap[0], cm.Color(-50))
	assert.Equal(t, cm.colorMap[defaultColorMapSize-1], cm.Color(200))
	assert.Equal(t, cm.colorMap[defaultColorMapSize-1], cm.Color(1e6))

	flat := NewColorMapper(ClassicTheme, 150, 150)
	assert.Equal(t, flat.colorMap[defaultColorMapSize/2], flat.Color(150))

	unknown := NewColorMapper("sepia", 0, 1)
	assert.Equal(t, NewColorMapper(ClassicTheme, 0, 1).Color(0.5), unknown.Color(0.5))
}

func TestNiceDistance(t *testing.T) {
	cases := map[float64]float64{
		0:      1,
		3.7:    2,
		9.9:    5,
		10:     10,
		140:    100,
		260:    200,
		7300:   5000,
		0.0042: 0.002,
	}
	for in, want := range cases {
		assert.InDelta(t, want, niceDistance(in), want*1e-9, "niceDistance(%v)", in)
	}
}
