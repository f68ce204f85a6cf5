package app

import (
	"context"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/storage"
	"github.com/roman-kulish/firelink/internal/telemetry"
)

func TestTrackRenderer_Render(t *testing.T) {
	start := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	track := NewTrackData(&storage.Session{ID: 1, Mode: "simulation"})
	for i := 0; i < 50; i++ {
		track.Update(point(start.Add(time.Duration(i)*time.Second), 50+float64(i)*1e-5, 30+float64(i)*1e-5, 150+float64(i)))
	}
	track.AddAlert(event.Record{
		Type: event.FireCoordsSent,
		Data: map[string]any{"payload": map[string]any{"lat": 50.0002, "lon": 30.0002}},
	})

	r, err := NewTrackRenderer(RenderConfig{Size: 400, Location: time.UTC})
	require.NoError(t, err)

	img, err := r.Render(track)
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, 400+defaultLeftBorder+defaultRightBorder, b.Dx())
	assert.Equal(t, 400+defaultTopBorder+defaultBottomBorder, b.Dy())
	assert.Equal(t, backgroundColor, img.RGBAAt(0, 0))

	bare, err := NewTrackRenderer(RenderConfig{Size: 400, NoAnnotations: true})
	require.NoError(t, err)
	_, err = bare.Render(track)
	require.NoError(t, err)

	_, err = r.Render(NewTrackData(nil))
	assert.Error(t, err)

	_, err = NewTrackRenderer(RenderConfig{})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "session.sqlite")

	store := storage.NewSqliteStore(dbPath)
	id, err := store.CreateSession(ctx, "simulation", "", nil)
	require.NoError(t, err)

	start := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 20; i++ {
		_, err = store.StoreTelemetry(ctx, id, telemetry.Snapshot{
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Latitude:  50 + float64(i)*1e-5,
			Longitude: 30,
			Altitude:  150,
		})
		require.NoError(t, err)
	}
	_, err = store.StoreEvent(ctx, id, event.Record{
		Type:      event.FireCoordsFailed,
		Timestamp: start.Add(5 * time.Second),
		Data:      map[string]any{"payload": map[string]any{"lat": 50.00005, "lon": 30.0}},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	config := NewConfig()
	config.DBPath = dbPath
	config.SessionID = id
	config.Size = 300
	config.OutputFile = filepath.Join(dir, "track.png")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, Run(ctx, config, logger))

	f, err := os.Open(config.OutputFile)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 300+defaultLeftBorder+defaultRightBorder, img.Bounds().Dx())

	config.DBPath = filepath.Join(dir, "missing.sqlite")
	assert.Error(t, Run(ctx, config, logger))
}
