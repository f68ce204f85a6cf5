package event

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulti_FansOut(t *testing.T) {
	a, b := NewHistory(0), NewHistory(0)
	m := Multi{a, nil, b}

	m.Emit(New(FireCoordsSent, map[string]any{"lat": 1.0}))

	require.Len(t, a.Records(), 1)
	require.Len(t, b.Records(), 1)
	assert.Equal(t, FireCoordsSent, a.Records()[0].Type)
	assert.False(t, a.Records()[0].Timestamp.IsZero())
}

func TestHistory_Bounded(t *testing.T) {
	h := NewHistory(2)
	h.Emit(New(ConnectionEstablished, nil))
	h.Emit(New(FireCoordsAttempt, nil))
	h.Emit(New(FireCoordsSent, nil))

	assert.Equal(t, []Type{FireCoordsAttempt, FireCoordsSent}, h.Types())
	assert.Equal(t, 1, h.Count(FireCoordsSent))
}

func TestLogSink_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	s := NewLogSink(logger)

	s.Emit(New(FireCoordsAttempt, map[string]any{"attempt": 1}))
	assert.Empty(t, buf.String())

	s.Emit(New(FireCoordsFailed, map[string]any{"attempts": 3}))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "fire_coords_failed")
	assert.Contains(t, buf.String(), "attempts=3")
}
