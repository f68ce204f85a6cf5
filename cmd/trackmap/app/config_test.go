package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromCLI(t *testing.T) {
	c, err := NewConfigFromCLI([]string{
		"--db", "session.sqlite",
		"-s", "3",
		"-o", "track",
		"-f", "JPEG",
		"--theme", "Thermal",
		"--from", "2024-07-01T12:00:00Z",
		"--to", "2024-07-01T16:00:00+03:00",
		"--tz", "UTC",
		"--no-annotations",
	})
	require.NoError(t, err)

	assert.Equal(t, "session.sqlite", c.DBPath)
	assert.Equal(t, int64(3), c.SessionID)
	assert.Equal(t, "track.jpeg", c.OutputFile)
	assert.Equal(t, ImageFormat(ImageJPEG), c.Format)
	assert.Equal(t, ThermalTheme, c.Theme)
	assert.Equal(t, defaultSize, c.Size)
	assert.True(t, c.NoAnnotations)
	assert.Equal(t, time.UTC, c.TimeZone)
	require.NotNil(t, c.MinTimestamp)
	require.NotNil(t, c.MaxTimestamp)
	assert.Equal(t, time.Date(2024, 7, 1, 13, 0, 0, 0, time.UTC), c.MaxTimestamp.UTC())
}

func TestNewConfigFromCLI_Invalid(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"missing db", []string{"-o", "out"}},
		{"missing output", []string{"--db", "x.sqlite"}},
		{"bad session", []string{"--db", "x.sqlite", "-o", "out", "-s", "0"}},
		{"small size", []string{"--db", "x.sqlite", "-o", "out", "--size", "50"}},
		{"bad format", []string{"--db", "x.sqlite", "-o", "out", "-f", "gif"}},
		{"bad theme", []string{"--db", "x.sqlite", "-o", "out", "--theme", "sepia"}},
		{"bad from", []string{"--db", "x.sqlite", "-o", "out", "--from", "yesterday"}},
		{"bad tz", []string{"--db", "x.sqlite", "-o", "out", "--tz", "Mars/Olympus"}},
		{"reversed range", []string{"--db", "x.sqlite", "-o", "out",
			"--from", "2024-07-01T13:00:00Z", "--to", "2024-07-01T12:00:00Z"}},
		{"unknown flag", []string{"--db", "x.sqlite", "-o", "out", "--colour", "red"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { _, err = NewConfigFromCLI(c.args) })
			assert.Error(t, err)
		})
	}
}
