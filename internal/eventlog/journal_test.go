package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/firelink/internal/event"
)

var _ event.Sink = (*Journal)(nil)

func TestJournal_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.json")

	j, err := New(Config{Path: path})
	require.NoError(t, err)

	ts := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	j.Emit(event.Record{Timestamp: ts, Type: event.ConnectionEstablished})
	j.Emit(event.Record{Timestamp: ts, Type: event.FireCoordsFailed, Data: map[string]any{"attempts": 3}})
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	assert.Equal(t, "connection_established", lines[0]["event_type"])
	assert.Equal(t, "2024-07-01T12:00:00Z", lines[0]["timestamp"])
	assert.NotContains(t, lines[0], "data")
	assert.Equal(t, map[string]any{"attempts": float64(3)}, lines[1]["data"])
}

func TestJournal_Closed(t *testing.T) {
	j, err := New(Config{Path: filepath.Join(t.TempDir(), "events.json")})
	require.NoError(t, err)

	require.NoError(t, j.Close())
	require.NoError(t, j.Close())
	assert.Error(t, j.Write(event.New(event.ConnectionClosed, nil)))
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Path: "x", MaxSizeMB: -1}.Validate())
	assert.Error(t, Config{Path: "x", MaxBackups: -1}.Validate())
	assert.NoError(t, Config{Path: "x"}.Validate())
}
