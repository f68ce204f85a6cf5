// Package event defines the discrete (type, data) records the ground link reports to
// its collaborators: logs, the event journal, storage and the presentation push.
package event

import (
	"context"
	"log/slog"
	"time"
)

const (
	ConnectionEstablished Type = "connection_established"
	ConnectionFailed      Type = "connection_failed"
	ConnectionLost        Type = "connection_lost"
	ConnectionClosed      Type = "connection_closed"

	FireSimulation       Type = "fire_simulation"
	FireDetectionIgnored Type = "fire_detection_ignored"
	FireCoordsAttempt    Type = "fire_coords_attempt"
	FireCoordsSent       Type = "fire_coords_sent"
	FireCoordsFailed     Type = "fire_coords_failed"
	FireCoordsRejected   Type = "fire_coords_rejected"
	SendCoordsError      Type = "send_coords_error"
)

// Type names an event
type Type string

func (t Type) String() string {
	return string(t)
}

// Level is the log level the event is reported at
func (t Type) Level() slog.Level {
	switch t {
	case ConnectionFailed, ConnectionLost, FireCoordsFailed, FireCoordsRejected, SendCoordsError:
		return slog.LevelWarn
	case FireCoordsAttempt:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Record is a single event
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      Type           `json:"event_type"`
	Data      map[string]any `json:"data,omitempty"`
}

// New creates a record stamped with the current UTC time
func New(t Type, data map[string]any) Record {
	return Record{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// Sink receives event records. Emit must not block for long; it is called from the
// inbound message loop and the alert sender.
type Sink interface {
	Emit(Record)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Record)

func (f SinkFunc) Emit(r Record) {
	f(r)
}

// Multi fans a record out to every sink
type Multi []Sink

func (m Multi) Emit(r Record) {
	for _, s := range m {
		if s != nil {
			s.Emit(r)
		}
	}
}

// Discard drops every record
var Discard Sink = SinkFunc(func(Record) {})

// LogSink writes records to a structured logger
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(r Record) {
	attrs := make([]any, 0, len(r.Data))
	for k, v := range r.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.logger.Log(context.Background(), r.Type.Level(), r.Type.String(), attrs...)
}
