package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/telemetry"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && cErr != sql.ErrTxDone && *err == nil {
		*err = cErr
	}
}

// toSQLNullString stores strings and byte slices as is and anything else as JSON
func toSQLNullString(v any) (sql.NullString, error) {
	switch v := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: v, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(v), Valid: true}, nil
	default:
		p, err := json.Marshal(v)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("marshaling %T: %w", v, err)
		}
		return sql.NullString{String: string(p), Valid: true}, nil
	}
}

func toTelemetryData(sessionID int64, s telemetry.Snapshot) *telemetryData {
	return &telemetryData{
		SessionID: sessionID,
		Timestamp: s.Timestamp.UTC(),
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Altitude:  s.Altitude,
		Heading:   s.Heading,
		Yaw:       s.Yaw,
		Pitch:     s.Pitch,
		Roll:      s.Roll,
	}
}

func (d *telemetryData) toTrackPoint() *TrackPoint {
	return &TrackPoint{
		ID: d.ID,
		Snapshot: telemetry.Snapshot{
			Timestamp: d.Timestamp.UTC(),
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Altitude:  d.Altitude,
			Heading:   d.Heading,
			Yaw:       d.Yaw,
			Pitch:     d.Pitch,
			Roll:      d.Roll,
		},
	}
}

func (d *sessionData) toSession() *Session {
	sess := Session{
		ID:        d.ID,
		StartTime: d.StartTime.UTC(),
		Mode:      d.Mode,
		Vehicle:   d.Vehicle,
	}
	if d.Config.Valid {
		sess.Config = &d.Config.String
	}
	return &sess
}

func (d *eventData) toRecord() (event.Record, error) {
	r := event.Record{
		Timestamp: d.Timestamp.UTC(),
		Type:      event.Type(d.Type),
	}
	if d.Data.Valid && d.Data.String != "" {
		if err := json.Unmarshal([]byte(d.Data.String), &r.Data); err != nil {
			return r, fmt.Errorf("unmarshaling event %d data: %w", d.ID, err)
		}
	}
	return r, nil
}

// inClause appends "AND column IN (?, ...)" for the given types
func inClause(query, column string, types []event.Type, args []any) (string, []any) {
	if len(types) == 0 {
		return query, args
	}

	placeholders := make([]string, len(types))
	for i, t := range types {
		placeholders[i] = "?"
		args = append(args, string(t))
	}
	return fmt.Sprintf("%s\n    AND %s IN (%s)", query, column, strings.Join(placeholders, ", ")), args
}
