package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time  TIMESTAMP NOT NULL,
    mode        TEXT      NOT NULL,
    vehicle     TEXT      NOT NULL,
    config      TEXT
);

CREATE TABLE IF NOT EXISTS telemetry (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER   NOT NULL REFERENCES sessions (id),
    timestamp   TIMESTAMP NOT NULL,
    latitude    REAL      NOT NULL,
    longitude   REAL      NOT NULL,
    altitude    REAL      NOT NULL,
    heading     REAL      NOT NULL,
    yaw         REAL      NOT NULL,
    pitch       REAL      NOT NULL,
    roll        REAL      NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER   NOT NULL REFERENCES sessions (id),
    timestamp   TIMESTAMP NOT NULL,
    event_type  TEXT      NOT NULL,
    data        TEXT
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_telemetry_session ON telemetry (session_id, id);
CREATE INDEX IF NOT EXISTS idx_events_session ON events (session_id, event_type);`

	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      mode,
                      vehicle,
                      config)
VALUES (?, ?, ?, ?)`

	selectSessionSQL = `
SELECT 
    id, 
    start_time, 
    mode, 
    vehicle, 
    config 
FROM sessions 
WHERE 
    id = ?`

	selectSessionsSQL = `
SELECT 
    id, 
    start_time, 
    mode, 
    vehicle, 
    config 
FROM sessions
ORDER BY start_time, id`

	insertTelemetrySQL = `
INSERT INTO telemetry (session_id,
                       timestamp,
                       latitude,
                       longitude,
                       altitude,
                       heading,
                       yaw,
                       pitch,
                       roll)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectTrackSQL = `
SELECT
    id,
    timestamp,
    latitude,
    longitude,
    altitude,
    heading,
    yaw,
    pitch,
    roll
FROM telemetry
WHERE
    session_id = ?
    AND id > ?
    AND timestamp >= ?
    AND timestamp <= ?
ORDER BY id
LIMIT ?`

	insertEventSQL = `
INSERT INTO events (session_id,
                    timestamp,
                    event_type,
                    data)
VALUES (?, ?, ?, ?)`

	selectEventsSQL = `
SELECT
    id,
    session_id,
    timestamp,
    event_type,
    data
FROM events
WHERE
    session_id = ?`
)
