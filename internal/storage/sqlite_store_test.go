package storage

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/telemetry"
)

var _ Store = (*SqliteStore)(nil)
var _ TrackReader = (*SqliteTrackReader)(nil)
var _ event.Sink = (*EventSink)(nil)

func newTestStore(t *testing.T) *SqliteStore {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "firelink.db"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSqliteStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.CreateSession(ctx, "simulation", "", map[string]any{"tick": "1s"})
	require.NoError(t, err)
	second, err := s.CreateSession(ctx, "mavlink", "serial:/dev/ttyTHS1", nil)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	sess, err := s.Session(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "simulation", sess.Mode)
	require.NotNil(t, sess.Config)
	assert.JSONEq(t, `{"tick":"1s"}`, *sess.Config)
	assert.WithinDuration(t, time.Now(), sess.StartTime, time.Minute)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, "serial:/dev/ttyTHS1", sessions[1].Vehicle)
	assert.Nil(t, sessions[1].Config)

	_, err = s.Session(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSqliteStore_Track(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "simulation", "", "raw config")
	require.NoError(t, err)

	start := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		_, err := s.StoreTelemetry(ctx, id, telemetry.Snapshot{
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Latitude:  50 + float64(i)*1e-5,
			Longitude: 30,
			Altitude:  150,
			Heading:   float64(i),
		})
		require.NoError(t, err)
	}

	r, err := s.ReadTrack(ctx, id, WithBatchSize(7))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "raw config", *r.Session().Config)

	var points []*TrackPoint
	for r.Next(ctx) {
		points = append(points, r.Current())
	}
	require.NoError(t, r.Error())
	require.Len(t, points, 25)

	for i, p := range points {
		assert.Equal(t, float64(i), p.Heading)
		assert.True(t, p.Timestamp.Equal(start.Add(time.Duration(i)*time.Second)))
	}

	ranged, err := s.ReadTrack(ctx, id, WithTimeRange(start.Add(5*time.Second), start.Add(9*time.Second)))
	require.NoError(t, err)
	defer ranged.Close()

	var headings []float64
	for ranged.Next(ctx) {
		headings = append(headings, ranged.Current().Heading)
	}
	require.NoError(t, ranged.Error())
	assert.Equal(t, []float64{5, 6, 7, 8, 9}, headings)

	cases := []struct {
		name  string
		opt   TrackOption
		count int
	}{
		{"start only", WithStartTime(start.Add(20 * time.Second)), 5},
		{"end only", WithEndTime(start.Add(2 * time.Second)), 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := s.ReadTrack(ctx, id, c.opt, WithBatchSize(2))
			require.NoError(t, err)
			defer r.Close()

			var n int
			for r.Next(ctx) {
				n++
			}
			require.NoError(t, r.Error())
			assert.Equal(t, c.count, n)
		})
	}
}

func TestSqliteStore_ReadTrackErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "simulation", "", nil)
	require.NoError(t, err)

	_, err = s.ReadTrack(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	now := time.Now()
	_, err = s.ReadTrack(ctx, id, WithTimeRange(now, now.Add(-time.Second)))
	assert.Error(t, err)

	_, err = s.ReadTrack(ctx, id, WithBatchSize(0))
	assert.Error(t, err)

	r, err := s.ReadTrack(ctx, id)
	require.NoError(t, err)
	assert.False(t, r.Next(ctx))
	assert.NoError(t, r.Error())
	assert.NoError(t, r.Close())
}

func TestSqliteStore_Events(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "simulation", "", nil)
	require.NoError(t, err)

	sink := NewEventSink(s, id)
	sink.Emit(event.New(event.ConnectionEstablished, nil))
	sink.Emit(event.New(event.FireCoordsAttempt, map[string]any{"attempt": 1}))
	sink.Emit(event.New(event.FireCoordsSent, map[string]any{"attempt": 1, "payload": map[string]any{"lat": 50.45}}))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	all, err := s.ReadEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, event.ConnectionEstablished, all[0].Type)
	assert.Nil(t, all[0].Data)

	sent, err := s.ReadEvents(ctx, id, event.FireCoordsSent, event.FireCoordsFailed)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, float64(1), sent[0].Data["attempt"])
	assert.Equal(t, 50.45, sent[0].Data["payload"].(map[string]any)["lat"])

	other, err := s.ReadEvents(ctx, id+1)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSqliteStore_Close(t *testing.T) {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "firelink.db"))

	_, err := s.CreateSession(context.Background(), "simulation", "", nil)
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

// blockingStore holds every event write until released
type blockingStore struct {
	Store
	release chan struct{}
	writes  atomic.Int32
}

func (b *blockingStore) StoreEvent(context.Context, int64, event.Record) (int64, error) {
	<-b.release
	return int64(b.writes.Add(1)), nil
}

func TestEventSink_DoesNotWaitForStore(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	sink := NewEventSink(store, 1, WithSinkQueueSize(4))

	start := time.Now()
	for i := 0; i < 20; i++ {
		sink.Emit(event.New(event.FireCoordsAttempt, map[string]any{"attempt": i}))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(store.release)
	require.NoError(t, sink.Close())

	// one write in flight when the queue filled up, four queued, the rest dropped
	assert.LessOrEqual(t, store.writes.Load(), int32(5))
	assert.GreaterOrEqual(t, store.writes.Load(), int32(4))

	sink.Emit(event.New(event.FireCoordsSent, nil))
	assert.LessOrEqual(t, store.writes.Load(), int32(5))
}
