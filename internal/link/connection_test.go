package link

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/firelink/internal/ack"
	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/frame"
	"github.com/roman-kulish/firelink/internal/telemetry"
	"github.com/roman-kulish/firelink/internal/transport"
	"github.com/roman-kulish/firelink/internal/transport/sim"
)

type fakeTransport struct {
	connectErr error
	inbound    chan frame.Frame
	failures   chan error

	connects        atomic.Int32
	disconnects     atomic.Int32
	closed          atomic.Bool
	receiveInFlight atomic.Int32
	receiveOnClosed atomic.Bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound:  make(chan frame.Frame, 16),
		failures: make(chan error, 1),
	}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.connects.Add(1)
	return f.connectErr
}

func (f *fakeTransport) Receive(ctx context.Context, timeout time.Duration) (frame.Frame, error) {
	f.receiveInFlight.Add(1)
	defer f.receiveInFlight.Add(-1)

	if f.closed.Load() {
		f.receiveOnClosed.Store(true)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case fr := <-f.inbound:
		return fr, nil
	case err := <-f.failures:
		return nil, err
	case <-timer.C:
		return nil, transport.ErrTimeout
	}
}

func (f *fakeTransport) Transmit(context.Context, []byte) error {
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.disconnects.Add(1)
	return nil
}

func (f *fakeTransport) Close() error {
	if f.receiveInFlight.Load() > 0 {
		f.receiveOnClosed.Store(true)
	}
	f.closed.Store(true)
	return nil
}

type testEnv struct {
	tr      *fakeTransport
	store   *telemetry.Store
	signal  *ack.Signal
	history *event.History
	conn    *Connection
}

func newTestEnv(t *testing.T, timeout time.Duration) *testEnv {
	env := &testEnv{
		tr:      newFakeTransport(),
		store:   telemetry.NewStore(),
		signal:  ack.New(),
		history: event.NewHistory(0),
	}
	env.conn = New(env.tr, env.store, env.signal, WithReceiveTimeout(timeout), WithEvents(env.history))
	t.Cleanup(func() { _ = env.conn.Close() })
	return env
}

func TestConnection_ConnectStartsLoop(t *testing.T) {
	env := newTestEnv(t, 10*time.Millisecond)
	assert.Equal(t, Disconnected, env.conn.State())

	require.NoError(t, env.conn.Connect(context.Background()))
	assert.True(t, env.conn.IsConnected())
	assert.Equal(t, []event.Type{event.ConnectionEstablished}, env.history.Types())

	env.tr.inbound <- frame.Heading{Degrees: 42}
	assert.Eventually(t, func() bool {
		return env.conn.Telemetry().Heading == 42
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, env.conn.Connect(context.Background()), ErrAlreadyConnected)
}

func TestConnection_ConnectFailure(t *testing.T) {
	env := newTestEnv(t, 10*time.Millisecond)
	env.tr.connectErr = transport.NewConnectionError("serial:/dev/null", errors.New("no heartbeat"))

	err := env.conn.Connect(context.Background())
	require.Error(t, err)

	var ce *transport.ConnectionError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, Disconnected, env.conn.State())
	assert.Equal(t, []event.Type{event.ConnectionFailed}, env.history.Types())

	// no loop is running, frames are not consumed
	env.tr.inbound <- frame.Heading{Degrees: 1}
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, env.tr.inbound, 1)
}

func TestConnection_Dispatch(t *testing.T) {
	env := newTestEnv(t, 10*time.Millisecond)
	env.store = telemetry.NewStoreWith(telemetry.Snapshot{Heading: 10, Yaw: 1, Pitch: 2, Roll: 3})
	env.conn.store = env.store

	env.conn.dispatch(frame.Position{LatE7: 504501000, LonE7: 305234000, AltMM: 150000})
	got := env.conn.Telemetry()

	assert.InDelta(t, 50.4501, got.Latitude, 1e-9)
	assert.InDelta(t, 30.5234, got.Longitude, 1e-9)
	assert.InDelta(t, 150.0, got.Altitude, 1e-9)
	assert.Equal(t, 10.0, got.Heading)
	assert.Equal(t, 1.0, got.Yaw)
	assert.Equal(t, 2.0, got.Pitch)
	assert.Equal(t, 3.0, got.Roll)

	env.conn.dispatch(frame.Unknown{MessageID: 1})
	env.conn.dispatch(frame.Heartbeat{})
	assert.Equal(t, got, env.conn.Telemetry())
	assert.False(t, env.signal.IsSet())
	assert.Equal(t, int64(3), env.conn.Stats().Frames)
}

func TestConnection_DispatchAckMarker(t *testing.T) {
	cases := []struct {
		name string
		text []byte
		want bool
	}{
		{"exact", []byte("FIRE_RECEIVED"), true},
		{"substring", []byte("xFIRE_RECEIVEDy"), true},
		{"with invalid bytes", []byte{0xff, 'F', 'I', 'R', 'E', '_', 'R', 'E', 'C', 'E', 'I', 'V', 'E', 'D', 0xfe}, true},
		{"other text", []byte("PreArm: GPS not healthy"), false},
		{"partial marker", []byte("FIRE_RECEIV"), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t, 10*time.Millisecond)
			env.conn.dispatch(frame.StatusText{Text: c.text})
			assert.Equal(t, c.want, env.signal.IsSet())
		})
	}
}

func TestConnection_LoopSetsAck(t *testing.T) {
	env := newTestEnv(t, 10*time.Millisecond)
	require.NoError(t, env.conn.Connect(context.Background()))

	env.tr.inbound <- frame.StatusText{Text: []byte("xFIRE_RECEIVEDy")}
	assert.True(t, env.signal.Wait(context.Background(), time.Second))
	assert.Equal(t, int64(1), env.conn.Stats().Acks)
}

func TestConnection_DecodeErrorIsNotFatal(t *testing.T) {
	env := newTestEnv(t, 10*time.Millisecond)
	require.NoError(t, env.conn.Connect(context.Background()))

	env.tr.failures <- transport.NewDecodeError(errors.New("bad crc"))
	env.tr.inbound <- frame.Heading{Degrees: 7}

	assert.Eventually(t, func() bool {
		return env.conn.Telemetry().Heading == 7
	}, time.Second, 5*time.Millisecond)
	assert.True(t, env.conn.IsConnected())
	assert.Equal(t, int64(1), env.conn.Stats().DecodeErrors)
}

func TestConnection_ReceiveErrorDisconnects(t *testing.T) {
	env := newTestEnv(t, 10*time.Millisecond)
	require.NoError(t, env.conn.Connect(context.Background()))

	env.tr.failures <- transport.NewReceiveError(errors.New("device unplugged"))

	assert.Eventually(t, func() bool {
		return env.history.Count(event.ConnectionLost) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, Disconnected, env.conn.State())
	assert.Equal(t, int32(1), env.tr.disconnects.Load())
	assert.False(t, env.tr.closed.Load())

	// explicit reconnect
	require.NoError(t, env.conn.Connect(context.Background()))
	assert.True(t, env.conn.IsConnected())
	assert.Equal(t, int32(2), env.tr.connects.Load())
}

func TestConnection_CloseJoinsLoop(t *testing.T) {
	env := newTestEnv(t, 200*time.Millisecond)
	require.NoError(t, env.conn.Connect(context.Background()))

	// let the loop block inside a receive
	assert.Eventually(t, func() bool {
		return env.tr.receiveInFlight.Load() == 1
	}, time.Second, time.Millisecond)

	start := time.Now()
	require.NoError(t, env.conn.Close())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, Closed, env.conn.State())
	assert.True(t, env.tr.closed.Load())
	assert.False(t, env.tr.receiveOnClosed.Load(), "transport released while a receive was in flight")

	assert.ErrorIs(t, env.conn.Connect(context.Background()), ErrClosed)
	require.NoError(t, env.conn.Close())
}

func TestConnection_CloseNeverConnected(t *testing.T) {
	env := newTestEnv(t, 10*time.Millisecond)

	require.NoError(t, env.conn.Close())
	assert.Equal(t, Closed, env.conn.State())
	assert.True(t, env.tr.closed.Load())
}

func TestConnection_SimulatedTransport(t *testing.T) {
	tr := sim.New(sim.WithTick(10*time.Millisecond), sim.WithAckDelay(10*time.Millisecond))
	store := telemetry.NewStore()
	signal := ack.New()
	conn := New(tr, store, signal, WithReceiveTimeout(20*time.Millisecond))

	require.NoError(t, conn.Connect(context.Background()))
	assert.True(t, conn.IsConnected())

	assert.Eventually(t, func() bool {
		return store.Get().Heading >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Greater(t, store.Get().Latitude, telemetry.DefaultLatitude)

	signal.Reset()
	require.NoError(t, tr.Transmit(context.Background(), []byte("alert")))
	assert.True(t, signal.Wait(context.Background(), time.Second))

	require.NoError(t, conn.Close())
	assert.Equal(t, Closed, conn.State())
}
