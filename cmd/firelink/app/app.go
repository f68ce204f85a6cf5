package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roman-kulish/firelink/internal/ack"
	"github.com/roman-kulish/firelink/internal/alert"
	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/eventlog"
	"github.com/roman-kulish/firelink/internal/link"
	"github.com/roman-kulish/firelink/internal/publish"
	"github.com/roman-kulish/firelink/internal/storage"
	"github.com/roman-kulish/firelink/internal/telemetry"
	"github.com/roman-kulish/firelink/internal/transport"
	"github.com/roman-kulish/firelink/internal/transport/mavlink"
	"github.com/roman-kulish/firelink/internal/transport/sim"
)

const (
	ModeMavlink    = "mavlink"
	ModeSimulation = "simulation"

	historySize = 100
)

// App is the ground station service: the vehicle link, alert delivery and the
// collaborators that record and publish what happens on the link.
type App struct {
	config     *Config
	logger     *slog.Logger
	simulation bool
	started    time.Time

	store     *telemetry.Store
	transport transport.Transport
	conn      *link.Connection
	sender    *alert.Sender
	events    event.Multi
	history   *event.History

	db        storage.Store
	dbEvents  *storage.EventSink
	sessionID int64
	journal   *eventlog.Journal
	publisher *publish.Publisher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires the service from config. Nothing is connected until Start.
func New(ctx context.Context, config *Config, logger *slog.Logger) (_ *App, err error) {
	a := App{
		config:     config,
		logger:     logger,
		simulation: config.Settings.Simulation,
		store:      telemetry.NewStore(),
		history:    event.NewHistory(historySize),
	}
	a.events = event.Multi{event.NewLogSink(logger), a.history}

	defer func() {
		if err != nil {
			_ = a.closeSinks()
		}
	}()

	if a.journal, err = createJournal(config, logger); err != nil {
		return nil, err
	}
	if a.journal != nil {
		a.events = append(a.events, a.journal)
	}

	if a.db, a.sessionID, err = createStorage(ctx, config, a.mode()); err != nil {
		return nil, err
	}
	if a.db != nil {
		a.dbEvents = storage.NewEventSink(a.db, a.sessionID, storage.WithSinkLogger(logger))
		a.events = append(a.events, a.dbEvents)
	}

	if config.MQTT.Enabled {
		if a.publisher, err = publish.New(config.PublishConfig(), publish.WithLogger(logger)); err != nil {
			return nil, fmt.Errorf("creating publisher: %w", err)
		}
		a.events = append(a.events, a.publisher)
	}

	if a.transport, err = createTransport(config, logger); err != nil {
		return nil, err
	}

	signal := ack.New()
	a.conn = link.New(a.transport, a.store, signal,
		link.WithLogger(logger),
		link.WithEvents(a.events),
		link.WithReceiveTimeout(time.Duration(config.Link.ReceiveTimeout)))

	a.sender, err = alert.NewSender(a.transport, signal, config.RetryPolicy(),
		alert.WithLogger(logger),
		alert.WithEvents(a.events))
	if err != nil {
		return nil, fmt.Errorf("creating alert sender: %w", err)
	}

	return &a, nil
}

func createTransport(config *Config, logger *slog.Logger) (transport.Transport, error) {
	if config.Settings.Simulation {
		return sim.New(
			sim.WithLogger(logger),
			sim.WithTick(time.Duration(config.Simulation.Tick)),
			sim.WithAckDelay(time.Duration(config.Simulation.AckDelay))), nil
	}

	t, err := mavlink.New(config.MavlinkConfig(), mavlink.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating mavlink transport: %w", err)
	}
	return t, nil
}

func createJournal(config *Config, logger *slog.Logger) (*eventlog.Journal, error) {
	if config.EventLog.Path == "" {
		return nil, nil
	}

	j, err := eventlog.New(config.EventLogConfig(), eventlog.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating event log: %w", err)
	}
	return j, nil
}

func createStorage(ctx context.Context, config *Config, mode string) (storage.Store, int64, error) {
	if config.Storage.DataDirectory == "" {
		return nil, 0, nil
	}

	dir, err := filepath.Abs(config.Storage.DataDirectory)
	if err != nil {
		return nil, 0, fmt.Errorf("resolving storage directory: %w", err)
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, 0, fmt.Errorf("creating storage directory '%s': %w", dir, err)
	}

	dbPath := filepath.Join(dir, fmt.Sprintf("firelink_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	store := storage.NewSqliteStore(dbPath)

	sessionID, err := store.CreateSession(ctx, mode, config.Link.Address, config)
	if err != nil {
		_ = store.Close()
		return nil, 0, fmt.Errorf("creating session: %w", err)
	}

	return store, sessionID, nil
}

// Start connects the publisher and the vehicle link and starts the telemetry
// recorder. A failed link handshake is reported but does not stop the service;
// the operator may reconnect later.
func (a *App) Start(ctx context.Context) error {
	a.started = time.Now()

	if a.publisher != nil {
		if err := a.publisher.Connect(ctx); err != nil {
			a.logger.Warn("mqtt connect failed", slog.String("error", err.Error()))
		}
	}

	if err := a.conn.Connect(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		a.logger.Error("vehicle link not connected", slog.String("error", err.Error()))
	}

	var loopCtx context.Context
	loopCtx, a.cancel = context.WithCancel(context.Background())

	a.wg.Add(1)
	go a.recordTelemetry(loopCtx)

	return nil
}

// recordTelemetry stores and publishes a snapshot every record interval while the
// link is up. Simulated telemetry is only stored when recordSimulation is set.
func (a *App) recordTelemetry(ctx context.Context) {
	defer a.wg.Done()

	interval := time.Duration(a.config.Storage.RecordInterval)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	store := a.db != nil && (!a.simulation || a.config.Storage.RecordSimulation)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !a.conn.IsConnected() {
			continue
		}

		snapshot := a.Telemetry()
		if snapshot.Timestamp.IsZero() {
			continue // nothing received yet
		}

		if store {
			if _, err := a.db.StoreTelemetry(ctx, a.sessionID, snapshot); err != nil && ctx.Err() == nil {
				a.logger.Error("storing telemetry", slog.String("error", err.Error()))
			}
		}
		if a.publisher != nil {
			if err := a.publisher.PublishTelemetry(snapshot); err != nil {
				a.logger.Debug("publishing telemetry", slog.String("error", err.Error()))
			}
		}
	}
}

// Telemetry returns the latest vehicle snapshot
func (a *App) Telemetry() telemetry.Snapshot {
	return a.conn.Telemetry()
}

func (a *App) IsConnected() bool {
	return a.conn.IsConnected()
}

func (a *App) IsSimulation() bool {
	return a.simulation
}

// Reconnect re-establishes the vehicle link after it was lost or failed to connect
func (a *App) Reconnect(ctx context.Context) error {
	return a.conn.Connect(ctx)
}

// SendAlert delivers an alert and blocks until it is acknowledged or every attempt
// timed out.
func (a *App) SendAlert(ctx context.Context, lat, lon, alt, confidence float64) bool {
	return a.sender.SendAlert(ctx, lat, lon, alt, confidence)
}

// SendAlertAsync runs SendAlert in its own goroutine. The channel receives the
// result and is closed.
func (a *App) SendAlertAsync(ctx context.Context, lat, lon, alt, confidence float64) <-chan bool {
	result := make(chan bool, 1)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(result)
		result <- a.SendAlert(ctx, lat, lon, alt, confidence)
	}()

	return result
}

// SendCurrentPosition alerts on the current snapshot with the configured confidence
func (a *App) SendCurrentPosition(ctx context.Context) <-chan bool {
	s := a.Telemetry()
	return a.SendAlertAsync(ctx, s.Latitude, s.Longitude, s.Altitude, a.config.Alert.FireConfidenceThreshold)
}

// ReportFire records an operator reported fire and alerts on the current position
func (a *App) ReportFire(ctx context.Context) <-chan bool {
	a.events.Emit(event.New(event.FireSimulation, map[string]any{"source": "console"}))
	return a.SendCurrentPosition(ctx)
}

// ReportDetection alerts on the current position when a detector reports a fire
// with at least the configured confidence. It returns false when the detection is
// ignored.
func (a *App) ReportDetection(ctx context.Context, confidence float64) (<-chan bool, bool) {
	threshold := a.config.Alert.FireConfidenceThreshold
	if confidence < threshold {
		a.events.Emit(event.New(event.FireDetectionIgnored, map[string]any{
			"confidence": confidence,
			"threshold":  threshold,
		}))
		return nil, false
	}

	s := a.Telemetry()
	return a.SendAlertAsync(ctx, s.Latitude, s.Longitude, s.Altitude, confidence), true
}

// Status is a point in time view of the service
type Status struct {
	State      link.State
	Simulation bool
	Sending    bool
	Telemetry  telemetry.Snapshot
	Stats      link.Stats
	Started    time.Time
	Policy     alert.RetryPolicy
}

func (a *App) Status() Status {
	return Status{
		State:      a.conn.State(),
		Simulation: a.simulation,
		Sending:    a.sender.InFlight(),
		Telemetry:  a.Telemetry(),
		Stats:      a.conn.Stats(),
		Started:    a.started,
		Policy:     a.sender.Policy(),
	}
}

// Events returns the most recent event records, oldest first
func (a *App) Events() []event.Record {
	return a.history.Records()
}

// Close stops the link and the recorder, waits for alerts in flight and releases
// the collaborators.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}

	errs := []error{a.conn.Close()}
	a.wg.Wait()

	errs = append(errs, a.closeSinks())
	return errors.Join(errs...)
}

func (a *App) closeSinks() error {
	var errs []error

	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.dbEvents != nil {
		errs = append(errs, a.dbEvents.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}

	return errors.Join(errs...)
}

// Run starts the service and serves the operator console on in until ctx is done
// or the operator quits.
func Run(ctx context.Context, config *Config, logger *slog.Logger, in io.Reader, out io.Writer) error {
	a, err := New(ctx, config, logger)
	if err != nil {
		return err
	}

	if err = a.Start(ctx); err != nil {
		_ = a.Close()
		return fmt.Errorf("starting: %w", err)
	}

	console := NewConsole(a, in, out)
	if err = console.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("console stopped", slog.String("error", err.Error()))
	}

	if err = a.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}
	return nil
}

func (a *App) mode() string {
	if a.simulation {
		return ModeSimulation
	}
	return ModeMavlink
}
