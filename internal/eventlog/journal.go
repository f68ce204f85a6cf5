// Package eventlog keeps a rotating journal of event records, one JSON object per line.
package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roman-kulish/firelink/internal/event"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 10
)

// Config controls the journal file and its rotation
type Config struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("event log path required")
	}
	if c.MaxSizeMB < 0 {
		return fmt.Errorf("event log max size must not be negative, got %d", c.MaxSizeMB)
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("event log max backups must not be negative, got %d", c.MaxBackups)
	}
	return nil
}

// WithLogger sets the logger used to report failed writes
func WithLogger(logger *slog.Logger) func(*Journal) {
	return func(j *Journal) {
		j.logger = logger.With(slog.String("component", "eventlog"))
	}
}

// Journal is an event.Sink appending records to a rotated file
type Journal struct {
	mu     sync.Mutex
	w      io.WriteCloser
	logger *slog.Logger
}

// New opens a journal rotated by size. Zero sizes fall back to 10 MB and 10 backups.
func New(c Config, options ...func(*Journal)) (*Journal, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = DefaultMaxSizeMB
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = DefaultMaxBackups
	}

	return NewWithWriter(&lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}, options...), nil
}

// NewWithWriter creates a journal writing to w
func NewWithWriter(w io.WriteCloser, options ...func(*Journal)) *Journal {
	j := Journal{
		w:      w,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&j)
	}

	return &j
}

func (j *Journal) Emit(r event.Record) {
	if err := j.Write(r); err != nil {
		j.logger.Error("writing event", slog.String("event", r.Type.String()), slog.String("error", err.Error()))
	}
}

// Write appends a single record as a JSON line
func (j *Journal) Write(r event.Record) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.w == nil {
		return errors.New("event log closed")
	}
	if _, err = j.w.Write(line); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Close flushes and closes the journal file
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.w == nil {
		return nil
	}
	err := j.w.Close()
	j.w = nil
	return err
}
