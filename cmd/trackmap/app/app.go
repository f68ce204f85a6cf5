package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	track, err := readTrack(ctx, store, config, logger)
	if err != nil {
		return err
	}

	return render(track, config, logger)
}

func readTrack(ctx context.Context, store storage.Store, config *Config, logger *slog.Logger) (*TrackData, error) {
	var opts []storage.TrackOption
	var filters []any
	if config.MinTimestamp != nil {
		opts = append(opts, storage.WithStartTime(config.MinTimestamp.UTC()))
		filters = append(filters, slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)))
	}
	if config.MaxTimestamp != nil {
		opts = append(opts, storage.WithEndTime(config.MaxTimestamp.UTC()))
		filters = append(filters, slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))
	}
	if len(filters) > 0 {
		logger.Info("reader configuration", filters...)
	}

	iter, err := store.ReadTrack(ctx, config.SessionID, opts...)
	if err != nil {
		return nil, fmt.Errorf("reading track: %w", err)
	}
	defer iter.Close()

	track := NewTrackData(iter.Session())
	for iter.Next(ctx) {
		track.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return nil, fmt.Errorf("reading track: %w", err)
	}

	records, err := store.ReadEvents(ctx, config.SessionID, event.FireCoordsSent, event.FireCoordsFailed)
	if err != nil {
		return nil, fmt.Errorf("reading alerts: %w", err)
	}
	for _, r := range records {
		if !inRange(r.Timestamp, config) {
			continue
		}
		if !track.AddAlert(r) && config.Verbose {
			logger.Debug("alert without position", slog.String("type", string(r.Type)))
		}
	}

	logger.Info("finished reading track",
		slog.Group("stats",
			slog.String("points", humanize.Comma(int64(len(track.Points)))),
			slog.Int("alerts", len(track.Markers)),
			slog.String("distance", humanMetres(track.Distance)),
			slog.String("minTimestamp", track.TimestampStart.In(config.TimeZone).Format(time.DateTime)),
			slog.String("maxTimestamp", track.TimestampEnd.In(config.TimeZone).Format(time.DateTime)),
		))

	return track, nil
}

func inRange(ts time.Time, config *Config) bool {
	if config.MinTimestamp != nil && ts.Before(*config.MinTimestamp) {
		return false
	}
	if config.MaxTimestamp != nil && ts.After(*config.MaxTimestamp) {
		return false
	}
	return true
}

func render(track *TrackData, config *Config, logger *slog.Logger) error {
	renderer, err := NewTrackRenderer(RenderConfig{
		Size:          config.Size,
		Location:      config.TimeZone,
		ColorTheme:    config.Theme,
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating track renderer: %w", err)
	}

	logger.Info("rendering track",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("size", config.Size),
		))

	img, err := renderer.Render(track)
	if err != nil {
		return fmt.Errorf("rendering track: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
