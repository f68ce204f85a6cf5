package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"

	defaultSize = 1600
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	OutputFile    string
	Format        ImageFormat
	Size          int
	Theme         ColorTheme
	MinTimestamp  *time.Time
	MaxTimestamp  *time.Time
	TimeZone      *time.Location
	Verbose       bool
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Size:     defaultSize,
		Theme:    ClassicTheme,
		TimeZone: time.Local,
	}
}

// NewConfigFromCLI parses args, without the program name
func NewConfigFromCLI(args []string) (*Config, error) {
	c := NewConfig()
	fs := pflag.NewFlagSet("trackmap", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage of trackmap:")
		fs.PrintDefaults()
	}

	var imageFormat, theme, from, to, tz string
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64VarP(&c.SessionID, "session", "s", 1, "Session ID")
	fs.StringVarP(&c.OutputFile, "output", "o", "", "Path to the output file, without extension")
	fs.StringVarP(&imageFormat, "format", "f", ImagePNG, "Output image format. [png, jpeg]")
	fs.IntVar(&c.Size, "size", defaultSize, "Width and height of the map area in pixels")
	fs.StringVar(&theme, "theme", string(ClassicTheme), "Altitude colour theme. [classic, thermal, marine, jungle, grayscale]")
	fs.StringVar(&from, "from", "", "Only draw points recorded at or after this time (RFC 3339)")
	fs.StringVar(&to, "to", "", "Only draw points recorded at or before this time (RFC 3339)")
	fs.StringVar(&tz, "tz", "", "Time zone for labels, e.g. Europe/Kyiv (default local)")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as scale and track info")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if c.MinTimestamp, err = parseTimestamp(from); err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	if c.MaxTimestamp, err = parseTimestamp(to); err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}
	if tz != "" {
		if c.TimeZone, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("--tz: %w", err)
		}
	}

	imageFormat = strings.ToLower(imageFormat)
	c.Theme = ColorTheme(strings.ToLower(theme))

	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.SessionID <= 0:
		err = errors.New("session id is required")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.Size < 200:
		err = fmt.Errorf("size must be at least 200 pixels, got %d", c.Size)
	case c.MinTimestamp != nil && c.MaxTimestamp != nil && c.MinTimestamp.After(*c.MaxTimestamp):
		err = errors.New("--from is after --to")
	}
	if err == nil {
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		} else if _, ok := colorThemes[c.Theme]; !ok {
			err = fmt.Errorf("invalid theme: %s", theme)
		}
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

func parseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
