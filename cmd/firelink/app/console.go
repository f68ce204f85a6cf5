package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const consoleHelp = `commands:
  fire            report a fire at the current position
  send            send the current position as a fire alert
  detect <conf>   report a detector hit with confidence in [0, 1]
  status          show link state and telemetry
  events          show recent events
  reconnect       reconnect the vehicle link
  quit            stop the service`

// Console is the line oriented operator interface
type Console struct {
	app *App
	in  io.Reader

	mu  sync.Mutex
	out io.Writer
	wg  sync.WaitGroup
}

func NewConsole(a *App, in io.Reader, out io.Writer) *Console {
	return &Console{app: a, in: in, out: out}
}

// Serve reads commands until quit, end of input or ctx is done. Alert results are
// printed as they arrive; Serve waits for them before returning.
func (c *Console) Serve(ctx context.Context) error {
	defer c.wg.Wait()

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.printf("%s\n", consoleHelp)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			if quit := c.Execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// Execute runs a single command line and reports whether the operator asked to quit
func (c *Console) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "fire":
		c.printf("fire reported, sending alert\n")
		c.await(c.app.ReportFire(ctx))

	case "send":
		c.printf("sending alert\n")
		c.await(c.app.SendCurrentPosition(ctx))

	case "detect":
		if len(fields) != 2 {
			c.printf("usage: detect <confidence>\n")
			return false
		}
		confidence, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || confidence < 0 || confidence > 1 {
			c.printf("invalid confidence %q\n", fields[1])
			return false
		}
		result, ok := c.app.ReportDetection(ctx, confidence)
		if !ok {
			c.printf("detection ignored, confidence %.2f below threshold %.2f\n", confidence, c.app.config.Alert.FireConfidenceThreshold)
			return false
		}
		c.printf("detection accepted, sending alert\n")
		c.await(result)

	case "status":
		c.printf("%s", formatStatus(c.app.Status(), time.Now()))

	case "events":
		for _, r := range c.app.Events() {
			c.printf("%s  %-24s %v\n", r.Timestamp.Format(time.TimeOnly), r.Type, r.Data)
		}

	case "reconnect":
		if err := c.app.Reconnect(ctx); err != nil {
			c.printf("reconnect failed: %s\n", err)
		} else {
			c.printf("link connected\n")
		}

	case "quit", "exit":
		return true

	case "help":
		c.printf("%s\n", consoleHelp)

	default:
		c.printf("unknown command %q, type help\n", cmd)
	}

	return false
}

func (c *Console) await(result <-chan bool) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if <-result {
			c.printf("alert acknowledged by operator\n")
		} else {
			c.printf("alert NOT acknowledged\n")
		}
	}()
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func formatStatus(s Status, now time.Time) string {
	var sb strings.Builder

	mode := ModeMavlink
	if s.Simulation {
		mode = ModeSimulation
	}

	fmt.Fprintf(&sb, "link:      %s (%s)\n", s.State, mode)
	if !s.Started.IsZero() {
		fmt.Fprintf(&sb, "started:   %s\n", humanize.RelTime(s.Started, now, "ago", "from now"))
	}
	fmt.Fprintf(&sb, "frames:    %s (%s undecodable, %s acks)\n",
		humanize.Comma(s.Stats.Frames), humanize.Comma(s.Stats.DecodeErrors), humanize.Comma(s.Stats.Acks))
	fmt.Fprintf(&sb, "alert:     sending=%t schedule=%v\n", s.Sending, s.Policy.Strings())

	t := s.Telemetry
	fmt.Fprintf(&sb, "position:  %.6f, %.6f alt %.1f m\n", t.Latitude, t.Longitude, t.Altitude)
	fmt.Fprintf(&sb, "attitude:  heading %.0f° yaw %.1f° pitch %.1f° roll %.1f°\n", t.Heading, t.Yaw, t.Pitch, t.Roll)
	if !t.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "updated:   %s\n", humanize.RelTime(t.Timestamp, now, "ago", "from now"))
	}

	return sb.String()
}
