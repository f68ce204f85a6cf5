package link

import (
	"context"
	"log/slog"

	"github.com/roman-kulish/firelink/internal/event"
	"github.com/roman-kulish/firelink/internal/frame"
	"github.com/roman-kulish/firelink/internal/transport"
)

// receiveLoop decodes frames until ctx is cancelled or the transport fails.
// A receive timeout is not an error; it only gives the loop a chance to see ctx.
func (c *Connection) receiveLoop(ctx context.Context) {
	defer c.wg.Done()

	c.logger.Debug("receive loop started", slog.Duration("timeout", c.receiveTimeout))
	defer c.logger.Debug("receive loop stopped")

	for ctx.Err() == nil {
		f, err := c.transport.Receive(ctx, c.receiveTimeout)
		switch {
		case err == nil:
			c.dispatch(f)

		case ctx.Err() != nil:
			return

		case transport.IsTimeout(err):
			continue

		case transport.IsDecodeError(err):
			c.decodeErrors.Add(1)
			c.logger.Warn("dropping undecodable frame", slog.String("error", err.Error()))

		default:
			c.logger.Error("link lost", slog.String("error", err.Error()))
			c.release()
			c.state.CompareAndSwap(int32(Connected), int32(Disconnected))
			c.events.Emit(event.New(event.ConnectionLost, map[string]any{"error": err.Error()}))
			return
		}
	}
}

// release frees the link handle after a fatal receive error. The transport stays
// usable, Connect opens it again.
func (c *Connection) release() {
	d, ok := c.transport.(transport.Disconnector)
	if !ok {
		return
	}
	if err := d.Disconnect(); err != nil {
		c.logger.Warn("releasing link", slog.String("error", err.Error()))
	}
}

// dispatch applies a single frame: telemetry kinds go to the store, status text is
// checked for the acknowledgment marker, anything else is ignored.
func (c *Connection) dispatch(f frame.Frame) {
	c.frames.Add(1)

	if c.store.Update(f) {
		return
	}

	st, ok := f.(frame.StatusText)
	if !ok {
		return
	}

	if st.Contains(c.marker) {
		c.acks.Add(1)
		c.logger.Info("acknowledgment received from operator")
		c.signal.Set()
		return
	}

	c.logger.Debug("status text", slog.Int("severity", int(st.Severity)), slog.String("text", st.Decode()))
}
