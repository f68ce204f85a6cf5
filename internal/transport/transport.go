package transport

import (
	"context"
	"time"

	"github.com/roman-kulish/firelink/internal/frame"
)

// Transport is the point-to-point link to the vehicle. Inbound traffic is delivered as
// decoded frames, outbound traffic is raw status text.
//
// Contract:
//   - Connect performs the handshake; it returns a *ConnectionError on failure
//   - Receive blocks at most for timeout and returns ErrTimeout when nothing arrived,
//     a *DecodeError for a frame that could not be decoded (non-fatal), or any other
//     error when the link is lost
//   - Transmit sends text as one or more status text frames; delivery is not confirmed
//   - Close releases the link; it is safe to call more than once
type Transport interface {
	Connect(ctx context.Context) error
	Receive(ctx context.Context, timeout time.Duration) (frame.Frame, error)
	Transmit(ctx context.Context, text []byte) error
	Close() error
}

// PendingCanceler is implemented by transports that produce deferred work on Transmit,
// such as the synthetic acknowledgments of the simulation driver.
type PendingCanceler interface {
	CancelPending()
}

// Disconnector is implemented by transports that can release the link without being
// closed for good. A disconnected transport may be connected again.
type Disconnector interface {
	Disconnect() error
}
