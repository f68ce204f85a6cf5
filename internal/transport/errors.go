package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned by Receive when no frame arrived within the timeout
	ErrTimeout = errors.New("receive timeout")

	// ErrClosed is returned when the transport is used after Close
	ErrClosed = errors.New("transport closed")

	// ErrNotConnected is returned when the transport is used before Connect
	ErrNotConnected = errors.New("transport not connected")
)

// ConnectionError is a handshake or link failure at connect time
type ConnectionError struct {
	Address string
	Err     error
}

func NewConnectionError(address string, err error) *ConnectionError {
	return &ConnectionError{Address: address, Err: err}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %s", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ReceiveError is a fatal link error observed while receiving
type ReceiveError struct {
	Err error
}

func NewReceiveError(err error) *ReceiveError {
	return &ReceiveError{Err: err}
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("receiving: %s", e.Err)
}

func (e *ReceiveError) Unwrap() error {
	return e.Err
}

// DecodeError is a single frame that could not be decoded. The link stays usable.
type DecodeError struct {
	Err error
}

func NewDecodeError(err error) *DecodeError {
	return &DecodeError{Err: err}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding frame: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a receive timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsDecodeError reports whether err is a non-fatal decode error
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
