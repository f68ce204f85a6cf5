// Package frame defines the decoded inbound message kinds the ground link consumes.
// Transports translate their wire messages into these values, so everything above
// the transport layer is independent of the codec in use.
package frame

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind identifies a decoded frame
type Kind uint8

const (
	KindUnknown Kind = iota
	KindHeartbeat
	KindPosition
	KindHeading
	KindOrientation
	KindStatusText
)

func (k Kind) String() string {
	switch k {
	case KindHeartbeat:
		return "heartbeat"
	case KindPosition:
		return "position"
	case KindHeading:
		return "heading"
	case KindOrientation:
		return "orientation"
	case KindStatusText:
		return "status_text"
	default:
		return "unknown"
	}
}

// MaxStatusTextLen is the payload size of a single status text frame
const MaxStatusTextLen = 50

// Frame is a single decoded inbound message
type Frame interface {
	Kind() Kind
}

// Heartbeat is the remote liveness frame
type Heartbeat struct {
	SystemID    uint8
	ComponentID uint8
}

// Position carries the global position in fixed point units
type Position struct {
	LatE7 int32 // Latitude in degrees * 1e7
	LonE7 int32 // Longitude in degrees * 1e7
	AltMM int32 // Altitude in millimetres
}

// Heading carries the vehicle heading
type Heading struct {
	Degrees uint16 // Heading in degrees, 0..359
}

// Orientation carries the vehicle attitude
type Orientation struct {
	Yaw   float32 // Yaw angle in radians
	Pitch float32 // Pitch angle in radians
	Roll  float32 // Roll angle in radians
}

// StatusText carries a free form text message, possibly NUL padded and not valid UTF-8
type StatusText struct {
	Severity uint8
	Text     []byte
}

// Unknown is any message the link does not act upon
type Unknown struct {
	MessageID uint32
}

func (Heartbeat) Kind() Kind   { return KindHeartbeat }
func (Position) Kind() Kind    { return KindPosition }
func (Heading) Kind() Kind     { return KindHeading }
func (Orientation) Kind() Kind { return KindOrientation }
func (StatusText) Kind() Kind  { return KindStatusText }
func (Unknown) Kind() Kind     { return KindUnknown }

// Decode returns the text best-effort: trailing NUL padding is cut and invalid UTF-8
// sequences are dropped.
func (s StatusText) Decode() string {
	text := s.Text
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	return strings.ToValidUTF8(string(text), "")
}

// Contains reports whether the decoded text contains marker as a substring
func (s StatusText) Contains(marker string) bool {
	return strings.Contains(s.Decode(), marker)
}

func (s StatusText) String() string {
	return fmt.Sprintf("status_text(severity=%d, %q)", s.Severity, s.Decode())
}
