// Package alert delivers the fire alert over the broadcast text channel and confirms
// it with the operator acknowledgment, retrying on a fixed schedule.
package alert

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// PayloadType is the type tag of a fire alert
	PayloadType = "fire_coords"

	// TimestampLayout is the UTC second-precision layout of Payload.Timestamp
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// ErrInvalidPayload is wrapped by Payload.Validate
var ErrInvalidPayload = errors.New("invalid alert payload")

// Payload is the fire alert. Field order is the wire order.
type Payload struct {
	Type       string  `json:"type"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Alt        float64 `json:"alt"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
}

// NewPayload builds an alert stamped with now in UTC
func NewPayload(lat, lon, alt, confidence float64, now time.Time) Payload {
	return Payload{
		Type:       PayloadType,
		Lat:        lat,
		Lon:        lon,
		Alt:        alt,
		Confidence: confidence,
		Timestamp:  now.UTC().Format(TimestampLayout),
	}
}

// Validate checks the coordinates are finite and the confidence is within [0, 1]
func (p Payload) Validate() error {
	for name, v := range map[string]float64{"lat": p.Lat, "lon": p.Lon, "alt": p.Alt} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidPayload, name)
		}
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: lat %f out of range", ErrInvalidPayload, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: lon %f out of range", ErrInvalidPayload, p.Lon)
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidPayload, p.Confidence)
	}
	return nil
}

// Marshal encodes the payload as compact UTF-8 JSON
func (p Payload) Marshal() ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshalling alert: %w", err)
	}
	return b, nil
}
