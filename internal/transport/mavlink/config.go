package mavlink

import (
	"fmt"
	"strings"
	"time"

	"github.com/bluenviron/gomavlib/v2"
)

const (
	DefaultBaud             = 57600
	DefaultHandshakeTimeout = 10 * time.Second
)

// Config describes the link to the vehicle autopilot
type Config struct {
	// Address selects the endpoint:
	//   serial:/dev/ttyUSB0 (or a bare device path), udp:0.0.0.0:14550 (listen),
	//   udpout:10.0.0.2:14550, tcp:10.0.0.2:5760, tcpin:0.0.0.0:5760
	Address string
	Baud    int // Serial speed, ignored for network endpoints

	LocalSystemID    uint8 // System id this station transmits with
	LocalComponentID uint8 // Component id this station transmits with
	RemoteSystemID   uint8 // Only frames from this system are accepted, 0 accepts any

	HandshakeTimeout time.Duration // How long Connect waits for the first heartbeat
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("mavlink.Config: address is required")
	}
	if c.Baud < 0 {
		return fmt.Errorf("mavlink.Config: baud must not be negative: %d", c.Baud)
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("mavlink.Config: handshake timeout must not be negative: %s", c.HandshakeTimeout)
	}
	if _, err := endpointFor(c.Address, c.Baud); err != nil {
		return fmt.Errorf("mavlink.Config: %w", err)
	}
	return nil
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.LocalSystemID == 0 {
		cfg.LocalSystemID = 1
	}
	if cfg.LocalComponentID == 0 {
		cfg.LocalComponentID = 1
	}
	return cfg
}

func endpointFor(address string, baud int) (gomavlib.EndpointConf, error) {
	scheme, rest, found := strings.Cut(address, ":")
	if !found || strings.HasPrefix(address, "/") {
		scheme, rest = "serial", address
	}
	if rest == "" {
		return nil, fmt.Errorf("invalid address '%s'", address)
	}

	switch scheme {
	case "serial":
		if baud == 0 {
			baud = DefaultBaud
		}
		return gomavlib.EndpointSerial{Device: rest, Baud: baud}, nil
	case "udp", "udpin":
		return gomavlib.EndpointUDPServer{Address: rest}, nil
	case "udpout":
		return gomavlib.EndpointUDPClient{Address: rest}, nil
	case "tcp", "tcpout":
		return gomavlib.EndpointTCPClient{Address: rest}, nil
	case "tcpin":
		return gomavlib.EndpointTCPServer{Address: rest}, nil
	default:
		return nil, fmt.Errorf("unknown endpoint type '%s'", scheme)
	}
}
