package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/firelink/internal/alert"
	"github.com/roman-kulish/firelink/internal/eventlog"
	"github.com/roman-kulish/firelink/internal/publish"
	"github.com/roman-kulish/firelink/internal/transport/mavlink"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the main application configuration
type Config struct {
	Settings   Settings         `yaml:"settings" json:"settings"`
	Link       LinkConfig       `yaml:"link" json:"link"`
	System     SystemConfig     `yaml:"system" json:"system"`
	Alert      AlertConfig      `yaml:"alert" json:"alert"`
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	EventLog   EventLogConfig   `yaml:"eventLog" json:"eventLog"`
	MQTT       MQTTConfig       `yaml:"mqtt" json:"mqtt"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel   slog.Level `yaml:"logLevel" json:"logLevel"`
	LogFormat  string     `yaml:"logFormat" json:"logFormat"`
	Simulation bool       `yaml:"simulation" json:"simulation"`
}

// LinkConfig describes the vehicle endpoint
type LinkConfig struct {
	Address          string   `yaml:"address" json:"address"`
	Baud             int      `yaml:"baud" json:"baud"`
	HandshakeTimeout Duration `yaml:"handshakeTimeout" json:"handshakeTimeout"`
	ReceiveTimeout   Duration `yaml:"receiveTimeout" json:"receiveTimeout"`
}

// SystemConfig holds the MAVLink identities
type SystemConfig struct {
	LocalSystemID    uint8 `yaml:"localSystemID" json:"localSystemID"`
	LocalComponentID uint8 `yaml:"localComponentID" json:"localComponentID"`
	RemoteSystemID   uint8 `yaml:"remoteSystemID" json:"remoteSystemID"`
}

// AlertConfig controls alert delivery
type AlertConfig struct {
	RetryCount              int        `yaml:"retryCount" json:"retryCount"`
	RetryBackoff            []Duration `yaml:"retryBackoff" json:"retryBackoff"`
	FireConfidenceThreshold float64    `yaml:"fireConfidenceThreshold" json:"fireConfidenceThreshold"`
}

// SimulationConfig controls the synthetic vehicle
type SimulationConfig struct {
	Tick     Duration `yaml:"tick" json:"tick"`
	AckDelay Duration `yaml:"ackDelay" json:"ackDelay"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory    string   `yaml:"dataDirectory" json:"dataDirectory"`
	RecordInterval   Duration `yaml:"recordInterval" json:"recordInterval"`
	RecordSimulation bool     `yaml:"recordSimulation" json:"recordSimulation"`
}

// EventLogConfig represents the rotating event journal settings
type EventLogConfig struct {
	Path       string `yaml:"path" json:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB" json:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups" json:"maxBackups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// MQTTConfig represents the presentation push settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Broker      string `yaml:"broker" json:"broker"`
	ClientID    string `yaml:"clientID" json:"clientID"`
	TopicPrefix string `yaml:"topicPrefix" json:"topicPrefix"`
	QoS         byte   `yaml:"qos" json:"qos"`
}

// NewConfig returns the configuration with every default applied
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:   slog.LevelInfo,
			LogFormat:  LogFormatText,
			Simulation: true,
		},
		Link: LinkConfig{
			Baud:             mavlink.DefaultBaud,
			HandshakeTimeout: Duration(mavlink.DefaultHandshakeTimeout),
			ReceiveTimeout:   Duration(time.Second),
		},
		System: SystemConfig{
			LocalSystemID:    1,
			LocalComponentID: 191,
			RemoteSystemID:   255,
		},
		Alert: AlertConfig{
			RetryCount:              3,
			RetryBackoff:            []Duration{Duration(2 * time.Second), Duration(4 * time.Second), Duration(8 * time.Second)},
			FireConfidenceThreshold: 0.7,
		},
		Simulation: SimulationConfig{
			Tick:     Duration(time.Second),
			AckDelay: Duration(500 * time.Millisecond),
		},
		Storage: StorageConfig{
			DataDirectory:  "data",
			RecordInterval: Duration(time.Second),
		},
		EventLog: EventLogConfig{
			Path:       "logs/events.json",
			MaxSizeMB:  eventlog.DefaultMaxSizeMB,
			MaxBackups: eventlog.DefaultMaxBackups,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    "firelink",
			TopicPrefix: "firelink",
			QoS:         1,
		},
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(p)
}

// ParseConfig decodes YAML over the defaults and validates the result
func ParseConfig(p []byte) (*Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(p, c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Settings.LogFormat) {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("settings.logFormat: unknown format %q", c.Settings.LogFormat))
	}

	if !c.Settings.Simulation {
		mc := c.MavlinkConfig()
		if err := mc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("link: %w", err))
		}
	}
	if c.Link.ReceiveTimeout <= 0 {
		errs = append(errs, errors.New("link.receiveTimeout: must be positive"))
	}

	if c.Alert.RetryCount < 1 {
		errs = append(errs, fmt.Errorf("alert.retryCount: must be at least 1, got %d", c.Alert.RetryCount))
	} else if len(c.Alert.RetryBackoff) < c.Alert.RetryCount {
		errs = append(errs, fmt.Errorf("alert.retryBackoff: %d values for %d attempts", len(c.Alert.RetryBackoff), c.Alert.RetryCount))
	}
	for i, d := range c.Alert.RetryBackoff {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("alert.retryBackoff[%d]: must be positive, got %s", i, d))
		}
	}
	if t := c.Alert.FireConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("alert.fireConfidenceThreshold: must be within [0, 1], got %v", t))
	}

	if c.Simulation.Tick <= 0 {
		errs = append(errs, errors.New("simulation.tick: must be positive"))
	}
	if c.Simulation.AckDelay < 0 {
		errs = append(errs, errors.New("simulation.ackDelay: must not be negative"))
	}

	if c.Storage.RecordInterval < 0 {
		errs = append(errs, errors.New("storage.recordInterval: must not be negative"))
	}

	if c.EventLog.Path != "" {
		if err := c.EventLogConfig().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("eventLog: %w", err))
		}
	}

	if c.MQTT.Enabled {
		if err := c.PublishConfig().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RetryPolicy returns the first retryCount backoff values
func (c *Config) RetryPolicy() alert.RetryPolicy {
	policy := make(alert.RetryPolicy, c.Alert.RetryCount)
	for i := range policy {
		policy[i] = time.Duration(c.Alert.RetryBackoff[i])
	}
	return policy
}

func (c *Config) MavlinkConfig() mavlink.Config {
	return mavlink.Config{
		Address:          c.Link.Address,
		Baud:             c.Link.Baud,
		LocalSystemID:    c.System.LocalSystemID,
		LocalComponentID: c.System.LocalComponentID,
		RemoteSystemID:   c.System.RemoteSystemID,
		HandshakeTimeout: time.Duration(c.Link.HandshakeTimeout),
	}
}

func (c *Config) EventLogConfig() eventlog.Config {
	return eventlog.Config{
		Path:       c.EventLog.Path,
		MaxSizeMB:  c.EventLog.MaxSizeMB,
		MaxBackups: c.EventLog.MaxBackups,
		Compress:   c.EventLog.Compress,
	}
}

func (c *Config) PublishConfig() publish.Config {
	return publish.Config{
		Broker:      c.MQTT.Broker,
		ClientID:    c.MQTT.ClientID,
		TopicPrefix: c.MQTT.TopicPrefix,
		QoS:         c.MQTT.QoS,
	}
}

// Duration is a time.Duration read from strings such as "500ms" or "2s"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse %q: %w", value.Value, err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
