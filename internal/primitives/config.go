package primitives

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/comalice/avssm"
)

// Snapshot formats understood by the persisters.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the stream manager configuration, usually loaded from YAML.
type Config struct {
	QueueSize         int              `json:"queueSize" yaml:"queueSize"`
	LogLevel          string           `json:"logLevel" yaml:"logLevel"`
	RoleSwitchTimeout time.Duration    `json:"roleSwitchTimeout" yaml:"roleSwitchTimeout"`
	Snapshot          SnapshotConfig   `json:"snapshot" yaml:"snapshot"`
	MQTT              MQTTConfig       `json:"mqtt" yaml:"mqtt"`
	Endpoints         []EndpointConfig `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// SnapshotConfig selects where connection states are persisted. An empty
// Format disables persistence.
type SnapshotConfig struct {
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Format  string `json:"format,omitempty" yaml:"format,omitempty"`
	Restore bool   `json:"restore,omitempty" yaml:"restore,omitempty"`
}

// MQTTConfig configures the transition publisher. An empty URL disables it.
type MQTTConfig struct {
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	ClientID    string `json:"clientID,omitempty" yaml:"clientID,omitempty"`
	TopicPrefix string `json:"topicPrefix" yaml:"topicPrefix"`
	QoS         byte   `json:"qos" yaml:"qos"`
	KeepAlive   uint16 `json:"keepAlive" yaml:"keepAlive"`
}

// EndpointConfig is a stream endpoint registered at start-up.
type EndpointConfig struct {
	Handle uint8         `json:"handle" yaml:"handle"`
	Peer   avssm.Address `json:"peer" yaml:"peer"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		QueueSize:         64,
		LogLevel:          "info",
		RoleSwitchTimeout: 1000 * time.Millisecond,
		MQTT: MQTTConfig{
			ClientID:    uuid.NewString(),
			TopicPrefix: "avssm",
			QoS:         1,
			KeepAlive:   20,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the whole configuration:
// - QueueSize is positive, RoleSwitchTimeout is not negative
// - LogLevel is a slog level name
// - snapshot format is known and has a directory
// - MQTT URL, when set, parses and QoS is at most 2
// - endpoint handles are unique
func (c *Config) Validate() error {
	var errs []error
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queueSize must be positive, got %d", c.QueueSize))
	}
	if c.RoleSwitchTimeout < 0 {
		errs = append(errs, fmt.Errorf("roleSwitchTimeout must not be negative, got %s", c.RoleSwitchTimeout))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch c.Snapshot.Format {
	case "":
	case FormatJSON, FormatYAML:
		if c.Snapshot.Dir == "" {
			errs = append(errs, errors.New("snapshot.dir is required when snapshot.format is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown snapshot.format %q", c.Snapshot.Format))
	}

	if c.MQTT.URL != "" {
		u, err := url.Parse(c.MQTT.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("mqtt.url: %w", err))
		} else if u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("mqtt.url %q needs scheme and host", c.MQTT.URL))
		}
		if c.MQTT.ClientID == "" {
			errs = append(errs, errors.New("mqtt.clientID is required"))
		}
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}

	seen := make(map[uint8]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		if seen[ep.Handle] {
			errs = append(errs, fmt.Errorf("endpoint %d: duplicate handle 0x%02x", i, ep.Handle))
		}
		seen[ep.Handle] = true
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel. An empty level means info.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logLevel: %w", err)
	}
	return l, nil
}
