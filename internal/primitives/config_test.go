package primitives

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/comalice/avssm"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.MQTT.ClientID == "" {
		t.Error("default config has no MQTT client id")
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
queueSize: 16
logLevel: debug
roleSwitchTimeout: 1500ms
snapshot:
  dir: /var/lib/avssm
  format: yaml
  restore: true
mqtt:
  url: tcp://localhost:1883
  topicPrefix: car/a2dp
  qos: 0
endpoints:
  - handle: 0x41
    peer: "00:1a:7d:da:71:13"
  - handle: 0x42
    peer: "aa:bb:cc:dd:ee:ff"
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.QueueSize != 16 {
		t.Errorf("QueueSize = %d", cfg.QueueSize)
	}
	if cfg.RoleSwitchTimeout != 1500*time.Millisecond {
		t.Errorf("RoleSwitchTimeout = %s", cfg.RoleSwitchTimeout)
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("SlogLevel = %s", lvl)
	}
	if cfg.Snapshot.Format != FormatYAML || !cfg.Snapshot.Restore {
		t.Errorf("Snapshot = %+v", cfg.Snapshot)
	}
	if cfg.MQTT.TopicPrefix != "car/a2dp" || cfg.MQTT.QoS != 0 || cfg.MQTT.KeepAlive != 20 {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if len(cfg.Endpoints) != 2 {
		t.Fatalf("Endpoints = %+v", cfg.Endpoints)
	}
	want := avssm.Address{0x00, 0x1a, 0x7d, 0xda, 0x71, 0x13}
	if cfg.Endpoints[0].Handle != 0x41 || cfg.Endpoints[0].Peer != want {
		t.Errorf("Endpoints[0] = %+v", cfg.Endpoints[0])
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero queue", func(c *Config) { c.QueueSize = 0 }, "queueSize"},
		{"negative timer", func(c *Config) { c.RoleSwitchTimeout = -time.Second }, "roleSwitchTimeout"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "logLevel"},
		{"format without dir", func(c *Config) { c.Snapshot.Format = FormatJSON }, "snapshot.dir"},
		{"unknown format", func(c *Config) { c.Snapshot = SnapshotConfig{Dir: "/tmp", Format: "xml"} }, "snapshot.format"},
		{"mqtt without host", func(c *Config) { c.MQTT.URL = "localhost" }, "scheme and host"},
		{"mqtt qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"duplicate handle", func(c *Config) {
			c.Endpoints = []EndpointConfig{{Handle: 1}, {Handle: 1}}
		}, "duplicate handle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avssm.yaml")
	if err := os.WriteFile(path, []byte("queueSize: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.QueueSize != 8 || cfg.LogLevel != "info" {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	if err := os.WriteFile(path, []byte("queueSize: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed yaml accepted")
	}
}
