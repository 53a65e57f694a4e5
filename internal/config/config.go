package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spectroneph/nephd/internal/protocol"
	"github.com/spectroneph/nephd/internal/stream"
	"github.com/spectroneph/nephd/internal/transport"
)

// Config is the nephd runtime configuration, loaded from a TOML file.
// Zero values are replaced by device defaults; a missing file yields the
// defaults outright.
type Config struct {
	Device    DeviceConfig    `toml:"device"`
	Transport TransportConfig `toml:"transport"`
	Streams   StreamConfig    `toml:"streams"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Logging   LoggingConfig   `toml:"logging"`
	Sim       SimConfig       `toml:"sim"`
}

type DeviceConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type TransportConfig struct {
	Kind       string `toml:"kind"`
	Addr       string `toml:"addr"`
	SerialPort string `toml:"serial_port"`
	BaudRate   int    `toml:"baud_rate"`
}

type StreamConfig struct {
	MaxStreams   int `toml:"max_streams"`
	TickInterval int `toml:"tick_interval_ms"`
	MaxLineBytes int `toml:"max_line_bytes"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// SimConfig shapes the simulated sensor used when no instrument is
// attached.
type SimConfig struct {
	SensorConnected bool  `toml:"sensor_connected"`
	ExternalLed     bool  `toml:"external_led"`
	Seed            int64 `toml:"seed"`
}

// Default returns the configuration nephd runs with when no file is
// given: stdio transport and the simulated sensor attached.
func Default() Config {
	var cfg Config
	cfg.Sim.SensorConnected = true
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates the configuration at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Device.Name == "" {
		c.Device.Name = "AS7341 Nephelometer"
	}
	if c.Device.Version == "" {
		c.Device.Version = "0.1.0"
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = transport.KindStdio
	}
	if c.Transport.BaudRate == 0 {
		c.Transport.BaudRate = transport.DefaultBaudRate
	}
	if c.Streams.MaxStreams == 0 {
		c.Streams.MaxStreams = stream.DefaultMaxStreams
	}
	if c.Streams.TickInterval == 0 {
		c.Streams.TickInterval = 1
	}
	if c.Streams.MaxLineBytes == 0 {
		c.Streams.MaxLineBytes = protocol.DefaultMaxLineBytes
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch c.Transport.Kind {
	case transport.KindStdio:
	case transport.KindTCP:
		if strings.TrimSpace(c.Transport.Addr) == "" {
			return fmt.Errorf("config: tcp transport requires addr")
		}
	case transport.KindSerial:
		if strings.TrimSpace(c.Transport.SerialPort) == "" {
			return fmt.Errorf("config: serial transport requires serial_port")
		}
	default:
		return fmt.Errorf("config: unknown transport kind %q", c.Transport.Kind)
	}
	if c.Streams.MaxStreams < 1 {
		return fmt.Errorf("config: max_streams must be positive")
	}
	if c.Streams.TickInterval < 1 {
		return fmt.Errorf("config: tick_interval_ms must be positive")
	}
	return nil
}
