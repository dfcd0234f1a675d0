// This file defines the configuration structure for playerbridge.
// It uses strict YAML decoding and explicit defaults.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by player.backend.
const (
	BackendSoft = "soft"
	BackendGst  = "gst"
)

// Config holds the complete daemon configuration.
// All fields must have explicit defaults or be required.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Player   PlayerConfig   `yaml:"player"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Branches BranchesConfig `yaml:"branches"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	HealthPort int `yaml:"health_port"` // Port for health endpoint
	HTTPPort   int `yaml:"http_port"`   // Port for API and branch feeds
}

// LogConfig defines logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// PlayerConfig defines the player endpoint.
type PlayerConfig struct {
	Name      string `yaml:"name"`
	URI       string `yaml:"uri,omitempty"`
	Autostart bool   `yaml:"autostart,omitempty"`  // Start playing once the server is up
	Backend   string `yaml:"backend"`              // "soft" or "gst"
	AudioCaps string `yaml:"audio_caps,omitempty"` // Empty uses the built-in audio set
	VideoCaps string `yaml:"video_caps,omitempty"` // Empty uses the built-in video set
}

// RuntimeConfig defines software backend resources.
type RuntimeConfig struct {
	Workers   int `yaml:"workers"`    // Stream producer pool size
	SinkQueue int `yaml:"sink_queue"` // Samples buffered per sink-adapter
}

// BranchesConfig defines branch fan-out settings.
type BranchesConfig struct {
	SubscriberBuffer int `yaml:"subscriber_buffer"` // Messages buffered per feed subscriber
}

// Load reads configuration from a YAML file.
// Returns an error if the file cannot be read or decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration from YAML bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields

	// An empty or comment-only document decodes to io.EOF and means "all defaults".
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8080
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8081
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Player.Name == "" {
		c.Player.Name = "player"
	}
	if c.Player.Backend == "" {
		c.Player.Backend = BackendSoft
	}
	if c.Runtime.Workers == 0 {
		c.Runtime.Workers = 16
	}
	if c.Runtime.SinkQueue == 0 {
		c.Runtime.SinkQueue = 64
	}
	if c.Branches.SubscriberBuffer == 0 {
		c.Branches.SubscriberBuffer = 1024
	}
}
