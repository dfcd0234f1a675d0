// This file validates configuration values and returns descriptive errors.

package config

import (
	"fmt"
	"strings"

	"playerbridge/internal/core/caps"
	"playerbridge/internal/logger"
)

// Validate checks that all configuration values are within acceptable ranges.
// Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if err := c.Player.Validate(); err != nil {
		return fmt.Errorf("player config: %w", err)
	}
	if c.Runtime.Workers < 0 {
		return fmt.Errorf("runtime config: workers must be positive, got %d", c.Runtime.Workers)
	}
	if c.Runtime.SinkQueue < 0 {
		return fmt.Errorf("runtime config: sink_queue must be positive, got %d", c.Runtime.SinkQueue)
	}
	if c.Branches.SubscriberBuffer < 0 {
		return fmt.Errorf("branches config: subscriber_buffer must be positive, got %d", c.Branches.SubscriberBuffer)
	}
	return nil
}

// Validate checks server configuration values.
func (s *ServerConfig) Validate() error {
	if s.HealthPort <= 0 || s.HealthPort > 65535 {
		return fmt.Errorf("health_port must be between 1 and 65535, got %d", s.HealthPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", s.HTTPPort)
	}
	if s.HealthPort == s.HTTPPort {
		return fmt.Errorf("health_port and http_port must be different, both are %d", s.HealthPort)
	}
	return nil
}

// Validate checks logger settings.
func (l *LogConfig) Validate() error {
	if _, err := logger.ParseLevel(l.Level); err != nil {
		return err
	}
	if l.Format != "text" && l.Format != "json" {
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}
	return nil
}

// Validate checks the player endpoint settings.
func (p *PlayerConfig) Validate() error {
	if p.Name == "" || strings.ContainsAny(p.Name, "/ ") {
		return fmt.Errorf("name must be non-empty without '/' or spaces, got %q", p.Name)
	}
	if p.Backend != BackendSoft && p.Backend != BackendGst {
		return fmt.Errorf("invalid backend: %s (must be '%s' or '%s')", p.Backend, BackendSoft, BackendGst)
	}
	if p.Autostart && p.URI == "" {
		return fmt.Errorf("autostart requires a uri")
	}
	if _, err := caps.Parse(p.AudioCaps); err != nil {
		return fmt.Errorf("audio_caps: %w", err)
	}
	if _, err := caps.Parse(p.VideoCaps); err != nil {
		return fmt.Errorf("video_caps: %w", err)
	}
	return nil
}
