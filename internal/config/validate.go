package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateDecoder(); err != nil {
		return err
	}
	if err := c.validateManifest(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCamera() error {
	if !strings.HasPrefix(c.Camera.Device, "/dev/") {
		return fmt.Errorf("camera.device %q must be an absolute device path", c.Camera.Device)
	}
	return nil
}

func (c *Config) validateDecoder() error {
	if c.Decoder.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tarmac/config.toml"
		}
		return fmt.Errorf("decoder.base_url is required. Edit %s (create with 'tarmac config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateManifest() error {
	if c.Manifest.BaseURL == "" {
		return errors.New("manifest.base_url is required")
	}
	if c.Manifest.Station != "" && len(c.Manifest.Station) != 3 {
		return fmt.Errorf("manifest.station %q must be a 3-letter IATA station code", c.Manifest.Station)
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.TickIntervalMS < 100 {
		return errors.New("session.tick_interval_ms must be at least 100")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if strings.TrimSpace(c.Daemon.APIBind) == "" {
		return errors.New("daemon.api_bind is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
