package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCamera()
	c.normalizeDecoder()
	c.normalizeManifest()
	c.normalizeSession()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCamera() {
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	if c.Camera.Device == "" {
		c.Camera.Device = defaultCameraDevice
	}
	if c.Camera.AcquireTimeout <= 0 {
		c.Camera.AcquireTimeout = defaultCameraAcquireTimeout
	}
	if c.Camera.CaptureTimeout <= 0 {
		c.Camera.CaptureTimeout = defaultCameraCaptureTimeout
	}
	if c.Camera.WarmupFrames < 0 {
		c.Camera.WarmupFrames = 0
	}
}

func (c *Config) normalizeDecoder() {
	if c.Decoder.APIKey == "" {
		if value, ok := os.LookupEnv("TARMAC_DECODER_API_KEY"); ok {
			c.Decoder.APIKey = value
		}
	}
	c.Decoder.BaseURL = strings.TrimSpace(c.Decoder.BaseURL)
	if c.Decoder.TimeoutSeconds <= 0 {
		c.Decoder.TimeoutSeconds = defaultDecoderTimeoutSeconds
	}
}

func (c *Config) normalizeManifest() {
	if c.Manifest.APIKey == "" {
		if value, ok := os.LookupEnv("TARMAC_MANIFEST_API_KEY"); ok {
			c.Manifest.APIKey = value
		}
	}
	c.Manifest.BaseURL = strings.TrimSpace(c.Manifest.BaseURL)
	c.Manifest.Station = strings.ToUpper(strings.TrimSpace(c.Manifest.Station))
	if c.Manifest.TimeoutSeconds <= 0 {
		c.Manifest.TimeoutSeconds = defaultManifestTimeout
	}
}

func (c *Config) normalizeSession() {
	if c.Session.TickIntervalMS <= 0 {
		c.Session.TickIntervalMS = defaultTickIntervalMS
	}
	if c.Session.OverlayHoldMS <= 0 {
		c.Session.OverlayHoldMS = defaultOverlayHoldMS
	}
	if c.Session.MaxRecordsShown <= 0 {
		c.Session.MaxRecordsShown = defaultMaxRecordsShown
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
