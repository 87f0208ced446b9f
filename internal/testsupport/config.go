package testsupport

import (
	"path/filepath"
	"testing"

	"tarmac/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Decoder.BaseURL = "http://127.0.0.1:0"
	cfgVal.Manifest.BaseURL = "http://127.0.0.1:0"
	cfgVal.Manifest.Station = "ADD"
	cfgVal.Camera.Device = "/dev/video9"
	cfgVal.Daemon.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDecoderURL points the decode client at the given endpoint.
func WithDecoderURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decoder.BaseURL = url
	}
}

// WithManifestURL points the manifest client at the given endpoint.
func WithManifestURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Manifest.BaseURL = url
	}
}

// WithStation overrides the configured home station.
func WithStation(station string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Manifest.Station = station
	}
}

// WithCameraDevice overrides the capture device path.
func WithCameraDevice(device string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Camera.Device = device
	}
}
