package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"tarmac/internal/config"
	"tarmac/internal/logging"
)

var (
	// ErrNotReady marks a transient hardware condition; the controller
	// treats it as a skipped tick, not a failed attempt.
	ErrNotReady = errors.New("camera not ready")

	// ErrNotAcquired is returned when a capture is requested before the
	// device was acquired or after it was released.
	ErrNotAcquired = errors.New("camera not acquired")

	// ErrAcquire marks a failed hardware handshake. This is a hard failure
	// requiring explicit operator retry; the session must not silently loop.
	ErrAcquire = errors.New("camera acquisition failed")
)

type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.Output()
}

// Source provides exclusive access to one video device.
type Source struct {
	device         string
	captureBinary  string
	acquireTimeout time.Duration
	captureTimeout time.Duration
	warmupFrames   int
	runner         commandRunner
	accessCheck    func(device string) error
	logger         *slog.Logger

	mu       sync.Mutex
	acquired bool
}

// NewSource builds a camera source from configuration.
func NewSource(cfg *config.Config, logger *slog.Logger) *Source {
	if cfg == nil {
		return nil
	}
	return &Source{
		device:         cfg.Camera.Device,
		captureBinary:  cfg.CaptureBinary(),
		acquireTimeout: time.Duration(cfg.Camera.AcquireTimeout) * time.Second,
		captureTimeout: time.Duration(cfg.Camera.CaptureTimeout) * time.Second,
		warmupFrames:   cfg.Camera.WarmupFrames,
		runner:         execCommandRunner{},
		accessCheck:    checkDeviceAccess,
		logger:         logging.NewComponentLogger(logger, "camera"),
	}
}

// Device returns the configured device path.
func (s *Source) Device() string {
	if s == nil {
		return ""
	}
	return s.device
}

// Acquired reports whether the device is currently held.
func (s *Source) Acquired() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

// Acquire performs the hardware handshake: verify the device node, then pull
// and discard warm-up frames while the sensor settles. The whole handshake is
// bounded by the acquire timeout; a stuck handshake must fail hard rather
// than loop silently.
func (s *Source) Acquire(ctx context.Context) error {
	if s == nil {
		return ErrAcquire
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquired {
		return fmt.Errorf("%w: device %s already acquired", ErrAcquire, s.device)
	}

	acquireCtx := ctx
	var cancel context.CancelFunc
	if s.acquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
	}

	if err := s.accessCheck(s.device); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAcquire, s.device, err)
	}

	for i := 0; i < s.warmupFrames; i++ {
		if _, err := s.captureOnce(acquireCtx); err != nil {
			if acquireCtx.Err() != nil {
				return fmt.Errorf("%w: %s: handshake timed out after %s", ErrAcquire, s.device, s.acquireTimeout)
			}
			return fmt.Errorf("%w: %s: warmup capture: %v", ErrAcquire, s.device, err)
		}
	}

	s.acquired = true
	s.logger.Info("camera acquired",
		logging.String(logging.FieldEventType, "camera_acquired"),
		logging.String(logging.FieldDevice, s.device),
	)
	return nil
}

// Release frees the device for the next session. Safe to call repeatedly.
func (s *Source) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return
	}
	s.acquired = false
	s.logger.Info("camera released",
		logging.String(logging.FieldEventType, "camera_released"),
		logging.String(logging.FieldDevice, s.device),
	)
}

// StillCapture produces one still frame reflecting the most recent camera
// view. Transient hardware failures surface as ErrNotReady.
func (s *Source) StillCapture(ctx context.Context) ([]byte, error) {
	if s == nil {
		return nil, ErrNotAcquired
	}
	s.mu.Lock()
	acquired := s.acquired
	s.mu.Unlock()
	if !acquired {
		return nil, ErrNotAcquired
	}

	captureCtx := ctx
	var cancel context.CancelFunc
	if s.captureTimeout > 0 {
		captureCtx, cancel = context.WithTimeout(ctx, s.captureTimeout)
		defer cancel()
	}
	return s.captureOnce(captureCtx)
}

func (s *Source) captureOnce(ctx context.Context) ([]byte, error) {
	output, err := s.runner.Output(ctx, s.captureBinary, stillCaptureArgs(s.device)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("capture %s: %w", s.device, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The capture tool exits non-zero when the device cannot
			// deliver a frame yet; the next tick will try again.
			return nil, fmt.Errorf("%w: %s", ErrNotReady, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("capture %s: %w", s.device, err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrNotReady)
	}
	return output, nil
}

func stillCaptureArgs(device string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2", "-i", device,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "mjpeg",
		"pipe:1",
	}
}

// checkDeviceAccess verifies the device node exists, is a character device,
// and is readable by the daemon user.
func checkDeviceAccess(device string) error {
	var stat unix.Stat_t
	if err := unix.Stat(device, &stat); err != nil {
		return fmt.Errorf("stat device: %w", err)
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFCHR {
		return fmt.Errorf("%s is not a character device", device)
	}
	if err := unix.Access(device, unix.R_OK|unix.W_OK); err != nil {
		return fmt.Errorf("device access: %w", err)
	}
	return nil
}
