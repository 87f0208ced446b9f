package camera

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"tarmac/internal/logging"
)

type fakeRunner struct {
	calls  int
	output func(call int) ([]byte, error)
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.output(f.calls)
}

func newTestSource(runner commandRunner, accessErr error) *Source {
	return &Source{
		device:         "/dev/video9",
		captureBinary:  "ffmpeg",
		acquireTimeout: 5 * time.Second,
		captureTimeout: 2 * time.Second,
		warmupFrames:   3,
		runner:         runner,
		accessCheck: func(device string) error {
			return accessErr
		},
		logger: logging.NewNop(),
	}
}

func TestAcquirePullsWarmupFrames(t *testing.T) {
	runner := &fakeRunner{output: func(int) ([]byte, error) {
		return []byte{0xFF, 0xD8}, nil
	}}
	source := newTestSource(runner, nil)

	if err := source.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if runner.calls != 3 {
		t.Fatalf("warmup captures = %d, want 3", runner.calls)
	}
	if !source.Acquired() {
		t.Fatal("Acquired() = false after successful Acquire")
	}
}

func TestAcquireFailsOnDeviceAccess(t *testing.T) {
	runner := &fakeRunner{output: func(int) ([]byte, error) {
		return []byte{0xFF}, nil
	}}
	source := newTestSource(runner, errors.New("permission denied"))

	err := source.Acquire(context.Background())
	if !errors.Is(err, ErrAcquire) {
		t.Fatalf("Acquire() error = %v, want ErrAcquire", err)
	}
	if runner.calls != 0 {
		t.Fatalf("runner called %d times before access check passed", runner.calls)
	}
	if source.Acquired() {
		t.Fatal("Acquired() = true after failed Acquire")
	}
}

func TestAcquireTimesOutHard(t *testing.T) {
	runner := &fakeRunner{output: func(int) ([]byte, error) {
		return nil, errors.New("blocked")
	}}
	source := newTestSource(runner, nil)
	source.acquireTimeout = time.Millisecond

	ctx := context.Background()
	deadline := time.After(time.Second)
	done := make(chan error, 1)
	go func() { done <- source.Acquire(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrAcquire) {
			t.Fatalf("Acquire() error = %v, want ErrAcquire", err)
		}
	case <-deadline:
		t.Fatal("Acquire() did not return within 1s")
	}
}

func TestAcquireTwiceFails(t *testing.T) {
	runner := &fakeRunner{output: func(int) ([]byte, error) {
		return []byte{0xFF}, nil
	}}
	source := newTestSource(runner, nil)

	if err := source.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if err := source.Acquire(context.Background()); !errors.Is(err, ErrAcquire) {
		t.Fatalf("second Acquire() error = %v, want ErrAcquire", err)
	}
}

func TestStillCaptureRequiresAcquire(t *testing.T) {
	runner := &fakeRunner{output: func(int) ([]byte, error) {
		return []byte{0xFF}, nil
	}}
	source := newTestSource(runner, nil)

	if _, err := source.StillCapture(context.Background()); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("StillCapture() error = %v, want ErrNotAcquired", err)
	}

	source.Release() // no-op before acquire
	if source.Acquired() {
		t.Fatal("Acquired() = true after Release on unacquired source")
	}
}

func TestStillCaptureReturnsFrame(t *testing.T) {
	frame := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	runner := &fakeRunner{output: func(int) ([]byte, error) {
		return frame, nil
	}}
	source := newTestSource(runner, nil)

	if err := source.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	got, err := source.StillCapture(context.Background())
	if err != nil {
		t.Fatalf("StillCapture() error = %v", err)
	}
	if string(got) != string(frame) {
		t.Fatalf("StillCapture() = %v, want %v", got, frame)
	}
}

func TestStillCaptureExitErrorIsNotReady(t *testing.T) {
	runner := &fakeRunner{output: func(call int) ([]byte, error) {
		if call <= 3 {
			return []byte{0xFF}, nil // warmup
		}
		return nil, &exec.ExitError{Stderr: []byte("device busy\n")}
	}}
	source := newTestSource(runner, nil)

	if err := source.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := source.StillCapture(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("StillCapture() error = %v, want ErrNotReady", err)
	}
}

func TestStillCaptureEmptyFrameIsNotReady(t *testing.T) {
	runner := &fakeRunner{output: func(call int) ([]byte, error) {
		if call <= 3 {
			return []byte{0xFF}, nil
		}
		return nil, nil
	}}
	source := newTestSource(runner, nil)

	if err := source.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := source.StillCapture(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("StillCapture() error = %v, want ErrNotReady", err)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	runner := &fakeRunner{output: func(int) ([]byte, error) {
		return []byte{0xFF}, nil
	}}
	source := newTestSource(runner, nil)

	if err := source.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	source.Release()
	if source.Acquired() {
		t.Fatal("Acquired() = true after Release")
	}
	if err := source.Acquire(context.Background()); err != nil {
		t.Fatalf("re-Acquire() error = %v", err)
	}
}
