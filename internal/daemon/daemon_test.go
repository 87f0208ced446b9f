package daemon_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tarmac/internal/daemon"
	"tarmac/internal/decoder"
	"tarmac/internal/logging"
	"tarmac/internal/manifest"
	"tarmac/internal/testsupport"
)

type fakeSource struct {
	mu       sync.Mutex
	acquired bool
}

func (f *fakeSource) Acquire(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired = true
	return nil
}

func (f *fakeSource) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired = false
}

func (f *fakeSource) StillCapture(ctx context.Context) ([]byte, error) {
	return []byte{0xFF, 0xD8}, nil
}

func (f *fakeSource) Device() string { return "/dev/video9" }

type fakeDecoder struct{}

func (fakeDecoder) Decode(ctx context.Context, image []byte) (decoder.Result, error) {
	return decoder.Result{Success: false}, nil
}

type fakeFetcher struct {
	snapshot *manifest.Snapshot
	err      error
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context, station, flightNumber, date string) (*manifest.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func newTestDaemon(t *testing.T, fetcher daemon.ManifestFetcher) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Camera.HotplugNotifications = false
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop(),
		daemon.WithFrameSource(&fakeSource{}),
		daemon.WithDecoder(fakeDecoder{}),
		daemon.WithManifestFetcher(fetcher),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t, &fakeFetcher{snapshot: testsupport.Snapshot()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Session != nil {
		t.Fatal("daemon reported a session before any flight selection")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestStartSessionFetchesManifest(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testsupport.Snapshot()}
	d := newTestDaemon(t, fetcher)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status, err := d.StartSession(ctx, "ET712", "2026-03-14")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if status.FlightNumber != "ET712" || status.Disembarking != 2 {
		t.Fatalf("session status = %+v", status)
	}
	if fetcher.calls != 1 {
		t.Fatalf("manifest fetches = %d, want 1", fetcher.calls)
	}

	full := d.Status(ctx)
	if full.Session == nil || full.Session.State != "idle" {
		t.Fatalf("daemon status session = %+v", full.Session)
	}

	if err := d.StopSession(ctx); err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if err := d.StopSession(ctx); !errors.Is(err, daemon.ErrNoActiveSession) {
		t.Fatalf("second StopSession error = %v, want ErrNoActiveSession", err)
	}
}

func TestStartSessionSurfacesManifestFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("manifest service unavailable")}
	d := newTestDaemon(t, fetcher)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := d.StartSession(ctx, "ET712", "2026-03-14"); err == nil {
		t.Fatal("expected StartSession to fail when manifest fetch fails")
	}
	if d.Status(ctx).Session != nil {
		t.Fatal("failed session start left a session behind")
	}
}

func TestManualMatchFindsEntryBySeat(t *testing.T) {
	d := newTestDaemon(t, &fakeFetcher{snapshot: testsupport.Snapshot()})

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := d.StartSession(ctx, "ET712", "2026-03-14"); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	entry, err := d.ManualMatch(ctx, "14c")
	if err != nil {
		t.Fatalf("ManualMatch failed: %v", err)
	}
	if entry.PassengerName != "AMARA BEKELE" {
		t.Fatalf("matched entry = %+v", entry)
	}

	if _, err := d.ManualMatch(ctx, "99Z"); err == nil {
		t.Fatal("expected unknown identifier to fail")
	}

	records, err := d.Records(ctx)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 1 || records[0].Source != "manual" {
		t.Fatalf("records = %+v", records)
	}
}

func TestReconciliationFlagsAccountedEntries(t *testing.T) {
	d := newTestDaemon(t, &fakeFetcher{snapshot: testsupport.Snapshot()})

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := d.Reconciliation(ctx); !errors.Is(err, daemon.ErrNoActiveSession) {
		t.Fatalf("Reconciliation error = %v, want ErrNoActiveSession", err)
	}

	if _, err := d.StartSession(ctx, "ET712", "2026-03-14"); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if _, err := d.ManualMatch(ctx, "12A"); err != nil {
		t.Fatalf("ManualMatch failed: %v", err)
	}

	entries, err := d.Reconciliation(ctx)
	if err != nil {
		t.Fatalf("Reconciliation failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].PassengerName != "JOHN SMITH" || !entries[0].Accounted {
		t.Fatalf("first entry = %+v, want JOHN SMITH accounted", entries[0])
	}
	if entries[1].PassengerName != "AMARA BEKELE" || entries[1].Accounted {
		t.Fatalf("second entry = %+v, want AMARA BEKELE unaccounted", entries[1])
	}
}

func TestSessionOperationsRequireActiveSession(t *testing.T) {
	d := newTestDaemon(t, &fakeFetcher{snapshot: testsupport.Snapshot()})

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := d.Scan(ctx); !errors.Is(err, daemon.ErrNoActiveSession) {
		t.Fatalf("Scan error = %v, want ErrNoActiveSession", err)
	}
	if _, err := d.ManualMatch(ctx, "12A"); !errors.Is(err, daemon.ErrNoActiveSession) {
		t.Fatalf("ManualMatch error = %v, want ErrNoActiveSession", err)
	}
	if _, err := d.Records(ctx); !errors.Is(err, daemon.ErrNoActiveSession) {
		t.Fatalf("Records error = %v, want ErrNoActiveSession", err)
	}
}
