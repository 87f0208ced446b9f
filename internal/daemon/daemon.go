package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tarmac/internal/camera"
	"tarmac/internal/config"
	"tarmac/internal/decoder"
	"tarmac/internal/logging"
	"tarmac/internal/manifest"
	"tarmac/internal/notifications"
	"tarmac/internal/scan"
	"tarmac/internal/scanstore"
)

// ErrNoActiveSession is returned for session operations when no flight has
// been selected.
var ErrNoActiveSession = errors.New("no active scan session")

// ManifestFetcher retrieves a flight's disembarking manifest.
// *manifest.Client satisfies it.
type ManifestFetcher interface {
	Fetch(ctx context.Context, station, flightNumber, date string) (*manifest.Snapshot, error)
}

// Daemon coordinates the scanning service and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *scanstore.Store
	notifier notifications.Service
	source   scan.FrameSource
	decoder  scan.Decoder
	fetcher  ManifestFetcher
	hotplug  *camera.Hotplug
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool

	mu      sync.Mutex
	session *scan.Session
}

// SessionStatus describes the active session for status reporting.
type SessionStatus struct {
	ID           string    `json:"id"`
	FlightNumber string    `json:"flight_number"`
	Station      string    `json:"station"`
	Date         string    `json:"date"`
	State        string    `json:"state"`
	Scanned      int       `json:"scanned"`
	Disembarking int       `json:"disembarking"`
	Records      int       `json:"records"`
	StartedAt    time.Time `json:"started_at"`
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool           `json:"running"`
	Device       string         `json:"device"`
	LockFilePath string         `json:"lock_file"`
	ScanDBPath   string         `json:"scan_db"`
	Session      *SessionStatus `json:"session,omitempty"`
}

// Option customizes daemon construction, mainly for tests.
type Option func(*Daemon)

// WithFrameSource overrides the camera source.
func WithFrameSource(source scan.FrameSource) Option {
	return func(d *Daemon) {
		if source != nil {
			d.source = source
		}
	}
}

// WithDecoder overrides the decode client.
func WithDecoder(dec scan.Decoder) Option {
	return func(d *Daemon) {
		if dec != nil {
			d.decoder = dec
		}
	}
}

// WithManifestFetcher overrides the manifest client.
func WithManifestFetcher(fetcher ManifestFetcher) Option {
	return func(d *Daemon) {
		if fetcher != nil {
			d.fetcher = fetcher
		}
	}
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *scanstore.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "tarmacd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		notifier: notifications.NewService(cfg),
		source:   camera.NewSource(cfg, logger),
		decoder: decoder.NewClient(decoder.Config{
			BaseURL:        cfg.Decoder.BaseURL,
			APIKey:         cfg.Decoder.APIKey,
			TimeoutSeconds: cfg.Decoder.TimeoutSeconds,
		}),
		fetcher: manifest.NewClient(manifest.ClientConfig{
			BaseURL:        cfg.Manifest.BaseURL,
			APIKey:         cfg.Manifest.APIKey,
			TimeoutSeconds: cfg.Manifest.TimeoutSeconds,
		}),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.hotplug = camera.NewHotplug(cfg.Camera.Device, logger, d.handleHotplug)

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = server
	return d, nil
}

// Start acquires the daemon lock and brings up the hotplug monitor and the
// control API. It does not start a scan session; that waits for a flight
// selection through the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tarmac daemon instance is already running")
	}

	if d.cfg.Camera.HotplugNotifications {
		if err := d.hotplug.Start(ctx); err != nil {
			_ = d.lock.Unlock()
			return fmt.Errorf("start hotplug monitor: %w", err)
		}
	}
	if err := d.api.start(ctx); err != nil {
		d.hotplug.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("tarmac daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldDevice, d.cfg.Camera.Device),
	)
	return nil
}

// Stop ends the active session, shuts down the control API, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.StopSession(ctx); err != nil && !errors.Is(err, ErrNoActiveSession) {
		d.logger.Warn("stopping active session failed", logging.Error(err))
	}

	d.api.stop()
	d.hotplug.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tarmac daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the control API address, empty until Start.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// StartSession fetches the flight's manifest and begins scanning. Any
// session already running is stopped first; its scanned set does not carry
// over.
func (d *Daemon) StartSession(ctx context.Context, flightNumber, date string) (*SessionStatus, error) {
	if !d.running.Load() {
		return nil, errors.New("daemon not running")
	}

	station := d.cfg.Manifest.Station
	snapshot, err := d.fetcher.Fetch(ctx, station, flightNumber, date)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	if err := d.StopSession(ctx); err != nil && !errors.Is(err, ErrNoActiveSession) {
		return nil, err
	}

	session := scan.NewSession(d.cfg, snapshot, d.source, d.decoder, d.notifier, d.store, d.logger)
	if err := d.store.StartSession(ctx, session.ID(), snapshot); err != nil {
		return nil, err
	}
	if err := session.Start(ctx); err != nil {
		// Camera acquisition failures surface to the operator as a blocking
		// error; nothing retries silently.
		return nil, err
	}

	d.mu.Lock()
	d.session = session
	d.mu.Unlock()

	status := d.sessionStatus(session)
	return status, nil
}

// StopSession ends the active session, if any.
func (d *Daemon) StopSession(ctx context.Context) error {
	d.mu.Lock()
	session := d.session
	d.session = nil
	d.mu.Unlock()

	if session == nil {
		return ErrNoActiveSession
	}
	session.Stop(ctx)
	if err := d.store.EndSession(ctx, session.ID()); err != nil {
		d.logger.Warn("stamping session end failed", logging.Error(err))
	}
	return nil
}

// Scan triggers one capture attempt immediately.
func (d *Daemon) Scan(ctx context.Context) error {
	session := d.activeSession()
	if session == nil {
		return ErrNoActiveSession
	}
	return session.TickNow(ctx)
}

// ManualMatch force-accounts the manifest entry identified by id, seat, or
// PNR, in that order of preference.
func (d *Daemon) ManualMatch(ctx context.Context, identifier string) (*manifest.Entry, error) {
	session := d.activeSession()
	if session == nil {
		return nil, ErrNoActiveSession
	}

	entry, ok := findEntry(session.Snapshot(), identifier)
	if !ok {
		return nil, fmt.Errorf("no disembarking entry matches %q", identifier)
	}
	if err := session.ManualMatch(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Records returns the active session's scan log newest-first.
func (d *Daemon) Records(ctx context.Context) ([]scan.ScanRecord, error) {
	session := d.activeSession()
	if session == nil {
		return nil, ErrNoActiveSession
	}
	return session.Records(), nil
}

// ReconciliationEntry pairs one disembarking manifest entry with its
// accounted state.
type ReconciliationEntry struct {
	ID            string `json:"id"`
	PassengerName string `json:"passenger_name"`
	Seat          string `json:"seat"`
	PNR           string `json:"pnr"`
	Accounted     bool   `json:"accounted"`
}

// Reconciliation returns the active session's manifest entries in manifest
// order, each flagged with whether it has been accounted for.
func (d *Daemon) Reconciliation(ctx context.Context) ([]ReconciliationEntry, error) {
	session := d.activeSession()
	if session == nil {
		return nil, ErrNoActiveSession
	}
	snapshot := session.Snapshot()
	if snapshot == nil {
		return nil, nil
	}
	set := session.Scanned()
	entries := make([]ReconciliationEntry, 0, len(snapshot.Disembarking))
	for _, entry := range snapshot.Disembarking {
		entries = append(entries, ReconciliationEntry{
			ID:            entry.ID,
			PassengerName: entry.PassengerName,
			Seat:          entry.Seat,
			PNR:           entry.PNR,
			Accounted:     set.Has(manifest.KeyFor(entry)),
		})
	}
	return entries, nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Device:       d.cfg.Camera.Device,
		LockFilePath: d.lockPath,
		ScanDBPath:   d.store.Path(),
	}
	if session := d.activeSession(); session != nil {
		status.Session = d.sessionStatus(session)
	}
	return status
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) activeSession() *scan.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

func (d *Daemon) sessionStatus(session *scan.Session) *SessionStatus {
	snapshot := session.Snapshot()
	scanned, total := session.Progress()
	status := &SessionStatus{
		ID:           session.ID(),
		State:        string(session.State()),
		Scanned:      scanned,
		Disembarking: total,
		Records:      len(session.Records()),
	}
	if snapshot != nil {
		status.FlightNumber = snapshot.FlightNumber
		status.Station = snapshot.Station
		status.Date = snapshot.Date
		status.StartedAt = snapshot.FetchedAt
	}
	return status
}

func (d *Daemon) handleHotplug(ctx context.Context, event camera.HotplugEvent) {
	if event.Attached {
		if err := d.notifier.NotifyCameraAttached(ctx, event.Device); err != nil {
			d.logger.Warn("camera attach notification failed", logging.Error(err))
		}
		return
	}
	if err := d.notifier.NotifyCameraDetached(ctx, event.Device); err != nil {
		d.logger.Warn("camera detach notification failed", logging.Error(err))
	}
}

func findEntry(snapshot *manifest.Snapshot, identifier string) (manifest.Entry, bool) {
	if snapshot == nil {
		return manifest.Entry{}, false
	}
	want := manifest.Normalize(identifier)
	if want == "" {
		return manifest.Entry{}, false
	}
	for _, entry := range snapshot.Disembarking {
		if manifest.Normalize(entry.ID) == want {
			return entry, true
		}
	}
	for _, entry := range snapshot.Disembarking {
		if manifest.Normalize(entry.Seat) == want {
			return entry, true
		}
	}
	for _, entry := range snapshot.Disembarking {
		if manifest.Normalize(entry.PNR) == want {
			return entry, true
		}
	}
	return manifest.Entry{}, false
}
