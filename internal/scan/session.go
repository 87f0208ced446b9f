package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tarmac/internal/bcbp"
	"tarmac/internal/camera"
	"tarmac/internal/config"
	"tarmac/internal/decoder"
	"tarmac/internal/logging"
	"tarmac/internal/manifest"
	"tarmac/internal/match"
	"tarmac/internal/notifications"
)

// ErrSessionStopped is returned for operations on a session that has ended.
var ErrSessionStopped = errors.New("scan session stopped")

// FrameSource is the camera surface the session drives. *camera.Source
// satisfies it.
type FrameSource interface {
	Acquire(ctx context.Context) error
	Release()
	StillCapture(ctx context.Context) ([]byte, error)
	Device() string
}

// Decoder submits one frame for remote decoding. *decoder.Client satisfies it.
type Decoder interface {
	Decode(ctx context.Context, image []byte) (decoder.Result, error)
}

// RecordSink receives completed scan records for persistence. The session
// treats sink failures as log-only: the in-memory log remains authoritative
// for the life of the session.
type RecordSink interface {
	SaveRecord(ctx context.Context, sessionID string, record ScanRecord) error
}

// Session owns one flight's scan lifecycle: the camera, the tick cadence,
// the scanned set, and the record log. Exactly one attempt is in flight at
// any time; ticks that arrive while an attempt runs are dropped, not queued.
type Session struct {
	id       string
	snapshot *manifest.Snapshot
	camera   FrameSource
	decoder  Decoder
	notifier notifications.Service
	sink     RecordSink
	logger   *slog.Logger

	tickInterval time.Duration
	overlayHold  time.Duration
	clock        func() time.Time

	machine *Machine
	set     *ScannedSet
	records *recordLog

	mu           sync.Mutex
	running      bool
	epoch        uint64
	cancel       context.CancelFunc
	overlayTimer *time.Timer
	wg           sync.WaitGroup
}

// Option customizes session construction.
type Option func(*Session)

// WithClock overrides the time source for record timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTickInterval overrides the capture cadence.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Session) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// WithOverlayHold overrides how long a result overlay stays visible.
func WithOverlayHold(hold time.Duration) Option {
	return func(s *Session) {
		if hold > 0 {
			s.overlayHold = hold
		}
	}
}

// NewSession builds a session for one manifest snapshot. The snapshot is
// read-only from the session's perspective; replacing it means building a
// new session.
func NewSession(
	cfg *config.Config,
	snapshot *manifest.Snapshot,
	source FrameSource,
	dec Decoder,
	notifier notifications.Service,
	sink RecordSink,
	logger *slog.Logger,
	opts ...Option,
) *Session {
	session := &Session{
		id:           uuid.NewString(),
		snapshot:     snapshot,
		camera:       source,
		decoder:      dec,
		notifier:     notifier,
		sink:         sink,
		logger:       logging.NewComponentLogger(logger, "scan-session"),
		tickInterval: time.Second,
		overlayHold:  2500 * time.Millisecond,
		clock:        time.Now,
		machine:      NewMachine(),
		set:          NewScannedSet(),
		records:      newRecordLog(),
	}
	if cfg != nil {
		if cfg.Session.TickIntervalMS > 0 {
			session.tickInterval = time.Duration(cfg.Session.TickIntervalMS) * time.Millisecond
		}
		if cfg.Session.OverlayHoldMS > 0 {
			session.overlayHold = time.Duration(cfg.Session.OverlayHoldMS) * time.Millisecond
		}
	}
	for _, opt := range opts {
		opt(session)
	}
	return session
}

// ID returns the session identifier used for persisted records.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the manifest snapshot the session reconciles against.
func (s *Session) Snapshot() *manifest.Snapshot {
	return s.snapshot
}

// State returns the controller's current visible status.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// Scanned returns the set of accounted match keys.
func (s *Session) Scanned() *ScannedSet {
	return s.set
}

// Records returns the scan log newest-first.
func (s *Session) Records() []ScanRecord {
	return s.records.Snapshot()
}

// Progress reports accounted versus expected disembarking passengers.
func (s *Session) Progress() (scanned, total int) {
	total = 0
	if s.snapshot != nil {
		total = s.snapshot.DisembarkingCount
	}
	return s.set.Len(), total
}

// Start acquires the camera and begins the tick loop. A camera acquisition
// failure is fatal to the start attempt and propagates; the operator must
// retry explicitly.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scan session already running")
	}
	s.mu.Unlock()

	if err := s.camera.Acquire(ctx); err != nil {
		return fmt.Errorf("start scan session: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.running = true
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)

	flight, station, disembarking := s.sessionFacts()
	s.logger.Info("scan session started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String(logging.FieldSessionID, s.id),
		logging.String(logging.FieldFlight, flight),
		logging.String(logging.FieldStation, station),
		logging.Int("disembarking", disembarking),
	)
	if err := s.notifier.NotifySessionStarted(ctx, flight, station, disembarking); err != nil {
		s.logger.Warn("session start notification failed", logging.Error(err))
	}
	return nil
}

// Stop ends the session: cancels the tick loop, clears the guard, releases
// the camera. An attempt still in flight completes against the decoder but
// its result is discarded.
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.epoch++
	cancel := s.cancel
	s.cancel = nil
	if s.overlayTimer != nil {
		s.overlayTimer.Stop()
		s.overlayTimer = nil
	}
	effects := s.machine.Stop()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	for _, effect := range effects {
		if effect == EffectReleaseCamera {
			s.camera.Release()
		}
	}

	scanned, total := s.Progress()
	flight, _, _ := s.sessionFacts()
	s.logger.Info("scan session stopped",
		logging.String(logging.FieldEventType, "session_stopped"),
		logging.String(logging.FieldSessionID, s.id),
		logging.Int("scanned", scanned),
		logging.Int("disembarking", total),
	)
	if err := s.notifier.NotifySessionSummary(ctx, flight, scanned, total); err != nil {
		s.logger.Warn("session summary notification failed", logging.Error(err))
	}
}

// TickNow runs one capture attempt immediately, subject to the same guard as
// timer ticks. Used for explicit manual capture.
func (s *Session) TickNow(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	epoch := s.epoch
	effects := s.machine.Tick()
	s.mu.Unlock()

	for _, effect := range effects {
		if effect == EffectStartAttempt {
			s.runAttempt(ctx, epoch)
		}
	}
	return nil
}

// ManualMatch force-accounts a manifest entry the operator selected. It
// bypasses the parser and matcher entirely; this is the recovery path for
// barcode damage and OCR failure.
func (s *Session) ManualMatch(ctx context.Context, entry manifest.Entry) error {
	key := manifest.KeyFor(entry)
	record := ScanRecord{
		ID:      uuid.NewString(),
		Success: true,
		Source:  bcbp.SourceManual,
		Pass: bcbp.BoardingPass{
			PassengerName: entry.PassengerName,
			Seat:          entry.Seat,
			PNR:           entry.PNR,
			Source:        bcbp.SourceManual,
		},
		Matched:   true,
		Entry:     &entry,
		ScannedAt: s.clock(),
	}

	// The running check and the side effects share one critical section so a
	// concurrent Stop cannot land between them.
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	newly := s.set.Insert(key)
	s.records.Append(record)
	s.mu.Unlock()

	s.persistRecord(ctx, record)

	s.logger.Info("manual match applied",
		logging.String(logging.FieldEventType, "manual_match"),
		logging.String(logging.FieldSessionID, s.id),
		logging.String(logging.FieldMatchKey, string(key)),
		logging.String(logging.FieldPassenger, entry.PassengerName),
		logging.String(logging.FieldSeat, entry.Seat),
		logging.Bool("newly_accounted", newly),
	)
	if err := s.notifier.NotifyManualMatch(ctx, entry.PassengerName, entry.Seat); err != nil {
		s.logger.Warn("manual match notification failed", logging.Error(err))
	}
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			epoch := s.epoch
			effects := s.machine.Tick()
			s.mu.Unlock()
			for _, effect := range effects {
				if effect == EffectStartAttempt {
					s.runAttempt(ctx, epoch)
				}
			}
		}
	}
}

// runAttempt executes one capture-decode-match cycle. The epoch captured at
// tick time is re-checked before any side effect is applied, so results
// belonging to a stopped session are discarded rather than applied.
func (s *Session) runAttempt(ctx context.Context, epoch uint64) {
	frame, err := s.camera.StillCapture(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) || errors.Is(err, camera.ErrNotAcquired) {
			s.logger.Debug("camera not ready; tick skipped",
				logging.String(logging.FieldEventType, "tick_skipped"),
				logging.Error(err),
			)
		} else {
			s.logger.Warn("frame capture failed; tick skipped",
				logging.String(logging.FieldEventType, "capture_failed"),
				logging.Error(err),
			)
		}
		s.skipAttempt(epoch)
		return
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.machine.FrameCaptured()
	}
	s.mu.Unlock()

	result, err := s.decoder.Decode(ctx, frame)
	if err != nil {
		s.completeFailed(ctx, epoch, err)
		return
	}
	if !result.Success || result.Text == "" {
		// Routine no-content frame during continuous scanning; the next
		// tick retries without any operator-visible state change.
		s.logger.Debug("no decodable content in frame",
			logging.String(logging.FieldEventType, "frame_empty"),
			logging.String(logging.FieldSource, string(result.Kind)),
		)
		s.skipAttempt(epoch)
		return
	}

	pass := parseDecoded(result)
	outcome := match.Match(pass, s.snapshot)
	s.completeDecoded(ctx, epoch, pass, outcome)
}

func parseDecoded(result decoder.Result) bcbp.BoardingPass {
	if result.Kind == decoder.KindOCR {
		return bcbp.ParseOCR(result.Text)
	}
	return bcbp.Parse(result.Text)
}

func (s *Session) skipAttempt(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	s.machine.Skip()
}

func (s *Session) completeFailed(ctx context.Context, epoch uint64, decodeErr error) {
	connectivity := decoder.IsConnectivity(decodeErr)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding decode failure for ended session",
			logging.String(logging.FieldEventType, "stale_result_discarded"),
		)
		return
	}
	effects := s.machine.Complete(OutcomeFailed)
	s.scheduleExpireLocked(epoch, effects)
	s.mu.Unlock()

	s.appendRecord(ctx, ScanRecord{
		ID:        uuid.NewString(),
		Success:   false,
		ScannedAt: s.clock(),
	})

	if connectivity {
		s.logger.Warn("decode service unreachable",
			logging.String(logging.FieldEventType, "decoder_unreachable"),
			logging.Error(decodeErr),
			logging.String(logging.FieldErrorHint, "check decode service and network"),
			logging.String(logging.FieldImpact, "scans retry on the next tick"),
		)
		if err := s.notifier.NotifyDecoderUnreachable(ctx, decodeErr); err != nil {
			s.logger.Warn("decoder alert notification failed", logging.Error(err))
		}
		return
	}
	s.logger.Warn("decode attempt failed",
		logging.String(logging.FieldEventType, "decode_failed"),
		logging.Error(decodeErr),
	)
}

func (s *Session) completeDecoded(ctx context.Context, epoch uint64, pass bcbp.BoardingPass, outcome match.Result) {
	matched := outcome.Matched && !pass.Empty()

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding decode result for ended session",
			logging.String(logging.FieldEventType, "stale_result_discarded"),
			logging.String(logging.FieldPassenger, pass.PassengerName),
		)
		return
	}
	var effects []Effect
	if matched {
		effects = s.machine.Complete(OutcomeMatched)
	} else {
		effects = s.machine.Complete(OutcomeUnmatched)
	}
	s.scheduleExpireLocked(epoch, effects)
	s.mu.Unlock()

	record := ScanRecord{
		ID:        uuid.NewString(),
		Success:   true,
		Source:    pass.Source,
		Pass:      pass,
		Matched:   matched,
		ScannedAt: s.clock(),
	}

	if matched {
		entry := outcome.Entry
		record.Entry = &entry
		newly := s.set.Insert(outcome.Key)
		s.appendRecord(ctx, record)

		s.logger.Info("passenger matched",
			logging.String(logging.FieldEventType, "scan_matched"),
			logging.String(logging.FieldSessionID, s.id),
			logging.String(logging.FieldMatchKey, string(outcome.Key)),
			logging.String(logging.FieldPassenger, entry.PassengerName),
			logging.String(logging.FieldSeat, entry.Seat),
			logging.String(logging.FieldSource, string(pass.Source)),
			logging.String("rule", string(outcome.Rule)),
			logging.Bool("newly_accounted", newly),
		)
		if err := s.notifier.NotifyPassengerMatched(ctx, entry.PassengerName, entry.Seat); err != nil {
			s.logger.Warn("match notification failed", logging.Error(err))
		}
		return
	}

	s.appendRecord(ctx, record)
	s.logger.Info("scan did not match manifest",
		logging.String(logging.FieldEventType, "scan_unmatched"),
		logging.String(logging.FieldSessionID, s.id),
		logging.String(logging.FieldSource, string(pass.Source)),
		logging.String("summary", pass.Summary()),
	)
	if err := s.notifier.NotifyScanUnmatched(ctx, pass.Summary()); err != nil {
		s.logger.Warn("unmatched notification failed", logging.Error(err))
	}
}

// scheduleExpireLocked arms the overlay hold timer. Caller holds s.mu.
func (s *Session) scheduleExpireLocked(epoch uint64, effects []Effect) {
	for _, effect := range effects {
		if effect != EffectHoldOverlay {
			continue
		}
		if s.overlayTimer != nil {
			s.overlayTimer.Stop()
		}
		s.overlayTimer = time.AfterFunc(s.overlayHold, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.epoch != epoch {
				return
			}
			s.machine.Expire()
		})
	}
}

func (s *Session) appendRecord(ctx context.Context, record ScanRecord) {
	s.records.Append(record)
	s.persistRecord(ctx, record)
}

func (s *Session) persistRecord(ctx context.Context, record ScanRecord) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveRecord(ctx, s.id, record); err != nil {
		s.logger.Warn("persisting scan record failed",
			logging.String(logging.FieldEventType, "record_persist_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check scan store database access"),
			logging.String(logging.FieldImpact, "in-memory session log remains authoritative"),
		)
	}
}

func (s *Session) sessionFacts() (flight, station string, disembarking int) {
	if s.snapshot == nil {
		return "", "", 0
	}
	return s.snapshot.FlightNumber, s.snapshot.Station, s.snapshot.DisembarkingCount
}
