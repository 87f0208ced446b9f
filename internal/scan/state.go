package scan

// State is the controller's visible status. The attempt-in-flight guard is
// tracked separately because an overlay hold can outlive the attempt that
// produced it.
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateDecoding  State = "decoding"
	StateMatched   State = "matched"
	StateUnmatched State = "unmatched"
	StateFailed    State = "failed"
)

// Outcome classifies a completed scan attempt.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeFailed    Outcome = "failed"
)

// Effect instructs the harness to perform IO the machine itself never does.
type Effect string

const (
	// EffectStartAttempt tells the harness to capture a frame and decode it.
	EffectStartAttempt Effect = "start_attempt"
	// EffectHoldOverlay tells the harness to schedule Expire after the
	// configured overlay hold.
	EffectHoldOverlay Effect = "hold_overlay"
	// EffectReleaseCamera tells the harness to release the capture device.
	EffectReleaseCamera Effect = "release_camera"
)

// Machine is the pure transition core. It holds no clocks, channels, or IO;
// callers feed it inputs and interpret the returned effects. Not safe for
// concurrent use; the Session serializes access.
type Machine struct {
	state           State
	attemptInFlight bool
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current visible status.
func (m *Machine) State() State {
	return m.state
}

// AttemptInFlight reports whether an attempt currently owns the request slot.
func (m *Machine) AttemptInFlight() bool {
	return m.attemptInFlight
}

// Tick tries to start a new attempt. Guarded ticks are silent no-ops: ticks
// are never queued, so at most one attempt is in flight regardless of how
// fast the timer fires.
func (m *Machine) Tick() []Effect {
	if m.attemptInFlight || m.state != StateIdle {
		return nil
	}
	m.state = StateCapturing
	m.attemptInFlight = true
	return []Effect{EffectStartAttempt}
}

// FrameCaptured advances Capturing to Decoding once the harness has a frame.
func (m *Machine) FrameCaptured() {
	if m.attemptInFlight && m.state == StateCapturing {
		m.state = StateDecoding
	}
}

// Skip abandons the current attempt without an outcome. Used when the camera
// reports not-ready or the frame carried no decodable content; the operator
// sees nothing and the next tick retries.
func (m *Machine) Skip() {
	if !m.attemptInFlight {
		return
	}
	m.attemptInFlight = false
	m.state = StateIdle
}

// Complete applies an attempt outcome. The guard clears immediately; the
// overlay state persists until Expire.
func (m *Machine) Complete(outcome Outcome) []Effect {
	if !m.attemptInFlight {
		return nil
	}
	m.attemptInFlight = false
	switch outcome {
	case OutcomeMatched:
		m.state = StateMatched
	case OutcomeUnmatched:
		m.state = StateUnmatched
	default:
		m.state = StateFailed
	}
	return []Effect{EffectHoldOverlay}
}

// Expire returns an overlay state to Idle after the hold elapses.
func (m *Machine) Expire() {
	switch m.state {
	case StateMatched, StateUnmatched, StateFailed:
		m.state = StateIdle
	}
}

// Stop forces the machine to Idle and clears the guard. Any attempt still
// running must have its result discarded by the harness.
func (m *Machine) Stop() []Effect {
	m.state = StateIdle
	m.attemptInFlight = false
	return []Effect{EffectReleaseCamera}
}
