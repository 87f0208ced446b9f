// Package scan implements the scan session controller: a pure state machine
// describing the capture/decode/match cycle, the idempotent scanned set, the
// append-only scan record log, and the session harness that drives the
// machine from a timer against real camera and decoder backends.
package scan
