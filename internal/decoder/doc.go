// Package decoder calls the remote barcode/OCR decode service with a single
// still image per request. The client never retries on its own: scan attempts
// are driven by the session tick, and the next tick is the retry. Errors are
// classified so callers can escalate connectivity failures while treating
// routine "no barcode visible" responses quietly.
package decoder
