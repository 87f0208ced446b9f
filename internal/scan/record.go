package scan

import (
	"sync"
	"time"

	"tarmac/internal/bcbp"
	"tarmac/internal/manifest"
)

// ScanRecord is one completed attempt in the session log. The log is
// presentation-only: matching decisions are always made against the scanned
// set and the manifest, never against prior records, so two scans of the
// same passenger with differing OCR renderings cannot drift apart.
// Success is false for attempts where the decode itself failed; such records
// carry no pass data.
type ScanRecord struct {
	ID        string
	Success   bool
	Source    bcbp.Source
	Pass      bcbp.BoardingPass
	Matched   bool
	Entry     *manifest.Entry
	ScannedAt time.Time
}

type recordLog struct {
	mu      sync.Mutex
	records []ScanRecord
}

func newRecordLog() *recordLog {
	return &recordLog{}
}

func (l *recordLog) Append(record ScanRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// Snapshot returns the records newest-first.
func (l *recordLog) Snapshot() []ScanRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ScanRecord, len(l.records))
	for i, record := range l.records {
		out[len(l.records)-1-i] = record
	}
	return out
}

func (l *recordLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
