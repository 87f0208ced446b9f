package manifest

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Entry is one disembarking passenger on the manifest.
type Entry struct {
	ID            string
	PassengerName string
	Seat          string
	PNR           string
}

// Snapshot is the manifest for one flight call at one station. It is fetched
// whole when an operator selects a flight and handed to consumers read-only.
type Snapshot struct {
	FlightNumber      string
	Route             string
	Station           string
	Date              string
	TotalPassengers   int
	DisembarkingCount int
	Disembarking      []Entry
	FetchedAt         time.Time
}

// HasDisembarking reports whether the snapshot carries a disembarking list.
// An absent list means "not yet loaded", not "no one disembarks".
func (s *Snapshot) HasDisembarking() bool {
	return s != nil && len(s.Disembarking) > 0
}

// Key is the canonical passenger identity used to deduplicate scan attempts.
// It is derived from the human-visible seat and booking code because scan
// results usually lack the manifest's surrogate id.
type Key string

// KeyFor computes the canonical key for a manifest entry.
func KeyFor(entry Entry) Key {
	return Key(Normalize(entry.PNR) + "_" + Normalize(entry.Seat))
}

// Normalize canonicalizes a human-visible field for matching: Unicode
// compatibility normalization collapses OCR-variant rune forms, then the
// value is trimmed and uppercased. Empty input stays empty.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(value)))
}
