package testsupport

import (
	"context"
	"testing"

	"tarmac/internal/config"
	"tarmac/internal/manifest"
	"tarmac/internal/scanstore"
)

// MustOpenStore opens a scanstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *scanstore.Store {
	t.Helper()

	store, err := scanstore.Open(cfg)
	if err != nil {
		t.Fatalf("scanstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartSession seeds a session row for tests using the provided store.
func StartSession(t testing.TB, store *scanstore.Store, sessionID string, snapshot *manifest.Snapshot) {
	t.Helper()

	if err := store.StartSession(context.Background(), sessionID, snapshot); err != nil {
		t.Fatalf("store.StartSession: %v", err)
	}
}

// Snapshot returns a small two-passenger manifest fixture.
func Snapshot() *manifest.Snapshot {
	return &manifest.Snapshot{
		FlightNumber:      "ET712",
		Route:             "JFK-ADD",
		Station:           "ADD",
		Date:              "2026-03-14",
		TotalPassengers:   180,
		DisembarkingCount: 2,
		Disembarking: []manifest.Entry{
			{ID: "p-1", PassengerName: "JOHN SMITH", Seat: "12A", PNR: "ABC123"},
			{ID: "p-2", PassengerName: "AMARA BEKELE", Seat: "14C", PNR: "XYZ789"},
		},
	}
}
