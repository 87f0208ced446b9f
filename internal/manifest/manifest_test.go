package manifest

import "testing"

func TestKeyForNormalizes(t *testing.T) {
	entry := Entry{PNR: " abc123 ", Seat: "12a"}
	if got := KeyFor(entry); got != Key("ABC123_12A") {
		t.Fatalf("key = %q", got)
	}
}

func TestKeyForEmptyFieldsSafe(t *testing.T) {
	if got := KeyFor(Entry{}); got != Key("_") {
		t.Fatalf("key = %q", got)
	}
}

func TestKeyCollapsesSameSeatPNR(t *testing.T) {
	a := Entry{ID: "1", PassengerName: "JOHN SMITH", PNR: "ABC123", Seat: "12A"}
	b := Entry{ID: "2", PassengerName: "J SMITH", PNR: "abc123", Seat: " 12a "}
	if KeyFor(a) != KeyFor(b) {
		t.Fatalf("expected identical keys, got %q and %q", KeyFor(a), KeyFor(b))
	}
}

func TestNormalizeCompatibilityForms(t *testing.T) {
	// Fullwidth forms show up in OCR output; NFKC folds them to ASCII.
	if got := Normalize("１２Ａ"); got != "12A" {
		t.Fatalf("normalized fullwidth = %q", got)
	}
}

func TestHasDisembarking(t *testing.T) {
	var nilSnapshot *Snapshot
	if nilSnapshot.HasDisembarking() {
		t.Fatal("nil snapshot should have no disembarking list")
	}
	empty := &Snapshot{FlightNumber: "ET0100"}
	if empty.HasDisembarking() {
		t.Fatal("empty list should report false")
	}
	loaded := &Snapshot{Disembarking: []Entry{{ID: "1"}}}
	if !loaded.HasDisembarking() {
		t.Fatal("expected true with entries present")
	}
}
