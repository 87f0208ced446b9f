package match

import (
	"testing"

	"tarmac/internal/bcbp"
	"tarmac/internal/manifest"
)

func singleEntrySnapshot() *manifest.Snapshot {
	return &manifest.Snapshot{
		FlightNumber: "ET0100",
		Disembarking: []manifest.Entry{
			{ID: "p-1", PassengerName: "JOHN SMITH", Seat: "12A", PNR: "ABC123"},
		},
	}
}

func TestMatchBySeatAlone(t *testing.T) {
	result := Match(bcbp.BoardingPass{Seat: "12A"}, singleEntrySnapshot())
	if !result.Matched {
		t.Fatal("expected seat-only parse to match")
	}
	if result.Rule != RuleSeat {
		t.Fatalf("rule = %q", result.Rule)
	}
	if result.Key != manifest.Key("ABC123_12A") {
		t.Fatalf("key = %q", result.Key)
	}
}

func TestMatchWrongPNRNoSeatDoesNotMatch(t *testing.T) {
	result := Match(bcbp.BoardingPass{PNR: "XYZ999"}, singleEntrySnapshot())
	if result.Matched {
		t.Fatalf("expected no match, got %+v", result)
	}
}

func TestMatchPNRCaseInsensitive(t *testing.T) {
	result := Match(bcbp.BoardingPass{PNR: "abc123"}, singleEntrySnapshot())
	if !result.Matched || result.Rule != RulePNR {
		t.Fatalf("result = %+v", result)
	}
}

func TestMatchNameSubstring(t *testing.T) {
	result := Match(bcbp.BoardingPass{PassengerName: "Smith"}, singleEntrySnapshot())
	if !result.Matched || result.Rule != RuleName {
		t.Fatalf("result = %+v", result)
	}
}

func TestMatchEmptyFieldsNeverMatch(t *testing.T) {
	snapshot := &manifest.Snapshot{
		Disembarking: []manifest.Entry{{ID: "p-1", PassengerName: "", Seat: "", PNR: ""}},
	}
	if result := Match(bcbp.BoardingPass{}, snapshot); result.Matched {
		t.Fatalf("empty parse matched empty entry: %+v", result)
	}
}

func TestMatchFirstEntryWinsInManifestOrder(t *testing.T) {
	snapshot := &manifest.Snapshot{
		Disembarking: []manifest.Entry{
			{ID: "p-1", PassengerName: "A SMITH", Seat: "10A", PNR: "AAAAAA"},
			{ID: "p-2", PassengerName: "B SMITH", Seat: "12A", PNR: "ABC123"},
		},
	}
	// p-2 would win on PNR, but rules are per entry: p-1 already matches on
	// name, and manifest order decides.
	result := Match(bcbp.BoardingPass{PassengerName: "SMITH", PNR: "ABC123"}, snapshot)
	if !result.Matched || result.Entry.ID != "p-1" || result.Rule != RuleName {
		t.Fatalf("result = %+v", result)
	}
}

func TestMatchNoDisembarkingListNeverMatches(t *testing.T) {
	empty := &manifest.Snapshot{FlightNumber: "ET0100"}
	if result := Match(bcbp.BoardingPass{Seat: "12A"}, empty); result.Matched {
		t.Fatalf("match against missing list: %+v", result)
	}
	if result := Match(bcbp.BoardingPass{Seat: "12A"}, nil); result.Matched {
		t.Fatal("match against nil snapshot")
	}
}
