package bcbp

import "testing"

func TestParseOCRLabeledPass(t *testing.T) {
	pass := ParseOCR(`
		Boarding Pass
		Passenger: JOHN SMITH
		Flight: ET 0100   Class: Y
		Seat: 12A   PNR: ABC123
		Date: 12 SEP
		JFK - LHR
	`)

	if pass.PassengerName != "JOHN SMITH" {
		t.Fatalf("name = %q", pass.PassengerName)
	}
	if pass.FlightNumber != "ET0100" {
		t.Fatalf("flight = %q", pass.FlightNumber)
	}
	if pass.Seat != "12A" {
		t.Fatalf("seat = %q", pass.Seat)
	}
	if pass.PNR != "ABC123" {
		t.Fatalf("pnr = %q", pass.PNR)
	}
	if pass.Class != "Y" {
		t.Fatalf("class = %q", pass.Class)
	}
	if pass.Date != "12 SEP" {
		t.Fatalf("date = %q", pass.Date)
	}
	if pass.Origin != "JFK" || pass.Destination != "LHR" {
		t.Fatalf("route = %s-%s", pass.Origin, pass.Destination)
	}
	if pass.Source != SourceOCR {
		t.Fatalf("source = %q", pass.Source)
	}
}

func TestParseOCRNormalizesCaseAndSpacing(t *testing.T) {
	pass := ParseOCR("seat:   4c \n flight: et  712")
	if pass.Seat != "4C" {
		t.Fatalf("seat = %q", pass.Seat)
	}
	if pass.FlightNumber != "ET712" {
		t.Fatalf("flight = %q", pass.FlightNumber)
	}
}

func TestParseOCRPositionalFallback(t *testing.T) {
	pass := ParseOCR("SMITH/ANNA ET0712 14C QX9Z7P")
	if pass.PassengerName != "ANNA SMITH" {
		t.Fatalf("name = %q", pass.PassengerName)
	}
	if pass.FlightNumber != "ET0712" {
		t.Fatalf("flight = %q", pass.FlightNumber)
	}
	if pass.Seat != "14C" {
		t.Fatalf("seat = %q", pass.Seat)
	}
	if pass.PNR != "QX9Z7P" {
		t.Fatalf("pnr = %q", pass.PNR)
	}
}

func TestParseOCRStopwordsNotBookingCodes(t *testing.T) {
	pass := ParseOCR("FLIGHT NUMBER UNKNOWN TICKET")
	if pass.PNR != "" {
		t.Fatalf("pnr = %q, want empty", pass.PNR)
	}
}

func TestParseOCREmptyNeverFails(t *testing.T) {
	pass := ParseOCR(" \n\t ")
	if !pass.Empty() || len(pass.ParseErrors) == 0 {
		t.Fatalf("expected empty flagged record, got %+v", pass)
	}
}
