package bcbp

import "strings"

// Source identifies how a boarding pass record was produced.
type Source string

const (
	SourceBarcode Source = "barcode"
	SourceOCR     Source = "ocr"
	SourceManual  Source = "manual"
)

// BoardingPass is the structured result of one scan attempt. Fields that
// could not be extracted are empty strings rather than errors.
type BoardingPass struct {
	PassengerName string
	FlightNumber  string
	Seat          string
	PNR           string
	Date          string
	Class         string
	Airline       string
	Sequence      string
	Origin        string
	Destination   string
	Source        Source
	ParseErrors   []string
}

// Empty reports whether none of the matchable fields were extracted.
// An empty record is treated downstream as a non-match, not a failure.
func (p BoardingPass) Empty() bool {
	return p.PassengerName == "" && p.FlightNumber == "" && p.Seat == "" && p.PNR == ""
}

// Summary returns a short human-readable description for logs and notifications.
func (p BoardingPass) Summary() string {
	parts := make([]string, 0, 4)
	if p.PassengerName != "" {
		parts = append(parts, p.PassengerName)
	}
	if p.FlightNumber != "" {
		parts = append(parts, p.FlightNumber)
	}
	if p.Seat != "" {
		parts = append(parts, "seat "+p.Seat)
	}
	if p.PNR != "" {
		parts = append(parts, "PNR "+p.PNR)
	}
	if len(parts) == 0 {
		return "(no fields extracted)"
	}
	return strings.Join(parts, ", ")
}
