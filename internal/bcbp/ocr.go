package bcbp

import (
	"regexp"
	"strings"
)

// Label-anchored patterns run first; printed passes label their fields, and
// the labels survive OCR better than positional layout does.
var (
	ocrNameLabelPattern   = regexp.MustCompile(`\b(?:PASSENGER|NAME)\s*[:.]?\s+([A-Z]{2,} [A-Z]{2,})\b`)
	ocrFlightLabelPattern = regexp.MustCompile(`\bFLIGHT\s*(?:NO|NUMBER)?\s*[:.]?\s*([A-Z]{2})\s?(\d{3,4})\b`)
	ocrSeatLabelPattern   = regexp.MustCompile(`\bSEAT\s*[:.]?\s*(\d{1,2}[A-Z])\b`)
	ocrPNRLabelPattern    = regexp.MustCompile(`\b(?:PNR|BOOKING|LOCATOR|REF)\s*[:.]?\s*([A-Z0-9]{6})\b`)
	ocrClassLabelPattern  = regexp.MustCompile(`\bCLASS\s*[:.]?\s*([YJFC])\b`)
	ocrDateLabelPattern   = regexp.MustCompile(`\bDATE\s*[:.]?\s*(\d{1,2}\s?[A-Z]{3})\b`)
	ocrRoutePattern       = regexp.MustCompile(`\b([A-Z]{3})\s*(?:-|>|TO)\s*([A-Z]{3})\b`)
)

// ParseOCR extracts boarding-pass fields from OCR output. OCR engines vary in
// casing and spacing, so the text is normalized before any pattern runs.
// Same policy as Parse: never fails, flags via ParseErrors.
func ParseOCR(text string) BoardingPass {
	pass := BoardingPass{Source: SourceOCR}

	body := normalizeOCR(text)
	if body == "" {
		pass.ParseErrors = append(pass.ParseErrors, "empty ocr text")
		return pass
	}

	if m := ocrNameLabelPattern.FindStringSubmatch(body); m != nil {
		pass.PassengerName = m[1]
	}
	if m := ocrFlightLabelPattern.FindStringSubmatch(body); m != nil {
		pass.Airline = m[1]
		pass.FlightNumber = m[1] + m[2]
	}
	if m := ocrSeatLabelPattern.FindStringSubmatch(body); m != nil {
		pass.Seat = m[1]
	}
	if m := ocrPNRLabelPattern.FindStringSubmatch(body); m != nil {
		candidate := m[1]
		if !flightLikePattern.MatchString(candidate) && !digitsOnlyPattern.MatchString(candidate) {
			pass.PNR = candidate
		}
	}
	if m := ocrClassLabelPattern.FindStringSubmatch(body); m != nil {
		pass.Class = m[1]
	}
	if m := ocrDateLabelPattern.FindStringSubmatch(body); m != nil {
		pass.Date = m[1]
	}
	if m := ocrRoutePattern.FindStringSubmatch(body); m != nil {
		pass.Origin = m[1]
		pass.Destination = m[2]
	}

	// Positional fallbacks for unlabeled passes.
	if pass.PassengerName == "" {
		pass.PassengerName = extractName(body)
	}
	if pass.FlightNumber == "" {
		if m := simpleFlightPattern.FindStringSubmatch(body); m != nil {
			pass.Airline = m[1]
			pass.FlightNumber = m[1] + m[2]
		}
	}
	if pass.Seat == "" {
		if m := simpleSeatPattern.FindStringSubmatch(body); m != nil {
			pass.Seat = m[1]
		}
	}
	if pass.PNR == "" {
		pass.PNR = extractPNR(body, isOCRStopword)
	}

	if pass.Empty() {
		pass.ParseErrors = append(pass.ParseErrors, "no boarding pass fields recognized in ocr text")
	}
	return pass
}

// Printed-label words that happen to be six letters long and would otherwise
// satisfy the standalone booking-code patterns.
var ocrStopwords = map[string]struct{}{
	"FLIGHT": {},
	"ORIGIN": {},
	"NUMBER": {},
	"TICKET": {},
}

func isOCRStopword(token string) bool {
	_, ok := ocrStopwords[token]
	return ok
}

func normalizeOCR(text string) string {
	upper := strings.ToUpper(strings.TrimSpace(text))
	return strings.Join(strings.Fields(upper), " ")
}
