package bcbp

import (
	"regexp"
	"strconv"
	"strings"
)

// Leading "M1".."M9" format marker; absence is not an error.
var formatMarkerPattern = regexp.MustCompile(`^M\d`)

// nameStrategy extracts LAST/FIRST tokens. Strategies run in order; the
// first match wins. Title suffixes (MS/MR/MRS/MISS) are discarded.
type nameStrategy struct {
	name      string
	pattern   *regexp.Regexp
	hasMiddle bool
}

var nameStrategies = []nameStrategy{
	{
		name:      "slash_middle_title",
		pattern:   regexp.MustCompile(`\b([A-Z]{2,})/([A-Z]{2,})\s+([A-Z]{2,})\s+(?:MRS|MISS|MS|MR)(?:\s|$)`),
		hasMiddle: true,
	},
	{
		name:    "slash_title",
		pattern: regexp.MustCompile(`\b([A-Z]{2,})/([A-Z]{2,})\s+(?:MRS|MISS|MS|MR)(?:\s|$)`),
	},
	{
		name:    "slash_plain",
		pattern: regexp.MustCompile(`\b([A-Z]{2,})/([A-Z]{2,})`),
	},
}

// pnrStrategy locates the booking code. The same payload format is emitted
// inconsistently across ticketing systems, hence the ordered fallback.
type pnrStrategy struct {
	name    string
	pattern *regexp.Regexp
}

var pnrStrategies = []pnrStrategy{
	// 6-character token immediately preceded by the electronic-ticket marker.
	{name: "eticket_marker", pattern: regexp.MustCompile(`\bE([A-Z0-9]{6})\s`)},
	{name: "six_letters", pattern: regexp.MustCompile(`\b([A-Z]{6})\b`)},
	{name: "six_alnum", pattern: regexp.MustCompile(`\b([A-Z0-9]{6})\b`)},
}

var (
	// Tokens more likely to be flight numbers or dates than booking codes.
	flightLikePattern = regexp.MustCompile(`^[A-Z]{2}\d{4}$`)
	digitsOnlyPattern = regexp.MustCompile(`^\d{6}$`)

	// Fixed-width leg tuple: origin(3) dest(3) airline(2) SP flight(3-4)
	// SP julian(3) class seat(1-3 digits + letter) sequence(4).
	segmentPattern = regexp.MustCompile(`([A-Z]{3})([A-Z]{3})([A-Z0-9]{2})\s(\d{3,4})\s(\d{3})([YJFC])(\d{1,3}[A-Z])(\d{4})`)

	// Loose fallbacks applied when no structured segment matched.
	simpleFlightPattern = regexp.MustCompile(`\b([A-Z]{2})(\d{3,4})\b`)
	simpleSeatPattern   = regexp.MustCompile(`\b(\d{1,2}[A-Z])\b`)
)

// Parse extracts boarding-pass fields from a decoded barcode payload. It is a
// pure function and never fails: fields that could not be extracted stay
// empty and an all-empty result carries an entry in ParseErrors.
func Parse(text string) BoardingPass {
	pass := BoardingPass{Source: SourceBarcode}

	body := strings.TrimSpace(text)
	if body == "" {
		pass.ParseErrors = append(pass.ParseErrors, "empty barcode payload")
		return pass
	}
	body = formatMarkerPattern.ReplaceAllString(body, "")

	pass.PassengerName = extractName(body)
	pass.PNR = extractPNR(body, nil)

	if seg := segmentPattern.FindStringSubmatch(body); seg != nil {
		pass.Origin = seg[1]
		pass.Destination = seg[2]
		pass.Airline = seg[3]
		pass.FlightNumber = seg[3] + seg[4]
		pass.Date = julianPlaceholder(seg[5])
		pass.Class = seg[6]
		pass.Seat = seg[7]
		pass.Sequence = seg[8]
	} else {
		if m := simpleFlightPattern.FindStringSubmatch(body); m != nil {
			pass.FlightNumber = m[1] + m[2]
			pass.Airline = m[1]
		}
		if m := simpleSeatPattern.FindStringSubmatch(body); m != nil {
			pass.Seat = m[1]
		}
	}

	if pass.Empty() {
		pass.ParseErrors = append(pass.ParseErrors, "no boarding pass fields recognized")
	}
	return pass
}

func extractName(text string) string {
	for _, strategy := range nameStrategies {
		m := strategy.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		last, first := m[1], m[2]
		if strategy.hasMiddle {
			first = first + " " + m[3]
		}
		return first + " " + last
	}
	return ""
}

func extractPNR(text string, reject func(string) bool) string {
	for _, strategy := range pnrStrategies {
		for _, m := range strategy.pattern.FindAllStringSubmatch(text, -1) {
			candidate := m[1]
			if flightLikePattern.MatchString(candidate) {
				continue
			}
			if digitsOnlyPattern.MatchString(candidate) {
				continue
			}
			if reject != nil && reject(candidate) {
				continue
			}
			return candidate
		}
	}
	return ""
}

// julianPlaceholder renders the BCBP 3-digit day-of-year. The format carries
// no year, so no calendar date can be derived; the day number is surfaced as
// a display-only placeholder instead of an invented date.
func julianPlaceholder(digits string) string {
	day, err := strconv.Atoi(digits)
	if err != nil || day <= 0 {
		return ""
	}
	return "Day " + strconv.Itoa(day)
}
