package match

import (
	"strings"

	"tarmac/internal/bcbp"
	"tarmac/internal/manifest"
)

// Rule identifies which comparison reconciled a scan with a manifest entry.
type Rule string

const (
	RulePNR  Rule = "pnr"
	RuleSeat Rule = "seat"
	RuleName Rule = "name"
)

// Result is the outcome of reconciling one parsed boarding pass.
type Result struct {
	Matched bool
	Entry   manifest.Entry
	Key     manifest.Key
	Rule    Rule
}

// entryRule is one comparison strategy. Rules run per entry in declaration
// order, not globally: a later entry's PNR match cannot outrank an earlier
// entry's seat match.
type entryRule struct {
	rule  Rule
	apply func(parsed bcbp.BoardingPass, entry manifest.Entry) bool
}

var entryRules = []entryRule{
	{rule: RulePNR, apply: func(parsed bcbp.BoardingPass, entry manifest.Entry) bool {
		pnr := manifest.Normalize(parsed.PNR)
		return pnr != "" && pnr == manifest.Normalize(entry.PNR)
	}},
	{rule: RuleSeat, apply: func(parsed bcbp.BoardingPass, entry manifest.Entry) bool {
		seat := manifest.Normalize(parsed.Seat)
		return seat != "" && seat == manifest.Normalize(entry.Seat)
	}},
	// Substring containment tolerates OCR renderings that drop middle names
	// or truncate; the false-positive risk for common surnames is accepted.
	{rule: RuleName, apply: func(parsed bcbp.BoardingPass, entry manifest.Entry) bool {
		name := manifest.Normalize(parsed.PassengerName)
		return name != "" && strings.Contains(manifest.Normalize(entry.PassengerName), name)
	}},
}

// Match scans the snapshot's disembarking list in manifest order and returns
// the first entry any rule reconciles. A snapshot without a disembarking list
// never matches: it is treated as "not yet loaded", not "no one matches".
func Match(parsed bcbp.BoardingPass, snapshot *manifest.Snapshot) Result {
	if !snapshot.HasDisembarking() {
		return Result{}
	}
	for _, entry := range snapshot.Disembarking {
		for _, rule := range entryRules {
			if rule.apply(parsed, entry) {
				return Result{
					Matched: true,
					Entry:   entry,
					Key:     manifest.KeyFor(entry),
					Rule:    rule.rule,
				}
			}
		}
	}
	return Result{}
}
