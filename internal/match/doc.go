// Package match reconciles a parsed boarding pass against a flight's
// disembarking manifest. Matching is a linear scan in manifest order with a
// strict per-entry rule priority; the first entry satisfying any rule wins.
// The design deliberately favors false positives over false negatives — an
// operator re-checks ambiguous results on the gate console.
package match
