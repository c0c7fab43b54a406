package parser

import "time"

// defaultTimezones is the built-in RFC 3164 abbreviation table. It is
// intentionally small and, per the source this system was ported from,
// intentionally maps CST and CET to Europe/Brussels rather than to the US
// "Central Standard Time" — kept as-is and documented rather than guessed
// at (see DESIGN.md). Deployments needing more can pass their own table via
// WithTimezones.
var defaultTimezones = map[string]string{
	"BST": "Europe/London",
	"CST": "Europe/Brussels",
	"CET": "Europe/Brussels",
}

// resolveTimezone looks up abbr in table, falling back to UTC with ok=false
// when the abbreviation is not recognized.
func resolveTimezone(table map[string]string, abbr string) (*time.Location, bool) {
	name, found := table[abbr]
	if !found {
		return time.UTC, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

// parseTZOffsetDialect handles the "TZ-N" / "TZ+N" token, expanding to a
// fixed UTC offset of N hours. Returns nil if s does not match.
func parseTZOffsetDialect(s string) *time.Location {
	if len(s) < 3 || s[:2] != "TZ" {
		return nil
	}
	sign := s[2]
	if sign != '+' && sign != '-' {
		return nil
	}
	digits := s[3:]
	if len(digits) == 0 || len(digits) > 2 {
		return nil
	}
	n := 0
	for _, c := range []byte(digits) {
		if c < '0' || c > '9' {
			return nil
		}
		n = n*10 + int(c-'0')
	}
	offsetSeconds := n * 3600
	if sign == '-' {
		offsetSeconds = -offsetSeconds
	}
	return time.FixedZone(s, offsetSeconds)
}
