package parser

import (
	"strings"
	"time"
)

// parseRFC5424Timestamp parses an RFC 3339 date-time with 1..6 fractional
// digits and a mandatory offset (Z or ±HH:MM), returning the UTC instant.
// More than 6 fractional digits is explicitly disallowed by RFC 5424 and
// is reported as errTimestampInvalid.
func parseRFC5424Timestamp(s string) (time.Time, *stageError) {
	if len(s) < 20 {
		return time.Time{}, &stageError{kind: errTimestampInvalid}
	}
	base := s[:19]
	rest := s[19:]

	var frac string
	if strings.HasPrefix(rest, ".") {
		i := 1
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		frac = rest[1:i]
		rest = rest[i:]
		if len(frac) == 0 || len(frac) > 6 {
			return time.Time{}, &stageError{kind: errTimestampInvalid}
		}
	}
	if rest == "" {
		return time.Time{}, &stageError{kind: errTimestampInvalid}
	}

	fracLayout := ""
	full := base
	if frac != "" {
		fracLayout = "." + strings.Repeat("0", len(frac))
		full += "." + frac
	}
	full += rest
	layout := "2006-01-02T15:04:05" + fracLayout + "Z07:00"

	t, err := time.Parse(layout, full)
	if err != nil {
		return time.Time{}, &stageError{kind: errTimestampInvalid}
	}
	return t.UTC(), nil
}
