package parser

import "strings"

// takeToken splits s at the first space, returning the token and the
// remainder with the separating space consumed. If there is no space, the
// whole of s is the token and the remainder is empty.
func takeToken(s string) (string, string) {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// tryRFC5424 attempts the RFC 5424 grammar. ok is false only when the PRI
// or VERSION header disqualifies the frame from being 5424 at all (the
// errPRIMissing/errPRIInvalid/errVersionInvalid cases); the caller must
// then reparse raw from scratch as RFC 3164.
//
// Any later-stage error is graceful degradation: the record is returned
// with ok=true, RFC flipped to rfc3164 (per the "default rfc3164 on any
// fallback" rule), fields parsed so far preserved, and Message set to
// whatever remained unparsed.
func tryRFC5424(raw string) (*Record, bool) {
	pri, rest, err := parsePRI(raw)
	if err != nil {
		return nil, false
	}
	if len(rest) < 2 || rest[0] != '1' || rest[1] != ' ' {
		return nil, false
	}
	rest = rest[2:]

	rec := newRecord()
	rec.RFC = RFC5424
	rec.setPRI(pri)
	rec.Version = intPtr(1)

	degrade := func(message string) (*Record, bool) {
		rec.RFC = RFC3164
		rec.Message = message
		return rec, true
	}

	var token string
	token, rest = takeToken(rest)
	if token != "-" {
		ts, terr := parseRFC5424Timestamp(token)
		if terr != nil {
			return degrade(rest)
		}
		rec.Timestamp = &ts
	}

	token, rest = takeToken(rest)
	if token != "-" {
		if len(token) > 255 {
			// field_too_long: leave Hostname unset, keep parsing.
		} else {
			rec.Hostname = strPtr(token)
		}
	}

	token, rest = takeToken(rest)
	if token != "-" {
		if len(token) > 48 {
			// field_too_long
		} else {
			rec.AppName = strPtr(token)
		}
	}

	token, rest = takeToken(rest)
	if token != "-" {
		if len(token) > 128 {
			// field_too_long
		} else {
			rec.ProcessID = strPtr(token)
		}
	}

	token, rest = takeToken(rest)
	if token != "-" {
		if len(token) > 32 {
			// field_too_long
		} else {
			rec.MessageID = strPtr(token)
		}
	}

	sdStart := rest
	data, next, sderr := parseStructuredData(rest)
	if sderr != nil {
		return degrade(sdStart)
	}
	if len(data) > 0 {
		rec.StructuredData = data
	}
	rest = strings.TrimPrefix(next, " ")
	rec.Message = stripBOM(rest)
	return rec, true
}
