package parser

import (
	"regexp"
	"strings"
)

var ipv4Re = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// tagRe recognizes the classic "APP-NAME[PROCID]: " tag, grounded on the
// same pattern the teacher used for its tag extraction.
var tagRe = regexp.MustCompile(`^([^\s\[:]+)(?:\[(\d+)\])?:[ ]?`)

// skipHostnameHeuristic recognizes the Cisco shapes where no hostname is
// present: the remainder starting directly with "%", or with a bare
// ": %" (or ":%") left over once a leading timezone abbreviation has
// already been consumed by the timestamp dialect matcher. Returns true
// with the remainder starting at the "%" (a leading ":" or ": " is
// stripped, the "%" is kept), or s unchanged and false.
func skipHostnameHeuristic(s string) (string, bool) {
	if strings.HasPrefix(s, "%") {
		return s, true
	}
	if strings.HasPrefix(s, ": ") && strings.HasPrefix(s[2:], "%") {
		return s[2:], true
	}
	if strings.HasPrefix(s, ":%") {
		return s[1:], true
	}
	return s, false
}

// parseTagAndRest recognizes "APP-NAME[PROCID]: " at the start of s.
func parseTagAndRest(s string) (appName, procID *string, rest string, ok bool) {
	m := tagRe.FindStringSubmatch(s)
	if m == nil {
		return nil, nil, s, false
	}
	if tag := m[1]; len(tag) <= 48 {
		appName = strPtr(tag)
	}
	if pid := m[2]; pid != "" && len(pid) <= 128 {
		procID = strPtr(pid)
	}
	return appName, procID, s[len(m[0]):], true
}

// tryRFC3164 parses the tolerant, dialect-aware legacy grammar. It never
// fails outright: on a timestamp-or-later catastrophic failure, per the
// adopted rule, Message is set to the entire original frame and any
// fields parsed before the failure (facility/severity from PRI) are kept.
func tryRFC3164(raw string, now clockFunc, tzTable map[string]string, warn func(string)) *Record {
	rec := newRecord()
	rest := raw
	if pri, r, err := parsePRI(raw); err == nil {
		rec.setPRI(pri)
		rest = skipSequenceNumber(r)
	}

	ts, rest2, ok := matchTimestampDialect(rest, now, tzTable, warn)
	if !ok {
		rec.Message = raw
		return rec
	}
	rec.Timestamp = &ts
	rest = rest2

	if skipped, skip := skipHostnameHeuristic(rest); skip {
		rest = skipped
	} else {
		token, r := takeToken(rest)
		if token != "" {
			if len(token) > 255 {
				// field_too_long: Hostname stays unset, keep parsing.
			} else {
				rec.Hostname = strPtr(token)
			}
		}
		rest = r
		ipTok, afterIP := takeToken(rest)
		if ipv4Re.MatchString(ipTok) {
			rec.IPAddress = strPtr(ipTok)
			rest = afterIP
		}
	}

	if appName, procID, r, ok := parseTagAndRest(rest); ok {
		rec.AppName = appName
		rec.ProcessID = procID
		rest = r
	}

	if strings.HasPrefix(rest, "[") {
		if data, next, err := parseStructuredData(rest); err == nil && len(data) > 0 {
			rec.StructuredData = data
			rest = strings.TrimPrefix(next, " ")
		}
	} else if data, next, ok := parseCiscoStructuredData(rest); ok {
		rec.StructuredData = data
		rest = strings.TrimPrefix(next, " ")
	}

	rec.Message = rest
	return rec
}
