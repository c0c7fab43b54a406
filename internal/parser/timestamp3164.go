package parser

import (
	"regexp"
	"strconv"
	"time"
)

// tzTokenRe classifies a bare token as a plausible timezone marker: either
// an all-uppercase abbreviation (UTC, CST, BST...) or the TZ+N/TZ-N
// dialect. Hostnames (lowercase, dotted, mixed case) never match this.
var tzTokenRe = regexp.MustCompile(`^(?:[A-Z]{2,5}|TZ[+-]\d{1,2})$`)

func monthNameToNum(a, b, c byte) int {
	switch a {
	case 'J':
		if b == 'a' && c == 'n' {
			return 1
		}
		if b == 'u' && c == 'n' {
			return 6
		}
		if b == 'u' && c == 'l' {
			return 7
		}
	case 'F':
		if b == 'e' && c == 'b' {
			return 2
		}
	case 'M':
		if b == 'a' && c == 'r' {
			return 3
		}
		if b == 'a' && c == 'y' {
			return 5
		}
	case 'A':
		if b == 'p' && c == 'r' {
			return 4
		}
		if b == 'u' && c == 'g' {
			return 8
		}
	case 'S':
		if b == 'e' && c == 'p' {
			return 9
		}
	case 'O':
		if b == 'c' && c == 't' {
			return 10
		}
	case 'N':
		if b == 'o' && c == 'v' {
			return 11
		}
	case 'D':
		if b == 'e' && c == 'c' {
			return 12
		}
	}
	return 0
}

func atoi2(a, b byte) int {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return -1
	}
	return int(a-'0')*10 + int(b-'0')
}

// parseMonthDayTime consumes the "Mon DD HH:MM:SS" prefix shared by three
// of the four 3164 timestamp dialects. rest begins immediately after the
// seconds digits (no trailing separator consumed).
func parseMonthDayTime(s string) (mon, day, hh, mm, ss int, rest string, ok bool) {
	if len(s) < 3 {
		return
	}
	mon = monthNameToNum(s[0], s[1], s[2])
	if mon == 0 {
		return
	}
	i := 3
	spaces := 0
	for i < len(s) && s[i] == ' ' {
		i++
		spaces++
	}
	if spaces == 0 {
		return 0, 0, 0, 0, 0, "", false
	}
	dayStart := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	dayStr := s[dayStart:i]
	if dayStr == "" || len(dayStr) > 2 {
		return 0, 0, 0, 0, 0, "", false
	}
	day, _ = strconv.Atoi(dayStr)
	if day < 1 || day > 31 {
		return 0, 0, 0, 0, 0, "", false
	}
	if i >= len(s) || s[i] != ' ' {
		return 0, 0, 0, 0, 0, "", false
	}
	i++
	if i+8 > len(s) {
		return 0, 0, 0, 0, 0, "", false
	}
	clock := s[i : i+8]
	if clock[2] != ':' || clock[5] != ':' {
		return 0, 0, 0, 0, 0, "", false
	}
	hh = atoi2(clock[0], clock[1])
	mm = atoi2(clock[3], clock[4])
	ss = atoi2(clock[6], clock[7])
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 60 {
		return 0, 0, 0, 0, 0, "", false
	}
	return mon, day, hh, mm, ss, s[i+8:], true
}

// maybeConsumeTZToken peeks the next space-delimited token in s; if it
// looks like a timezone marker it is consumed (along with its trailing
// space) and returned, otherwise s is returned unchanged.
func maybeConsumeTZToken(s string) (string, string) {
	tok, rest := takeToken(s)
	if tzTokenRe.MatchString(tok) {
		return tok, rest
	}
	return "", s
}

func resolveTZToken(tok string, table map[string]string, warn func(string)) *time.Location {
	if tok == "" {
		return time.UTC
	}
	if tok == "UTC" {
		return time.UTC
	}
	if loc := parseTZOffsetDialect(tok); loc != nil {
		return loc
	}
	if loc, ok := resolveTimezone(table, tok); ok {
		return loc
	}
	if warn != nil {
		warn(tok)
	}
	return time.UTC
}

// matchTimestampDialect tries the four RFC 3164 timestamp dialects in
// priority order and returns the first hit, converted to UTC, with the
// unconsumed remainder of s.
func matchTimestampDialect(s string, now clockFunc, tzTable map[string]string, warn func(string)) (time.Time, string, bool) {
	if t, rest, ok := matchExplicitYearDialect(s, tzTable, warn); ok {
		return t, rest, true
	}
	if t, rest, ok := matchCiscoCUCMDialect(s, tzTable, warn); ok {
		return t, rest, true
	}
	if t, rest, ok := matchTrailingYearDialect(s, tzTable, warn); ok {
		return t, rest, true
	}
	if t, rest, ok := matchClassicDialect(s, now, tzTable, warn); ok {
		return t, rest, true
	}
	return time.Time{}, "", false
}

// matchExplicitYearDialect: "YYYY Mon DD HH:MM:SS [TZ] …"
func matchExplicitYearDialect(s string, tzTable map[string]string, warn func(string)) (time.Time, string, bool) {
	if len(s) < 5 || s[4] != ' ' {
		return time.Time{}, "", false
	}
	yearStr := s[:4]
	for _, c := range []byte(yearStr) {
		if c < '0' || c > '9' {
			return time.Time{}, "", false
		}
	}
	year, _ := strconv.Atoi(yearStr)
	mon, day, hh, mm, ss, rest, ok := parseMonthDayTime(s[5:])
	if !ok {
		return time.Time{}, "", false
	}
	if rest != "" {
		if rest[0] != ' ' {
			return time.Time{}, "", false
		}
		rest = rest[1:]
	}
	tzToken, rest2 := maybeConsumeTZToken(rest)
	loc := resolveTZToken(tzToken, tzTable, warn)
	t := time.Date(year, time.Month(mon), day, hh, mm, ss, 0, loc)
	return t.UTC(), rest2, true
}

// matchCiscoCUCMDialect: "Mon DD YYYY HH:MM:SS [AM|PM][.ms] [UTC|TZ-N|ABBR]"
func matchCiscoCUCMDialect(s string, tzTable map[string]string, warn func(string)) (time.Time, string, bool) {
	if len(s) < 3 {
		return time.Time{}, "", false
	}
	mon := monthNameToNum(s[0], s[1], s[2])
	if mon == 0 {
		return time.Time{}, "", false
	}
	i := 3
	spaces := 0
	for i < len(s) && s[i] == ' ' {
		i++
		spaces++
	}
	if spaces == 0 {
		return time.Time{}, "", false
	}
	dayStart := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	dayStr := s[dayStart:i]
	if dayStr == "" || len(dayStr) > 2 {
		return time.Time{}, "", false
	}
	day, _ := strconv.Atoi(dayStr)
	if i >= len(s) || s[i] != ' ' {
		return time.Time{}, "", false
	}
	i++
	yearStart := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	yearStr := s[yearStart:i]
	if len(yearStr) != 4 {
		return time.Time{}, "", false
	}
	year, _ := strconv.Atoi(yearStr)
	if i >= len(s) || s[i] != ' ' {
		return time.Time{}, "", false
	}
	i++
	if i+8 > len(s) {
		return time.Time{}, "", false
	}
	clock := s[i : i+8]
	if clock[2] != ':' || clock[5] != ':' {
		return time.Time{}, "", false
	}
	hh := atoi2(clock[0], clock[1])
	mm := atoi2(clock[3], clock[4])
	ss := atoi2(clock[6], clock[7])
	if hh < 0 || hh > 12 || mm < 0 || mm > 59 || ss < 0 || ss > 60 {
		return time.Time{}, "", false
	}
	i += 8
	if i >= len(s) || s[i] != ' ' {
		return time.Time{}, "", false
	}
	i++
	if i+2 > len(s) {
		return time.Time{}, "", false
	}
	ampm := s[i : i+2]
	if ampm != "AM" && ampm != "PM" {
		return time.Time{}, "", false
	}
	i += 2
	nanos := 0
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		msStr := s[i+1 : j]
		if msStr == "" {
			return time.Time{}, "", false
		}
		ms, _ := strconv.Atoi(msStr)
		switch len(msStr) {
		case 1:
			ms *= 100
		case 2:
			ms *= 10
		}
		nanos = ms * 1_000_000
		i = j
	}
	if i >= len(s) || s[i] != ' ' {
		return time.Time{}, "", false
	}
	i++
	tzToken, rest2 := maybeConsumeTZToken(s[i:])
	loc := resolveTZToken(tzToken, tzTable, warn)
	hour24 := hh % 12
	if ampm == "PM" {
		hour24 += 12
	}
	t := time.Date(year, time.Month(mon), day, hour24, mm, ss, nanos, loc)
	return t.UTC(), rest2, true
}

// matchTrailingYearDialect: "Mon DD HH:MM:SS [TZ] YYYY …" (ctime-style)
func matchTrailingYearDialect(s string, tzTable map[string]string, warn func(string)) (time.Time, string, bool) {
	mon, day, hh, mm, ss, rest, ok := parseMonthDayTime(s)
	if !ok {
		return time.Time{}, "", false
	}
	if rest == "" || rest[0] != ' ' {
		return time.Time{}, "", false
	}
	rest = rest[1:]
	tzToken, rest2 := maybeConsumeTZToken(rest)
	loc := resolveTZToken(tzToken, tzTable, warn)
	yearTok, rest3 := takeToken(rest2)
	if len(yearTok) != 4 {
		return time.Time{}, "", false
	}
	for _, c := range []byte(yearTok) {
		if c < '0' || c > '9' {
			return time.Time{}, "", false
		}
	}
	year, _ := strconv.Atoi(yearTok)
	t := time.Date(year, time.Month(mon), day, hh, mm, ss, 0, loc)
	return t.UTC(), rest3, true
}

// matchClassicDialect: "Mon DD HH:MM:SS [TZ] …", year defaults to current
// UTC year per the injected clock.
func matchClassicDialect(s string, now clockFunc, tzTable map[string]string, warn func(string)) (time.Time, string, bool) {
	mon, day, hh, mm, ss, rest, ok := parseMonthDayTime(s)
	if !ok {
		return time.Time{}, "", false
	}
	tzToken := ""
	rest2 := rest
	if rest != "" {
		if rest[0] != ' ' {
			return time.Time{}, "", false
		}
		tzToken, rest2 = maybeConsumeTZToken(rest[1:])
	}
	loc := resolveTZToken(tzToken, tzTable, warn)
	year := now().Year()
	t := time.Date(year, time.Month(mon), day, hh, mm, ss, 0, loc)
	return t.UTC(), rest2, true
}
