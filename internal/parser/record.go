// Package parser implements the syslog wire-format parser: a pure function
// from raw bytes to a normalized Record, falling back from RFC 5424 to
// RFC 3164 when the input does not look like the former.
package parser

import (
	"time"

	"syslogd/pkg/syslog"
)

// RFC identifies which grammar produced a Record.
type RFC string

const (
	RFC3164 RFC = "rfc3164"
	RFC5424 RFC = "rfc5424"
)

// Record is a normalized syslog message. All fields are optional unless
// noted; absence is represented with a nil pointer (or, for Message, the
// empty string is a valid absent value since Message always gets a final
// assignment).
type Record struct {
	RFC      RFC
	Facility *int
	Severity *int
	Version  *int

	Timestamp *time.Time

	Hostname  *string
	AppName   *string
	ProcessID *string
	MessageID *string

	IPAddress    *string
	RawIPAddress *string

	// StructuredData maps SD-ID to a map of param name to value.
	StructuredData map[string]map[string]string

	Message string
}

func newRecord() *Record {
	return &Record{RFC: RFC3164}
}

// FacilityName returns the human-readable facility name, or "unknown" if
// Facility is unset or out of range.
func (r *Record) FacilityName() string {
	if r.Facility == nil {
		return "unknown"
	}
	return syslog.FacilityName(*r.Facility)
}

// SeverityName returns the human-readable severity name, or "unknown" if
// Severity is unset or out of range.
func (r *Record) SeverityName() string {
	if r.Severity == nil {
		return "unknown"
	}
	return syslog.SeverityName(*r.Severity)
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

// setPRI splits a raw PRI value into facility/severity and stamps both on
// the record.
func (r *Record) setPRI(pri int) {
	r.Facility = intPtr(pri >> 3)
	r.Severity = intPtr(pri & 7)
}
