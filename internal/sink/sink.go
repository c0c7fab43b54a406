// Package sink collects example downstream consumers of decoded records.
// A Sink is deliberately outside the core pipeline: Listener and Decoder
// never import this package, they only hand subscribers a
// *pipeline.Subscription[*parser.Record]. Wiring a Sink to that
// subscription is left to cmd/syslogd and to tests.
package sink

import (
	"sort"
	"time"

	"syslogd/internal/parser"
)

// Sink persists or otherwise consumes decoded records.
type Sink interface {
	Store(rec *parser.Record) error
	Query(filters QueryFilters) ([]*parser.Record, error)
	QueryWithCount(filters QueryFilters) ([]*parser.Record, int64, error)
	GetFilterOptions() (*FilterOptions, error)
	DeleteOlderThan(age time.Duration) (int64, error)
	Close() error
}

// FilterOptions contains all distinct values present in a Sink, used to
// populate filter dropdowns in a consumer UI.
type FilterOptions struct {
	Hostnames  []string `json:"hostnames"`
	AppNames   []string `json:"app_names"`
	Facilities []int    `json:"facilities"`
	Severities []int    `json:"severities"`
}

// QueryFilters narrows a Query/QueryWithCount call.
type QueryFilters struct {
	StartTime  time.Time
	EndTime    time.Time
	Hostname   string
	Hostnames  []string
	AppName    string
	Severities []int
	Facilities []int
	Search     string
	Limit      int
	Offset     int
}

// MemorySink is an in-memory Sink, useful for tests and short-lived runs.
type MemorySink struct {
	records []*parser.Record
}

// NewMemorySink creates an empty in-memory Sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{records: make([]*parser.Record, 0)}
}

// Store appends rec to the in-memory slice.
func (s *MemorySink) Store(rec *parser.Record) error {
	s.records = append(s.records, rec)
	return nil
}

// Query applies filters and returns matching records, most recent first.
func (s *MemorySink) Query(filters QueryFilters) ([]*parser.Record, error) {
	out := make([]*parser.Record, 0, len(s.records))
	for _, rec := range s.records {
		if matches(rec, filters) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Timestamp, out[j].Timestamp
		if ti == nil || tj == nil {
			return ti != nil && tj == nil
		}
		return ti.After(*tj)
	})
	limit := filters.Limit
	if limit <= 0 {
		limit = 1000
	}
	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return []*parser.Record{}, nil
		}
		out = out[filters.Offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// QueryWithCount is Query plus the total number of matches before Limit/Offset.
func (s *MemorySink) QueryWithCount(filters QueryFilters) ([]*parser.Record, int64, error) {
	total := int64(0)
	for _, rec := range s.records {
		if matches(rec, filters) {
			total++
		}
	}
	records, err := s.Query(filters)
	return records, total, err
}

// GetFilterOptions returns the distinct hostnames, app names, facilities
// and severities currently stored.
func (s *MemorySink) GetFilterOptions() (*FilterOptions, error) {
	hostnames := map[string]bool{}
	appNames := map[string]bool{}
	facilities := map[int]bool{}
	severities := map[int]bool{}

	for _, rec := range s.records {
		if rec.Hostname != nil && *rec.Hostname != "" {
			hostnames[*rec.Hostname] = true
		}
		if rec.AppName != nil && *rec.AppName != "" {
			appNames[*rec.AppName] = true
		}
		if rec.Facility != nil {
			facilities[*rec.Facility] = true
		}
		if rec.Severity != nil {
			severities[*rec.Severity] = true
		}
	}

	return &FilterOptions{
		Hostnames:  keysOfString(hostnames),
		AppNames:   keysOfString(appNames),
		Facilities: keysOfInt(facilities),
		Severities: keysOfInt(severities),
	}, nil
}

// DeleteOlderThan removes records with no timestamp or a timestamp before
// now minus age, returning the number removed.
func (s *MemorySink) DeleteOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	kept := make([]*parser.Record, 0, len(s.records))
	var deleted int64
	for _, rec := range s.records {
		if rec.Timestamp != nil && rec.Timestamp.After(cutoff) {
			kept = append(kept, rec)
		} else {
			deleted++
		}
	}
	s.records = kept
	return deleted, nil
}

// Close is a no-op for MemorySink.
func (s *MemorySink) Close() error {
	return nil
}

func matches(rec *parser.Record, f QueryFilters) bool {
	if !f.StartTime.IsZero() && (rec.Timestamp == nil || rec.Timestamp.Before(f.StartTime)) {
		return false
	}
	if !f.EndTime.IsZero() && (rec.Timestamp == nil || rec.Timestamp.After(f.EndTime)) {
		return false
	}
	if f.Hostname != "" && (rec.Hostname == nil || *rec.Hostname != f.Hostname) {
		return false
	}
	if len(f.Hostnames) > 0 {
		if rec.Hostname == nil || !contains(f.Hostnames, *rec.Hostname) {
			return false
		}
	}
	if f.AppName != "" && (rec.AppName == nil || *rec.AppName != f.AppName) {
		return false
	}
	if len(f.Severities) > 0 {
		if rec.Severity == nil || !containsInt(f.Severities, *rec.Severity) {
			return false
		}
	}
	if len(f.Facilities) > 0 {
		if rec.Facility == nil || !containsInt(f.Facilities, *rec.Facility) {
			return false
		}
	}
	if f.Search != "" && !containsFold(rec.Message, f.Search) {
		return false
	}
	return true
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(is []int, v int) bool {
	for _, i := range is {
		if i == v {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	h, n := []byte(haystack), []byte(needle)
	if len(n) == 0 {
		return true
	}
	lowerH := toLower(h)
	lowerN := toLower(n)
	return indexOf(lowerH, lowerN) >= 0
}

func toLower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

func indexOf(haystack, needle []byte) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func keysOfString(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func keysOfInt(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
