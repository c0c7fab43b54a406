package parser

import (
	"log/slog"
	"maps"
	"time"

	// Embeds the IANA time zone database so timezone abbreviation
	// resolution (Europe/Brussels, Europe/London) works even on minimal
	// container images that ship no system tzdata.
	_ "time/tzdata"
)

// Parser turns raw syslog frames into Records. The zero value is not
// usable; construct with New.
type Parser struct {
	clock   clockFunc
	logger  *slog.Logger
	tzTable map[string]string
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the "now" provider used for the RFC 3164 classic
// dialect's current-year default. Tests inject a fixed clock so parsing
// stays deterministic.
func WithClock(clock func() time.Time) Option {
	return func(p *Parser) { p.clock = clock }
}

// WithLogger sets the structured logger used to report unknown timezone
// abbreviations and parse failures. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// WithTimezones replaces the built-in abbreviation table. Values are IANA
// zone names (e.g. "Europe/Brussels").
func WithTimezones(table map[string]string) Option {
	return func(p *Parser) { p.tzTable = maps.Clone(table) }
}

// New builds a Parser with the given options applied over the defaults.
func New(opts ...Option) *Parser {
	p := &Parser{
		clock:   defaultClock,
		logger:  slog.Default(),
		tzTable: maps.Clone(defaultTimezones),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse always returns a Record; it never fails. See package doc and
// DESIGN.md for the two-attempt RFC 5424 / RFC 3164 fallback strategy.
func (p *Parser) Parse(raw []byte) *Record {
	s := string(raw)
	warn := func(abbr string) {
		p.logger.Warn("unknown timezone abbreviation, defaulting to UTC", "abbreviation", abbr)
	}
	if rec, ok := tryRFC5424(s); ok {
		if rec.RFC != RFC5424 {
			p.logger.Warn("rfc5424 parse failed, unparsed remainder kept as message", "rfc", string(rec.RFC))
		}
		return rec
	}
	rec := tryRFC3164(s, p.clock, p.tzTable, warn)
	if rec.Timestamp == nil {
		p.logger.Warn("syslog parse failed, whole frame kept as message", "error", errTimestampInvalid.String())
	}
	return rec
}

var defaultParser = New()

// Parse parses raw using a package-level Parser configured with defaults
// (wall clock, slog.Default(), and the built-in timezone table).
func Parse(raw []byte) *Record {
	return defaultParser.Parse(raw)
}
