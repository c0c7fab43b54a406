package parser

// errorKind enumerates the typed failures a parse stage can record. These
// never escape the package: Parse always returns a Record, never an error.
type errorKind int

const (
	errNone errorKind = iota
	errPRIMissing
	errPRIInvalid
	errVersionInvalid
	errTimestampInvalid
	errFieldTooLong
	errStructuredDataInvalid
)

func (k errorKind) String() string {
	switch k {
	case errPRIMissing:
		return "pri_missing"
	case errPRIInvalid:
		return "pri_invalid"
	case errVersionInvalid:
		return "version_invalid"
	case errTimestampInvalid:
		return "timestamp_invalid"
	case errFieldTooLong:
		return "field_too_long"
	case errStructuredDataInvalid:
		return "structured_data_invalid"
	default:
		return "none"
	}
}

// stageError is recorded by a parsing stage. field is only meaningful for
// errFieldTooLong.
type stageError struct {
	kind  errorKind
	field string
}

func (e *stageError) Error() string {
	if e == nil {
		return "none"
	}
	if e.field != "" {
		return e.kind.String() + ": " + e.field
	}
	return e.kind.String()
}

// fatalTo5424 reports whether this error kind must trigger the 5424 -> 3164
// fallback: pri_invalid and version_invalid disqualify the frame from being
// RFC 5424 at all. pri_missing is not reported here, although tryRFC5424
// also rejects a frame with no PRI; tryRFC5424 does not call this method.
func (k errorKind) fatalTo5424() bool {
	return k == errPRIInvalid || k == errVersionInvalid
}
