package parser

import "time"

// clockFunc supplies the current instant. Reading the wall clock inside the
// parser is a testability hazard (Design Notes: "current-year default"), so
// every clock read goes through this single indirection and tests inject a
// fixed value via WithClock.
type clockFunc func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}
