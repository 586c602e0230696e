package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Type is a recurrence frequency for scheduled notifications.
type Type string

const (
	None    Type = "none"
	Daily   Type = "daily"
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
)

// Parse validates a recurrence type string. An empty string means none.
func Parse(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", None:
		return None, nil
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	}
	return None, fmt.Errorf("unknown recurrence type: %q", s)
}

// Next returns the occurrence exactly one recurrence unit after from.
// Monthly advancement clamps to the last day of shorter months (Jan 31 →
// Feb 28) instead of letting the date roll over.
func Next(t Type, from time.Time) time.Time {
	switch t {
	case Daily:
		return from.AddDate(0, 0, 1)
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Monthly:
		year, month, day := from.Date()
		next := time.Date(year, month+1, 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
		if last := daysInMonth(next.Year(), next.Month()); day > last {
			day = last
		}
		return time.Date(next.Year(), next.Month(), day, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	}
	return from
}

// Advance computes the next occurrence from the prior scheduled time (not
// from "now", which would accumulate drift after late runs). It returns the
// next occurrence in epoch milliseconds and whether the recurrence is done:
// either the type is none, or the next occurrence would pass the end bound.
func Advance(t Type, priorMs int64, endMs *int64) (nextMs int64, done bool) {
	if t == None {
		return 0, true
	}
	next := Next(t, time.UnixMilli(priorMs).UTC())
	nextMs = next.UnixMilli()
	if endMs != nil && nextMs > *endMs {
		return 0, true
	}
	return nextMs, false
}

// Describe returns a human-readable description of the recurrence.
func (t Type) Describe() string {
	switch t {
	case Daily:
		return "Repeats daily"
	case Weekly:
		return "Repeats weekly"
	case Monthly:
		return "Repeats monthly"
	}
	return "Does not repeat"
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
