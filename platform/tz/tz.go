// Package tz resolves clinic timezone names into locations and local calendar days.
// This is part of the platform layer and contains no business logic.
package tz

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// DateLayout is the YYYY-MM-DD layout used for local calendar dates.
const DateLayout = time.DateOnly

// Load returns the named IANA location. Empty or unknown names fall back to UTC.
func Load(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Valid reports whether name loads as an IANA location.
func Valid(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// LocalDay returns the calendar date of t in loc and that day's local midnight.
func LocalDay(t time.Time, loc *time.Location) (string, time.Time) {
	local := t.In(loc)
	y, m, d := local.Date()
	return local.Format(DateLayout), time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// StartOfDay is local midnight of the given calendar date.
func StartOfDay(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay is 23:59:59.999 local time of the given calendar date.
func EndOfDay(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}
