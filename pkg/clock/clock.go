// Package clock provides the calendar-date time source used by the borrowing workflow.
package clock

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Clock returns the current instant and the current calendar date.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

type systemClock struct {
	loc *time.Location
}

// New returns a wall clock whose Today is evaluated in loc.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) Today() time.Time {
	return Date(c.Now())
}

// Fixed always reports the same instant. Used by tests and the one-shot sweep command.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time   { return f.At }
func (f Fixed) Today() time.Time { return Date(f.At) }

// Date strips the time of day, keeping the calendar date as seen in t's location.
// The result is always midnight UTC so dates from different sources compare with Equal.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return Date(t).AddDate(0, 0, n)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return Date(t), nil
}

// LoadLocation resolves an IANA zone name, falling back to UTC+7 (WIB) when tzdata is missing.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}
