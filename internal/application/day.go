package application

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// Day is a calendar date, independent of any clock time or zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, &ValidationError{Field: "date", Message: fmt.Sprintf("must be a date in %s format", DayLayout)}
	}
	return DayOf(t, time.UTC), nil
}

// DayOf returns the calendar day of t as seen in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// Bounds returns the half-open range [start of day, start of next day) in loc.
// On DST transitions the range is 23 or 25 hours long.
func (d Day) Bounds(loc *time.Location) (from, to time.Time) {
	from = time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	to = time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, loc)
	return from, to
}

func (d Day) IsZero() bool { return d == Day{} }

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
