package calendar

import (
	"fmt"
	"time"
)

// DefaultSpanMonths is how far past the start month the default range reaches.
const DefaultSpanMonths = 5

// Month identifies a single calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t (in t's own location).
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// First returns midnight of the first day of the month in loc.
func (m Month) First(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// Next returns the following month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Key is a sortable identifier such as "2024-03".
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Title is the month header text, e.g. "2024年3月".
func (m Month) Title() string {
	return fmt.Sprintf("%d年%d月", m.Year, int(m.Month))
}

func (m Month) String() string {
	return m.Key()
}

// Months returns the ordered months spanned by [start, end], both endpoint
// months included. The comparison is by calendar day in start's location, so
// an end earlier in the day than start but on the same date still counts.
// If end falls on a day before start the result is empty.
func Months(start, end time.Time) []Month {
	end = end.In(start.Location())
	if dayOf(end).Before(dayOf(start)) {
		return nil
	}

	last := MonthOf(end)
	var out []Month
	for m := MonthOf(start); !last.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out
}

// DefaultRange returns [now, now + DefaultSpanMonths months].
func DefaultRange(now time.Time) (time.Time, time.Time) {
	return now, AddMonths(now, DefaultSpanMonths)
}

// AddMonths moves t by n months, clamping the day to the target month's
// length (Jan 31 + 1 month is Feb 28/29, not Mar 2/3).
func AddMonths(t time.Time, n int) time.Time {
	y, mo, d := t.Date()
	target := time.Date(y, mo+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if days := (Month{Year: target.Year(), Month: target.Month()}).DaysIn(); d > days {
		d = days
	}
	return target.AddDate(0, 0, d-1)
}

// dayOf truncates t to local midnight.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
