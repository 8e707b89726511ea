package model

import "time"

// FeatureKind names which calendar.Features map a source feeds.
type FeatureKind string

const (
	KindHoliday FeatureKind = "holiday"
	KindActive  FeatureKind = "active"
	KindNote    FeatureKind = "note"
)

// Valid reports whether k is one of the known kinds.
func (k FeatureKind) Valid() bool {
	switch k {
	case KindHoliday, KindActive, KindNote:
		return true
	}
	return false
}

// Occurrence is a single concrete instance of a subscribed event after
// recurrence expansion, normalized to the display location.
type Occurrence struct {
	SourceID string
	UID      string

	// InstanceKey identifies one occurrence of a recurring event; it is the
	// local start time in RFC3339.
	InstanceKey string

	Summary string
	AllDay  bool

	Start time.Time
	End   time.Time
}

// Days returns the local calendar days the occurrence touches, as midnight
// times in the occurrence's location, clipped to the days overlapping
// [from, to). A zero from or to leaves that side open. All-day events end
// exclusively at midnight, so a one-day all-day event yields exactly one day.
// A timed event ending exactly at midnight does not spill into the next day
// either.
func (o Occurrence) Days(from, to time.Time) []time.Time {
	loc := o.Start.Location()
	y, m, d := o.Start.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	end := o.End.In(loc)
	if !end.After(o.Start) {
		end = o.Start.Add(time.Nanosecond)
	}
	if !to.IsZero() && to.Before(end) {
		end = to.In(loc)
	}
	if !from.IsZero() {
		fy, fm, fd := from.In(loc).Date()
		if first := time.Date(fy, fm, fd, 0, 0, 0, 0, loc); first.After(day) {
			day = first
		}
	}

	var out []time.Time
	for day.Before(end) {
		out = append(out, day)
		day = day.AddDate(0, 0, 1)
	}
	return out
}
