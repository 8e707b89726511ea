package ics

import (
	"fmt"
	"io"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"

	"calgrid/internal/calendar"
	"calgrid/internal/model"
)

// ProductID is written to exported calendars.
const ProductID = "-//calgrid//Calendar Annotations//EN"

// Export writes f as an all-day VCALENDAR, one VEVENT per annotated day and
// feature. Keys must be in calendar.DefaultDisplayLayout (see
// calendar.Features.Normalize); keys that do not parse are skipped.
func Export(w io.Writer, f calendar.Features, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetCalscale("GREGORIAN")

	add := func(kind model.FeatureKind, entries map[string]string, summary func(string) string) {
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			day, err := time.Parse(calendar.DefaultDisplayLayout, k)
			if err != nil {
				continue
			}
			ev := cal.AddEvent(fmt.Sprintf("%s-%s@calgrid", day.Format("20060102"), kind))
			ev.SetDtStampTime(now)
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
			ev.SetSummary(summary(entries[k]))
			ev.AddProperty(ical.ComponentPropertyCategories, string(kind))
		}
	}

	same := func(v string) string { return v }
	add(model.KindHoliday, f.Holiday, same)
	add(model.KindActive, f.Active, func(v string) string { return "active: " + v })
	add(model.KindNote, f.Note, same)

	return cal.SerializeTo(w)
}
