package model

import (
	"testing"
	"time"
)

func TestOccurrenceDays(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{
			name:  "all-day single",
			start: time.Date(2024, 5, 1, 0, 0, 0, 0, loc),
			end:   time.Date(2024, 5, 2, 0, 0, 0, 0, loc),
			want:  []string{"2024-05-01"},
		},
		{
			name:  "all-day multi",
			start: time.Date(2024, 5, 1, 0, 0, 0, 0, loc),
			end:   time.Date(2024, 5, 4, 0, 0, 0, 0, loc),
			want:  []string{"2024-05-01", "2024-05-02", "2024-05-03"},
		},
		{
			name:  "timed across midnight",
			start: time.Date(2024, 5, 1, 22, 0, 0, 0, loc),
			end:   time.Date(2024, 5, 2, 1, 0, 0, 0, loc),
			want:  []string{"2024-05-01", "2024-05-02"},
		},
		{
			name:  "zero length",
			start: time.Date(2024, 5, 1, 9, 0, 0, 0, loc),
			end:   time.Date(2024, 5, 1, 9, 0, 0, 0, loc),
			want:  []string{"2024-05-01"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Occurrence{Start: tc.start, End: tc.end}.Days(time.Time{}, time.Time{})
			if len(got) != len(tc.want) {
				t.Fatalf("got %d days, want %d (%v)", len(got), len(tc.want), got)
			}
			for i, d := range got {
				if s := d.Format("2006-01-02"); s != tc.want[i] {
					t.Fatalf("day %d = %s, want %s", i, s, tc.want[i])
				}
			}
		})
	}
}

func TestOccurrenceDaysClipped(t *testing.T) {
	loc := time.UTC
	// An event running for decades only yields the days inside the window.
	o := Occurrence{
		Start:  time.Date(2000, 1, 1, 0, 0, 0, 0, loc),
		End:    time.Date(9999, 12, 31, 0, 0, 0, 0, loc),
		AllDay: true,
	}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, loc)

	got := o.Days(from, to)
	if len(got) != 31 {
		t.Fatalf("got %d days, want 31", len(got))
	}
	if !got[0].Equal(from) || !got[30].Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected bounds %s .. %s", got[0], got[30])
	}

	// Window starting mid-day still includes that day.
	timed := Occurrence{
		Start: time.Date(2024, 5, 1, 22, 0, 0, 0, loc),
		End:   time.Date(2024, 5, 3, 1, 0, 0, 0, loc),
	}
	got = timed.Days(time.Date(2024, 5, 2, 12, 0, 0, 0, loc), time.Time{})
	if len(got) != 2 || got[0].Day() != 2 {
		t.Fatalf("clipped timed event = %v", got)
	}

	if got := o.Days(to, from); len(got) != 0 {
		t.Fatalf("inverted window should be empty, got %d days", len(got))
	}
}

func TestFeatureKindValid(t *testing.T) {
	for _, k := range []FeatureKind{KindHoliday, KindActive, KindNote} {
		if !k.Valid() {
			t.Fatalf("%q should be valid", k)
		}
	}
	if FeatureKind("todo").Valid() {
		t.Fatalf("unexpected valid kind")
	}
}
