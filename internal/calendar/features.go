package calendar

import (
	"time"
)

// Features holds externally supplied per-date annotations. Keys are date
// strings in the caller's parse layout (DefaultParseLayout unless told
// otherwise); values are the holiday text, the active style and the note
// text respectively.
type Features struct {
	Holiday map[string]string `json:"holiday,omitempty" yaml:"holiday,omitempty"`
	Active  map[string]string `json:"active,omitempty" yaml:"active,omitempty"`
	Note    map[string]string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Empty reports whether no feature map has entries.
func (f Features) Empty() bool {
	return len(f.Holiday) == 0 && len(f.Active) == 0 && len(f.Note) == 0
}

// Len is the total number of entries across all maps.
func (f Features) Len() int {
	return len(f.Holiday) + len(f.Active) + len(f.Note)
}

// Union returns a new Features with o layered over f. On equal keys o wins.
// Neither input is modified.
func (f Features) Union(o Features) Features {
	return Features{
		Holiday: unionMap(f.Holiday, o.Holiday),
		Active:  unionMap(f.Active, o.Active),
		Note:    unionMap(f.Note, o.Note),
	}
}

func unionMap(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merge overlays f onto the cells of grid. Each key is parsed with
// parseLayout (DefaultParseLayout when empty) in the location of the grid's
// dates, reformatted with the grid's display layout, and applied only when
// that day belongs to the grid. Unparseable keys are skipped. Holidays are
// applied first, then active state, then notes; each map only writes its
// own field.
func Merge(grid *MonthGrid, f Features, parseLayout string) {
	if grid == nil || len(grid.Days) == 0 {
		return
	}
	if parseLayout == "" {
		parseLayout = DefaultParseLayout
	}
	display := grid.displayLayout
	if display == "" {
		display = DefaultDisplayLayout
	}
	loc := grid.Days[0].Date.Location()

	apply := func(feature map[string]string, set func(*DayCell, string)) {
		for raw, value := range feature {
			t, err := time.ParseInLocation(parseLayout, raw, loc)
			if err != nil {
				continue
			}
			if cell, ok := grid.Cell(t.Format(display)); ok {
				set(cell, value)
			}
		}
	}

	apply(f.Holiday, func(c *DayCell, v string) { c.Holiday = v })
	apply(f.Active, func(c *DayCell, v string) { c.Active = ActiveStyle(v) })
	apply(f.Note, func(c *DayCell, v string) { c.Note = v })
}

// Normalize re-keys every map to DefaultDisplayLayout after parsing with
// parseLayout, dropping keys that do not parse. Sources keyed in different
// formats can then be combined with Union without duplicate days.
func (f Features) Normalize(parseLayout string) Features {
	if parseLayout == "" {
		parseLayout = DefaultParseLayout
	}
	rekey := func(in map[string]string) map[string]string {
		if len(in) == 0 {
			return nil
		}
		out := make(map[string]string, len(in))
		for raw, v := range in {
			t, err := time.Parse(parseLayout, raw)
			if err != nil {
				continue
			}
			out[t.Format(DefaultDisplayLayout)] = v
		}
		return out
	}
	return Features{
		Holiday: rekey(f.Holiday),
		Active:  rekey(f.Active),
		Note:    rekey(f.Note),
	}
}
