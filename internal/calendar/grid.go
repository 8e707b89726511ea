package calendar

import (
	"fmt"
	"strconv"
	"time"
)

// Default date layouts. ParseLayout accepts both "2024-3-5" and
// "2024-03-05" because Go's single-digit month/day verbs take one or two
// digits when parsing.
const (
	DefaultParseLayout   = "2006-1-2"
	DefaultDisplayLayout = "2006-01-02"
)

// weekLabels is the fixed header label set, indexed by time.Weekday.
var weekLabels = [7]string{"日", "一", "二", "三", "四", "五", "六"}

// ActiveStyle selects how an active day is highlighted.
type ActiveStyle string

const (
	ActiveNone   ActiveStyle = ""
	ActiveFill   ActiveStyle = "fill"
	ActiveBorder ActiveStyle = "border"
)

// DayCell is a single day in a month grid.
type DayCell struct {
	// Key is Date formatted with the grid's display layout. Feature maps are
	// matched against it.
	Key      string      `json:"key"`
	Date     time.Time   `json:"date"`
	DateText int         `json:"date_text"`
	Disabled bool        `json:"disabled"`
	Holiday  string      `json:"holiday,omitempty"`
	Active   ActiveStyle `json:"active,omitempty"`
	Note     string      `json:"note,omitempty"`
}

// Label is the text shown in the date slot of the cell: the holiday name
// when there is one, else the day of month.
func (c DayCell) Label() string {
	if c.Holiday != "" {
		return c.Holiday
	}
	return strconv.Itoa(c.DateText)
}

// Filled reports whether the cell is drawn as a solid active circle.
func (c DayCell) Filled() bool { return c.Active == ActiveFill }

// Bordered reports whether the cell is drawn as an active ring.
func (c DayCell) Bordered() bool { return c.Active == ActiveBorder }

// MonthGrid is the computed day layout of one month.
type MonthGrid struct {
	Month
	// Blanks is the number of empty cells before the first day so that it
	// lines up under its weekday column.
	Blanks int       `json:"blanks"`
	Days   []DayCell `json:"days"`

	displayLayout string
}

// String overrides the promoted Month.String so a grid prints as more than
// its month key.
func (g MonthGrid) String() string {
	return fmt.Sprintf("%s (%d blanks, %d days)", g.Month, g.Blanks, len(g.Days))
}

// GridOptions controls BuildMonth.
type GridOptions struct {
	// Now decides which days are disabled. Zero means time.Now().
	Now time.Time
	// Location for the computed dates. Nil means time.Local.
	Location *time.Location
	// DisplayLayout formats DayCell.Key. Empty means DefaultDisplayLayout.
	DisplayLayout string
	// WeekStart is the weekday of the first grid column (Sunday by default).
	WeekStart time.Weekday
}

func (o GridOptions) normalized() GridOptions {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.DisplayLayout == "" {
		o.DisplayLayout = DefaultDisplayLayout
	}
	if o.WeekStart < time.Sunday || o.WeekStart > time.Saturday {
		o.WeekStart = time.Sunday
	}
	return o
}

// BuildMonth computes the day cells and leading blank count for m.
// Days strictly before the local day of opts.Now are disabled.
func BuildMonth(m Month, opts GridOptions) MonthGrid {
	opts = opts.normalized()

	today := dayOf(opts.Now.In(opts.Location))
	first := m.First(opts.Location)
	n := m.DaysIn()

	grid := MonthGrid{
		Month:         m,
		Blanks:        (int(first.Weekday()) - int(opts.WeekStart) + 7) % 7,
		Days:          make([]DayCell, 0, n),
		displayLayout: opts.DisplayLayout,
	}
	for d := 1; d <= n; d++ {
		date := time.Date(m.Year, m.Month, d, 0, 0, 0, 0, opts.Location)
		grid.Days = append(grid.Days, DayCell{
			Key:      date.Format(opts.DisplayLayout),
			Date:     date,
			DateText: d,
			Disabled: date.Before(today),
		})
	}
	return grid
}

// Cell looks up a day by its display key.
func (g *MonthGrid) Cell(key string) (*DayCell, bool) {
	for i := range g.Days {
		if g.Days[i].Key == key {
			return &g.Days[i], true
		}
	}
	return nil, false
}

// Cells returns the grid in row-major order: Blanks nil entries, the days,
// then trailing nils so the length is a multiple of seven.
func (g MonthGrid) Cells() []*DayCell {
	total := g.Blanks + len(g.Days)
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}
	out := make([]*DayCell, total)
	for i := range g.Days {
		out[g.Blanks+i] = &g.Days[i]
	}
	return out
}

// Rows is the number of week rows the grid occupies.
func (g MonthGrid) Rows() int {
	return len(g.Cells()) / 7
}

// HeaderCell is one weekday column title.
type HeaderCell struct {
	Label   string       `json:"label"`
	Weekday time.Weekday `json:"weekday"`
	Weekend bool         `json:"weekend"`
}

// WeekHeader returns the seven column titles starting at weekStart.
func WeekHeader(weekStart time.Weekday) []HeaderCell {
	if weekStart < time.Sunday || weekStart > time.Saturday {
		weekStart = time.Sunday
	}
	out := make([]HeaderCell, 7)
	for i := range out {
		wd := time.Weekday((int(weekStart) + i) % 7)
		out[i] = HeaderCell{
			Label:   weekLabels[wd],
			Weekday: wd,
			Weekend: wd == time.Saturday || wd == time.Sunday,
		}
	}
	return out
}
