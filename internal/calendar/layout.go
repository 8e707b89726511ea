package calendar

import "time"

// ItemKind tags entries of a Scroll.
type ItemKind string

const (
	ItemHeader ItemKind = "header"
	ItemBody   ItemKind = "body"
)

// Options drives both layout variants.
type Options struct {
	Grid GridOptions
	// ParseLayout is the layout of the feature map keys.
	ParseLayout string
}

// Builder turns a date range plus feature maps into month grids.
type Builder struct {
	opts Options
}

// NewBuilder returns a Builder; an empty ParseLayout means DefaultParseLayout.
func NewBuilder(opts Options) *Builder {
	if opts.ParseLayout == "" {
		opts.ParseLayout = DefaultParseLayout
	}
	return &Builder{opts: opts}
}

// Grids builds one merged grid per month in [start, end].
func (b *Builder) Grids(start, end time.Time, f Features) []MonthGrid {
	months := Months(start, end)
	out := make([]MonthGrid, 0, len(months))
	for _, m := range months {
		out = append(out, b.Month(m, f))
	}
	return out
}

// Month builds a single merged grid.
func (b *Builder) Month(m Month, f Features) MonthGrid {
	g := BuildMonth(m, b.opts.Grid)
	Merge(&g, f, b.opts.ParseLayout)
	return g
}

// Day returns the merged cell of the local day containing t. It reports
// false when the display layout does not identify single days.
func (b *Builder) Day(t time.Time, f Features) (DayCell, bool) {
	opts := b.opts.Grid.normalized()
	t = t.In(opts.Location)
	g := b.Month(MonthOf(t), f)
	c, ok := g.Cell(dayOf(t).Format(opts.DisplayLayout))
	if !ok || c.DateText != t.Day() {
		return DayCell{}, false
	}
	return *c, true
}

// Header returns the weekday header for the builder's week start.
func (b *Builder) Header() []HeaderCell {
	return WeekHeader(b.opts.Grid.WeekStart)
}

// ScrollItem is one row of the continuous scroll variant: either a month
// title or a month body.
type ScrollItem struct {
	Kind  ItemKind   `json:"type"`
	Month Month      `json:"month"`
	Title string     `json:"title,omitempty"`
	Grid  *MonthGrid `json:"grid,omitempty"`
}

// Scroll is the continuous scroll variant. Headers and bodies alternate, and
// StickyHeaderIndices lists the positions of the header items, which stay
// pinned while their month scrolls past.
type Scroll struct {
	Header              []HeaderCell `json:"header"`
	Items               []ScrollItem `json:"items"`
	StickyHeaderIndices []int        `json:"sticky_header_indices"`
}

// Scroll builds the continuous scroll variant for [start, end].
func (b *Builder) Scroll(start, end time.Time, f Features) Scroll {
	grids := b.Grids(start, end, f)
	s := Scroll{
		Header:              b.Header(),
		Items:               make([]ScrollItem, 0, 2*len(grids)),
		StickyHeaderIndices: make([]int, 0, len(grids)),
	}
	for i := range grids {
		g := grids[i]
		s.StickyHeaderIndices = append(s.StickyHeaderIndices, len(s.Items))
		s.Items = append(s.Items,
			ScrollItem{Kind: ItemHeader, Month: g.Month, Title: g.Title()},
			ScrollItem{Kind: ItemBody, Month: g.Month, Grid: &g},
		)
	}
	return s
}

// Section is one month of the sectioned list variant.
type Section struct {
	Title string    `json:"title"`
	Grid  MonthGrid `json:"grid"`
}

// SectionPage is a window of sections for lazy loading.
type SectionPage struct {
	Header     []HeaderCell `json:"header"`
	Sections   []Section    `json:"sections"`
	Offset     int          `json:"offset"`
	NextOffset int          `json:"next_offset"`
	Total      int          `json:"total"`
	HasMore    bool         `json:"has_more"`
}

// DefaultPageSize is the number of sections per page when none is given.
const DefaultPageSize = 2

// Page builds the sections of [start, end] in window [offset, offset+limit).
// Only the months inside the window are computed. Negative offsets are
// treated as zero and non-positive limits as DefaultPageSize.
func (b *Builder) Page(start, end time.Time, f Features, offset, limit int) SectionPage {
	months := Months(start, end)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset > len(months) {
		offset = len(months)
	}
	if limit > len(months)-offset {
		limit = len(months) - offset
	}
	stop := offset + limit

	p := SectionPage{
		Header:     b.Header(),
		Sections:   make([]Section, 0, stop-offset),
		Offset:     offset,
		NextOffset: stop,
		Total:      len(months),
		HasMore:    stop < len(months),
	}
	for _, m := range months[offset:stop] {
		p.Sections = append(p.Sections, Section{Title: m.Title(), Grid: b.Month(m, f)})
	}
	return p
}
