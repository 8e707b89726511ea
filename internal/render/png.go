package render

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"calgrid/internal/calendar"
)

// Palette of the cell design.
const (
	colorText       = "#000000"
	colorWeekend    = "#ff3c30"
	colorDisabled   = "#c7ced4"
	colorAccent     = "#1ba9ba"
	colorSeparator  = "#dce1e6"
	colorBackground = "#ffffff"
)

// Fixed heights in pixels.
const (
	weekHeaderHeight  = 15.0
	monthHeaderHeight = 40.0
	noteExtraHeight   = 15
	dateSlotHeight    = 32
	noteSlotHeight    = 20
	activeDiameter    = 32
)

// Font sizes in points.
const (
	weekLabelSize = 10
	titleSize     = 18
	dateSize      = 14
	noteSize      = 12
)

// DefaultPNGWidth is the image width when PNGOptions.Width is zero.
const DefaultPNGWidth = 750

// PNGOptions configures a PNGRenderer.
type PNGOptions struct {
	// Width in pixels; columns are Width/7 wide.
	Width int
	// FontPath is an optional TrueType file. Without it the embedded Go
	// font is used and the weekday and month-title characters it lacks are
	// drawn as strokes; holiday names and notes need a font that covers them.
	FontPath string
}

// PNGRenderer draws month grids with fogleman/gg.
type PNGRenderer struct {
	width int
	font  *truetype.Font
}

// NewPNGRenderer loads the font and returns a renderer.
func NewPNGRenderer(opts PNGOptions) (*PNGRenderer, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultPNGWidth
	}
	if opts.Width < 7*activeDiameter {
		return nil, fmt.Errorf("render: width %d too small", opts.Width)
	}

	ttf := goregular.TTF
	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("render: read font: %w", err)
		}
		ttf = data
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}
	return &PNGRenderer{width: opts.Width, font: f}, nil
}

func (r *PNGRenderer) face(size float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{Size: size})
}

func (r *PNGRenderer) cellWidth() float64 {
	return float64(r.width) / 7
}

func (r *PNGRenderer) cellHeight() float64 {
	return r.cellWidth() + noteExtraHeight
}

// Height returns the image height for the given grids.
func (r *PNGRenderer) Height(grids []calendar.MonthGrid) int {
	h := float64(weekHeaderHeight)
	for _, g := range grids {
		h += monthHeaderHeight + float64(g.Rows())*r.cellHeight()
	}
	return int(h + 0.5)
}

// Render draws the week header followed by each month (title + body).
func (r *PNGRenderer) Render(header []calendar.HeaderCell, grids []calendar.MonthGrid) image.Image {
	return r.draw(header, grids).Image()
}

// Encode writes the rendering as PNG.
func (r *PNGRenderer) Encode(w io.Writer, header []calendar.HeaderCell, grids []calendar.MonthGrid) error {
	return r.draw(header, grids).EncodePNG(w)
}

// Save writes the rendering to path, creating the parent directory.
func (r *PNGRenderer) Save(path string, header []calendar.HeaderCell, grids []calendar.MonthGrid) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return r.draw(header, grids).SavePNG(path)
}

func (r *PNGRenderer) draw(header []calendar.HeaderCell, grids []calendar.MonthGrid) *gg.Context {
	dc := gg.NewContext(r.width, r.Height(grids))
	dc.SetHexColor(colorBackground)
	dc.Clear()

	cw := r.cellWidth()

	dc.SetFontFace(r.face(weekLabelSize))
	for i, h := range header {
		dc.SetHexColor(colorText)
		if h.Weekend {
			dc.SetHexColor(colorWeekend)
		}
		r.drawText(dc, h.Label, weekLabelSize, cw*float64(i)+cw/2, weekHeaderHeight/2, 0.5, 0.5)
	}

	y := float64(weekHeaderHeight)
	for _, g := range grids {
		y = r.drawMonthHeader(dc, g, y)
		y = r.drawMonthBody(dc, g, y)
	}
	return dc
}

func (r *PNGRenderer) drawMonthHeader(dc *gg.Context, g calendar.MonthGrid, y float64) float64 {
	dc.SetFontFace(r.face(titleSize))
	dc.SetHexColor(colorText)
	r.drawText(dc, g.Title(), titleSize, float64(r.width)/2, y+monthHeaderHeight/2, 0.5, 0.5)

	dc.SetHexColor(colorSeparator)
	dc.SetLineWidth(1)
	dc.DrawLine(0, y+monthHeaderHeight-0.5, float64(r.width), y+monthHeaderHeight-0.5)
	dc.Stroke()
	return y + monthHeaderHeight
}

func (r *PNGRenderer) drawMonthBody(dc *gg.Context, g calendar.MonthGrid, y float64) float64 {
	cw, ch := r.cellWidth(), r.cellHeight()
	dateFace, noteFace := r.face(dateSize), r.face(noteSize)

	for i, cell := range g.Cells() {
		if cell == nil {
			continue
		}
		x0 := cw * float64(i%7)
		y0 := y + ch*float64(i/7)
		cx := x0 + cw/2
		// Date and note slots are stacked and centred vertically.
		dateY := y0 + (ch-dateSlotHeight-noteSlotHeight)/2 + dateSlotHeight/2
		noteY := dateY + dateSlotHeight/2 + noteSlotHeight/2

		textColor := colorText
		switch {
		case cell.Filled():
			dc.SetHexColor(colorAccent)
			dc.DrawCircle(cx, dateY, activeDiameter/2)
			dc.Fill()
			textColor = colorBackground
		case cell.Bordered():
			dc.SetHexColor(colorAccent)
			dc.SetLineWidth(1)
			dc.DrawCircle(cx, dateY, activeDiameter/2-0.5)
			dc.Stroke()
		}
		if cell.Disabled {
			textColor = colorDisabled
		}

		dc.SetFontFace(dateFace)
		dc.SetHexColor(textColor)
		r.drawText(dc, cell.Label(), dateSize, cx, dateY, 0.5, 0.5)

		if cell.Note != "" {
			dc.SetFontFace(noteFace)
			dc.SetHexColor(colorAccent)
			r.drawText(dc, cell.Note, noteSize, cx, noteY, 0.5, 0.5)
		}
	}
	return y + float64(g.Rows())*ch
}
