package render

import (
	"math"

	"github.com/fogleman/gg"
)

// strokeGlyphs outlines the fixed weekday labels and the month title
// characters as polylines in a unit em box (y grows downwards). They are
// drawn when the loaded font has no glyph for the rune, which is the case
// for the embedded Go font.
var strokeGlyphs = map[rune][][]gg.Point{
	'日': {
		{{X: 0.25, Y: 0.1}, {X: 0.75, Y: 0.1}, {X: 0.75, Y: 0.9}, {X: 0.25, Y: 0.9}, {X: 0.25, Y: 0.1}},
		{{X: 0.25, Y: 0.5}, {X: 0.75, Y: 0.5}},
	},
	'一': {
		{{X: 0.1, Y: 0.5}, {X: 0.9, Y: 0.5}},
	},
	'二': {
		{{X: 0.2, Y: 0.3}, {X: 0.8, Y: 0.3}},
		{{X: 0.1, Y: 0.75}, {X: 0.9, Y: 0.75}},
	},
	'三': {
		{{X: 0.2, Y: 0.2}, {X: 0.8, Y: 0.2}},
		{{X: 0.25, Y: 0.5}, {X: 0.75, Y: 0.5}},
		{{X: 0.1, Y: 0.82}, {X: 0.9, Y: 0.82}},
	},
	'四': {
		{{X: 0.15, Y: 0.85}, {X: 0.15, Y: 0.2}, {X: 0.85, Y: 0.2}, {X: 0.85, Y: 0.85}, {X: 0.15, Y: 0.85}},
		{{X: 0.4, Y: 0.2}, {X: 0.4, Y: 0.5}, {X: 0.3, Y: 0.65}},
		{{X: 0.6, Y: 0.2}, {X: 0.6, Y: 0.6}, {X: 0.7, Y: 0.65}},
	},
	'五': {
		{{X: 0.15, Y: 0.15}, {X: 0.85, Y: 0.15}},
		{{X: 0.45, Y: 0.15}, {X: 0.35, Y: 0.85}},
		{{X: 0.25, Y: 0.45}, {X: 0.7, Y: 0.45}, {X: 0.65, Y: 0.85}},
		{{X: 0.1, Y: 0.85}, {X: 0.9, Y: 0.85}},
	},
	'六': {
		{{X: 0.48, Y: 0.08}, {X: 0.55, Y: 0.22}},
		{{X: 0.1, Y: 0.35}, {X: 0.9, Y: 0.35}},
		{{X: 0.35, Y: 0.55}, {X: 0.15, Y: 0.85}},
		{{X: 0.65, Y: 0.55}, {X: 0.85, Y: 0.85}},
	},
	'年': {
		{{X: 0.3, Y: 0.05}, {X: 0.15, Y: 0.3}},
		{{X: 0.25, Y: 0.2}, {X: 0.85, Y: 0.2}},
		{{X: 0.3, Y: 0.2}, {X: 0.3, Y: 0.45}},
		{{X: 0.3, Y: 0.45}, {X: 0.8, Y: 0.45}},
		{{X: 0.05, Y: 0.68}, {X: 0.95, Y: 0.68}},
		{{X: 0.55, Y: 0.2}, {X: 0.55, Y: 0.95}},
	},
	'月': {
		{{X: 0.3, Y: 0.1}, {X: 0.3, Y: 0.6}, {X: 0.15, Y: 0.92}},
		{{X: 0.3, Y: 0.1}, {X: 0.75, Y: 0.1}, {X: 0.75, Y: 0.9}, {X: 0.65, Y: 0.85}},
		{{X: 0.3, Y: 0.38}, {X: 0.75, Y: 0.38}},
		{{X: 0.3, Y: 0.62}, {X: 0.75, Y: 0.62}},
	},
}

// textRun is a piece of a string drawn either with the font or, when glyph
// is set, from strokeGlyphs.
type textRun struct {
	text  string
	glyph [][]gg.Point
	width float64
}

// runs splits s into font runs and stroke glyphs. The current font face of
// dc must have the given size.
func (r *PNGRenderer) runs(dc *gg.Context, s string, size float64) ([]textRun, float64) {
	var (
		out     []textRun
		total   float64
		pending []rune
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		t := string(pending)
		w, _ := dc.MeasureString(t)
		out = append(out, textRun{text: t, width: w})
		total += w
		pending = pending[:0]
	}
	for _, ch := range s {
		if g, ok := strokeGlyphs[ch]; ok && r.font.Index(ch) == 0 {
			flush()
			out = append(out, textRun{glyph: g, width: size})
			total += size
			continue
		}
		pending = append(pending, ch)
	}
	flush()
	return out, total
}

// drawText behaves like gg's DrawStringAnchored, filling in runes the font
// lacks from strokeGlyphs.
func (r *PNGRenderer) drawText(dc *gg.Context, s string, size, x, y, ax, ay float64) {
	runs, w := r.runs(dc, s, size)
	_, h := dc.MeasureString(s)
	x -= ax * w
	y += ay * h
	for _, run := range runs {
		if run.glyph == nil {
			dc.DrawString(run.text, x, y)
		} else {
			drawStrokeGlyph(dc, run.glyph, x, y, size)
		}
		x += run.width
	}
}

// drawStrokeGlyph draws one glyph in an em box of size sitting on baseline y.
func drawStrokeGlyph(dc *gg.Context, strokes [][]gg.Point, x, y, size float64) {
	em := size * 0.9
	left := x + (size-em)/2
	top := y - em*0.88

	dc.SetLineWidth(math.Max(1, size/12))
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for _, stroke := range strokes {
		for i, p := range stroke {
			px, py := left+p.X*em, top+p.Y*em
			if i == 0 {
				dc.MoveTo(px, py)
			} else {
				dc.LineTo(px, py)
			}
		}
	}
	dc.Stroke()
}
