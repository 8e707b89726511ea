// Package render draws calendar layouts as HTML pages and PNG images. Both
// renderers use the same cell design: the date (or holiday name) on top, the
// note below it, a filled or ringed circle for active days and grey text for
// disabled ones.
package render

import (
	"embed"
	"html/template"
	"io"

	"calgrid/internal/calendar"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/calendar.html"))

// Page is the data of the scroll-view HTML page.
type Page struct {
	Title  string
	Scroll calendar.Scroll
}

// HTML writes the continuous scroll variant as a standalone page. Month
// headers are CSS-sticky; the root element carries data-ready="true" for
// screenshot capture.
func HTML(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = "Calendar"
	}
	return pageTmpl.Execute(w, p)
}
