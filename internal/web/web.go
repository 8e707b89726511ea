package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"calgrid/internal/annotations"
	"calgrid/internal/calendar"
	"calgrid/internal/config"
	"calgrid/internal/ics"
	appLog "calgrid/internal/log"
	"calgrid/internal/render"
)

// maxRangeMonths caps how many months one request may build.
const maxRangeMonths = 60

// Requested dates are clamped to the years JSON timestamps can carry.
const (
	minYear = 1
	maxYear = 9999
)

// Server exposes the calendar layouts over HTTP.
type Server struct {
	cfg   *config.Config
	store *annotations.Store
	png   *render.PNGRenderer
	mux   *http.ServeMux
	now   func() time.Time
}

// NewServer constructs a Server backed by store.
func NewServer(cfg *config.Config, store *annotations.Store) (*Server, error) {
	png, err := render.NewPNGRenderer(render.PNGOptions{FontPath: cfg.FontPath})
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:   cfg,
		store: store,
		png:   png,
		mux:   http.NewServeMux(),
		now:   time.Now,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root handler, wrapped with Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware protects everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/calendar", s.handleScroll)
	s.mux.HandleFunc("GET /api/sections", s.handleSections)
	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("GET /api/day", s.handleDay)
	s.mux.HandleFunc("GET /api/features", s.handleFeatures)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.HandleFunc("GET /calendar.png", s.handleCalendarPNG)
	s.mux.HandleFunc("GET /month.png", s.handleMonthPNG)
	s.mux.HandleFunc("GET /annotations.ics", s.handleExport)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// builder returns a Builder for the current instant. Store features are
// already normalized, so keys are parsed with the default layout.
func (s *Server) builder() *calendar.Builder {
	return calendar.NewBuilder(calendar.Options{
		Grid: calendar.GridOptions{
			Now:           s.now(),
			Location:      s.store.Location(),
			DisplayLayout: s.cfg.DisplayLayout,
			WeekStart:     s.cfg.Weekday(),
		},
		ParseLayout: calendar.DefaultParseLayout,
	})
}

// handleScroll returns the continuous scroll variant.
//
// GET /api/calendar?start=2024-10-01&end=2025-03-01
func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	start, end := s.parseRange(r)
	writeJSON(w, http.StatusOK, s.builder().Scroll(start, end, s.store.FeaturesFor(start, end)))
}

// handleSections returns one lazy-loading page of the sectioned variant.
//
// GET /api/sections?offset=0&limit=2[&start=...&end=...]
func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := s.parseRange(r)
	offset := parseIntDefault(q.Get("offset"), 0)
	limit := parseIntDefault(q.Get("limit"), calendar.DefaultPageSize)
	writeJSON(w, http.StatusOK, s.builder().Page(start, end, s.store.FeaturesFor(start, end), offset, limit))
}

type monthResponse struct {
	Header []calendar.HeaderCell `json:"header"`
	Title  string                `json:"title"`
	Grid   calendar.MonthGrid    `json:"grid"`
}

// handleMonth returns a single month grid.
//
// GET /api/month?year=2024&month=10 (defaults to the current month)
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	m, ok := s.parseMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "month must be 1-12 and year 1-9999")
		return
	}
	first := m.First(s.store.Location())
	b := s.builder()
	writeJSON(w, http.StatusOK, monthResponse{
		Header: b.Header(),
		Title:  m.Title(),
		Grid:   b.Month(m, s.store.FeaturesFor(first, first)),
	})
}

type dayResponse struct {
	Title   string              `json:"title"`
	Weekday calendar.HeaderCell `json:"weekday"`
	Cell    calendar.DayCell    `json:"cell"`
}

// handleDay returns the merged cell of one day, the server side of tapping a
// day in the grid.
//
// GET /api/day?date=2024-10-05
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	loc := s.store.Location()
	day := parseDate(r.URL.Query().Get("date"), loc, time.Time{})
	if day.IsZero() || day.Year() < minYear || day.Year() > maxYear {
		writeError(w, http.StatusBadRequest, "date must look like 2024-10-05")
		return
	}
	cell, ok := s.builder().Day(day, s.store.FeaturesFor(day, day))
	if !ok {
		writeError(w, http.StatusInternalServerError, "display_layout does not identify days")
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{
		Title:   calendar.MonthOf(cell.Date).Title(),
		Weekday: calendar.WeekHeader(time.Sunday)[cell.Date.Weekday()],
		Cell:    cell,
	})
}

type featuresResponse struct {
	Features    calendar.Features `json:"features"`
	UpdatedAt   time.Time         `json:"updated_at"`
	WindowStart time.Time         `json:"window_start"`
	WindowEnd   time.Time         `json:"window_end"`
	Errors      int               `json:"errors"`
}

func snapshotResponse(snap annotations.Snapshot) featuresResponse {
	return featuresResponse{
		Features:    snap.Features,
		UpdatedAt:   snap.UpdatedAt,
		WindowStart: snap.WindowStart,
		WindowEnd:   snap.WindowEnd,
		Errors:      snap.Errors,
	}
}

func (s *Server) handleFeatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, snapshotResponse(s.store.Snapshot()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Refresh(r.Context())
	if err != nil {
		appLog.Error("refresh request failed", err)
		writeError(w, http.StatusServiceUnavailable, "refresh aborted")
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}

func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	start, end := s.parseRange(r)
	scroll := s.builder().Scroll(start, end, s.store.FeaturesFor(start, end))

	var buf bytes.Buffer
	if err := render.HTML(&buf, render.Page{Scroll: scroll}); err != nil {
		appLog.Error("html render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleCalendarPNG renders the requested range (default: current month).
func (s *Server) handleCalendarPNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := s.now().In(s.store.Location())
	start := parseDate(q.Get("start"), s.store.Location(), now)
	end := parseDate(q.Get("end"), s.store.Location(), start)
	start, end = clampRange(start, end)
	s.writePNG(w, start, end)
}

// handleMonthPNG renders a single month.
//
// GET /month.png?year=2024&month=10 (defaults to the current month)
func (s *Server) handleMonthPNG(w http.ResponseWriter, r *http.Request) {
	m, ok := s.parseMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "month must be 1-12 and year 1-9999")
		return
	}
	first := m.First(s.store.Location())
	s.writePNG(w, first, first)
}

func (s *Server) writePNG(w http.ResponseWriter, start, end time.Time) {
	b := s.builder()
	grids := b.Grids(start, end, s.store.FeaturesFor(start, end))

	var buf bytes.Buffer
	if err := s.png.Encode(&buf, b.Header(), grids); err != nil {
		appLog.Error("png render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := ics.Export(&buf, s.store.Features(), s.now()); err != nil {
		appLog.Error("ics export failed", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=calgrid.ics")
	_, _ = buf.WriteTo(w)
}

// handlePreview serves the last PNG written by the CLI (-once or -capture).
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.PreviewPath)
}

// parseRange reads start/end query values. Missing or invalid values fall
// back to now and now + MonthsAhead months; dates are clamped to years
// 1-9999 and the span is capped.
func (s *Server) parseRange(r *http.Request) (time.Time, time.Time) {
	q := r.URL.Query()
	loc := s.store.Location()
	now := s.now().In(loc)

	start := parseDate(q.Get("start"), loc, now)
	end := parseDate(q.Get("end"), loc, calendar.AddMonths(start, s.cfg.MonthsAhead))
	return clampRange(start, end)
}

func clampRange(start, end time.Time) (time.Time, time.Time) {
	loc := start.Location()
	lo := time.Date(minYear, time.January, 1, 0, 0, 0, 0, loc)
	hi := time.Date(maxYear, time.December, 31, 0, 0, 0, 0, loc)
	start, end = clampDate(start, lo, hi), clampDate(end, lo, hi)
	if limit := calendar.AddMonths(start, maxRangeMonths-1); end.After(limit) {
		end = limit
	}
	return start, end
}

func clampDate(t, lo, hi time.Time) time.Time {
	switch {
	case t.Before(lo):
		return lo
	case t.After(hi):
		return hi
	}
	return t
}

func (s *Server) parseMonth(r *http.Request) (calendar.Month, bool) {
	q := r.URL.Query()
	cur := calendar.MonthOf(s.now().In(s.store.Location()))
	y := parseIntDefault(q.Get("year"), cur.Year)
	m := parseIntDefault(q.Get("month"), int(cur.Month))
	if m < 1 || m > 12 || y < minYear || y > maxYear {
		return calendar.Month{}, false
	}
	return calendar.Month{Year: y, Month: time.Month(m)}, true
}

// dateLayouts are tried in order by parseDate.
var dateLayouts = []string{calendar.DefaultDisplayLayout, calendar.DefaultParseLayout, "2006-01", time.RFC3339}

func parseDate(v string, loc *time.Location, def time.Time) time.Time {
	if v == "" {
		return def
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t.In(loc)
		}
	}
	return def
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
