package web

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calgrid/internal/annotations"
	"calgrid/internal/calendar"
	"calgrid/internal/config"
	"calgrid/internal/ics"
)

type noFetch struct{}

func (noFetch) FetchAll(context.Context, []ics.Source) ([]ics.FetchResult, error) {
	return nil, nil
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.PreviewPath = t.TempDir() + "/preview.png"
	cfg.Features = calendar.Features{
		Holiday: map[string]string{"2024-10-1": "国庆节"},
		Active:  map[string]string{"2024-10-5": "fill"},
		Note:    map[string]string{"2024-10-5": "¥320"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	store, err := annotations.NewStore(cfg, noFetch{})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	s, err := NewServer(cfg, store)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, time.October, 3, 8, 0, 0, 0, time.UTC) }
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %s)", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestScrollDefaultRange(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/api/calendar")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	s := decode[calendar.Scroll](t, rec)

	// October 2024 through March 2025.
	if len(s.Items) != 12 {
		t.Fatalf("expected 6 months (12 items), got %d", len(s.Items))
	}
	if len(s.StickyHeaderIndices) != 6 || s.StickyHeaderIndices[5] != 10 {
		t.Fatalf("sticky indices = %v", s.StickyHeaderIndices)
	}
	body := s.Items[1].Grid
	if body == nil || body.Blanks != 2 {
		t.Fatalf("unexpected first body: %+v", body)
	}
	if d := body.Days[0]; d.Holiday != "国庆节" || !d.Disabled {
		t.Fatalf("oct 1 = %+v", d)
	}
	if d := body.Days[4]; d.Active != calendar.ActiveFill || d.Note != "¥320" || d.Disabled {
		t.Fatalf("oct 5 = %+v", d)
	}
}

func TestScrollExplicitRangeAndCoercion(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	s := decode[calendar.Scroll](t, get(t, h, "/api/calendar?start=2024-01-15&end=2024-02-01"))
	if len(s.Items) != 4 {
		t.Fatalf("expected 2 months, got %d items", len(s.Items))
	}

	s = decode[calendar.Scroll](t, get(t, h, "/api/calendar?start=garbage&end=2024-11-30T00:00:00Z"))
	if len(s.Items) != 4 || s.Items[0].Title != "2024年10月" {
		t.Fatalf("invalid start should fall back to now: %+v", s.Items)
	}

	s = decode[calendar.Scroll](t, get(t, h, "/api/calendar?start=2000-01-01&end=2100-01-01"))
	if len(s.StickyHeaderIndices) != maxRangeMonths {
		t.Fatalf("range not capped: %d months", len(s.StickyHeaderIndices))
	}
}

func TestSectionsPaging(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	p := decode[calendar.SectionPage](t, get(t, h, "/api/sections?limit=4"))
	if p.Total != 6 || len(p.Sections) != 4 || !p.HasMore || p.NextOffset != 4 {
		t.Fatalf("page 1 = total %d len %d more %v next %d", p.Total, len(p.Sections), p.HasMore, p.NextOffset)
	}

	p = decode[calendar.SectionPage](t, get(t, h, "/api/sections?limit=4&offset=4"))
	if len(p.Sections) != 2 || p.HasMore || p.Sections[1].Title != "2025年3月" {
		t.Fatalf("page 2 = %+v", p)
	}
}

func TestSectionsHugeLimit(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := get(t, h, fmt.Sprintf("/api/sections?offset=1&limit=%d", math.MaxInt))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	p := decode[calendar.SectionPage](t, rec)
	if len(p.Sections) != 5 || p.HasMore || p.NextOffset != 6 {
		t.Fatalf("page = len %d more %v next %d", len(p.Sections), p.HasMore, p.NextOffset)
	}
}

func TestRangeClampedToYear9999(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := get(t, h, "/api/calendar?start=9999-11-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	s := decode[calendar.Scroll](t, rec)
	if len(s.StickyHeaderIndices) != 2 || s.Items[len(s.Items)-2].Title != "9999年12月" {
		t.Fatalf("expected Nov and Dec 9999, got %d months", len(s.StickyHeaderIndices))
	}

	p := decode[calendar.SectionPage](t, get(t, h, "/api/sections?start=9999-12-31&end=9999-12-31"))
	if p.Total != 1 {
		t.Fatalf("sections total = %d", p.Total)
	}
	if rec := get(t, h, "/month.png?year=10000&month=1"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for year 10000, got %d", rec.Code)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRegionalHolidaysOutsideRefreshWindow(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.HolidayRegion = "us" }).Handler()

	for _, year := range []int{1999, 2027, 2030} {
		resp := decode[monthResponse](t, get(t, h, fmt.Sprintf("/api/month?year=%d&month=1", year)))
		if got := resp.Grid.Days[0].Holiday; got != "New Year's Day" {
			t.Fatalf("%d-01-01 holiday = %q", year, got)
		}
	}
}

func TestDay(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	resp := decode[dayResponse](t, get(t, h, "/api/day?date=2024-10-05"))
	if resp.Cell.Note != "¥320" || resp.Cell.Active != calendar.ActiveFill || resp.Cell.Disabled {
		t.Fatalf("cell = %+v", resp.Cell)
	}
	if resp.Title != "2024年10月" || resp.Weekday.Label != "六" || !resp.Weekday.Weekend {
		t.Fatalf("day = %+v", resp)
	}

	resp = decode[dayResponse](t, get(t, h, "/api/day?date=2024-10-1"))
	if resp.Cell.Holiday != "国庆节" || !resp.Cell.Disabled {
		t.Fatalf("oct 1 = %+v", resp.Cell)
	}

	for _, q := range []string{"", "?date=tomorrow", "?date=0000-01-01"} {
		if rec := get(t, h, "/api/day"+q); rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestMonth(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.WeekStart = "monday" }).Handler()

	resp := decode[monthResponse](t, get(t, h, "/api/month?year=2024&month=9"))
	if resp.Title != "2024年9月" || resp.Grid.Blanks != 6 || len(resp.Grid.Days) != 30 {
		t.Fatalf("unexpected month: %+v", resp)
	}
	if resp.Header[0].Label != "一" {
		t.Fatalf("header should start on monday: %+v", resp.Header)
	}

	if rec := get(t, h, "/api/month?month=13"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRefreshAndFeatures(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status %d", rec.Code)
	}

	f := decode[featuresResponse](t, get(t, h, "/api/features"))
	if f.Features.Holiday["2024-10-01"] != "国庆节" || f.UpdatedAt.IsZero() {
		t.Fatalf("features = %+v", f)
	}

	if rec := get(t, h, "/api/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET refresh should be rejected, got %d", rec.Code)
	}
}

func TestCalendarPage(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/calendar?end=2024-10-31")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("page = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	body := rec.Body.String()
	if !strings.Contains(body, "2024年10月") || strings.Contains(body, "2024年11月") {
		t.Fatalf("unexpected months in page")
	}
}

func TestCalendarPNG(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/calendar.png")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("png = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Fatalf("empty image")
	}
}

func TestMonthPNG(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := get(t, h, "/month.png?year=2024&month=10")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("png = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 750px wide: week header, month header and five rows of 750/7+15 px.
	if b := img.Bounds(); b.Dx() != 750 || b.Dy() != 666 {
		t.Fatalf("unexpected size %v", b)
	}

	if rec := get(t, h, "/month.png?month=0"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/annotations.ics")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar") {
		t.Fatalf("export = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "SUMMARY:国庆节") {
		t.Fatalf("export missing holiday:\n%s", rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	}).Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("/health must stay open, got %d", rec.Code)
	}
	if rec := get(t, h, "/api/calendar"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", rec.Code)
	}
}
