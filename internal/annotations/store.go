// Package annotations assembles the per-date feature maps (holiday, active,
// note) from static config, regional holidays and ICS subscriptions, and
// keeps the current snapshot for the renderers.
package annotations

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"calgrid/internal/calendar"
	"calgrid/internal/config"
	"calgrid/internal/holiday"
	"calgrid/internal/ics"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// windowPadMonths extends the refresh window on both sides of the default
// display range so nearby navigation needs no refetch.
const windowPadMonths = 12

// Fetcher is the subset of ics.Fetcher the store needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, error)
}

// Snapshot is one refresh result. Features covers [WindowStart, WindowEnd).
type Snapshot struct {
	Features    calendar.Features
	UpdatedAt   time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	// Errors counts sources that failed during the refresh.
	Errors int

	sources []parsedSource
}

// parsedSource keeps the events of one fetched feed so ranges outside the
// window can be expanded without refetching.
type parsedSource struct {
	src    ics.Source
	events []ics.ParsedEvent
}

// Store holds the current feature snapshot.
type Store struct {
	cfg      *config.Config
	loc      *time.Location
	fetcher  Fetcher
	holidays *holiday.Calendar
	now      func() time.Time

	mu   sync.RWMutex
	snap Snapshot

	refreshMu sync.Mutex
}

// NewStore builds a Store. The initial snapshot holds only the static
// features; call Refresh to pull the rest.
func NewStore(cfg *config.Config, fetcher Fetcher) (*Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = ics.NewFetcher(cfg.CacheDir, nil)
	}
	s := &Store{
		cfg:     cfg,
		loc:     loc,
		fetcher: fetcher,
		now:     time.Now,
	}
	if cfg.HolidayRegion != "" {
		if s.holidays, err = holiday.New(cfg.HolidayRegion); err != nil {
			return nil, err
		}
	}
	s.snap = Snapshot{Features: cfg.Features.Normalize(cfg.ParseLayout)}
	return s, nil
}

// Location is the display location used for all date arithmetic.
func (s *Store) Location() *time.Location { return s.loc }

// Features returns the merged feature maps of the refresh window, keyed in
// calendar.DefaultDisplayLayout. Use FeaturesFor for arbitrary ranges.
func (s *Store) Features() calendar.Features {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Features
}

// Snapshot returns the full current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// FeaturesFor returns the merged feature maps for the months spanned by
// [start, end]. Ranges inside the refresh window are served from the
// snapshot; anything else is layered on demand from the regional holidays,
// the feeds fetched by the last refresh and the static maps.
func (s *Store) FeaturesFor(start, end time.Time) calendar.Features {
	snap := s.Snapshot()
	from := calendar.MonthOf(start.In(s.loc)).First(s.loc)
	to := calendar.MonthOf(end.In(s.loc)).Next().First(s.loc)
	if !snap.WindowStart.IsZero() && !from.Before(snap.WindowStart) && !to.After(snap.WindowEnd) {
		return snap.Features
	}
	f, _ := s.layer(snap.sources, from, to)
	return f
}

// Refresh refetches the feeds and rebuilds the snapshot for the window of
// windowPadMonths around the default display range. Failed ICS sources are
// skipped; Refresh only errors when ctx is done.
func (s *Store) Refresh(ctx context.Context) (Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	now := s.now().In(s.loc)
	from := calendar.MonthOf(calendar.AddMonths(now, -windowPadMonths)).First(s.loc)
	to := calendar.MonthOf(calendar.AddMonths(now, s.cfg.MonthsAhead+windowPadMonths)).Next().First(s.loc)

	sources, failed, err := s.fetchICS(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	merged, expandFailed := s.layer(sources, from, to)
	failed += expandFailed

	snap := Snapshot{
		Features:    merged,
		UpdatedAt:   s.now(),
		WindowStart: from,
		WindowEnd:   to,
		Errors:      failed,
		sources:     sources,
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	appLog.Info("annotations refreshed",
		"holiday", len(merged.Holiday),
		"active", len(merged.Active),
		"note", len(merged.Note),
		"errors", failed,
	)
	return snap, nil
}

// layer builds the features of [from, to). Later wins on equal days:
// regional holidays, ICS sources in config order, then static config maps.
// It returns the number of sources that failed to expand.
func (s *Store) layer(sources []parsedSource, from, to time.Time) (calendar.Features, int) {
	static := s.cfg.Features.Normalize(s.cfg.ParseLayout)
	if !to.After(from) {
		return static, 0
	}

	var merged calendar.Features
	if s.holidays != nil {
		merged = merged.Union(s.holidays.Features(from, to.AddDate(0, 0, -1)))
	}

	failed := 0
	for _, ps := range sources {
		expanded, err := ics.Expand(ps.events, ics.ExpandConfig{
			Location:   s.loc,
			RangeStart: from,
			RangeEnd:   to,
		})
		if err != nil {
			appLog.Error("ics expand failed", err, "id", ps.src.ID)
			failed++
			continue
		}
		merged = merged.Union(FromOccurrences(ps.src, expanded.Occurrences, from, to))
	}
	return merged.Union(static), failed
}

func (s *Store) fetchICS(ctx context.Context) ([]parsedSource, int, error) {
	sources := make([]ics.Source, 0, len(s.cfg.ICS))
	for _, c := range s.cfg.ICS {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL, Kind: c.Kind, Value: c.Value})
	}
	if len(sources) == 0 {
		return nil, 0, nil
	}

	results, fetchErr := s.fetcher.FetchAll(ctx, sources)
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	failed := len(sources) - len(results)
	if fetchErr != nil {
		appLog.Warn("some ics sources failed", "failed", failed, "reason", fetchErr)
	}

	out := make([]parsedSource, 0, len(results))
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "id", res.Source.ID)
			failed++
			continue
		}
		out = append(out, parsedSource{src: res.Source, events: events})
	}
	return out, failed, nil
}

// FromOccurrences maps occurrences of one source onto its feature kind.
// Every day inside [from, to) an occurrence touches gets an entry; holiday
// and note sources
// use the event summary (multiple events on one day are joined with " / "
// in start order), active sources use the configured style.
func FromOccurrences(src ics.Source, occs []model.Occurrence, from, to time.Time) calendar.Features {
	values := map[string]string{}
	sortOccurrences(occs)
	for _, o := range occs {
		for _, day := range o.Days(from, to) {
			key := day.Format(calendar.DefaultDisplayLayout)
			switch src.Kind {
			case model.KindActive:
				values[key] = src.Value
			default:
				if o.Summary == "" {
					continue
				}
				if prev, ok := values[key]; ok && prev != o.Summary {
					values[key] = prev + " / " + o.Summary
				} else {
					values[key] = o.Summary
				}
			}
		}
	}

	var f calendar.Features
	switch src.Kind {
	case model.KindHoliday:
		f.Holiday = values
	case model.KindActive:
		f.Active = values
	default:
		f.Note = values
	}
	return f
}

// Start runs an initial refresh and schedules further ones on the configured
// cron spec until ctx is done.
func (s *Store) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.loc))
	_, err := c.AddFunc(s.cfg.RefreshCron, func() {
		if _, err := s.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh aborted", err)
		}
	})
	if err != nil {
		return err
	}

	if _, err := s.Refresh(ctx); err != nil {
		return err
	}

	c.Start()
	appLog.Info("refresh scheduler started", "spec", s.cfg.RefreshCron)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

func sortOccurrences(occs []model.Occurrence) {
	slices.SortStableFunc(occs, func(a, b model.Occurrence) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.UID, b.UID)
	})
}
