// Package holiday produces holiday labels for regional public holidays.
package holiday

import (
	"fmt"
	"sort"
	"strings"
	"time"

	cal "github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"

	"calgrid/internal/calendar"
)

// regions maps a config region name to its holiday set.
var regions = map[string][]*cal.Holiday{
	"us": {
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	},
}

// Regions lists the supported region names.
func Regions() []string {
	out := make([]string, 0, len(regions))
	for r := range regions {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Supported reports whether region is known. The empty region is supported
// and yields no holidays.
func Supported(region string) bool {
	if region == "" {
		return true
	}
	_, ok := regions[strings.ToLower(region)]
	return ok
}

// Calendar labels days of one region.
type Calendar struct {
	region string
	bc     *cal.BusinessCalendar
}

// New returns a Calendar for region, or an error for unknown regions.
func New(region string) (*Calendar, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	set, ok := regions[region]
	if !ok {
		return nil, fmt.Errorf("holiday: unknown region %q (supported: %s)", region, strings.Join(Regions(), ", "))
	}
	bc := cal.NewBusinessCalendar()
	bc.AddHoliday(set...)
	return &Calendar{region: region, bc: bc}, nil
}

// Region is the normalized region name.
func (c *Calendar) Region() string { return c.region }

// Features returns a holiday map covering every day of the months spanned by
// [start, end]. Keys use calendar.DefaultDisplayLayout. Only the actual
// holiday date is labelled, not the observed weekday substitute.
func (c *Calendar) Features(start, end time.Time) calendar.Features {
	f := calendar.Features{Holiday: map[string]string{}}
	for _, m := range calendar.Months(start, end) {
		first := m.First(start.Location())
		for d := 0; d < m.DaysIn(); d++ {
			day := first.AddDate(0, 0, d)
			actual, _, h := c.bc.IsHoliday(day)
			if actual && h != nil {
				f.Holiday[day.Format(calendar.DefaultDisplayLayout)] = h.Name
			}
		}
	}
	return f
}
