package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"calgrid/internal/calendar"
	"calgrid/internal/holiday"
	"calgrid/internal/model"
)

var (
	ErrEmptyPath      = errors.New("config path is empty")
	ErrNilConfig      = errors.New("config is nil")
	ErrInvalidRefresh = errors.New("invalid refresh cron spec")
	ErrInvalidLayout  = errors.New("invalid date layout")
	ErrInvalidRegion  = errors.New("unsupported holiday region")
	ErrInvalidICS     = errors.New("invalid ics source")
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultWeekStart   = "sunday"
	defaultRefreshCron = "*/30 * * * *"
	defaultMonthsAhead = calendar.DefaultSpanMonths
	defaultCacheDir    = "/var/lib/calgrid/ics-cache"
	defaultPreviewPath = "/var/lib/calgrid/preview.png"
)

// ICSConfig is one ICS subscription feeding a feature map.
type ICSConfig struct {
	URL  string `yaml:"url" json:"url"`
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Kind is holiday, active or note. Defaults to note.
	Kind model.FeatureKind `yaml:"kind" json:"kind"`
	// Value is the active style for kind=active sources (fill or border).
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// SourceID picks the first non-empty of ID, Name and URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web surface.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Timezone is an IANA zone for date arithmetic. Empty means the
	// machine's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// ParseLayout is the Go layout of the feature map keys.
	ParseLayout string `yaml:"parse_layout" json:"parse_layout"`
	// DisplayLayout is the Go layout of day cell keys.
	DisplayLayout string `yaml:"display_layout" json:"display_layout"`

	// MonthsAhead is how many months after the current one are shown
	// when a request does not name an end date.
	MonthsAhead int `yaml:"months_ahead" json:"months_ahead"`

	// RefreshCron schedules feature refreshes (standard 5-field spec).
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HolidayRegion adds regional public holidays ("us"); empty disables.
	HolidayRegion string `yaml:"holiday_region" json:"holiday_region"`

	// Static feature maps, keyed in ParseLayout.
	Features calendar.Features `yaml:",inline" json:"features"`

	// ICS is the list of subscribed feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// CacheDir stores ICS bodies and validators.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PreviewPath is where rendered PNGs are written.
	PreviewPath string `yaml:"preview_path" json:"preview_path"`

	// FontPath is an optional TTF used by the PNG renderer.
	FontPath string `yaml:"font_path,omitempty" json:"font_path,omitempty"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing values so partially-filled files behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart != "sunday" && c.WeekStart != "monday" {
		c.WeekStart = defaultWeekStart
	}
	if c.ParseLayout == "" {
		c.ParseLayout = calendar.DefaultParseLayout
	}
	if c.DisplayLayout == "" {
		c.DisplayLayout = calendar.DefaultDisplayLayout
	}
	if c.MonthsAhead <= 0 {
		c.MonthsAhead = defaultMonthsAhead
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.PreviewPath == "" {
		c.PreviewPath = defaultPreviewPath
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].Kind == "" {
			c.ICS[i].Kind = model.KindNote
		}
		if c.ICS[i].Kind == model.KindActive && c.ICS[i].Value == "" {
			c.ICS[i].Value = string(calendar.ActiveFill)
		}
	}
}

// Validate reports the first configuration error. It assumes Normalize has
// run.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidRefresh, c.RefreshCron, err)
	}
	for _, layout := range []string{c.ParseLayout, c.DisplayLayout} {
		if !roundTrips(layout) {
			return fmt.Errorf("%w %q: must encode year, month and day", ErrInvalidLayout, layout)
		}
	}
	if !holiday.Supported(c.HolidayRegion) {
		return fmt.Errorf("%w %q", ErrInvalidRegion, c.HolidayRegion)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for i, src := range c.ICS {
		if src.URL == "" {
			return fmt.Errorf("%w #%d: url is empty", ErrInvalidICS, i)
		}
		if !src.Kind.Valid() {
			return fmt.Errorf("%w %s: unknown kind %q", ErrInvalidICS, src.SourceID(), src.Kind)
		}
	}
	return nil
}

// roundTrips reports whether layout keeps a full date through
// format-then-parse.
func roundTrips(layout string) bool {
	probe := time.Date(2031, time.November, 27, 0, 0, 0, 0, time.UTC)
	back, err := time.Parse(layout, probe.Format(layout))
	return err == nil && back.Equal(probe)
}

// Location resolves Timezone; empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Weekday converts WeekStart to a time.Weekday.
func (c *Config) Weekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 perms and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
