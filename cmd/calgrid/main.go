package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calgrid/internal/annotations"
	"calgrid/internal/calendar"
	"calgrid/internal/capture"
	"calgrid/internal/config"
	appLog "calgrid/internal/log"
	"calgrid/internal/render"
	"calgrid/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	out        string
	once       bool
	capture    bool
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("calgrid starting", "version", version)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if !flags.debug {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		// Keep caches and previews out of /var/lib during development.
		conf.CacheDir = "./cache/ics-cache"
		conf.PreviewPath = "./cache/preview.png"
	}
	if flags.out != "" {
		conf.PreviewPath = flags.out
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"months_ahead", conf.MonthsAhead,
		"refresh", conf.RefreshCron,
		"holiday_region", conf.HolidayRegion,
		"ics_count", len(conf.ICS),
		"static_features", conf.Features.Len(),
		"once", flags.once,
		"capture", flags.capture,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := annotations.NewStore(conf, nil)
	if err != nil {
		appLog.Error("failed to create annotation store", err)
		os.Exit(1)
	}

	if flags.once {
		if err := runOnce(ctx, conf, store); err != nil {
			appLog.Error("render failed", err)
			os.Exit(1)
		}
		return
	}

	if err := store.Start(ctx); err != nil {
		appLog.Error("failed to start refresh scheduler", err)
		os.Exit(1)
	}

	srv, err := web.NewServer(conf, store)
	if err != nil {
		appLog.Error("failed to create web server", err)
		os.Exit(1)
	}

	if flags.capture {
		go runCapture(ctx, conf)
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("http server stopped", err)
		os.Exit(1)
	}
	appLog.Info("calgrid exiting")
}

// runOnce refreshes features and writes the default range as a PNG.
func runOnce(ctx context.Context, conf *config.Config, store *annotations.Store) error {
	if _, err := store.Refresh(ctx); err != nil {
		return err
	}

	r, err := render.NewPNGRenderer(render.PNGOptions{FontPath: conf.FontPath})
	if err != nil {
		return err
	}

	now := time.Now().In(store.Location())
	b := calendar.NewBuilder(calendar.Options{
		Grid: calendar.GridOptions{
			Now:           now,
			Location:      store.Location(),
			DisplayLayout: conf.DisplayLayout,
			WeekStart:     conf.Weekday(),
		},
	})
	end := calendar.AddMonths(now, conf.MonthsAhead)
	grids := b.Grids(now, end, store.FeaturesFor(now, end))

	if err := r.Save(conf.PreviewPath, b.Header(), grids); err != nil {
		return err
	}
	appLog.Info("preview written", "path", conf.PreviewPath, "months", len(grids))
	return nil
}

// runCapture screenshots the served /calendar page into preview_path once
// the server is up; /preview.png then serves it.
func runCapture(ctx context.Context, conf *config.Config) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Second):
	}

	opts := capture.Options{
		URL:        "http://" + conf.Listen + "/calendar",
		OutputPath: conf.PreviewPath,
		FullPage:   true,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	err := capture.Screenshot(ctx, opts)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			appLog.Error("calendar capture failed", err)
		}
		return
	}
	appLog.Info("calendar captured", "path", conf.PreviewPath)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calgrid/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.out, "out", "", "PNG output path (overrides preview_path)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh features, render the default range to PNG and exit")
	flag.BoolVar(&cfg.capture, "capture", false, "Screenshot /calendar with headless Chromium after startup")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and ./cache paths")

	flag.Parse()
	return cfg
}
