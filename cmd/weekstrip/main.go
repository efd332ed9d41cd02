package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"cloudeng.io/logging/ctxlog"

	"github.com/lululau/weekstrip/internal/calendar"
	"github.com/lululau/weekstrip/internal/config"
	"github.com/lululau/weekstrip/internal/events"
	"github.com/lululau/weekstrip/internal/render"
	"github.com/lululau/weekstrip/internal/strip"
	"github.com/lululau/weekstrip/internal/tui"
)

var (
	plain        = flag.Bool("n", false, "render the range once and exit (non-interactive)")
	anchorFlag   = flag.String("d", "", "anchor date as YYYY-MM-DD (default today)")
	eventFiles   = flag.String("e", "", "comma separated event files (.json, .yaml, .ics)")
	update       = flag.Bool("u", false, "download the latest event data")
	updateLong   = flag.Bool("update-events", false, "download the latest event data")
	paged        = flag.Bool("p", false, "scroll by whole weeks")
	lunar        = flag.Bool("l", false, "show lunar calendar labels")
	noColor      = flag.Bool("N", false, "disable all color output")
	noColorLong  = flag.Bool("no-color", false, "disable all color output")
	configPath   = flag.String("config", "", "config file (default "+config.DefaultPath()+")")
	logFile      = flag.String("log-file", "", "write JSON logs to this file")
	visibleCount = flag.Int("days", 0, "number of days in view (default fits the terminal)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), `
  no options       strip around today
  -d 2021-01-25    strip around 25 January 2021
  -n -d 2021-01-25 print that range as a table and exit

options:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if flag.NArg() > 0 {
		return errors.New("unexpected arguments, see --help")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg)

	if cfg.UI.NoColor {
		render.SetNoColor(true)
		tui.SetNoColor(true)
	}

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		ctx = ctxlog.NewJSONLogger(ctx, f, &slog.HandlerOptions{Level: cfg.Level()})
	}

	if *update || *updateLong {
		if cfg.Events.URL == "" {
			return errors.New("no events.url configured to download from")
		}
		return events.Download(ctx, cfg.Events.URL)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	anchor, err := parseAnchor(*anchorFlag, loc)
	if err != nil {
		return err
	}

	cacheValid := true
	useCache := false
	if cfg.Events.URL != "" {
		cacheValid, useCache = cacheState(ctx, cfg.Events.MaxAge)
	}
	load := func(ctx context.Context) (events.Set, error) {
		return loadEvents(ctx, cfg.Events.Files, useCache)
	}
	set, err := load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	service := calendar.NewService(
		calendar.WithLocation(loc),
		calendar.WithEvents(set),
		calendar.WithLunar(cfg.UI.Lunar),
	)
	ctxlog.Logger(ctx).Info("starting",
		"anchor", anchor.Format(events.DateLayout),
		"events", set.Len(),
		"mode", cfg.UI.Mode,
		"plain", *plain)

	if *plain {
		return render.RunPlain(render.PlainOptions{
			Service:         service,
			Anchor:          anchor,
			Lunar:           cfg.UI.Lunar,
			EventCacheValid: cacheValid,
		})
	}

	opts := tui.Options{
		Service:         service,
		Anchor:          anchor,
		Mode:            cfg.Mode(),
		VisibleDays:     cfg.UI.VisibleDays,
		Lunar:           cfg.UI.Lunar,
		EventCacheValid: cacheValid,
		Reload:          load,
	}
	if cfg.Events.Watch {
		opts.WatchPaths = cfg.Events.Files
	}
	return tui.Run(ctx, opts)
}

// applyFlags lets explicit flags override the loaded configuration.
func applyFlags(cfg *config.Config) {
	if *noColor || *noColorLong {
		cfg.UI.NoColor = true
	}
	if *paged {
		cfg.UI.Mode = strip.Paged.String()
	}
	if *lunar {
		cfg.UI.Lunar = true
	}
	if *visibleCount > 0 {
		cfg.UI.VisibleDays = *visibleCount
	}
	if files := splitList(*eventFiles); len(files) > 0 {
		cfg.Events.Files = files
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
}

// cacheState reports whether the downloaded events are fresh, and whether
// they can be read at all.
func cacheState(ctx context.Context, maxAge time.Duration) (valid, usable bool) {
	path, err := events.CachePath()
	if err != nil {
		ctxlog.Logger(ctx).Warn("no events cache", "error", err)
		return false, false
	}
	if _, err := os.Stat(path); err != nil {
		return false, false
	}
	valid, err = events.IsCacheValid(path, maxAge)
	if err != nil {
		ctxlog.Logger(ctx).Warn("events cache unreadable", "path", path, "error", err)
		return false, false
	}
	return valid, true
}

// loadEvents merges the configured event files with the downloaded cache.
// A cache that cannot be read degrades to no markers from it.
func loadEvents(ctx context.Context, files []string, useCache bool) (events.Set, error) {
	set, err := events.LoadAll(ctx, files...)
	if err != nil {
		return events.Set{}, err
	}
	if !useCache {
		return set, nil
	}
	cached, cerr := events.LoadCache(ctx)
	if cerr != nil {
		ctxlog.Logger(ctx).Warn("failed to load events cache", "error", cerr)
		return set, nil
	}
	return set.Merge(cached), nil
}

func parseAnchor(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation(events.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as YYYY-MM-DD", value)
	}
	return t, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
