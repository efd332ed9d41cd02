package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cloudeng.io/logging/ctxlog"
	ics "github.com/arran4/golang-ical"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// maxEventDays bounds how many days a single multi-day calendar entry marks.
const maxEventDays = 366

// ErrUnsupportedFormat is returned for files whose extension is not one of
// .json, .yaml, .yml or .ics.
var ErrUnsupportedFormat = errors.New("unsupported events file format")

// LoadFile reads the events in path, choosing the decoder by extension.
func LoadFile(ctx context.Context, path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}
	var evs []Event
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		evs, err = decodeJSON(data)
	case ".yaml", ".yml":
		evs, err = decodeYAML(data)
	case ".ics", ".ical":
		evs, err = decodeICS(bytes.NewReader(data), time.Local)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i := range evs {
		evs[i].Source = path
	}
	ctxlog.Logger(ctx).Debug("loaded events", "path", path, "count", len(evs))
	return NewSet(evs...), nil
}

// LoadAll loads every path concurrently and merges the results. Any failure
// aborts the whole load.
func LoadAll(ctx context.Context, paths ...string) (Set, error) {
	sets := make([]Set, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := LoadFile(gctx, path)
			if err != nil {
				return err
			}
			sets[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Set{}.Merge(sets...), nil
}

func decodeJSON(data []byte) ([]Event, error) {
	var evs []Event
	if err := json.Unmarshal(data, &evs); err != nil {
		return nil, err
	}
	return evs, nil
}

func decodeYAML(data []byte) ([]Event, error) {
	var doc struct {
		Events []Event `yaml:"events"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var list []Event
		if lerr := yaml.Unmarshal(data, &list); lerr != nil {
			return nil, err
		}
		doc.Events = list
	}
	for i := range doc.Events {
		if err := doc.Events[i].normalizeDate(); err != nil {
			return nil, err
		}
	}
	return doc.Events, nil
}

func decodeICS(r io.Reader, loc *time.Location) ([]Event, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, err
	}
	var evs []Event
	for _, ve := range cal.Events() {
		name := ""
		if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
			name = p.Value
		}
		id := ""
		if p := ve.GetProperty(ics.ComponentPropertyUniqueId); p != nil {
			id = p.Value
		}

		start, end, allDay := eventSpan(ve, loc)
		if start.IsZero() {
			continue
		}
		if !allDay || !end.After(start) {
			evs = append(evs, Event{ID: id, Date: start.Format(DateLayout), Name: name})
			continue
		}
		// DTEND of an all-day entry is exclusive.
		for day, n := start, 0; day.Before(end) && n < maxEventDays; day, n = day.AddDate(0, 0, 1), n+1 {
			dayID := ""
			if id != "" {
				dayID = id + "/" + day.Format(DateLayout)
			}
			evs = append(evs, Event{ID: dayID, Date: day.Format(DateLayout), Name: name})
		}
	}
	return evs, nil
}

func eventSpan(ve *ics.VEvent, loc *time.Location) (start, end time.Time, allDay bool) {
	if day, ok := dateValue(ve, ics.ComponentPropertyDtStart); ok {
		end, _ := dateValue(ve, ics.ComponentPropertyDtEnd)
		return day, end, true
	}
	if s, err := ve.GetStartAt(); err == nil {
		return s.In(loc), time.Time{}, false
	}
	return time.Time{}, time.Time{}, false
}

// dateValue parses a VALUE=DATE property (YYYYMMDD, no time part).
func dateValue(ve *ics.VEvent, prop ics.ComponentProperty) (time.Time, bool) {
	p := ve.GetProperty(prop)
	if p == nil {
		return time.Time{}, false
	}
	v := strings.TrimSpace(p.Value)
	if len(v) != len("20060102") {
		return time.Time{}, false
	}
	day, err := time.Parse("20060102", v)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// cacheName is the base name of the downloaded events file. Its extension
// follows the downloaded format so LoadFile picks the matching decoder.
const cacheName = "events"

var cacheExts = []string{".json", ".yaml", ".yml", ".ics", ".ical"}

// CacheDir returns the directory holding downloaded events.
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "weekstrip"), nil
}

// CachePath returns the downloaded events file, or where a JSON download
// would go when nothing has been downloaded yet.
func CachePath() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	if path := findCache(dir); path != "" {
		return path, nil
	}
	return filepath.Join(dir, cacheName+".json"), nil
}

func findCache(dir string) string {
	for _, ext := range cacheExts {
		path := filepath.Join(dir, cacheName+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// cacheExt picks the cache file extension from the URL path, then from the
// response media type, defaulting to JSON.
func cacheExt(rawURL, mediaType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); slices.Contains(cacheExts, ext) {
			return ext
		}
	}
	switch mediaType {
	case "text/calendar":
		return ".ics"
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return ".yaml"
	}
	return ".json"
}

// installCache moves a finished download into dir under the extension for
// its format, removing cached files in other formats.
func installCache(staging, dir, ext string) (string, error) {
	dest := filepath.Join(dir, cacheName+ext)
	for _, other := range cacheExts {
		if other == ext {
			continue
		}
		if err := os.Remove(filepath.Join(dir, cacheName+other)); err != nil && !os.IsNotExist(err) {
			return "", err
		}
	}
	if err := os.Rename(staging, dest); err != nil {
		return "", fmt.Errorf("failed to install %s: %w", dest, err)
	}
	return dest, nil
}

// LoadCache loads the downloaded events file.
func LoadCache(ctx context.Context) (Set, error) {
	path, err := CachePath()
	if err != nil {
		return nil, err
	}
	return LoadFile(ctx, path)
}

// IsCacheValid reports whether path exists and was written within maxAge.
// A non-positive maxAge accepts any age.
func IsCacheValid(path string, maxAge time.Duration) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if maxAge <= 0 {
		return true, nil
	}
	return time.Since(info.ModTime()) < maxAge, nil
}
