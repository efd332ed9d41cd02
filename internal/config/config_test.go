package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lululau/weekstrip/internal/strip"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(EnvConfig, "")
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Mode() != strip.Continuous || c.UI.VisibleDays != 0 || c.UI.Lunar {
		t.Fatalf("unexpected ui defaults %+v", c.UI)
	}
	if c.Events.MaxAge != 180*24*time.Hour || !c.Events.Watch {
		t.Fatalf("unexpected events defaults %+v", c.Events)
	}
	if c.Level() != slog.LevelInfo {
		t.Fatalf("level: %v", c.Level())
	}
	if loc, _ := c.Location(); loc != time.Local {
		t.Fatalf("location: %v", loc)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
[ui]
mode = "paged"
visible_days = 14
timezone = "Asia/Shanghai"
lunar = true

[events]
files = ["a.json", "b.ics"]
max_age = "24h"
watch = false

[log]
level = "debug"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Mode() != strip.Paged || c.UI.VisibleDays != 14 || !c.UI.Lunar {
		t.Fatalf("ui: %+v", c.UI)
	}
	if loc, err := c.Location(); err != nil || loc.String() != "Asia/Shanghai" {
		t.Fatalf("location: %v %v", loc, err)
	}
	if len(c.Events.Files) != 2 || c.Events.MaxAge != 24*time.Hour || c.Events.Watch {
		t.Fatalf("events: %+v", c.Events)
	}
	if c.Level() != slog.LevelDebug {
		t.Fatalf("level: %v", c.Level())
	}
}

func TestDefaultPathUsesXDG(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(filepath.Join(dir, "weekstrip"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := DefaultPath(); got != filepath.Join(dir, "weekstrip", "config.toml") {
		t.Fatalf("DefaultPath: %s", got)
	}
	if err := os.WriteFile(DefaultPath(), []byte("[ui]\nvisible_days = 21\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.UI.VisibleDays != 21 {
		t.Fatalf("visible_days: %d", c.UI.VisibleDays)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("WEEKSTRIP_UI_MODE", "paged")
	t.Setenv("WEEKSTRIP_EVENTS_URL", "https://example.com/events.json")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Mode() != strip.Paged || c.Events.URL != "https://example.com/events.json" {
		t.Fatalf("env overrides not applied: %+v", c)
	}
}

func TestExplicitMissingFileFails(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "nope.toml")); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
[ui]
mode = "sideways"
visible_days = -1
timezone = "Nowhere/Special"

[log]
level = "loud"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"ui.mode", "ui.visible_days", "ui.timezone", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}
