// Package config loads weekstrip settings from a TOML file and WEEKSTRIP_
// environment variables.
package config

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloudeng.io/errors"
	"github.com/spf13/viper"

	"github.com/lululau/weekstrip/internal/strip"
)

// EnvConfig names the environment variable that overrides the config path.
const EnvConfig = "WEEKSTRIP_CONFIG"

// Config holds application configuration.
type Config struct {
	UI     UIConfig     `mapstructure:"ui"`
	Events EventsConfig `mapstructure:"events"`
	Log    LogConfig    `mapstructure:"log"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Mode        string `mapstructure:"mode"`
	VisibleDays int    `mapstructure:"visible_days"`
	Timezone    string `mapstructure:"timezone"`
	Lunar       bool   `mapstructure:"lunar"`
	NoColor     bool   `mapstructure:"no_color"`
}

// EventsConfig holds event marker sources.
type EventsConfig struct {
	Files  []string      `mapstructure:"files"`
	URL    string        `mapstructure:"url"`
	MaxAge time.Duration `mapstructure:"max_age"`
	Watch  bool          `mapstructure:"watch"`
}

// LogConfig holds logging settings. Logs go to File only; the terminal
// belongs to the UI.
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultPath returns $XDG_CONFIG_HOME/weekstrip/config.toml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "weekstrip", "config.toml")
}

// Load reads configuration from path, or from WEEKSTRIP_CONFIG or the default
// location when path is empty. A missing file is not an error. Env var
// overrides use prefix WEEKSTRIP_.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("ui.mode", strip.Continuous.String())
	v.SetDefault("ui.visible_days", 0)
	v.SetDefault("ui.timezone", "")
	v.SetDefault("ui.lunar", false)
	v.SetDefault("ui.no_color", false)
	v.SetDefault("events.files", []string{})
	v.SetDefault("events.url", "")
	v.SetDefault("events.max_age", 180*24*time.Hour)
	v.SetDefault("events.watch", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix("WEEKSTRIP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs errors.M
	switch c.UI.Mode {
	case "", strip.Continuous.String(), strip.Paged.String():
	default:
		errs.Append(fmt.Errorf("ui.mode: unknown scroll mode %q", c.UI.Mode))
	}
	if c.UI.VisibleDays < 0 {
		errs.Append(fmt.Errorf("ui.visible_days: must not be negative, got %d", c.UI.VisibleDays))
	}
	if _, err := c.Location(); err != nil {
		errs.Append(fmt.Errorf("ui.timezone: %w", err))
	}
	if c.Events.MaxAge < 0 {
		errs.Append(fmt.Errorf("events.max_age: must not be negative, got %v", c.Events.MaxAge))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs.Append(fmt.Errorf("log.level: %w", err))
	}
	return errs.Err()
}

// Location resolves ui.timezone, defaulting to the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.UI.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.UI.Timezone)
}

// Mode returns the configured scroll mode.
func (c Config) Mode() strip.ScrollMode {
	return strip.ParseScrollMode(c.UI.Mode)
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}
