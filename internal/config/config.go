package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AllStudents is the filter value meaning "no student filter".
const AllStudents = "Все"

// APIConfig describes the upstream dashboard API.
type APIConfig struct {
	// BaseURL is the origin serving /api/filters, /api/metrics, ...
	BaseURL string `yaml:"base_url" json:"base_url" validate:"required,url"`
	// Student is the initially selected student filter.
	Student string `yaml:"student" json:"student" validate:"required"`
	// Timeout bounds each HTTP request made for the web surface.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// WidgetConfig controls the compact widget surfaces.
type WidgetConfig struct {
	// Timeout bounds a whole widget fetch; widgets fail rather than wait.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	// MaxSubscriptions is the number of subscription rows in the regular
	// progress widget. The large family shows one more.
	MaxSubscriptions int `yaml:"max_subscriptions" json:"max_subscriptions" validate:"gte=1"`
	// Segments caps the number of progress segments per row.
	Segments int `yaml:"segments" json:"segments" validate:"gte=1"`
}

// CaptureConfig controls headless Chromium preview captures.
type CaptureConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	OutputPath string `yaml:"output_path" json:"output_path" validate:"required_if=Enabled true"`
	Width      int    `yaml:"width" json:"width" validate:"gte=0"`
	Height     int    `yaml:"height" json:"height" validate:"gte=0"`
}

// TelegramConfig enables the chat surface when Token is set.
type TelegramConfig struct {
	Token     string `yaml:"token,omitempty" json:"-"`
	WebAppURL string `yaml:"web_app_url,omitempty" json:"web_app_url,omitempty" validate:"omitempty,url"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the web dashboard.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	// Timezone is the IANA zone used for "today" and for ICS export.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	// RefreshCron is a five-field cron schedule for background refreshes.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required"`

	API      APIConfig      `yaml:"api" json:"api"`
	Widget   WidgetConfig   `yaml:"widget" json:"widget"`
	Capture  CaptureConfig  `yaml:"capture" json:"capture"`
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:5001",
		Timezone:    "Europe/Moscow",
		LogLevel:    "info",
		RefreshCron: "*/15 * * * *",
		API: APIConfig{
			BaseURL: "http://127.0.0.1:5000",
			Student: AllStudents,
			Timeout: 15 * time.Second,
		},
		Widget: WidgetConfig{
			Timeout:          10 * time.Second,
			MaxSubscriptions: 3,
			Segments:         10,
		},
		Capture: CaptureConfig{
			Enabled:    false,
			OutputPath: "./cache/preview.png",
			Width:      984,
			Height:     1304,
		},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.Student == "" {
		c.API.Student = def.API.Student
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.Widget.Timeout <= 0 {
		c.Widget.Timeout = def.Widget.Timeout
	}
	if c.Widget.MaxSubscriptions <= 0 {
		c.Widget.MaxSubscriptions = def.Widget.MaxSubscriptions
	}
	if c.Widget.Segments <= 0 {
		c.Widget.Segments = def.Widget.Segments
	}
	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = def.Capture.OutputPath
	}
}

var validate = validator.New()

// Validate checks the normalized config for values Normalize cannot repair.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ApplyEnv overrides selected fields from the environment. Secrets such as
// the bot token are expected to come from here rather than the YAML file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("STUDIODASH_API_URL"); v != "" {
		c.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := getenv("STUDIODASH_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := getenv("WEB_APP_URL"); v != "" {
		c.Telegram.WebAppURL = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether an unwritable default is fatal.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
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

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
// The bot token is never written; it only comes from the environment.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()
	out := *cfg
	out.Telegram.Token = ""

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".studiodash-config-*.tmp")
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

func (c *Config) Save(path string) error {
	return Save(path, c)
}
