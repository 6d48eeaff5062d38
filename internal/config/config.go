package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config keeps runtime settings for the to-do app.
type Config struct {
	TelegramToken        string        `toml:"telegram_token"`
	OwnerChatID          int64         `toml:"owner_chat_id"`
	DatabaseURL          string        `toml:"database_url"`
	ReportInterval       time.Duration `toml:"report_interval"`
	DailyReportTime      string        `toml:"daily_report_time"`
	SyncInterval         time.Duration `toml:"sync_interval"`
	SearchDebounce       time.Duration `toml:"search_debounce"`
	NotificationDuration time.Duration `toml:"notification_duration"`
	DefaultTheme         string        `toml:"default_theme"`
	ExportDir            string        `toml:"export_dir"`
	MaxValueBytes        int           `toml:"max_value_bytes"`
	LogLevel             string        `toml:"log_level"`
	LogFormat            string        `toml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DatabaseURL:          "todo_list.db",
		ReportInterval:       0,
		SyncInterval:         2 * time.Second,
		SearchDebounce:       300 * time.Millisecond,
		NotificationDuration: 5 * time.Second,
		DefaultTheme:         "light",
		ExportDir:            "exports",
		MaxValueBytes:        5 << 20,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// Load reads an optional TOML file, then applies environment variables on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, fmt.Errorf("TELEGRAM_TOKEN is required"))
	}
	if c.SyncInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync interval must be positive"))
	}
	if c.SearchDebounce < 0 {
		errs = append(errs, fmt.Errorf("search debounce must not be negative"))
	}
	switch c.DefaultTheme {
	case "light", "dark":
	default:
		errs = append(errs, fmt.Errorf("default theme must be light or dark, got %q", c.DefaultTheme))
	}
	return errors.Join(errs...)
}

// WriteTOML writes cfg in the config file format.
func (c Config) WriteTOML(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	if v := get("TELEGRAM_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := get("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := get("OWNER_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("OWNER_CHAT_ID: %w", err)
		}
		cfg.OwnerChatID = id
	}
	if v := get("REPORT_INTERVAL_HOURS"); v != "" {
		cfg.ReportInterval = parseInterval(v)
	}
	if v := get("DAILY_REPORT_TIME"); v != "" {
		cfg.DailyReportTime = v
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SYNC_INTERVAL", &cfg.SyncInterval},
		{"SEARCH_DEBOUNCE", &cfg.SearchDebounce},
		{"NOTIFICATION_DURATION", &cfg.NotificationDuration},
	}
	for _, d := range durations {
		v := get(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	if v := get("DEFAULT_THEME"); v != "" {
		cfg.DefaultTheme = strings.ToLower(v)
	}
	if v := get("EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}
	if v := get("MAX_VALUE_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_VALUE_BYTES: %w", err)
		}
		cfg.MaxValueBytes = n
	}
	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := get("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	return nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
