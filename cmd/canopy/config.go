package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/rendis/canopy/internal/persistence"
	"github.com/rendis/canopy/internal/scheduler"
	"github.com/rendis/canopy/internal/session"
)

const (
	backendLocal = "local"
	backendHTTP  = "http"
)

// Config holds all canopy configuration.
// Priority: flags > env vars > .env > settings.json > defaults.
type Config struct {
	ListenAddr      string   `json:"listen_addr"`
	DBPath          string   `json:"db_path"`
	LogLevel        string   `json:"log_level"`
	Backend         string   `json:"backend"`
	BackendURL      string   `json:"backend_url"`
	BackendToken    string   `json:"backend_token,omitempty"`
	DocumentID      string   `json:"document_id"`
	AutosaveDelay   Duration `json:"autosave_delay"`
	HistoryLimit    int      `json:"history_limit"`
	CacheSize       int      `json:"cache_size"`
	MaintenanceCron string   `json:"maintenance_cron"`
	EventRetention  Duration `json:"event_retention"`
	Panel           bool     `json:"panel"`
}

// Duration is a time.Duration written as "3s" in settings.json.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"3s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func defaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:4200",
		DBPath:          filepath.Join(canopyDir(), "canopy.db"),
		LogLevel:        "info",
		Backend:         backendLocal,
		AutosaveDelay:   Duration(session.DefaultAutosaveDelay),
		HistoryLimit:    200,
		CacheSize:       persistence.DefaultCacheSize,
		MaintenanceCron: scheduler.DefaultMaintenanceCron,
		EventRetention:  Duration(30 * 24 * time.Hour),
		Panel:           true,
	}
}

func canopyDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".canopy"
	}
	return filepath.Join(home, ".canopy")
}

func settingsPath() string {
	return filepath.Join(canopyDir(), "settings.json")
}

func pidPath() string {
	return filepath.Join(canopyDir(), "canopy.pid")
}

// loadConfig layers settings.json, the dotenv file and CANOPY_* env vars
// over the defaults. A missing settings or dotenv file is not an error.
func loadConfig(envFile string) (Config, error) {
	cfg := defaultConfig()

	// Layer 2: settings.json.
	if data, err := os.ReadFile(settingsPath()); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", settingsPath(), err)
		}
	}

	// Layer 3: .env never overrides variables already set.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	// Layer 4: env vars.
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("CANOPY_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CANOPY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CANOPY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CANOPY_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("CANOPY_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("CANOPY_BACKEND_TOKEN"); v != "" {
		cfg.BackendToken = v
	}
	if v := os.Getenv("CANOPY_DOCUMENT_ID"); v != "" {
		cfg.DocumentID = v
	}
	if v := os.Getenv("CANOPY_AUTOSAVE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CANOPY_AUTOSAVE_DELAY: %w", err)
		}
		cfg.AutosaveDelay = Duration(d)
	}
	if v := os.Getenv("CANOPY_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CANOPY_HISTORY_LIMIT: %w", err)
		}
		cfg.HistoryLimit = n
	}
	if v := os.Getenv("CANOPY_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CANOPY_CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = n
	}
	if v := os.Getenv("CANOPY_MAINTENANCE_CRON"); v != "" {
		cfg.MaintenanceCron = v
	}
	if v := os.Getenv("CANOPY_EVENT_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CANOPY_EVENT_RETENTION: %w", err)
		}
		cfg.EventRetention = Duration(d)
	}
	if v := os.Getenv("CANOPY_PANEL"); v != "" {
		cfg.Panel = v == "true" || v == "1"
	}
	return nil
}

// bindFlags registers the command-line layer on fs. Flag defaults are the
// values already in cfg, so unset flags change nothing.
func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "TCP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "local database path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "document backend: local or http")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "base URL of the http backend")
	fs.StringVar(&cfg.DocumentID, "document", cfg.DocumentID, "document to open on start")
	fs.IntVar(&cfg.HistoryLimit, "history-limit", cfg.HistoryLimit, "undo depth (0 = unbounded)")
	fs.BoolVar(&cfg.Panel, "panel", cfg.Panel, "serve the editor panel API")
	fs.Func("autosave-delay", "quiet period before autosave, e.g. 3s", func(s string) error {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		cfg.AutosaveDelay = Duration(d)
		return nil
	})
}

// validate checks the fields that cannot be defaulted.
func (c Config) validate() error {
	switch c.Backend {
	case backendLocal:
		if c.DBPath == "" {
			return fmt.Errorf("db_path is required for the local backend")
		}
	case backendHTTP:
		if c.BackendURL == "" {
			return fmt.Errorf("backend_url is required for the http backend")
		}
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", backendLocal, backendHTTP, c.Backend)
	}
	if c.AutosaveDelay < 0 {
		return fmt.Errorf("autosave_delay must not be negative")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative")
	}
	return nil
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	PanelChanged    bool
	LogLevelChanged bool
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.Panel != new.Panel {
		d.PanelChanged = true
	}
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.Backend != new.Backend || old.BackendURL != new.BackendURL || old.BackendToken != new.BackendToken {
		d.RestartNeeded = append(d.RestartNeeded, "backend")
	}
	if old.AutosaveDelay != new.AutosaveDelay {
		d.RestartNeeded = append(d.RestartNeeded, "autosave_delay")
	}
	if old.HistoryLimit != new.HistoryLimit {
		d.RestartNeeded = append(d.RestartNeeded, "history_limit")
	}
	if old.CacheSize != new.CacheSize {
		d.RestartNeeded = append(d.RestartNeeded, "cache_size")
	}
	if old.MaintenanceCron != new.MaintenanceCron || old.EventRetention != new.EventRetention {
		d.RestartNeeded = append(d.RestartNeeded, "maintenance")
	}
	return d
}
