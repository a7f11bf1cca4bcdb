package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playhead-dev/playhead/internal/prefs"
)

// Config is the top-level configuration for playhead.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Playback  PlaybackConfig  `json:"playback"`
	Prefs     PrefsConfig     `json:"prefs"`
	Analytics AnalyticsConfig `json:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `json:"addr" env:"PLAYHEAD_ADDR"`
}

// PlaybackConfig holds playback defaults and engine tuning.
type PlaybackConfig struct {
	DefaultSpeed  float64       `json:"default_speed" env:"PLAYHEAD_SPEED"`
	SkipInactive  bool          `json:"skip_inactive" env:"PLAYHEAD_SKIP_INACTIVE"`
	IdleThreshold time.Duration `json:"idle_threshold" env:"PLAYHEAD_IDLE_THRESHOLD"`
	MaxSkipSpeed  float64       `json:"max_skip_speed"`
	FrameInterval time.Duration `json:"frame_interval"`
}

// Preference backend names.
const (
	PrefsMemory = "memory"
	PrefsFile   = "file"
	PrefsRedis  = "redis"
)

// PrefsConfig selects and configures the preferences backend.
type PrefsConfig struct {
	Backend string            `json:"backend" env:"PLAYHEAD_PREFS_BACKEND"`
	Path    string            `json:"path" env:"PLAYHEAD_PREFS_PATH"`
	Redis   prefs.RedisConfig `json:"redis"`
}

// Analytics backend names.
const (
	AnalyticsNone   = "none"
	AnalyticsStderr = "stderr"
	AnalyticsSQLite = "sqlite"
)

// AnalyticsConfig selects the analytics sink and its event context.
type AnalyticsConfig struct {
	Backend string `json:"backend" env:"PLAYHEAD_ANALYTICS_BACKEND"`
	Path    string `json:"path" env:"PLAYHEAD_ANALYTICS_PATH"`
	OrgID   string `json:"org_id" env:"PLAYHEAD_ORG_ID"`
	UserID  string `json:"user_id" env:"PLAYHEAD_USER_ID"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Playback: PlaybackConfig{
			DefaultSpeed:  1,
			IdleThreshold: 10 * time.Second,
			MaxSkipSpeed:  360,
			FrameInterval: 16 * time.Millisecond,
		},
		Prefs: PrefsConfig{
			Backend: PrefsMemory,
		},
		Analytics: AnalyticsConfig{
			Backend: AnalyticsNone,
		},
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.Playback.DefaultSpeed <= 0 {
		return fmt.Errorf("default_speed must be positive, got %v", c.Playback.DefaultSpeed)
	}
	if c.Playback.IdleThreshold <= 0 {
		return fmt.Errorf("idle_threshold must be positive, got %s", c.Playback.IdleThreshold)
	}
	if c.Playback.FrameInterval <= 0 {
		return fmt.Errorf("frame_interval must be positive, got %s", c.Playback.FrameInterval)
	}

	switch c.Prefs.Backend {
	case PrefsMemory:
	case PrefsFile:
		if c.Prefs.Path == "" {
			return fmt.Errorf("prefs path is required for the file backend")
		}
	case PrefsRedis:
		if !c.Prefs.Redis.Cluster && c.Prefs.Redis.Host == "" {
			return fmt.Errorf("prefs redis host is required")
		}
	default:
		return fmt.Errorf("unknown prefs backend %q, must be one of: memory, file, redis", c.Prefs.Backend)
	}

	switch c.Analytics.Backend {
	case AnalyticsNone, AnalyticsStderr:
	case AnalyticsSQLite:
		if c.Analytics.Path == "" {
			return fmt.Errorf("analytics path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown analytics backend %q, must be one of: none, stderr, sqlite", c.Analytics.Backend)
	}

	return nil
}

// Load builds the effective config: defaults, overlaid by the JSON file when
// path is non-empty, overlaid by environment variables, then validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteExample writes an example config file with every backend enabled.
func WriteExample(path string) error {
	cfg := Default()
	cfg.Prefs = PrefsConfig{
		Backend: PrefsFile,
		Path:    "playhead-prefs.json",
	}
	cfg.Analytics = AnalyticsConfig{
		Backend: AnalyticsSQLite,
		Path:    "playhead-analytics.db",
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding example config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing example config: %w", err)
	}
	return nil
}
