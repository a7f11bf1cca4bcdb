package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playhead.json")
	content := `{"server": {"addr": ":9999"}, "playback": {"default_speed": 2}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Server.Addr)
	}
	if cfg.Playback.DefaultSpeed != 2 {
		t.Errorf("DefaultSpeed = %v, want 2", cfg.Playback.DefaultSpeed)
	}
	// Unspecified fields keep defaults.
	if cfg.Playback.IdleThreshold != 10*time.Second {
		t.Errorf("IdleThreshold = %v, want 10s", cfg.Playback.IdleThreshold)
	}
	if cfg.Prefs.Backend != PrefsMemory {
		t.Errorf("Prefs.Backend = %q, want memory", cfg.Prefs.Backend)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playhead.json")
	if err := os.WriteFile(path, []byte(`{"server": {"addr": ":9999"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PLAYHEAD_ADDR", ":7777")
	t.Setenv("PLAYHEAD_SPEED", "4")
	t.Setenv("PLAYHEAD_SKIP_INACTIVE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("Addr = %q, want env override :7777", cfg.Server.Addr)
	}
	if cfg.Playback.DefaultSpeed != 4 {
		t.Errorf("DefaultSpeed = %v, want 4", cfg.Playback.DefaultSpeed)
	}
	if !cfg.Playback.SkipInactive {
		t.Error("SkipInactive not set from env")
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero speed", func(c *Config) { c.Playback.DefaultSpeed = 0 }},
		{"zero idle threshold", func(c *Config) { c.Playback.IdleThreshold = 0 }},
		{"zero frame interval", func(c *Config) { c.Playback.FrameInterval = 0 }},
		{"unknown prefs backend", func(c *Config) { c.Prefs.Backend = "etcd" }},
		{"file prefs without path", func(c *Config) { c.Prefs.Backend = PrefsFile }},
		{"redis prefs without host", func(c *Config) { c.Prefs.Backend = PrefsRedis }},
		{"unknown analytics backend", func(c *Config) { c.Analytics.Backend = "kafka" }},
		{"sqlite analytics without path", func(c *Config) { c.Analytics.Backend = AnalyticsSQLite }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestWriteExample_ProducesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.json")
	if err := WriteExample(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if cfg.Prefs.Backend != PrefsFile {
		t.Errorf("example prefs backend = %q, want file", cfg.Prefs.Backend)
	}
}
