package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.UserID == "" {
		t.Error("Default config should have a user id")
	}
	if cfg.Theme != "mocha" {
		t.Errorf("Theme = %q, want mocha", cfg.Theme)
	}
	if cfg.Tracking.InactivityThreshold != 30*time.Second {
		t.Errorf("InactivityThreshold = %v, want 30s", cfg.Tracking.InactivityThreshold)
	}
	if cfg.Tracking.MotionInterval != 100*time.Millisecond {
		t.Errorf("MotionInterval = %v, want 100ms", cfg.Tracking.MotionInterval)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("Backend = %q, want file", cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `user_id: alice
theme: latte
store:
  backend: redis
  redis_url: redis://localhost:6379/0
tracking:
  inactivity_threshold: 2m
  sampler: none
server:
  enabled: true
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", cfg.UserID)
	}
	if cfg.Theme != "latte" {
		t.Errorf("Theme = %q, want latte", cfg.Theme)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Tracking.InactivityThreshold != 2*time.Minute {
		t.Errorf("InactivityThreshold = %v, want 2m", cfg.Tracking.InactivityThreshold)
	}
	if cfg.Tracking.Sampler != "none" {
		t.Errorf("Sampler = %q, want none", cfg.Tracking.Sampler)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9000 {
		t.Errorf("Server = %+v", cfg.Server)
	}

	// Unset keys keep their defaults
	if cfg.Tracking.MotionInterval != 100*time.Millisecond {
		t.Errorf("MotionInterval = %v, want default", cfg.Tracking.MotionInterval)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() should not error for missing file, got: %v", err)
	}
	if cfg.Theme != "mocha" {
		t.Error("Should return default config")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tracking: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on invalid yaml")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ACTIVITY_MON_USER":                 "bob",
		"ACTIVITY_MON_STORE_BACKEND":        "memory",
		"ACTIVITY_MON_INACTIVITY_THRESHOLD": "45s",
		"ACTIVITY_MON_SERVER_PORT":          "4000",
		"ACTIVITY_MON_SERVER_ENABLED":       "true",
		"ACTIVITY_MON_SERVER_TOKEN":         "s3cret",
		"ACTIVITY_MON_THEME":                "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.UserID != "bob" {
		t.Errorf("UserID = %q, want bob", cfg.UserID)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Tracking.InactivityThreshold != 45*time.Second {
		t.Errorf("InactivityThreshold = %v, want 45s", cfg.Tracking.InactivityThreshold)
	}
	if cfg.Server.Port != 4000 || !cfg.Server.Enabled || cfg.Server.Token != "s3cret" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Theme != "mocha" {
		t.Errorf("Empty override should be ignored, Theme = %q", cfg.Theme)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ACTIVITY_MON_INACTIVITY_THRESHOLD", "soon"},
		{"ACTIVITY_MON_REFRESH_INTERVAL", "10"},
		{"ACTIVITY_MON_SERVER_PORT", "http"},
		{"ACTIVITY_MON_SERVER_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == tt.key {
					return tt.value, true
				}
				return "", false
			}
			if err := DefaultConfig().ApplyEnv(lookup); err == nil {
				t.Errorf("ApplyEnv(%s=%q) should fail", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty user", func(c *Config) { c.UserID = "" }},
		{"unknown theme", func(c *Config) { c.Theme = "solarized" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"redis without url", func(c *Config) { c.Store.Backend = "redis" }},
		{"unknown sampler", func(c *Config) { c.Tracking.Sampler = "wayland" }},
		{"zero threshold", func(c *Config) { c.Tracking.InactivityThreshold = 0 }},
		{"negative motion interval", func(c *Config) { c.Tracking.MotionInterval = -time.Second }},
		{"zero check interval", func(c *Config) { c.Tracking.InactivityCheckInterval = 0 }},
		{"zero refresh", func(c *Config) { c.UI.RefreshInterval = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestServerAddresses(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 3847}
	if got := s.Addr(); got != "0.0.0.0:3847" {
		t.Errorf("Addr() = %q", got)
	}
	if got := s.BaseURL(); got != "http://127.0.0.1:3847" {
		t.Errorf("BaseURL() = %q", got)
	}

	s = ServerConfig{Host: "::1", Port: 80}
	if got := s.BaseURL(); got != "http://[::1]:80" {
		t.Errorf("BaseURL() = %q", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ACTIVITY_MON_TEST_ONLY=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ACTIVITY_MON_TEST_ONLY", "")
	os.Unsetenv("ACTIVITY_MON_TEST_ONLY")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("ACTIVITY_MON_TEST_ONLY"); got != "from-file" {
		t.Errorf("ACTIVITY_MON_TEST_ONLY = %q, want from-file", got)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Missing env file should not error, got: %v", err)
	}
}

func TestResolveExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("user_id: carol\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ACTIVITY_MON_USER", "dave")

	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.UserID != "dave" {
		t.Errorf("Environment should win over file, UserID = %q", cfg.UserID)
	}
}
