// Package config loads activity_mon settings from a YAML file, a .env file
// and ACTIVITY_MON_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ACTIVITY_MON_"

// Config holds application configuration.
type Config struct {
	// UserID keys the activity record. Defaults to the login name.
	UserID string `yaml:"user_id"`

	// Theme is the catppuccin flavour used by the dashboard.
	Theme string `yaml:"theme"`

	Store    StoreConfig    `yaml:"store"`
	Tracking TrackingConfig `yaml:"tracking"`
	UI       UIConfig       `yaml:"ui"`
	Server   ServerConfig   `yaml:"server"`
}

// StoreConfig selects where records are persisted.
type StoreConfig struct {
	// Backend is one of "file", "redis" or "memory".
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	RedisURL  string `yaml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// TrackingConfig tunes the input monitor.
type TrackingConfig struct {
	InactivityThreshold     time.Duration `yaml:"inactivity_threshold"`
	MotionInterval          time.Duration `yaml:"motion_interval"`
	InactivityCheckInterval time.Duration `yaml:"inactivity_check_interval"`
	// Sampler is "xdotool" or "none".
	Sampler string `yaml:"sampler"`
}

type UIConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// ServerConfig controls the HTTP/websocket API started by `track`.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Token   string `yaml:"token"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BaseURL is where a local client reaches the server.
func (s ServerConfig) BaseURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}

var themes = map[string]bool{"mocha": true, "macchiato": true, "frappe": true, "latte": true}

var backends = map[string]bool{"file": true, "redis": true, "memory": true}

var samplers = map[string]bool{"xdotool": true, "none": true}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		UserID: defaultUserID(),
		Theme:  "mocha",
		Store: StoreConfig{
			Backend:   "file",
			KeyPrefix: "activity-",
		},
		Tracking: TrackingConfig{
			InactivityThreshold:     30 * time.Second,
			MotionInterval:          100 * time.Millisecond,
			InactivityCheckInterval: time.Second,
			Sampler:                 "xdotool",
		},
		UI: UIConfig{
			RefreshInterval: 5 * time.Second,
		},
		Server: ServerConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    3847,
		},
	}
}

func defaultUserID() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "default"
}

// Load reads configuration from a YAML file. If the file doesn't exist,
// returns the default configuration. Keys missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Clean(path)) //nolint:gosec // path is from user config
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// DefaultPaths lists the config file locations in lookup order.
func DefaultPaths() []string {
	paths := []string{"config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "activity_mon", "config.yaml"))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "activity_mon", "config.yaml"))
	}
	return paths
}

// LoadFromDefaultPath loads the first config file found in DefaultPaths.
func LoadFromDefaultPath() (*Config, error) {
	for _, path := range DefaultPaths() {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return DefaultConfig(), nil
}

// Resolve builds the effective configuration: the file at path (or the
// default lookup when path is empty), then .env, then the environment.
func Resolve(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path != "" {
		cfg, err = Load(path)
	} else {
		cfg, err = LoadFromDefaultPath()
	}
	if err != nil {
		return nil, err
	}

	if err := LoadEnvFile(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads .env files into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from ACTIVITY_MON_* variables. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("USER", &c.UserID)
	str("THEME", &c.Theme)
	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_DIR", &c.Store.Dir)
	str("REDIS_URL", &c.Store.RedisURL)
	str("KEY_PREFIX", &c.Store.KeyPrefix)
	str("SAMPLER", &c.Tracking.Sampler)
	str("SERVER_HOST", &c.Server.Host)
	str("SERVER_TOKEN", &c.Server.Token)

	if err := dur("INACTIVITY_THRESHOLD", &c.Tracking.InactivityThreshold); err != nil {
		return err
	}
	if err := dur("REFRESH_INTERVAL", &c.UI.RefreshInterval); err != nil {
		return err
	}

	if v, ok := lookup(EnvPrefix + "SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSERVER_PORT: %w", EnvPrefix, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvPrefix + "SERVER_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSERVER_ENABLED: %w", EnvPrefix, err)
		}
		c.Server.Enabled = enabled
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.UserID == "":
		return errors.New("user_id must not be empty")
	case !themes[c.Theme]:
		return fmt.Errorf("unknown theme %q", c.Theme)
	case !backends[c.Store.Backend]:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	case c.Store.Backend == "redis" && c.Store.RedisURL == "":
		return errors.New("store.redis_url is required for the redis backend")
	case !samplers[c.Tracking.Sampler]:
		return fmt.Errorf("unknown pointer sampler %q", c.Tracking.Sampler)
	case c.Tracking.InactivityThreshold <= 0:
		return errors.New("tracking.inactivity_threshold must be positive")
	case c.Tracking.MotionInterval <= 0:
		return errors.New("tracking.motion_interval must be positive")
	case c.Tracking.InactivityCheckInterval <= 0:
		return errors.New("tracking.inactivity_check_interval must be positive")
	case c.UI.RefreshInterval <= 0:
		return errors.New("ui.refresh_interval must be positive")
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
