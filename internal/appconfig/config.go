package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/flowdeck/internal/api"
	"pkt.systems/flowdeck/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	API           APIConfig     `mapstructure:"api" yaml:"api"`
	State         StateConfig   `mapstructure:"state" yaml:"state"`
	Session       SessionConfig `mapstructure:"session" yaml:"session"`
	Metrics       MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// State backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// APIConfig configures the workflow repository client.
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Tracing        bool   `mapstructure:"tracing" yaml:"tracing"`
}

// StateConfig selects where the open tab list is remembered.
type StateConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	Dir         string `mapstructure:"dir" yaml:"dir"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// SessionConfig controls the editor session.
type SessionConfig struct {
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
	LogLimit     int `mapstructure:"log_limit" yaml:"log_limit"`
}

// MetricsConfig configures the optional metrics listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	stateDir := filepath.Join(home, ".flowdeck", "state")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		API: APIConfig{
			BaseURL:        api.DefaultBaseURL,
			TimeoutSeconds: int(api.DefaultTimeout.Seconds()),
			Tracing:        false,
		},
		State: StateConfig{
			Backend:     BackendFile,
			Dir:         stateDir,
			SQLitePath:  filepath.Join(stateDir, "flowdeck.db"),
			RedisAddr:   "",
			RedisDB:     0,
			RedisPrefix: "flowdeck",
		},
		Session: SessionConfig{
			HistoryLimit: schema.DefaultHistoryLimit,
			LogLimit:     schema.DefaultLogLimit,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".flowdeck", "config.yaml"), nil
}

// SessionLimits converts the session section into core limits.
func (c Config) SessionLimits() schema.SessionConfig {
	return schema.SessionConfig{
		HistoryLimit: c.Session.HistoryLimit,
		LogLimit:     c.Session.LogLimit,
	}
}
