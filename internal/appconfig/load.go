package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/flowdeck/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FLOWDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout_seconds", cfg.API.TimeoutSeconds)
	v.SetDefault("api.tracing", cfg.API.Tracing)
	v.SetDefault("state.backend", cfg.State.Backend)
	v.SetDefault("state.dir", cfg.State.Dir)
	v.SetDefault("state.sqlite_path", cfg.State.SQLitePath)
	v.SetDefault("state.redis_addr", cfg.State.RedisAddr)
	v.SetDefault("state.redis_db", cfg.State.RedisDB)
	v.SetDefault("state.redis_prefix", cfg.State.RedisPrefix)
	v.SetDefault("session.history_limit", cfg.Session.HistoryLimit)
	v.SetDefault("session.log_limit", cfg.Session.LogLimit)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("%w: config_version is required; expected %d", schema.ErrInvalidConfig, CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("%w: unsupported config_version %d; expected %d", schema.ErrInvalidConfig, v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks section values that cannot be defaulted.
func Validate(cfg Config) error {
	if err := validateAPIConfig(cfg.API); err != nil {
		return err
	}
	if err := validateStateConfig(cfg.State); err != nil {
		return err
	}
	if cfg.Session.HistoryLimit < 0 || cfg.Session.LogLimit < 0 {
		return fmt.Errorf("%w: session limits must not be negative", schema.ErrInvalidConfig)
	}
	return nil
}

func validateAPIConfig(cfg APIConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", schema.ErrInvalidConfig)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: api.base_url must include scheme and host (e.g. http://localhost:8080/api)", schema.ErrInvalidConfig)
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: api.timeout_seconds must not be negative", schema.ErrInvalidConfig)
	}
	return nil
}

func validateStateConfig(cfg StateConfig) error {
	switch cfg.Backend {
	case BackendFile:
		if strings.TrimSpace(cfg.Dir) == "" {
			return fmt.Errorf("%w: state.dir is required for the file backend", schema.ErrInvalidConfig)
		}
	case BackendSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return fmt.Errorf("%w: state.sqlite_path is required for the sqlite backend", schema.ErrInvalidConfig)
		}
	case BackendRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return fmt.Errorf("%w: state.redis_addr is required for the redis backend", schema.ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unsupported state.backend %q", schema.ErrInvalidConfig, cfg.Backend)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.API.BaseURL = expandEnv(cfg.API.BaseURL)
	cfg.State.Dir = expandEnv(cfg.State.Dir)
	cfg.State.SQLitePath = expandEnv(cfg.State.SQLitePath)
	cfg.State.RedisAddr = expandEnv(cfg.State.RedisAddr)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	if key == "UID" {
		return fmt.Sprintf("%d", os.Getuid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
