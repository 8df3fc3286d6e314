package schema

import "fmt"

// SessionConfig defines limits for the editor session.
type SessionConfig struct {
	// HistoryLimit caps the executions kept in the history cache.
	HistoryLimit int
	// LogLimit caps the execution logs kept in the history cache.
	LogLimit int
}

const (
	// DefaultHistoryLimit is the default number of cached executions.
	DefaultHistoryLimit = 200
	// DefaultLogLimit is the default number of cached execution logs.
	DefaultLogLimit = 2000
)

// NormalizeSessionConfig applies defaults and validates the config.
func NormalizeSessionConfig(cfg SessionConfig) (SessionConfig, error) {
	if cfg.HistoryLimit < 0 || cfg.LogLimit < 0 {
		return SessionConfig{}, fmt.Errorf("%w: limits must not be negative", ErrInvalidConfig)
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.LogLimit == 0 {
		cfg.LogLimit = DefaultLogLimit
	}
	return cfg, nil
}
