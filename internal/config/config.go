// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir is the root of the per-team report archives.
	DataDir string `koanf:"data_dir"`

	// CacheTTLSeconds bounds how long a best-record cache entry is trusted.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// BatchThreshold is the record count at which scans switch to the worker pool.
	BatchThreshold int `koanf:"batch_threshold"`

	// BatchSize is the number of records handed to one scan task.
	BatchSize int `koanf:"batch_size"`

	// ScanWorkers caps concurrent scan tasks.
	ScanWorkers int `koanf:"scan_workers"`

	// ScanTimeoutMS is the wall-clock budget of one scan; 0 disables it.
	ScanTimeoutMS int `koanf:"scan_timeout_ms"`

	// MaxHistoryLimit caps GET /api/teams/{id}/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// EventQueueSize bounds the outbound update event queue.
	EventQueueSize int `koanf:"event_queue_size"`

	// InactiveAfterSeconds marks a team inactive when it has not reported for this long.
	InactiveAfterSeconds int `koanf:"inactive_after_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":8080",
		DataDir:              "data",
		CacheTTLSeconds:      300,
		BatchThreshold:       50,
		BatchSize:            50,
		ScanWorkers:          4,
		ScanTimeoutMS:        0,
		MaxHistoryLimit:      100,
		EventQueueSize:       1024,
		InactiveAfterSeconds: 300,
	}
}

// Validate reports the first invalid field, wrapped with ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.CacheTTLSeconds <= 0:
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	case c.BatchThreshold <= 0:
		return fmt.Errorf("%w: batch_threshold must be positive", ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalidConfig)
	case c.ScanWorkers <= 0:
		return fmt.Errorf("%w: scan_workers must be positive", ErrInvalidConfig)
	case c.ScanTimeoutMS < 0:
		return fmt.Errorf("%w: scan_timeout_ms must not be negative", ErrInvalidConfig)
	case c.MaxHistoryLimit <= 0:
		return fmt.Errorf("%w: max_history_limit must be positive", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: event_queue_size must be positive", ErrInvalidConfig)
	case c.InactiveAfterSeconds <= 0:
		return fmt.Errorf("%w: inactive_after_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSeconds) * time.Second }

// ScanTimeout returns ScanTimeoutMS as a duration.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutMS) * time.Millisecond
}

// InactiveAfter returns InactiveAfterSeconds as a duration.
func (c *Config) InactiveAfter() time.Duration {
	return time.Duration(c.InactiveAfterSeconds) * time.Second
}
