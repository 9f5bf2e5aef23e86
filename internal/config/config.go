// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the taskforce command configuration.
//
// Configuration is read from a YAML file in which ${VAR_NAME} references are
// replaced by environment variables before parsing:
//
//	api_key: "${TASKFORCEAI_API_KEY}"
//	base_url: "https://taskforceai.chat/api/developer"
//	timeout: "30s"
//	mock_mode: false
//	poll:
//	  interval: "1s"
//	  max_attempts: 60
//	stream:
//	  max_reconnects: 5
//	  initial_backoff: "500ms"
//	  max_backoff: "10s"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	tracker:
//	  driver: "sqlite" # none, memory, sqlite
//	  dsn: "taskforce.db"
//
// TASKFORCEAI_API_KEY, when set, takes precedence over api_key.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// EnvAPIKey overrides the api_key setting.
const EnvAPIKey = "TASKFORCEAI_API_KEY"

// Tracker drivers.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the complete command configuration.
type Config struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	MockMode bool   `yaml:"mock_mode"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`

	Poll    PollConfig    `yaml:"poll"`
	Stream  StreamConfig  `yaml:"stream"`
	Logging LoggingConfig `yaml:"logging"`
	Tracker TrackerConfig `yaml:"tracker"`
}

// PollConfig holds the polling defaults.
type PollConfig struct {
	Interval    time.Duration `yaml:"-"`
	IntervalRaw string        `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// StreamConfig holds the stream reconnect policy.
type StreamConfig struct {
	MaxReconnects int `yaml:"max_reconnects"`

	InitialBackoff    time.Duration `yaml:"-"`
	MaxBackoff        time.Duration `yaml:"-"`
	InitialBackoffRaw string        `yaml:"initial_backoff"`
	MaxBackoffRaw     string        `yaml:"max_backoff"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TrackerConfig selects where in-flight submissions are recorded.
type TrackerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BaseURL: taskforceai.DefaultBaseURL,
		Timeout: taskforceai.DefaultTimeout,
		Poll: PollConfig{
			Interval:    taskforceai.DefaultPollInterval,
			MaxAttempts: taskforceai.DefaultMaxPollAttempts,
		},
		Stream: StreamConfig{
			MaxReconnects:  5,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracker: TrackerConfig{Driver: DriverNone},
	}
}

// Load reads the configuration file at path on top of [Default].
// An empty path loads the defaults alone. Environment overrides are applied
// and the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := parseDurations(cfg); err != nil {
			return nil, fmt.Errorf("parsing durations: %w", err)
		}
	}

	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the value of the environment variable, or the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeout", cfg.TimeoutRaw, &cfg.Timeout},
		{"poll.interval", cfg.Poll.IntervalRaw, &cfg.Poll.Interval},
		{"stream.initial_backoff", cfg.Stream.InitialBackoffRaw, &cfg.Stream.InitialBackoff},
		{"stream.max_backoff", cfg.Stream.MaxBackoffRaw, &cfg.Stream.MaxBackoff},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !c.MockMode && strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("api_key is required unless mock_mode is enabled (or set %s)", EnvAPIKey)
	}
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Poll.Interval <= 0 {
		return errors.New("poll.interval must be positive")
	}
	if c.Poll.MaxAttempts <= 0 {
		return errors.New("poll.max_attempts must be positive")
	}
	if c.Stream.MaxReconnects < 0 {
		return errors.New("stream.max_reconnects must not be negative")
	}
	if c.Stream.MaxBackoff < c.Stream.InitialBackoff {
		return errors.New("stream.max_backoff must not be below stream.initial_backoff")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	switch c.Tracker.Driver {
	case "", DriverNone, DriverMemory:
	case DriverSQLite:
		if c.Tracker.DSN == "" {
			return errors.New("tracker.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("tracker.driver %q must be none, memory or sqlite", c.Tracker.Driver)
	}
	return nil
}

// SlogLevel returns the configured level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level %q: %w", l.Level, err)
	}
	return level, nil
}
