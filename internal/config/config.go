// Package config loads the layered application configuration: compiled-in
// defaults, one or more TOML files (later files win), then environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root application configuration.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Worker      WorkerConfig    `toml:"worker"`
	Logging     LoggingConfig   `toml:"logging"`
	RateLimit   RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Port         int    `toml:"port"`
	Host         string `toml:"host"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"`
	IdleTimeout  string `toml:"idle_timeout"`
}

// StorageConfig configures the filesystem layout and the job cache.
type StorageConfig struct {
	DataDir    string `toml:"data_dir"`
	JobCache   JobCacheConfig `toml:"job_cache"`
}

// JobCacheConfig configures the badgerhold secondary index.
type JobCacheConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// WorkerConfig configures the poll/drain loop and the stale-job sweep.
type WorkerConfig struct {
	PollInterval        string `toml:"poll_interval"`
	StaleSweepSchedule  string `toml:"stale_sweep_schedule"`
	StaleAfter          string `toml:"stale_after"`
}

// LoggingConfig configures the arbor logger.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
}

// RateLimitConfig configures the upload-endpoint limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// NewDefault returns the compiled-in default configuration.
func NewDefault() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  "30s",
			WriteTimeout: "360s",
			IdleTimeout:  "120s",
		},
		Storage: StorageConfig{
			DataDir: "./data",
			JobCache: JobCacheConfig{
				Path:           "./data/state/jobcache",
				ResetOnStartup: false,
			},
		},
		Worker: WorkerConfig{
			PollInterval:       "2s",
			StaleSweepSchedule: "0 0 * * * *",
			StaleAfter:         "2h",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file(s) -> env.
// Later paths override earlier ones; empty paths are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := NewDefault()
	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s (%d of %d): %w", path, i+1, len(paths), err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CNE_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("CNE_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("CNE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CNE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CNE_WORKER_POLL_INTERVAL"); v != "" {
		cfg.Worker.PollInterval = v
	}
	if v := os.Getenv("CNE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CNE_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = f
		}
	}
}

// Duration parses a config duration string, falling back to def on error.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
