// Package config loads the application's YAML configuration file and
// layers environment variable overrides on top, the way the teacher's
// internal/config package does for its own service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the root application configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	Store   StoreConfig   `yaml:"store"`
	Watcher WatcherConfig `yaml:"watcher"`
}

// AppConfig carries ambient process-level settings.
type AppConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" or "text"
}

// ServerConfig configures the dashboard/health HTTP server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StoreConfig points at the embedded SQLite config database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// WatcherConfig holds process-wide settings applied to every line's
// directory watcher; lines carry no per-line override of these values.
type WatcherConfig struct {
	SettleDelay        time.Duration `yaml:"settle_delay"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	EventTimeout       time.Duration `yaml:"event_timeout"`
	RecentFileWindow   time.Duration `yaml:"recent_file_window"`
	WorkerPoolSize     int           `yaml:"worker_pool_size"`
	WorkerQueueSize    int           `yaml:"worker_queue_size"`
}

// Load reads configFile (if non-empty and present), applies defaults,
// then applies VISOR_*-prefixed environment overrides, and validates
// the result.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	if configFile != "" {
		if err := loadFile(configFile, cfg); err != nil {
			fmt.Printf("warning: failed to load config file %s: %v\n", configFile, err)
		}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "visor-ingestd"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "text"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "/var/lib/visor/visor.db"
	}
	if cfg.Watcher.SettleDelay == 0 {
		cfg.Watcher.SettleDelay = 500 * time.Millisecond
	}
	if cfg.Watcher.PollInterval == 0 {
		cfg.Watcher.PollInterval = 5 * time.Second
	}
	if cfg.Watcher.EventTimeout == 0 {
		cfg.Watcher.EventTimeout = 500 * time.Millisecond
	}
	if cfg.Watcher.RecentFileWindow == 0 {
		cfg.Watcher.RecentFileWindow = 60 * time.Second
	}
	if cfg.Watcher.WorkerPoolSize == 0 {
		cfg.Watcher.WorkerPoolSize = 8
	}
	if cfg.Watcher.WorkerQueueSize == 0 {
		cfg.Watcher.WorkerQueueSize = 100
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VISOR_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("VISOR_LOG_FORMAT"); v != "" {
		cfg.App.LogFormat = v
	}
	if v := os.Getenv("VISOR_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("VISOR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VISOR_SERVER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Server.Enabled = enabled
		}
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime errors much later (an empty store path, a negative port).
func Validate(cfg *Config) error {
	if cfg.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Watcher.WorkerPoolSize <= 0 {
		return fmt.Errorf("watcher.worker_pool_size must be positive")
	}
	return nil
}
