// Package config loads service configuration from TOML files and MENTIONS_*
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/mention-analyzer/pkg/broker"
	"github.com/JaimeStill/mention-analyzer/pkg/database"
	"github.com/JaimeStill/mention-analyzer/pkg/telemetry"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvMentionsEnv             = "MENTIONS_ENV"
	EnvMentionsShutdownTimeout = "MENTIONS_SHUTDOWN_TIMEOUT"
	EnvMentionsVersion         = "MENTIONS_VERSION"
	EnvMentionsLogLevel        = "MENTIONS_LOG_LEVEL"
	EnvMentionsDispatch        = "MENTIONS_DISPATCH"
)

// Dispatch modes select where analysis runs.
const (
	DispatchInline = "inline"
	DispatchQueue  = "queue"
)

var databaseEnv = &database.Env{
	Host:            "MENTIONS_DB_HOST",
	Port:            "MENTIONS_DB_PORT",
	Name:            "MENTIONS_DB_NAME",
	User:            "MENTIONS_DB_USER",
	Password:        "MENTIONS_DB_PASSWORD",
	SSLMode:         "MENTIONS_DB_SSL_MODE",
	URL:             "MENTIONS_DB_URL",
	MaxOpenConns:    "MENTIONS_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "MENTIONS_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "MENTIONS_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "MENTIONS_DB_CONN_TIMEOUT",
}

var brokerEnv = &broker.Env{
	Addr:        "MENTIONS_REDIS_ADDR",
	URL:         "MENTIONS_REDIS_URL",
	Password:    "MENTIONS_REDIS_PASSWORD",
	DB:          "MENTIONS_REDIS_DB",
	DialTimeout: "MENTIONS_REDIS_DIAL_TIMEOUT",
}

var telemetryEnv = &telemetry.Env{
	Endpoint:    "MENTIONS_OTEL_ENDPOINT",
	Headers:     "MENTIONS_OTEL_HEADERS",
	ServiceName: "MENTIONS_OTEL_SERVICE_NAME",
}

// Config is the root configuration for the mention analyzer.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     database.Config    `toml:"database"`
	API          APIConfig          `toml:"api"`
	Analysis     AnalysisConfig     `toml:"analysis"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Broker       broker.Config      `toml:"broker"`
	Queue        QueueConfig        `toml:"queue"`
	Sweeper      SweeperConfig      `toml:"sweeper"`
	Telemetry    telemetry.Config   `toml:"telemetry"`
	Worker       ServerConfig       `toml:"worker"`

	ShutdownTimeout string `toml:"shutdown_timeout"`
	Version         string `toml:"version"`
	LogLevel        string `toml:"log_level"`
	Dispatch        string `toml:"dispatch"`
}

// Env returns the MENTIONS_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvMentionsEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// QueueDispatch reports whether analysis is handed to the Redis queue.
func (c *Config) QueueDispatch() bool {
	return c.Dispatch == DispatchQueue
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.Dispatch != "" {
		c.Dispatch = overlay.Dispatch
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.API.Merge(&overlay.API)
	c.Analysis.Merge(&overlay.Analysis)
	c.Orchestrator.Merge(&overlay.Orchestrator)
	c.Broker.Merge(&overlay.Broker)
	c.Queue.Merge(&overlay.Queue)
	c.Sweeper.Merge(&overlay.Sweeper)
	c.Telemetry.Merge(&overlay.Telemetry)
	c.Worker.Merge(&overlay.Worker)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(serverEnv, defaultServerPort); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Analysis.Finalize(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Orchestrator.Finalize(); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	if err := c.Broker.Finalize(brokerEnv); err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	if err := c.Queue.Finalize(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.Sweeper.Finalize(); err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	if err := c.Telemetry.Finalize(telemetryEnv); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.Worker.Finalize(workerEnv, defaultWorkerPort); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Dispatch == "" {
		c.Dispatch = DispatchInline
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvMentionsShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvMentionsVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvMentionsLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvMentionsDispatch); v != "" {
		c.Dispatch = strings.ToLower(v)
	}
	if c.Database.URL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Database.URL = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.Dispatch != DispatchInline && c.Dispatch != DispatchQueue {
		return fmt.Errorf("invalid dispatch %q: must be %s or %s", c.Dispatch, DispatchInline, DispatchQueue)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvMentionsEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
