package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// OrchestratorConfig bounds inline analysis runs and the terminal failure write.
type OrchestratorConfig struct {
	MaxConcurrency int    `toml:"max_concurrency"`
	DrainTimeout   string `toml:"drain_timeout"`
	FailTimeout    string `toml:"fail_timeout"`
}

// DrainTimeoutDuration returns DrainTimeout as a time.Duration.
func (c *OrchestratorConfig) DrainTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DrainTimeout)
	return d
}

// FailTimeoutDuration returns FailTimeout as a time.Duration.
func (c *OrchestratorConfig) FailTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.FailTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *OrchestratorConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *OrchestratorConfig) Merge(overlay *OrchestratorConfig) {
	if overlay.MaxConcurrency != 0 {
		c.MaxConcurrency = overlay.MaxConcurrency
	}
	if overlay.DrainTimeout != "" {
		c.DrainTimeout = overlay.DrainTimeout
	}
	if overlay.FailTimeout != "" {
		c.FailTimeout = overlay.FailTimeout
	}
}

func (c *OrchestratorConfig) loadDefaults() {
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 16
	}
	if c.DrainTimeout == "" {
		c.DrainTimeout = "30s"
	}
	if c.FailTimeout == "" {
		c.FailTimeout = "10s"
	}
}

func (c *OrchestratorConfig) loadEnv() {
	if v := os.Getenv("MENTIONS_ORCHESTRATOR_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrency = n
		}
	}
	if v := os.Getenv("MENTIONS_ORCHESTRATOR_DRAIN_TIMEOUT"); v != "" {
		c.DrainTimeout = v
	}
	if v := os.Getenv("MENTIONS_ORCHESTRATOR_FAIL_TIMEOUT"); v != "" {
		c.FailTimeout = v
	}
}

func (c *OrchestratorConfig) validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if _, err := time.ParseDuration(c.DrainTimeout); err != nil {
		return fmt.Errorf("invalid drain_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.FailTimeout); err != nil {
		return fmt.Errorf("invalid fail_timeout: %w", err)
	}
	return nil
}
