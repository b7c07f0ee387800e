package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// SweeperConfig schedules re-dispatch of mentions stuck in a non-terminal status.
type SweeperConfig struct {
	Enabled    *bool  `toml:"enabled"`
	Schedule   string `toml:"schedule"`
	StaleAfter string `toml:"stale_after"`
	BatchSize  int    `toml:"batch_size"`
}

// IsEnabled reports whether the sweeper runs. It is on unless explicitly disabled.
func (c *SweeperConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// StaleAfterDuration returns StaleAfter as a time.Duration.
func (c *SweeperConfig) StaleAfterDuration() time.Duration { return parse(c.StaleAfter) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SweeperConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *SweeperConfig) Merge(overlay *SweeperConfig) {
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	mergeString(&c.Schedule, overlay.Schedule)
	mergeString(&c.StaleAfter, overlay.StaleAfter)
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
}

func (c *SweeperConfig) loadDefaults() {
	if c.Schedule == "" {
		c.Schedule = "@every 5m"
	}
	if c.StaleAfter == "" {
		c.StaleAfter = "15m"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
}

func (c *SweeperConfig) loadEnv() {
	if v := os.Getenv("MENTIONS_SWEEPER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = &enabled
		}
	}
	if v := os.Getenv("MENTIONS_SWEEPER_SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv("MENTIONS_SWEEPER_STALE_AFTER"); v != "" {
		c.StaleAfter = v
	}
}

func (c *SweeperConfig) validate() error {
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	if d, err := time.ParseDuration(c.StaleAfter); err != nil || d <= 0 {
		return fmt.Errorf("invalid stale_after: %q", c.StaleAfter)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	return nil
}
