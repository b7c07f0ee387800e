package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// QueueConfig holds Redis Streams consumer and retry settings.
type QueueConfig struct {
	Stream          string `toml:"stream"`
	Group           string `toml:"group"`
	Consumer        string `toml:"consumer"`
	DLQStream       string `toml:"dlq_stream"`
	DelayedKey      string `toml:"delayed_key"`
	BatchSize       int64  `toml:"batch_size"`
	Block           string `toml:"block"`
	Concurrency     int    `toml:"concurrency"`
	MaxRetries      int    `toml:"max_retries"`
	RetryDelay      string `toml:"retry_delay"`
	PromoteInterval string `toml:"promote_interval"`
	ReclaimMinIdle  string `toml:"reclaim_min_idle"`
	ReclaimInterval string `toml:"reclaim_interval"`
}

// BlockDuration returns Block as a time.Duration.
func (c *QueueConfig) BlockDuration() time.Duration { return parse(c.Block) }

// RetryDelayDuration returns RetryDelay as a time.Duration.
func (c *QueueConfig) RetryDelayDuration() time.Duration { return parse(c.RetryDelay) }

// PromoteIntervalDuration returns PromoteInterval as a time.Duration.
func (c *QueueConfig) PromoteIntervalDuration() time.Duration { return parse(c.PromoteInterval) }

// ReclaimMinIdleDuration returns ReclaimMinIdle as a time.Duration.
func (c *QueueConfig) ReclaimMinIdleDuration() time.Duration { return parse(c.ReclaimMinIdle) }

// ReclaimIntervalDuration returns ReclaimInterval as a time.Duration.
func (c *QueueConfig) ReclaimIntervalDuration() time.Duration { return parse(c.ReclaimInterval) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *QueueConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *QueueConfig) Merge(overlay *QueueConfig) {
	mergeString(&c.Stream, overlay.Stream)
	mergeString(&c.Group, overlay.Group)
	mergeString(&c.Consumer, overlay.Consumer)
	mergeString(&c.DLQStream, overlay.DLQStream)
	mergeString(&c.DelayedKey, overlay.DelayedKey)
	mergeString(&c.Block, overlay.Block)
	mergeString(&c.RetryDelay, overlay.RetryDelay)
	mergeString(&c.PromoteInterval, overlay.PromoteInterval)
	mergeString(&c.ReclaimMinIdle, overlay.ReclaimMinIdle)
	mergeString(&c.ReclaimInterval, overlay.ReclaimInterval)
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
}

func (c *QueueConfig) loadDefaults() {
	if c.Stream == "" {
		c.Stream = "mentions:analysis"
	}
	if c.Group == "" {
		c.Group = "analyzers"
	}
	if c.Consumer == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		c.Consumer = host
	}
	if c.DLQStream == "" {
		c.DLQStream = c.Stream + ":dlq"
	}
	if c.DelayedKey == "" {
		c.DelayedKey = c.Stream + ":delayed"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.Block == "" {
		c.Block = "5s"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "60s"
	}
	if c.PromoteInterval == "" {
		c.PromoteInterval = "1s"
	}
	if c.ReclaimMinIdle == "" {
		c.ReclaimMinIdle = "5m"
	}
	if c.ReclaimInterval == "" {
		c.ReclaimInterval = "1m"
	}
}

func (c *QueueConfig) loadEnv() {
	if v := os.Getenv("MENTIONS_QUEUE_STREAM"); v != "" {
		c.Stream = v
	}
	if v := os.Getenv("MENTIONS_QUEUE_GROUP"); v != "" {
		c.Group = v
	}
	if v := os.Getenv("MENTIONS_QUEUE_CONSUMER"); v != "" {
		c.Consumer = v
	}
	if v := os.Getenv("MENTIONS_QUEUE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("MENTIONS_QUEUE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("MENTIONS_QUEUE_RETRY_DELAY"); v != "" {
		c.RetryDelay = v
	}
}

func (c *QueueConfig) validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", c.MaxRetries)
	}
	durations := []struct{ name, value string }{
		{"block", c.Block},
		{"retry_delay", c.RetryDelay},
		{"promote_interval", c.PromoteInterval},
		{"reclaim_min_idle", c.ReclaimMinIdle},
		{"reclaim_interval", c.ReclaimInterval},
	}
	for _, d := range durations {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}
	return nil
}

func parse(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
