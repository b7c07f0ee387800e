package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvAnalysisAPIKey            = "MENTIONS_ANALYSIS_API_KEY"
	EnvAnalysisBaseURL           = "MENTIONS_ANALYSIS_BASE_URL"
	EnvAnalysisModel             = "MENTIONS_ANALYSIS_MODEL"
	EnvAnalysisPersona           = "MENTIONS_ANALYSIS_PERSONA"
	EnvAnalysisTemperature       = "MENTIONS_ANALYSIS_TEMPERATURE"
	EnvAnalysisMaxTokens         = "MENTIONS_ANALYSIS_MAX_TOKENS"
	EnvAnalysisMaxAttempts       = "MENTIONS_ANALYSIS_MAX_ATTEMPTS"
	EnvAnalysisBaseDelay         = "MENTIONS_ANALYSIS_BASE_DELAY"
	EnvAnalysisMaxDelay          = "MENTIONS_ANALYSIS_MAX_DELAY"
	EnvAnalysisRequestTimeout    = "MENTIONS_ANALYSIS_REQUEST_TIMEOUT"
	EnvAnalysisRequestsPerSecond = "MENTIONS_ANALYSIS_REQUESTS_PER_SECOND"

	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvOpenAIModel  = "OPENAI_MODEL"
)

// AnalysisConfig holds LLM call and retry settings.
type AnalysisConfig struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Model             string   `toml:"model"`
	Persona           string   `toml:"persona"`
	Temperature       *float64 `toml:"temperature"`
	MaxTokens         int      `toml:"max_tokens"`
	MaxAttempts       int      `toml:"max_attempts"`
	BaseDelay         string   `toml:"base_delay"`
	MaxDelay          string   `toml:"max_delay"`
	RequestTimeout    string   `toml:"request_timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// BaseDelayDuration returns BaseDelay as a time.Duration.
func (c *AnalysisConfig) BaseDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.BaseDelay)
	return d
}

// MaxDelayDuration returns MaxDelay as a time.Duration.
func (c *AnalysisConfig) MaxDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxDelay)
	return d
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *AnalysisConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// TemperatureValue returns the sampling temperature, defaulting to 0.2.
func (c *AnalysisConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return 0.2
	}
	return *c.Temperature
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AnalysisConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AnalysisConfig) Merge(overlay *AnalysisConfig) {
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Persona != "" {
		c.Persona = overlay.Persona
	}
	if overlay.Temperature != nil {
		c.Temperature = overlay.Temperature
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BaseDelay != "" {
		c.BaseDelay = overlay.BaseDelay
	}
	if overlay.MaxDelay != "" {
		c.MaxDelay = overlay.MaxDelay
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.RequestsPerSecond != 0 {
		c.RequestsPerSecond = overlay.RequestsPerSecond
	}
}

func (c *AnalysisConfig) loadDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Persona == "" {
		c.Persona = "neutral"
	}
	if c.Temperature == nil {
		t := 0.2
		c.Temperature = &t
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay == "" {
		c.BaseDelay = "1s"
	}
	if c.MaxDelay == "" {
		c.MaxDelay = "30s"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "60s"
	}
}

func (c *AnalysisConfig) loadEnv() {
	if v := firstEnv(EnvAnalysisAPIKey, EnvOpenAIAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvAnalysisBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := firstEnv(EnvAnalysisModel, EnvOpenAIModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvAnalysisPersona); v != "" {
		c.Persona = v
	}
	if v := os.Getenv(EnvAnalysisTemperature); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = &t
		}
	}
	if v := os.Getenv(EnvAnalysisMaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv(EnvAnalysisMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvAnalysisBaseDelay); v != "" {
		c.BaseDelay = v
	}
	if v := os.Getenv(EnvAnalysisMaxDelay); v != "" {
		c.MaxDelay = v
	}
	if v := os.Getenv(EnvAnalysisRequestTimeout); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv(EnvAnalysisRequestsPerSecond); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = rps
		}
	}
}

func (c *AnalysisConfig) validate() error {
	if c.APIKey == "" {
		return errors.New("api_key required (set MENTIONS_ANALYSIS_API_KEY or OPENAI_API_KEY)")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if t := c.TemperatureValue(); t < 0 || t > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", t)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	for name, v := range map[string]string{
		"base_delay":      c.BaseDelay,
		"max_delay":       c.MaxDelay,
		"request_timeout": c.RequestTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.BaseDelayDuration() > c.MaxDelayDuration() {
		return errors.New("base_delay cannot exceed max_delay")
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
