package telemetry

import (
	"os"
	"strings"
)

// Config holds OTLP export settings. An empty Endpoint disables export.
type Config struct {
	Endpoint    string `toml:"endpoint"`
	Headers     string `toml:"headers"`
	ServiceName string `toml:"service_name"`
}

// Env maps telemetry config fields to environment variable names for override injection.
type Env struct {
	Endpoint    string
	Headers     string
	ServiceName string
}

// Enabled reports whether an OTLP endpoint is configured.
func (c *Config) Enabled() bool {
	return c.Endpoint != ""
}

// Finalize applies defaults and environment variable overrides.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDefaults()
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Headers != "" {
		c.Headers = overlay.Headers
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
}

func (c *Config) loadDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "mention-analyzer"
	}
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")
}

func (c *Config) loadEnv(env *Env) {
	if env.Endpoint != "" {
		if v := os.Getenv(env.Endpoint); v != "" {
			c.Endpoint = v
		}
	}
	if env.Headers != "" {
		if v := os.Getenv(env.Headers); v != "" {
			c.Headers = v
		}
	}
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
}

func parseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for pair := range strings.SplitSeq(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if ok {
			headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return headers
}
