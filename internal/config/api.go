package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/mention-analyzer/pkg/formatting"
	"github.com/JaimeStill/mention-analyzer/pkg/middleware"
	"github.com/JaimeStill/mention-analyzer/pkg/openapi"
	"github.com/JaimeStill/mention-analyzer/pkg/pagination"
)

const defaultMaxBodySize = 64 * 1024

var corsEnv = &middleware.CORSEnv{
	Enabled:          "MENTIONS_CORS_ENABLED",
	Origins:          "MENTIONS_CORS_ORIGINS",
	AllowedMethods:   "MENTIONS_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "MENTIONS_CORS_ALLOWED_HEADERS",
	AllowCredentials: "MENTIONS_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "MENTIONS_CORS_MAX_AGE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "MENTIONS_OPENAPI_TITLE",
	Description: "MENTIONS_OPENAPI_DESCRIPTION",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultLimit: "MENTIONS_PAGINATION_DEFAULT_LIMIT",
	MaxLimit:     "MENTIONS_PAGINATION_MAX_LIMIT",
}

// APIConfig holds API routing, CORS, OpenAPI, and pagination settings.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MaxBodySize string                `toml:"max_body_size"`
	CORS        middleware.CORSConfig `toml:"cors"`
	OpenAPI     openapi.Config        `toml:"openapi"`
	Pagination  pagination.Config     `toml:"pagination"`
}

// MaxBodySizeBytes returns the submission body limit, falling back to 64KB.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil || size <= 0 {
		return defaultMaxBodySize
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS, OpenAPI, and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
	c.OpenAPI.Merge(&overlay.OpenAPI)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "64KB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("MENTIONS_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("MENTIONS_API_MAX_BODY_SIZE"); v != "" {
		c.MaxBodySize = v
	}
}

func (c *APIConfig) validate() error {
	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	return nil
}
