// Package config provides configuration loading for paneld.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. This package covers the HTTP server, event bus, auth,
// extraction, and board settings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete paneld configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Bus        BusConfig        `koanf:"bus"`
	Auth       AuthConfig       `koanf:"auth"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Board      BoardConfig      `koanf:"board"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds logging configuration consumed by internal/logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// BusConfig holds event bus configuration.
//
// When Embedded is true paneld starts an in-process NATS server and
// connects to it; URL is only used when Embedded is false.
type BusConfig struct {
	Embedded bool   `koanf:"embedded"`
	URL      string `koanf:"url"`
}

// AuthConfig holds the identity and domain allow-list configuration.
//
// AllowedDomains is immutable once loaded; there is no runtime reload.
type AuthConfig struct {
	ClientID       string   `koanf:"client_id"`
	AllowedDomains []string `koanf:"allowed_domains"`
	TokenLifetime  Duration `koanf:"token_lifetime"`
	TokenPath      string   `koanf:"token_path"`
	UserinfoURL    string   `koanf:"userinfo_url"`
	RevokeURL      string   `koanf:"revoke_url"`
}

// ExtractionConfig holds LLM extraction settings.
type ExtractionConfig struct {
	BaseURL   string  `koanf:"base_url"`
	Model     string  `koanf:"model"`
	APIKey    Secret  `koanf:"api_key"`
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// BoardConfig holds the external board (monday-style GraphQL) settings.
//
// Boards maps a schema type to the board id records of that schema are
// upserted into.
type BoardConfig struct {
	APIURL string           `koanf:"api_url"`
	APIKey Secret           `koanf:"api_key"`
	Boards map[string]int64 `koanf:"boards"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if !c.Bus.Embedded && c.Bus.URL == "" {
		return errors.New("bus url required when embedded bus is disabled")
	}

	if len(c.Auth.AllowedDomains) == 0 {
		return errors.New("at least one allowed domain is required")
	}
	for _, d := range c.Auth.AllowedDomains {
		if strings.TrimSpace(d) == "" {
			return errors.New("allowed domain cannot be empty")
		}
		if strings.Contains(d, "@") {
			return fmt.Errorf("allowed domain %q must be a bare domain, not an address", d)
		}
	}
	if c.Auth.TokenLifetime.Duration() <= 0 {
		return errors.New("token lifetime must be positive")
	}

	if c.Extraction.RateLimit < 0 {
		return errors.New("extraction rate limit cannot be negative")
	}

	return nil
}

// DefaultTokenLifetime is the fixed expiry assumed for broker-issued
// access tokens; the broker does not report actual expiry for this
// token type.
const DefaultTokenLifetime = time.Hour
