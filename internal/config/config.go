// Package config loads service configuration from the environment once at
// process start. A missing required value is a startup-fatal error, never a
// runtime error inside the rating core.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Outbound carrier requests
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	// UPS
	UPSClientID      string `envconfig:"UPS_CLIENT_ID"`
	UPSClientSecret  string `envconfig:"UPS_CLIENT_SECRET"`
	UPSAccountNumber string `envconfig:"UPS_ACCOUNT_NUMBER"`
	UPSBaseURL       string `envconfig:"UPS_BASE_URL" default:"https://onlinetools.ups.com"`
	UPSAuthURL       string `envconfig:"UPS_AUTH_URL" default:"https://onlinetools.ups.com/security/v1/oauth/token"`
	UPSEnabled       bool   `envconfig:"UPS_ENABLED" default:"true"`
	UPSUseMock       bool   `envconfig:"UPS_USE_MOCK" default:"false"`

	// Persistence sink (optional: empty disables quote/audit storage)
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"cybership-rating"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables and checks required
// values.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every enabled carrier has its required credentials.
// Mock mode needs none.
func (c *Config) Validate() error {
	if c.UPSEnabled && !c.UPSUseMock {
		for key, val := range map[string]string{
			"UPS_CLIENT_ID":      c.UPSClientID,
			"UPS_CLIENT_SECRET":  c.UPSClientSecret,
			"UPS_ACCOUNT_NUMBER": c.UPSAccountNumber,
		} {
			if val == "" {
				return fmt.Errorf("missing required environment variable: %s (set UPS_USE_MOCK=true to run without credentials)", key)
			}
		}
	}
	return nil
}
