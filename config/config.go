package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server configuration
//   - services.go: Service mode configuration
//   - merge.go: Batch merge and files root configuration
//   - realtime.go: Live socket and notification listener configuration
type AppConfig struct {
	// IsDev switches the logger to human-readable text output.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http,merge-worker,file-mover"`

	Merge    MergeConfig
	Files    FilesConfig
	Realtime RealtimeConfig
	Listener ListenerConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Postgres.Sanitize()
	c.Redis.Sanitize()
	c.HTTP.Sanitize()
	c.Merge.Sanitize()
	c.Files.Sanitize()
	c.Realtime.Sanitize()
	c.Listener.Sanitize()
	c.Observability.Sanitize()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate reports configuration that cannot start: unknown or inconsistent
// service modes, and a missing files root for modes that touch files.
func (c *AppConfig) Validate() error {
	services, err := c.GetEnabledServices()
	if err != nil {
		return err
	}
	if err := ValidateServiceModes(services); err != nil {
		return err
	}
	if c.Files.Root == "" {
		return errors.New("FILES_ROOT is required")
	}
	if services[ServiceModeMergeWorker] && c.Merge.OutputDir == "" {
		return errors.New("MERGE_OUTPUT_DIR is required when merge-worker is enabled")
	}
	if c.Merge.OutputDir != "" && !isWithin(c.Files.Root, c.Merge.OutputDir) {
		return fmt.Errorf("MERGE_OUTPUT_DIR %q must be inside FILES_ROOT %q", c.Merge.OutputDir, c.Files.Root)
	}
	return nil
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	return c.isEnabled(ServiceModeHTTP)
}

// IsMergeWorkerEnabled returns true if the merge worker service is enabled.
func (c *AppConfig) IsMergeWorkerEnabled() bool {
	return c.isEnabled(ServiceModeMergeWorker)
}

// IsFileMoverEnabled returns true if the file mover service is enabled.
func (c *AppConfig) IsFileMoverEnabled() bool {
	return c.isEnabled(ServiceModeFileMover)
}

func (c *AppConfig) isEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}
