package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration
type Config struct {
	Port string

	// Optional variables with defaults
	GoEnv           string
	LogLevel        string
	DevelopmentMode bool
}

const defaultPort = "3000"

// Load validates all environment variables and returns a Config object.
// Returns an error if any variable is present but invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// Optional: PORT (defaults to 3000)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = defaultPort
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = os.Getenv("GO_ENV")
	if cfg.GoEnv == "" {
		cfg.GoEnv = "production"
	}

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}
