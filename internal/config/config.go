// Package config loads the application configuration from a JSON file,
// fills unset values with defaults, and applies environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"chatwire/internal/constants"
	"chatwire/internal/models"
)

// LoadConfig reads the configuration at path. A missing file is not an
// error; the defaults are enough to run the server locally.
func LoadConfig(path string) (*models.Config, error) {
	config := Default()

	file, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvironmentOverrides(config)
			if err := validate(config); err != nil {
				return nil, err
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(config)
	applyEnvironmentOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns the configuration used when no file is present.
func Default() *models.Config {
	config := &models.Config{}
	applyDefaults(config)
	return config
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Delivery.CooldownMs == 0 {
		c.Delivery.CooldownMs = constants.DefaultCooldownMs
	}
	if c.Delivery.KeepaliveIntervalSec == 0 {
		c.Delivery.KeepaliveIntervalSec = constants.DefaultKeepaliveIntervalSec
	}

	if c.Upload.Dir == "" {
		c.Upload.Dir = constants.DefaultUploadDir
	}
	if c.Upload.MaxUploadSizeMB == 0 {
		c.Upload.MaxUploadSizeMB = constants.DefaultMaxUploadSizeMB
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "chatwire"
	}
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = "dev"
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = "development"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if port := os.Getenv("CHATWIRE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dir := os.Getenv("CHATWIRE_UPLOAD_DIR"); dir != "" {
		c.Upload.Dir = dir
	}
	if level := os.Getenv("CHATWIRE_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if endpoint := os.Getenv("CHATWIRE_OTLP_ENDPOINT"); endpoint != "" {
		c.Tracing.OTLPEndpoint = endpoint
		c.Tracing.Enabled = true
	}
}

func validate(c *models.Config) error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("invalid server port: %d", c.Server.Port)}
	}
	if c.Delivery.CooldownMs < 0 {
		return models.ConfigError{Message: "cooldown must not be negative"}
	}
	if c.Delivery.KeepaliveIntervalSec < 1 {
		return models.ConfigError{Message: "keepalive interval must be at least one second"}
	}
	if c.Upload.MaxUploadSizeMB < 1 {
		return models.ConfigError{Message: "max upload size must be at least 1 MB"}
	}
	return nil
}
