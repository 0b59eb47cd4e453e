package models

// Config is the top-level application configuration, loaded from JSON with
// environment overrides applied afterwards.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Delivery DeliveryConfig `json:"delivery"`
	Upload   UploadConfig   `json:"upload"`
	Tracing  TracingConfig  `json:"tracing"`

	LogLevel     string `json:"log_level"`
	SeedMessages bool   `json:"seed_messages"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"read_timeout_sec"`
	WriteTimeoutSec int `json:"write_timeout_sec"`
	IdleTimeoutSec  int `json:"idle_timeout_sec"`
}

// DeliveryConfig controls the realtime delivery core.
type DeliveryConfig struct {
	CooldownMs           int `json:"cooldown_ms"`
	KeepaliveIntervalSec int `json:"keepalive_interval_sec"`
}

// UploadConfig controls attachment storage.
type UploadConfig struct {
	Dir             string `json:"dir"`
	MaxUploadSizeMB int    `json:"max_upload_size_mb"`
}

// TracingConfig controls the optional OpenTelemetry setup.
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
