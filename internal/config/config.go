// Package config loads service configuration from the environment following
// 12-factor conventions. Values come from the OS environment first, then a
// .env file; a missing required value fails the process at startup.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the top-level configuration for the route decision engine.
// Populated once at startup and immutable thereafter.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"greenroute-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`

	Server        ServerConfig
	Sensor        SensorConfig
	Worker        WorkerConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// SensorConfig holds sensor feed provider settings.
type SensorConfig struct {
	BaseURL         string        `envconfig:"SENSOR_FEED_URL" default:"https://api.openaq.org/v3" validate:"url"`
	APIKey          string        `envconfig:"SENSOR_FEED_API_KEY"`
	DefaultRadiusKm float64       `envconfig:"SENSOR_RADIUS_KM" default:"10"`
	Timeout         time.Duration `envconfig:"SENSOR_FEED_TIMEOUT" default:"10s"`
	CacheTTL        time.Duration `envconfig:"SENSOR_CACHE_TTL" default:"5m"`
	StaleIfErrorTTL time.Duration `envconfig:"SENSOR_STALE_TTL" default:"30m"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	ProjectID        string `envconfig:"PUBSUB_PROJECT_ID"`
	SubscriptionName string `envconfig:"PUBSUB_SUBSCRIPTION" default:"greenroute-worker-jobs"`
	Concurrency      int    `envconfig:"WORKER_CONCURRENCY" default:"3"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	OTLPEndpoint   string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	TracingEnabled bool   `envconfig:"ENABLE_TRACING" default:"false"`
}

// Load reads, parses, and validates the configuration. A .env file in the
// working directory is applied first but never overrides the OS environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
