package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenroute/greenroute/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "greenroute-api", cfg.Service)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Sensor.CacheTTL)
	assert.Equal(t, 10.0, cfg.Sensor.DefaultRadiusKm)
	assert.Equal(t, 3, cfg.Worker.Concurrency)
	assert.False(t, cfg.Observability.TracingEnabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("SENSOR_CACHE_TTL", "1m")
	t.Setenv("SENSOR_FEED_API_KEY", "key-123")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Sensor.CacheTTL)
	assert.Equal(t, "key-123", cfg.Sensor.APIKey)
}

func TestLoad_RejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := config.Load()
	assert.ErrorContains(t, err, "validation failed")
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := config.Load()
	assert.ErrorContains(t, err, "validation failed")
}
