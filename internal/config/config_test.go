package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "ENVIRONMENT", "STORE_DRIVER", "SQLITE_PATH", "DATABASE_URL", "STORE_STATE_KEY",
		"DEFAULT_CAR_RATE", "DEFAULT_MOTORCYCLE_RATE", "SHUTDOWN_TIMEOUT",
		"OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "parking.db", cfg.SQLitePath)
	assert.Equal(t, "parkingState", cfg.StateKey)
	assert.Equal(t, "2", cfg.CarRate.String())
	assert.Equal(t, "1", cfg.MotorcycleRate.String())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "parking-lot-service", cfg.OTelConfig.ServiceName)
	assert.Equal(t, "http://localhost:4318", cfg.OTelConfig.OTLPEndpoint)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DEFAULT_CAR_RATE", "3.50")
	t.Setenv("DEFAULT_MOTORCYCLE_RATE", "0")
	t.Setenv("SHUTDOWN_TIMEOUT", "30")
	t.Setenv("OTEL_SERVICE_NAME", "lot-b")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "3.5", cfg.CarRate.String())
	assert.True(t, cfg.MotorcycleRate.IsZero())
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "lot-b", cfg.OTelConfig.ServiceName)
}

func TestInvalidValuesFallBackToDefault(t *testing.T) {
	t.Setenv("DEFAULT_CAR_RATE", "not-a-number")
	t.Setenv("DEFAULT_MOTORCYCLE_RATE", "-4")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, "2", cfg.CarRate.String())
	assert.Equal(t, "1", cfg.MotorcycleRate.String())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
