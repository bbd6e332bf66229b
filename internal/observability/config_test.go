package observability

import (
	"testing"
	"time"

	"github.com/AdrianPopi/acont/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigNormalizes(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: "production",
		AppVersion:  " 1.2.0 ",
		Observability: config.ObservabilityConfig{
			LogLevel:           "TRACE",
			LogFormat:          "Console",
			OtelEnabled:        true,
			OtelEndpoint:       "collector:4318",
			OtelProtocol:       "http/protobuf",
			OtelSamplingRatio:  3,
			SQLLogLevel:        "verbose",
			SlowQueryThreshold: time.Second,
		},
	})

	assert.Equal(t, "acont", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.Equal(t, "warn", cfg.SQLLogLevel)
	assert.Equal(t, time.Second, cfg.SlowQueryThreshold)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigDisablesExportWithoutEndpoint(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:   "local",
		Observability: config.ObservabilityConfig{OtelEnabled: true, LogLevel: "warn"},
	})

	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.True(t, cfg.Debug())
}
