package observability

import (
	"strings"
	"time"

	"github.com/AdrianPopi/acont/internal/config"
)

// Config is the normalized observability view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	SQLLogLevel        string
	SlowQueryThreshold time.Duration
}

func LoadConfig(cfg config.Config) Config {
	obs := cfg.Observability

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "acont"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             oneOf(obs.LogLevel, "info", "debug", "info", "warn", "error"),
		LogFormat:            oneOf(obs.LogFormat, "json", "json", "console"),
		OtelEnabled:          obs.OtelEnabled && strings.TrimSpace(obs.OtelEndpoint) != "",
		OtelExporterEndpoint: strings.TrimSpace(obs.OtelEndpoint),
		OtelExporterProtocol: exporterProtocol(obs.OtelProtocol),
		OtelSamplingRatio:    clampRatio(obs.OtelSamplingRatio),
		SQLLogLevel:          oneOf(obs.SQLLogLevel, "warn", "silent", "error", "warn", "info"),
		SlowQueryThreshold:   obs.SlowQueryThreshold,
	}
}

func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// oneOf returns value when it is allowed, def otherwise.
func oneOf(value, def string, allowed ...string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	return def
}

func exporterProtocol(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "http", "http/protobuf", "http/json":
		return "http"
	default:
		return "grpc"
	}
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
