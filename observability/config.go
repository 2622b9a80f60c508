package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/kbukum/brokerkit/version"
)

// Config configures OTLP export for metrics and traces.
type Config struct {
	// Enabled turns on the OTLP exporters. Instruments are always created.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required_with=Enabled"`
	// Insecure allows plain HTTP to the collector.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" && c.Enabled {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// ShutdownFunc flushes and stops exporters.
type ShutdownFunc func(context.Context) error

// Setup installs the meter and tracer providers described by cfg.
// With telemetry disabled it returns a no-op shutdown.
func Setup(ctx context.Context, cfg Config, serviceName string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	mp, err := InitMeter(ctx, cfg, serviceName)
	if err != nil {
		return nil, err
	}
	tp, err := InitTracer(ctx, cfg, serviceName)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// newResource creates an OpenTelemetry resource with client metadata.
func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version.GetVersionInfo().Version),
			attribute.String("telemetry.sdk.consumer", "brokerkit"),
		),
	)
}
