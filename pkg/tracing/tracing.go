// Package tracing installs the global OpenTelemetry tracer provider. All
// services obtain tracers through otel.Tracer, so this is the single place
// where export and sampling are decided.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config contains configuration for OpenTelemetry tracing
type Config struct {
	ServiceName    string `yaml:"service_name" env:"SERVICE_NAME" default:"adpulse"`
	ServiceVersion string `yaml:"service_version" env:"SERVICE_VERSION" default:"1.0.0"`
	Environment    string `yaml:"environment" env:"ENVIRONMENT" default:"development"`

	Enabled    bool    `yaml:"enabled" env:"TRACING_ENABLED" default:"false"`
	SampleRate float64 `yaml:"sample_rate" env:"TRACING_SAMPLE_RATE" default:"1.0"`

	// OTLP HTTP endpoint, host:port without scheme.
	Endpoint      string        `yaml:"endpoint" env:"TRACING_ENDPOINT" default:"localhost:4318"`
	Insecure      bool          `yaml:"insecure" env:"TRACING_INSECURE" default:"true"`
	ExportTimeout time.Duration `yaml:"export_timeout" env:"TRACING_EXPORT_TIMEOUT" default:"10s"`
}

// GetDefaultConfig returns the tracing defaults.
func GetDefaultConfig() *Config {
	return &Config{
		ServiceName:    "adpulse",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Enabled:        false,
		SampleRate:     1.0,
		Endpoint:       "localhost:4318",
		Insecure:       true,
		ExportTimeout:  10 * time.Second,
	}
}

// Init installs the global tracer provider and returns a shutdown func.
// When tracing is disabled the returned shutdown is a no-op and spans stay
// no-op recorders.
func Init(ctx context.Context, config *Config) (func(context.Context) error, error) {
	if config == nil {
		config = GetDefaultConfig()
	}
	if !config.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.Endpoint),
		otlptracehttp.WithTimeout(config.ExportTimeout),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		semconv.DeploymentEnvironment(config.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Shutdown, nil
}
