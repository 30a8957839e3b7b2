// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling for the billing service.
package telemetry

import (
	"fmt"
	"time"

	"github.com/billforge/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceVersion is reported on every exported resource
var ServiceVersion = "dev"

const shutdownTimeout = 10 * time.Second

// Config holds telemetry configuration.
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	// MetricsInterval is the OTLP export interval (default 60s)
	MetricsInterval time.Duration
}

// ConfigFromApp maps the application telemetry settings
func ConfigFromApp(cfg config.TelemetryConfig) Config {
	return Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// MetricsError is returned when metric instruments cannot be built
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Returned when a metrics constructor receives no meter
var (
	ErrMeterNil   = &MetricsError{Op: "NewBillingMetrics", Err: "meter cannot be nil"}
	ErrDBMeterNil = &MetricsError{Op: "NewDBMetrics", Err: "meter cannot be nil"}
)
