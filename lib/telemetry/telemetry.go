package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fastestcars/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultMetricInterval = 15 * time.Second

// Telemetry holds the providers installed by Setup. A nil provider means that
// signal is not exported and the global otel provider for it is a no-op.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	var errlist []error
	if t.TracerProvider != nil {
		errlist = append(errlist, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errlist = append(errlist, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errlist...)
}

// ExportConfig points one signal at an otlp collector.
type ExportConfig struct {
	// Protocol is "http" (the default) or "grpc".
	Protocol string            `json:"protocol"`
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers"`
}

func (c ExportConfig) protocol() (string, error) {
	switch c.Protocol {
	case "", "http":
		return "http", nil
	case "grpc":
		return "grpc", nil
	default:
		return "", fmt.Errorf("unknown otlp protocol %q", c.Protocol)
	}
}

// Config is the contents of telemetry.json5, for example:
//
//	{
//	  traces: { endpoint: "http://localhost:4318" },
//	  metrics: { protocol: "grpc", endpoint: "http://localhost:4317" },
//	}
type Config struct {
	// Traces and Metrics are left unexported when omitted.
	Traces                *ExportConfig `json:"traces"`
	Metrics               *ExportConfig `json:"metrics"`
	MetricIntervalSeconds int           `json:"metric_interval_seconds"`
}

// SetupFromEnv looks for telemetry.json5 in the cwd and its parents and
// passes it to Setup. Without one nothing is exported.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no telemetry.json5 found, telemetry export disabled")
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

// Setup creates a provider for every configured signal and installs it as
// the global otel provider. Nothing is installed when an exporter fails.
func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Telemetry{}, err
	}

	var tel Telemetry
	if config.Traces != nil {
		exporter, err := spanExporter(ctx, *config.Traces)
		if err != nil {
			return Telemetry{}, fmt.Errorf("traces: %w", err)
		}
		tel.TracerProvider = trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(r),
		)
	}
	if config.Metrics != nil {
		exporter, err := metricExporter(ctx, *config.Metrics)
		if err != nil {
			return Telemetry{}, errors.Join(fmt.Errorf("metrics: %w", err), tel.Shutdown(ctx))
		}
		interval := defaultMetricInterval
		if config.MetricIntervalSeconds > 0 {
			interval = time.Duration(config.MetricIntervalSeconds) * time.Second
		}
		tel.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
			metric.WithResource(r),
		)
	}

	if tel.TracerProvider != nil {
		otel.SetTracerProvider(tel.TracerProvider)
	}
	if tel.MeterProvider != nil {
		otel.SetMeterProvider(tel.MeterProvider)
	}
	return tel, nil
}

func spanExporter(ctx context.Context, c ExportConfig) (trace.SpanExporter, error) {
	protocol, err := c.protocol()
	if err != nil {
		return nil, err
	}
	slog.Info("exporting traces", "protocol", protocol, "endpoint", c.Endpoint)

	if protocol == "grpc" {
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(c.Endpoint), otlptracegrpc.WithHeaders(c.Headers))
	}
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(c.Endpoint), otlptracehttp.WithHeaders(c.Headers))
}

func metricExporter(ctx context.Context, c ExportConfig) (metric.Exporter, error) {
	protocol, err := c.protocol()
	if err != nil {
		return nil, err
	}
	slog.Info("exporting metrics", "protocol", protocol, "endpoint", c.Endpoint)

	if protocol == "grpc" {
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(c.Endpoint), otlpmetricgrpc.WithHeaders(c.Headers))
	}
	return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(c.Endpoint), otlpmetrichttp.WithHeaders(c.Headers))
}
