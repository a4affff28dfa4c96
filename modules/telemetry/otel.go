package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc shuts down telemetry providers.
type ShutdownFunc func(ctx context.Context) error

// Init wires the OTel SDK according to Config. Call once on startup.
// When telemetry is disabled the global no-op providers stay in place and
// instrument calls throughout the service cost nothing.
func Init(parent context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		return nil, errors.New("telemetry: ServiceName is required")
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(parent, cfg.StartupTimeout)
	defer cancel()

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	var exp sdktrace.SpanExporter
	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
		exp, err = buildGRPCTraceExporter(ctx, cfg)
	} else {
		exp, err = buildHTTPTraceExporter(ctx, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: build trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(buildSampler(cfg.SamplerRatio)),
	)

	otel.SetTracerProvider(tp)

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	var mp *sdkmetric.MeterProvider
	if !cfg.DisableMetrics {
		var mexp sdkmetric.Exporter
		// Check for metrics-specific protocol first, fall back to general protocol
		metricsProtocol := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_PROTOCOL")
		if metricsProtocol == "" {
			metricsProtocol = os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")
		}

		if metricsProtocol == "grpc" {
			mexp, err = buildGRPCMetricExporter(ctx, cfg)
		} else {
			mexp, err = buildHTTPMetricExporter(ctx, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("telemetry: build metric exporter: %w", err)
		}

		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(mexp)),
			sdkmetric.WithResource(res),
		)

		otel.SetMeterProvider(mp)
	}

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: tracer provider shutdown: %w", err)
		}
		if mp != nil {
			if err := mp.Shutdown(ctx); err != nil {
				return fmt.Errorf("telemetry: meter provider shutdown: %w", err)
			}
		}
		return nil
	}, nil
}

func buildResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
	}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}
	for k, v := range cfg.ResourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}

	return resource.New(
		ctx,
		resource.WithFromEnv(),      // OTEL_RESOURCE_ATTRIBUTES, etc.
		resource.WithTelemetrySDK(), // telemetry.sdk.*
		resource.WithHost(),
		resource.WithOS(),
		resource.WithAttributes(attrs...),
	)
}

func buildGRPCTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	var opts []otlptracegrpc.Option

	ep := cfg.OTLPEndpoint
	switch {
	case strings.HasPrefix(ep, "http://"), strings.HasPrefix(ep, "https://"):
		opts = append(opts, otlptracegrpc.WithEndpointURL(ep))
	case ep != "":
		opts = append(opts, otlptracegrpc.WithEndpoint(ep)) // just host:port
	}

	// If neither OTLPEndpoint nor Insecure provided, exporter relies on OTEL_EXPORTER_OTLP_* env vars.
	return otlptracegrpc.New(ctx, opts...)
}

func buildHTTPTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{}

	if cfg.OTLPEndpoint != "" {
		ep := cfg.OTLPEndpoint

		switch {
		// Full URL: e.g. "http://otel-collector:4318/v1/traces"
		case strings.HasPrefix(ep, "http://") || strings.HasPrefix(ep, "https://"):
			opts = append(opts, otlptracehttp.WithEndpointURL(ep))

		// Host:port: e.g. "otel-collector:4318"
		default:
			opts = append(opts, otlptracehttp.WithEndpoint(ep))
		}
	}

	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	// If cfg.OTLPEndpoint is empty, exporter will rely on:
	//   OTEL_EXPORTER_OTLP_TRACES_ENDPOINT or OTEL_EXPORTER_OTLP_ENDPOINT
	return otlptracehttp.New(ctx, opts...)
}

func buildSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio <= 0:
		return sdktrace.NeverSample()
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func buildGRPCMetricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	var opts []otlpmetricgrpc.Option

	if cfg.OTLPEndpoint != "" {
		endpoint := cfg.OTLPEndpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			if cfg.Insecure {
				endpoint = "http://" + endpoint
			} else {
				endpoint = "https://" + endpoint
			}
		}
		opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
	}

	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	return otlpmetricgrpc.New(ctx, opts...)
}

func buildHTTPMetricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	opts := []otlpmetrichttp.Option{}

	// Check for metrics-specific endpoint first
	metricsEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	if metricsEndpoint == "" {
		metricsEndpoint = cfg.OTLPEndpoint
	}

	if metricsEndpoint != "" {
		switch {
		case strings.HasPrefix(metricsEndpoint, "http://") || strings.HasPrefix(metricsEndpoint, "https://"):
			opts = append(opts, otlpmetrichttp.WithEndpointURL(metricsEndpoint))
		default:
			scheme := "https"
			insecure := cfg.Insecure || os.Getenv("OTEL_EXPORTER_OTLP_METRICS_INSECURE") == "true"
			if insecure {
				scheme = "http"
			}
			base := fmt.Sprintf("%s://%s", scheme, metricsEndpoint)
			opts = append(opts, otlpmetrichttp.WithEndpoint(base))
		}
	}

	if cfg.Insecure || os.Getenv("OTEL_EXPORTER_OTLP_METRICS_INSECURE") == "true" {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	return otlpmetrichttp.New(ctx, opts...)
}
