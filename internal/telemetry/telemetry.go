// Package telemetry sets up OpenTelemetry tracing for the garage service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope of every span the service starts.
const TracerName = "github.com/okian/garage"

// ErrExporter wraps failures to build the span exporter.
var ErrExporter = errors.New("telemetry exporter")

// Provider owns the tracer provider and hands out the service tracer.
type Provider struct {
	tp     *sdktrace.TracerProvider // nil when tracing is disabled
	tracer trace.Tracer
}

// New builds a Provider. With tracing disabled it returns a no-op tracer and
// leaves the global provider untouched.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	o := options{
		serviceName:    "garage",
		serviceVersion: "dev",
		endpoint:       "localhost:4318",
		sampleRatio:    1,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !o.enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(TracerName)}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(o.serviceName),
			semconv.ServiceVersion(o.serviceVersion),
		),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	exporter := o.exporter
	if exporter == nil {
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(trimScheme(o.endpoint)),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExporter, err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.sampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp, tracer: tp.Tracer(TracerName)}, nil
}

// Tracer returns the service tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.tp != nil
}

// ForceFlush exports any buffered spans.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.ForceFlush(ctx)
}

// Shutdown flushes and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func trimScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return strings.TrimPrefix(endpoint, "https://")
}
