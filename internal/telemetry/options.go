package telemetry

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type options struct {
	enabled        bool
	serviceName    string
	serviceVersion string
	endpoint       string
	sampleRatio    float64
	exporter       sdktrace.SpanExporter
}

// Option configures New.
type Option func(*options)

// WithEnabled turns span export on or off.
func WithEnabled(enabled bool) Option {
	return func(o *options) { o.enabled = enabled }
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(o *options) {
		if version != "" {
			o.serviceVersion = version
		}
	}
}

// WithEndpoint sets the OTLP HTTP collector address (host:port, scheme optional).
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithSampleRatio sets the fraction of root spans that are sampled.
func WithSampleRatio(ratio float64) Option {
	return func(o *options) {
		if ratio >= 0 && ratio <= 1 {
			o.sampleRatio = ratio
		}
	}
}

// WithExporter replaces the OTLP exporter, mostly for tests.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}
