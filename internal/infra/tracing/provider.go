package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/OussamaEt-taghy/soficosmos/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// NewProvider builds the tracer provider named by cfg.TraceExporter. With
// "none" spans are sampled and dropped, which keeps span context propagation
// working without an exporter.
func NewProvider(cfg config.Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	name := cfg.TraceServiceName
	if name == "" {
		name = "cosmos"
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(name))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TraceSampleRatio))),
	}
	switch cfg.TraceExporter {
	case "", config.TraceExporterNone:
	case config.TraceExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.TraceExporter)
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// Install makes tp the process-wide provider and returns its shutdown func,
// which flushes pending spans.
func Install(tp *sdktrace.TracerProvider) func(context.Context) error {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
