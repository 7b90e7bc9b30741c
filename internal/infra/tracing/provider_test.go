package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/OussamaEt-taghy/soficosmos/internal/config"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.FromEnv()
	cfg.TraceExporter = config.TraceExporterStdout
	cfg.TraceSampleRatio = 1

	tp, err := NewProvider(cfg, &buf)
	require.NoError(t, err)
	_, span := tp.Tracer("test").Start(context.Background(), "tenancy.AcquireConnection")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	require.Contains(t, buf.String(), "tenancy.AcquireConnection")
	require.Contains(t, buf.String(), "cosmos")
}

func TestNoneExporterStillSamples(t *testing.T) {
	cfg := config.FromEnv()
	cfg.TraceExporter = config.TraceExporterNone
	cfg.TraceSampleRatio = 1

	tp, err := NewProvider(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	require.True(t, span.SpanContext().IsSampled())
}

func TestUnknownExporter(t *testing.T) {
	cfg := config.FromEnv()
	cfg.TraceExporter = "zipkin"
	_, err := NewProvider(cfg, nil)
	require.ErrorContains(t, err, "zipkin")
}

func TestInstallSetsGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tp, err := NewProvider(config.FromEnv(), nil)
	require.NoError(t, err)
	shutdown := Install(tp)
	require.Same(t, tp, otel.GetTracerProvider())
	require.NoError(t, shutdown(context.Background()))
}
