package otel

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()

	require.Equal(t, "chainbridge", cfg.ServiceName)
	require.Equal(t, "0.0.0", cfg.ServiceVersion)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "none", cfg.Exporter)
	require.Equal(t, 0.1, cfg.SampleRate)
}

func TestNewProvider_None(t *testing.T) {
	cfg := ProviderConfig{
		ServiceName: "test-service",
		Exporter:    "none",
		SampleRate:  1.0,
	}

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	require.NotNil(t, provider)

	// Cleanup
	err = provider.Shutdown(context.Background())
	require.NoError(t, err)
}

func TestNewProvider_Stdout(t *testing.T) {
	cfg := ProviderConfig{
		ServiceName: "test-service",
		Exporter:    "stdout",
		SampleRate:  1.0,
	}

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	require.NotNil(t, provider)

	// Cleanup
	err = provider.Shutdown(context.Background())
	require.NoError(t, err)
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	cfg := ProviderConfig{
		ServiceName: "test-service",
		Exporter:    "invalid",
	}

	_, err := NewProvider(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown exporter type")
}

func TestNewProvider_SampleRates(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
	}{
		{"never sample", 0.0},
		{"always sample", 1.0},
		{"ratio based", 0.5},
		{"negative", -1.0},
		{"over 1", 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ProviderConfig{
				ServiceName: "test-service",
				Exporter:    "none",
				SampleRate:  tt.sampleRate,
			}

			provider, err := NewProvider(cfg)
			require.NoError(t, err)
			require.NotNil(t, provider)

			err = provider.Shutdown(context.Background())
			require.NoError(t, err)
		})
	}
}

func TestSetup_Disabled(t *testing.T) {
	tracer, shutdown, err := Setup(ProviderConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	require.NotNil(t, shutdown)

	_, span := tracer.Start(context.Background(), "noop")
	require.False(t, span.IsRecording())
	span.End()

	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_Enabled(t *testing.T) {
	cfg := ProviderConfig{
		Enabled:        true,
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "testing",
		Exporter:       "none",
		SampleRate:     1.0,
	}

	tracer, shutdown, err := Setup(cfg)
	require.NoError(t, err)
	require.NotNil(t, tracer)

	ctx, span := tracer.Start(context.Background(), "test-span")
	require.True(t, span.IsRecording())
	span.SetAttributes(AttrPort.Int64(7), AttrAddress.String("0:00"))
	EndSpan(span, nil)

	require.NoError(t, shutdown(ctx))
}

func TestSetup_InvalidExporter(t *testing.T) {
	_, _, err := Setup(ProviderConfig{Enabled: true, Exporter: "zipkin"})
	require.Error(t, err)
}

func TestHTTPPropagation(t *testing.T) {
	tracer, shutdown, err := Setup(ProviderConfig{
		Enabled:     true,
		ServiceName: "test-service",
		Exporter:    "none",
		SampleRate:  1.0,
	})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := tracer.Start(context.Background(), "client")
	defer span.End()

	h := http.Header{}
	InjectHTTP(ctx, h)
	require.NotEmpty(t, h.Get("traceparent"))

	remote := trace.SpanContextFromContext(ExtractHTTP(context.Background(), h))
	require.True(t, remote.IsValid())
	require.Equal(t, span.SpanContext().TraceID(), remote.TraceID())
}

func TestEndSpan_Error(t *testing.T) {
	provider, err := NewProvider(ProviderConfig{ServiceName: "test", Exporter: "none", SampleRate: 1})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, span := provider.Tracer("test").Start(context.Background(), "failing")
	EndSpan(span, errors.New("boom"))
	require.False(t, span.IsRecording())
}
