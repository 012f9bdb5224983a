package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/blockberries/chainbridge/archive"
	"github.com/blockberries/chainbridge/config"
	"github.com/blockberries/chainbridge/logging"
	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/rpc/jsonrpc"
	"github.com/blockberries/chainbridge/tracing/otel"
	"github.com/blockberries/chainbridge/transport"
)

// createLogger creates a logger based on configuration. The returned
// function closes the log file, if any.
func createLogger(cfg config.LoggingConfig) (*logging.Logger, func() error, error) {
	// Parse log level
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	// Determine output
	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	// Create logger based on format
	switch strings.ToLower(cfg.Format) {
	case "json":
		return logging.NewJSONLogger(w, level), closeFn, nil
	default:
		return logging.NewTextLogger(w, level), closeFn, nil
	}
}

// createMetrics returns Prometheus metrics when enabled and no-op metrics
// otherwise.
func createMetrics(cfg config.MetricsConfig) metrics.Metrics {
	if !cfg.Enabled {
		return metrics.NewNopMetrics()
	}
	return metrics.NewPrometheusMetrics(cfg.Namespace)
}

// setupTracing installs the tracer provider described by cfg.
func setupTracing(cfg config.TracingConfig) (trace.Tracer, func(context.Context) error, error) {
	return otel.Setup(otel.ProviderConfig{
		Enabled:        cfg.Enabled,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		Exporter:       cfg.Exporter,
		Endpoint:       cfg.Endpoint,
		SampleRate:     cfg.SampleRate,
		Insecure:       cfg.Insecure,
	})
}

// openTransport opens the backend described by cfg.
func openTransport(cfg config.TransportConfig) (transport.Transport, error) {
	if cfg.Kind == config.TransportJSONRPC {
		return jsonrpc.NewClient(clientConfig(cfg))
	}
	return openArchive(cfg)
}

// openArchive opens the local archive described by cfg.
func openArchive(cfg config.TransportConfig) (archive.Store, error) {
	if !cfg.Kind.IsArchive() {
		return nil, fmt.Errorf("transport kind %q is not an archive", cfg.Kind)
	}
	return archive.Open(string(cfg.Kind), cfg.Path)
}

func clientConfig(cfg config.TransportConfig) jsonrpc.ClientConfig {
	return jsonrpc.ClientConfig{
		Endpoint:       cfg.Endpoint,
		RequestTimeout: cfg.RequestTimeout.Duration(),
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		APIKey:         cfg.APIKey,
	}
}

func serverConfig(cfg config.ServerConfig) jsonrpc.ServerConfig {
	return jsonrpc.ServerConfig{
		ListenAddr:   cfg.ListenAddr,
		MaxBodyBytes: cfg.MaxBodyBytes,
		MaxBatchSize: cfg.MaxBatchSize,
		ReadTimeout:  cfg.ReadTimeout.Duration(),
		WriteTimeout: cfg.WriteTimeout.Duration(),
		Auth: jsonrpc.AuthConfig{
			Enabled:       len(cfg.APIKeys) > 0,
			APIKeys:       cfg.APIKeys,
			PublicMethods: []string{jsonrpc.MethodHealth},
		},
		RateLimit: jsonrpc.RateLimitConfig{
			Enabled:       cfg.RateLimit.Enabled,
			GlobalRate:    cfg.RateLimit.GlobalRate,
			PerClientRate: cfg.RateLimit.PerClientRate,
			Burst:         cfg.RateLimit.Burst,
			ExemptMethods: []string{jsonrpc.MethodHealth},
			ExemptClients: cfg.RateLimit.ExemptClients,
		},
	}
}
