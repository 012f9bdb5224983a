package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/blockberries/chainbridge/config"
	"github.com/blockberries/chainbridge/logging"
	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/rpc/jsonrpc"
	"github.com/blockberries/chainbridge/transport"
)

const shutdownTimeout = 10 * time.Second

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local archive over JSON-RPC",
	Long: `Serve the configured archive as a JSON-RPC backend for other bridges.

The server runs until interrupted (Ctrl+C) or it receives a termination signal.

Example:
  chainbridge serve --config config.toml
  chainbridge serve --listen :8081`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides server.listen_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.ListenAddr = serveListen
	}
	if !cfg.Transport.Kind.IsArchive() {
		return fmt.Errorf("serve needs an archive transport, have %q", cfg.Transport.Kind)
	}

	logger, closeLog, err := createLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	tracer, shutdownTracing, err := setupTracing(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("Error shutting down tracing", logging.Error(err))
		}
	}()

	m := createMetrics(cfg.Metrics)

	store, err := openArchive(cfg.Transport)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing archive", logging.Error(err))
		}
	}()

	backend := transport.Instrument(store, m, tracer, logger)
	server := jsonrpc.NewServer(backend, serverConfig(cfg.Server), m, tracer, logger)

	logger.Info("Starting chainbridge server",
		"transport", cfg.Transport.Kind,
		"path", cfg.Transport.Path,
		"version", Version,
	)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	metricsServer := startMetricsServer(cfg.Metrics, m, logger)

	<-cmd.Context().Done()
	logger.Info("Shutting down")

	var errs []error
	if err := server.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping server: %w", err))
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping metrics server: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("Error stopping server", logging.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// startMetricsServer serves Prometheus metrics when enabled.
func startMetricsServer(cfg config.MetricsConfig, m metrics.Metrics, logger *logging.Logger) *http.Server {
	handler, ok := m.Handler().(http.Handler)
	if !cfg.Enabled || !ok {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", logging.Error(err))
		}
	}()
	logger.Info("Serving metrics", "addr", cfg.ListenAddr)
	return srv
}
