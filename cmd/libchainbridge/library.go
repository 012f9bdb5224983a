package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blockberries/chainbridge/bridge"
	"github.com/blockberries/chainbridge/config"
	"github.com/blockberries/chainbridge/logging"
	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/rpc/jsonrpc"
	"github.com/blockberries/chainbridge/tracing/otel"
	"github.com/blockberries/chainbridge/transport"
)

// configEnv names the TOML file the library reads its settings from.
const configEnv = "CHAINBRIDGE_CONFIG"

const destroyTimeout = 30 * time.Second

// poster hands an encoded outcome to the host.
type poster func(port int64, status int32, outcome string)

// library is the process-wide state behind the exported functions.
type library struct {
	cfg     *config.Config
	bridge  *bridge.Bridge
	logger  *logging.Logger
	metrics metrics.Metrics
	tracer  trace.Tracer

	mu   sync.RWMutex
	post poster
}

var instance = sync.OnceValue(func() *library {
	return newLibrary(loadConfig(), nil)
})

// loadConfig reads the file named by configEnv, falling back to the
// defaults when it is unset or unusable.
func loadConfig() *config.Config {
	path := os.Getenv(configEnv)
	if path == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logging.NewProductionLogger().Warn("using default configuration",
			logging.Component("libchainbridge"),
			logging.Error(err))
		return config.DefaultConfig()
	}
	return cfg
}

// newLibrary builds the library state from cfg. A nil logger is created
// from cfg.
func newLibrary(cfg *config.Config, logger *logging.Logger) *library {
	if logger == nil {
		logger = createLogger(cfg.Logging)
	}
	logger = logger.WithComponent("libchainbridge")

	l := &library{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewNopMetrics(),
		tracer:  otel.NopTracer(),
	}

	if cfg.Metrics.Enabled {
		pm := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
		l.metrics = pm
		go l.serveMetrics(pm.HTTPHandler())
	}

	tracer, _, err := otel.Setup(otel.ProviderConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		logger.Warn("tracing disabled", logging.Error(err))
	} else {
		l.tracer = tracer
	}

	b, err := bridge.New(
		bridge.WithLogger(logger),
		bridge.WithMetrics(l.metrics),
		bridge.WithTracer(l.tracer),
		bridge.WithCallTimeout(cfg.Bridge.CallTimeout.Duration()),
		bridge.WithTxCacheSize(cfg.Bridge.TxCacheSize),
		bridge.WithReceiver(l.deliver),
	)
	if err != nil {
		logger.Warn("invalid bridge settings, using defaults", logging.Error(err))
		b, _ = bridge.New(
			bridge.WithLogger(logger),
			bridge.WithMetrics(l.metrics),
			bridge.WithTracer(l.tracer),
			bridge.WithReceiver(l.deliver),
		)
	}
	l.bridge = b
	return l
}

func (l *library) serveMetrics(h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              l.cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("metrics server failed", logging.Error(err))
	}
}

func (l *library) setPoster(p poster) {
	l.mu.Lock()
	l.post = p
	l.mu.Unlock()
}

// deliver encodes o and posts it to the host. Outcomes produced while no
// callback is registered are dropped.
func (l *library) deliver(port int64, o bridge.Outcome) {
	l.mu.RLock()
	post := l.post
	l.mu.RUnlock()

	if post == nil {
		l.metrics.IncUndelivered()
		l.logger.Warn("no post callback, dropping outcome",
			logging.Port(port),
			logging.Status(o.Status.String()))
		return
	}

	encoded, err := o.Encode()
	if err != nil {
		o = bridge.Failed(fmt.Errorf("encoding outcome: %w", err))
		encoded, _ = o.Encode()
	}
	post(port, int32(o.Status), encoded)
}

// createJSONRPCTransport registers a JSON-RPC client for endpoint. The
// client uses the timeouts and rate limit of the transport configuration.
func (l *library) createJSONRPCTransport(endpoint string) (bridge.HandleID, error) {
	client, err := jsonrpc.NewClient(jsonrpc.ClientConfig{
		Endpoint:       endpoint,
		RequestTimeout: l.cfg.Transport.RequestTimeout.Duration(),
		RateLimit:      l.cfg.Transport.RateLimit,
		RateBurst:      l.cfg.Transport.RateBurst,
		APIKey:         l.cfg.Transport.APIKey,
	})
	if err != nil {
		return 0, bridge.HandleError(err, bridge.StatusInvalidInput)
	}

	h, err := l.bridge.CreateTransport(transport.Instrument(client, l.metrics, l.tracer, l.logger))
	if err != nil {
		_ = client.Close()
		return 0, err
	}
	l.logger.Info("transport created", logging.Handle(uint64(h)), logging.Endpoint(endpoint))
	return h, nil
}

// destroyTransport removes handle, waiting for its running call, if any.
func (l *library) destroyTransport(handle bridge.HandleID) error {
	ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
	defer cancel()
	return l.bridge.DestroyTransport(ctx, handle)
}
