package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// TransportKind selects the backend a transport handle talks to.
type TransportKind string

// Transport kind constants.
const (
	// TransportJSONRPC is a remote JSON-RPC 2.0 backend.
	TransportJSONRPC TransportKind = "jsonrpc"

	// TransportLevelDB is a local LevelDB archive.
	TransportLevelDB TransportKind = "leveldb"

	// TransportBadgerDB is a local BadgerDB archive.
	TransportBadgerDB TransportKind = "badgerdb"

	// TransportMemory is an in-memory archive, used for tests and demos.
	TransportMemory TransportKind = "memory"
)

// ValidTransportKinds contains all valid transport kinds.
var ValidTransportKinds = []TransportKind{TransportJSONRPC, TransportLevelDB, TransportBadgerDB, TransportMemory}

// IsValid returns true if the kind is valid.
func (k TransportKind) IsValid() bool {
	for _, valid := range ValidTransportKinds {
		if k == valid {
			return true
		}
	}
	return false
}

// IsArchive returns true for kinds backed by a local archive.
func (k TransportKind) IsArchive() bool {
	return k == TransportLevelDB || k == TransportBadgerDB || k == TransportMemory
}

// Config is the main configuration for chainbridge.
type Config struct {
	Bridge    BridgeConfig    `toml:"bridge"`
	Transport TransportConfig `toml:"transport"`
	Server    ServerConfig    `toml:"server"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Logging   LoggingConfig   `toml:"logging"`
	Tracing   TracingConfig   `toml:"tracing"`
}

// BridgeConfig contains call bridge configuration.
type BridgeConfig struct {
	// Workers is the maximum number of calls executing concurrently.
	Workers int `toml:"workers"`

	// CallTimeout bounds how long a call may wait for its handle and run
	// its query. Zero means unbounded.
	CallTimeout Duration `toml:"call_timeout"`

	// TxCacheSize is the number of decoded transactions kept in memory.
	// Zero disables the cache.
	TxCacheSize int `toml:"tx_cache_size"`
}

// TransportConfig describes the backend of the default transport handle.
type TransportConfig struct {
	// Kind is the backend type.
	Kind TransportKind `toml:"kind"`

	// Endpoint is the JSON-RPC URL (for kind "jsonrpc").
	Endpoint string `toml:"endpoint"`

	// Path is the archive directory (for kinds "leveldb" and "badgerdb").
	Path string `toml:"path"`

	// RequestTimeout bounds a single JSON-RPC request.
	RequestTimeout Duration `toml:"request_timeout"`

	// RateLimit is the maximum JSON-RPC requests per second. Zero disables
	// rate limiting.
	RateLimit float64 `toml:"rate_limit"`

	// RateBurst is the token bucket size used with RateLimit.
	RateBurst int `toml:"rate_burst"`

	// APIKey is sent as a bearer token to the JSON-RPC backend.
	APIKey string `toml:"api_key"`
}

// ServerConfig contains JSON-RPC backend server configuration.
type ServerConfig struct {
	// ListenAddr is the address to serve JSON-RPC on (e.g., ":8081").
	ListenAddr string `toml:"listen_addr"`

	// MaxBodyBytes is the maximum request body size.
	MaxBodyBytes int64 `toml:"max_body_bytes"`

	// MaxBatchSize is the maximum number of requests in a batch.
	MaxBatchSize int `toml:"max_batch_size"`

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout Duration `toml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout Duration `toml:"write_timeout"`

	// APIKeys enables authentication when not empty. The health method
	// stays public.
	APIKeys []string `toml:"api_keys"`

	// RateLimit limits requests per client IP.
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig contains JSON-RPC server rate limiting configuration.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active.
	Enabled bool `toml:"enabled"`

	// GlobalRate is the overall requests per second for all clients.
	GlobalRate float64 `toml:"global_rate"`

	// PerClientRate is the requests per second per client IP.
	PerClientRate float64 `toml:"per_client_rate"`

	// Burst is the maximum burst size allowed per client.
	Burst int `toml:"burst"`

	// ExemptClients are client IPs that bypass rate limiting.
	ExemptClients []string `toml:"exempt_clients"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled determines whether metrics collection is active.
	Enabled bool `toml:"enabled"`

	// Namespace is the Prometheus metrics namespace prefix.
	Namespace string `toml:"namespace"`

	// ListenAddr is the address to serve metrics on (e.g., ":9090").
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `toml:"level"`

	// Format is the log output format ("text" or "json").
	Format string `toml:"format"`

	// Output is the log output destination ("stdout", "stderr", or a file path).
	Output string `toml:"output"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled determines whether spans are recorded.
	Enabled bool `toml:"enabled"`

	// ServiceName is the service name attached to spans.
	ServiceName string `toml:"service_name"`

	// Environment is the deployment environment.
	Environment string `toml:"environment"`

	// Exporter is the span exporter ("none", "stdout" or "otlp-http").
	Exporter string `toml:"exporter"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `toml:"endpoint"`

	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64 `toml:"sample_rate"`

	// Insecure disables TLS towards the collector.
	Insecure bool `toml:"insecure"`
}

// Duration is a wrapper around time.Duration for TOML unmarshaling.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Workers:     64,
			CallTimeout: Duration(30 * time.Second),
			TxCacheSize: 4096,
		},
		Transport: TransportConfig{
			Kind:           TransportJSONRPC,
			Endpoint:       "http://127.0.0.1:8081",
			Path:           "data/archive",
			RequestTimeout: Duration(10 * time.Second),
			RateLimit:      50,
			RateBurst:      10,
		},
		Server: ServerConfig{
			ListenAddr:   ":8081",
			MaxBodyBytes: 1 << 20, // 1MB
			MaxBatchSize: 32,
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			RateLimit: RateLimitConfig{
				Enabled:       false,
				GlobalRate:    1000,
				PerClientRate: 100,
				Burst:         50,
			},
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			Namespace:  "chainbridge",
			ListenAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "chainbridge",
			Environment: "development",
			Exporter:    "none",
			Endpoint:    "localhost:4318",
			SampleRate:  0.1,
			Insecure:    true,
		},
	}
}

// LoadConfig loads configuration from a TOML file.
// Missing values are filled with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validation errors.
var (
	ErrInvalidWorkers          = errors.New("bridge workers must be positive")
	ErrInvalidCallTimeout      = errors.New("bridge call_timeout must be non-negative")
	ErrInvalidTxCacheSize      = errors.New("bridge tx_cache_size must be non-negative")
	ErrInvalidTransportKind    = errors.New("transport kind must be one of: jsonrpc, leveldb, badgerdb, memory")
	ErrEmptyEndpoint           = errors.New("transport endpoint cannot be empty for jsonrpc")
	ErrEmptyArchivePath        = errors.New("transport path cannot be empty for on-disk archives")
	ErrInvalidRequestTimeout   = errors.New("transport request_timeout must be positive")
	ErrInvalidRateLimit        = errors.New("transport rate_limit must be non-negative")
	ErrInvalidRateBurst        = errors.New("transport rate_burst must be positive when rate_limit is set")
	ErrEmptyServerListenAddr   = errors.New("server listen_addr cannot be empty")
	ErrInvalidMaxBodyBytes     = errors.New("server max_body_bytes must be positive")
	ErrInvalidMaxBatchSize     = errors.New("server max_batch_size must be positive")
	ErrInvalidServerTimeout    = errors.New("server read_timeout and write_timeout must be positive")
	ErrEmptyAPIKey             = errors.New("server api_keys cannot contain empty keys")
	ErrInvalidServerRateLimit  = errors.New("server rate_limit rates and burst must be positive when enabled")
	ErrEmptyMetricsNamespace   = errors.New("metrics namespace cannot be empty when enabled")
	ErrEmptyMetricsListenAddr  = errors.New("metrics listen_addr cannot be empty when enabled")
	ErrInvalidLogLevel         = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat        = errors.New("log format must be 'text' or 'json'")
	ErrEmptyLogOutput          = errors.New("log output cannot be empty")
	ErrInvalidTracingExporter  = errors.New("tracing exporter must be one of: none, stdout, otlp-http")
	ErrInvalidSampleRate       = errors.New("tracing sample_rate must be between 0 and 1")
	ErrEmptyTracingServiceName = errors.New("tracing service_name cannot be empty when enabled")
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Bridge.Validate(); err != nil {
		return fmt.Errorf("bridge config: %w", err)
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing config: %w", err)
	}
	return nil
}

// Validate checks the bridge configuration for errors.
func (c *BridgeConfig) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.CallTimeout.Duration() < 0 {
		return ErrInvalidCallTimeout
	}
	if c.TxCacheSize < 0 {
		return ErrInvalidTxCacheSize
	}
	return nil
}

// Validate checks the transport configuration for errors.
func (c *TransportConfig) Validate() error {
	if !c.Kind.IsValid() {
		return ErrInvalidTransportKind
	}
	switch c.Kind {
	case TransportJSONRPC:
		if c.Endpoint == "" {
			return ErrEmptyEndpoint
		}
		if c.RequestTimeout.Duration() <= 0 {
			return ErrInvalidRequestTimeout
		}
		if c.RateLimit < 0 {
			return ErrInvalidRateLimit
		}
		if c.RateLimit > 0 && c.RateBurst <= 0 {
			return ErrInvalidRateBurst
		}
	case TransportLevelDB, TransportBadgerDB:
		if c.Path == "" {
			return ErrEmptyArchivePath
		}
	}
	return nil
}

// Validate checks the server configuration for errors.
func (c *ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return ErrEmptyServerListenAddr
	}
	if c.MaxBodyBytes <= 0 {
		return ErrInvalidMaxBodyBytes
	}
	if c.MaxBatchSize <= 0 {
		return ErrInvalidMaxBatchSize
	}
	if c.ReadTimeout.Duration() <= 0 || c.WriteTimeout.Duration() <= 0 {
		return ErrInvalidServerTimeout
	}
	for _, key := range c.APIKeys {
		if key == "" {
			return ErrEmptyAPIKey
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.GlobalRate <= 0 || c.RateLimit.PerClientRate <= 0 || c.RateLimit.Burst <= 0) {
		return ErrInvalidServerRateLimit
	}
	return nil
}

// Validate checks the metrics configuration for errors.
func (c *MetricsConfig) Validate() error {
	if c.Enabled {
		if c.Namespace == "" {
			return ErrEmptyMetricsNamespace
		}
		if c.ListenAddr == "" {
			return ErrEmptyMetricsListenAddr
		}
	}
	return nil
}

// Validate checks the logging configuration for errors.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return ErrInvalidLogLevel
	}

	switch c.Format {
	case "text", "json":
		// Valid formats
	default:
		return ErrInvalidLogFormat
	}

	if c.Output == "" {
		return ErrEmptyLogOutput
	}

	return nil
}

// Validate checks the tracing configuration for errors.
func (c *TracingConfig) Validate() error {
	switch c.Exporter {
	case "none", "", "stdout", "otlp-http":
	default:
		return ErrInvalidTracingExporter
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	if c.Enabled && c.ServiceName == "" {
		return ErrEmptyTracingServiceName
	}
	return nil
}

// WriteConfigFile writes the configuration to a TOML file.
func WriteConfigFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}

// EnsureDataDirs creates the archive directory when the transport uses an
// on-disk archive.
func (c *Config) EnsureDataDirs() error {
	if c.Transport.Kind != TransportLevelDB && c.Transport.Kind != TransportBadgerDB {
		return nil
	}
	dir := c.Transport.Path
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
