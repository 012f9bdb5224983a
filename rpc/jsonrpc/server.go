package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/logging"
	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/tracing/otel"
	"github.com/blockberries/chainbridge/transport"
	"github.com/blockberries/chainbridge/types"
)

// ServerConfig contains JSON-RPC server settings.
type ServerConfig struct {
	ListenAddr   string
	MaxBodyBytes int64
	MaxBatchSize int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Auth         AuthConfig
	RateLimit    RateLimitConfig
}

// DefaultServerConfig returns the default server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:   ":8081",
		MaxBodyBytes: 1 << 20,
		MaxBatchSize: 32,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		Auth:         DefaultAuthConfig(),
		RateLimit:    DefaultRateLimitConfig(),
	}
}

// Server is a JSON-RPC 2.0 server that answers queries from a backend
// transport, usually a local archive.
type Server struct {
	backend transport.Transport
	config  ServerConfig
	metrics metrics.Metrics
	tracer  trace.Tracer
	logger  *logging.Logger
	auth    *Authenticator
	limiter *RateLimiter

	httpServer *http.Server
	listener   net.Listener

	methods map[string]MethodHandler
	running atomic.Bool
	mu      sync.RWMutex
}

// MethodHandler handles a specific RPC method.
type MethodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// NewServer creates a new JSON-RPC server. Nil collaborators are replaced by
// no-op ones.
func NewServer(backend transport.Transport, config ServerConfig, m metrics.Metrics, tracer trace.Tracer, logger *logging.Logger) *Server {
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	if tracer == nil {
		tracer = otel.NopTracer()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Server{
		backend: backend,
		config:  config,
		metrics: m,
		tracer:  tracer,
		logger:  logger.WithComponent("jsonrpc"),
		auth:    NewAuthenticator(config.Auth),
		limiter: NewRateLimiter(config.RateLimit),
		methods: make(map[string]MethodHandler),
	}
	s.registerMethods()
	return s
}

// registerMethods registers all RPC methods.
func (s *Server) registerMethods() {
	s.methods[MethodHealth] = s.handleHealth
	s.methods[MethodGetContractState] = s.handleGetContractState
	s.methods[MethodGetTransactions] = s.handleGetTransactions
}

// Handler returns the HTTP handler serving JSON-RPC requests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)
	return mux
}

// Start starts the JSON-RPC server.
func (s *Server) Start() error {
	if s.running.Swap(true) {
		return nil // Already running
	}

	addr := strings.TrimPrefix(s.config.ListenAddr, "tcp://")

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.mu.Unlock()

	s.logger.Info("JSON-RPC server listening", logging.Endpoint(listener.Addr().String()))

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("JSON-RPC server stopped", logging.Error(err))
		}
	}()

	return nil
}

// Stop stops the JSON-RPC server.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil // Already stopped
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.RLock()
	httpServer := s.httpServer
	s.mu.RUnlock()

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Addr returns the listening address, or nil if the server is not started.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handleHTTP handles HTTP requests.
func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := otel.ExtractHTTP(r.Context(), r.Header)
	ctx = withAuthInfo(ctx, s.auth.authenticateHTTP(r))
	ctx = withClientIP(ctx, clientIP(r))

	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodyBytes))
	if err != nil {
		s.writeError(w, nil, ErrParseError)
		return
	}

	// Check if batch request
	if len(body) > 0 && body[0] == '[' {
		s.handleBatch(ctx, w, body)
		return
	}

	// Single request
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, nil, ErrParseError)
		return
	}

	resp := s.processRequest(ctx, &req)
	s.writeResponse(w, resp)
}

// handleBatch handles batch requests.
func (s *Server) handleBatch(ctx context.Context, w http.ResponseWriter, body []byte) {
	var batch BatchRequest
	if err := json.Unmarshal(body, &batch); err != nil {
		s.writeError(w, nil, ErrParseError)
		return
	}

	if len(batch) == 0 {
		s.writeError(w, nil, ErrInvalidRequest)
		return
	}
	if s.config.MaxBatchSize > 0 && len(batch) > s.config.MaxBatchSize {
		s.writeError(w, nil, NewErrorWithData(CodeInvalidRequest, "batch too large", s.config.MaxBatchSize))
		return
	}

	responses := make(BatchResponse, len(batch))
	for i := range batch {
		responses[i] = *s.processRequest(ctx, &batch[i])
	}

	data, _ := json.Marshal(responses)
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// processRequest processes a single JSON-RPC request.
func (s *Server) processRequest(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != Version {
		s.metrics.IncRPCRequests(req.Method, metrics.ResultFailure)
		return NewErrorResponse(req.ID, ErrInvalidRequest)
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		s.metrics.IncRPCRequests(req.Method, metrics.ResultFailure)
		return NewErrorResponse(req.ID, ErrMethodNotFound)
	}

	if err := s.auth.authorize(ctx, req.Method); err != nil {
		s.metrics.IncRPCRequests(req.Method, metrics.ResultFailure)
		return NewErrorResponse(req.ID, ErrUnauthorized)
	}
	if rpcErr := s.limiter.checkLimit(ctx, req.Method); rpcErr != nil {
		s.metrics.IncRPCRequests(req.Method, metrics.ResultFailure)
		return NewErrorResponse(req.ID, rpcErr)
	}

	ctx, span := s.tracer.Start(ctx, "jsonrpc."+req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(otel.AttrMethod.String(req.Method)))

	start := time.Now()
	result, err := handler(ctx, req.Params)
	otel.EndSpan(span, err)

	s.logger.Debug("request",
		logging.Method(req.Method),
		logging.Duration(time.Since(start)),
		logging.Error(err))

	if err != nil {
		s.metrics.IncRPCRequests(req.Method, metrics.ResultFailure)
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			return NewErrorResponse(req.ID, rpcErr)
		}
		return NewErrorResponse(req.ID, NewErrorWithData(CodeBackendError, err.Error(), nil))
	}

	resp, err := NewResponse(req.ID, result)
	if err != nil {
		s.metrics.IncRPCRequests(req.Method, metrics.ResultFailure)
		return NewErrorResponse(req.ID, ErrInternalError)
	}
	s.metrics.IncRPCRequests(req.Method, metrics.ResultSuccess)
	return resp
}

// writeResponse writes a JSON-RPC response.
func (s *Server) writeResponse(w http.ResponseWriter, resp *Response) {
	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// writeError writes a JSON-RPC error response.
func (s *Server) writeError(w http.ResponseWriter, id any, err *Error) {
	s.writeResponse(w, NewErrorResponse(id, err))
}

// Method handlers

func (s *Server) handleHealth(ctx context.Context, params json.RawMessage) (any, error) {
	return &HealthResult{Status: "ok"}, nil
}

func (s *Server) handleGetContractState(ctx context.Context, params json.RawMessage) (any, error) {
	var p GetContractStateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, ErrInvalidParams
	}

	addr, err := types.ParseAddress(p.Address)
	if err != nil {
		return nil, NewErrorWithData(CodeInvalidParams, "invalid address", err.Error())
	}

	state, err := s.backend.GetContractState(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !state.Exists {
		return &ContractStateResult{}, nil
	}

	data, err := boc.EncodeContract(state.Contract)
	if err != nil {
		return nil, NewErrorWithData(CodeInternalError, "encoding contract", err.Error())
	}
	return &ContractStateResult{Exists: true, Boc: boc.ToBase64(data)}, nil
}

func (s *Server) handleGetTransactions(ctx context.Context, params json.RawMessage) (any, error) {
	var p GetTransactionsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, ErrInvalidParams
	}

	addr, err := types.ParseAddress(p.Address)
	if err != nil {
		return nil, NewErrorWithData(CodeInvalidParams, "invalid address", err.Error())
	}

	from := types.TransactionID{LT: types.MaxLT}
	if p.From != nil {
		from = *p.From
	}

	txs, err := s.backend.GetTransactions(ctx, addr, from, p.Count)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []types.RawTransaction{}
	}
	return &TransactionsResult{Transactions: txs}, nil
}
