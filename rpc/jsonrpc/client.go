package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/tracing/otel"
	"github.com/blockberries/chainbridge/transport"
	"github.com/blockberries/chainbridge/types"
)

// ClientConfig contains JSON-RPC client settings.
type ClientConfig struct {
	// Endpoint is the server URL.
	Endpoint string

	// RequestTimeout bounds a single request. Zero means no timeout beyond
	// the caller's context.
	RequestTimeout time.Duration

	// RateLimit is the maximum requests per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the token bucket size used with RateLimit.
	RateBurst int

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// ErrInvalidEndpoint is returned by NewClient for unusable endpoints.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// Client is a transport.Transport that queries a JSON-RPC server.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter

	nextID atomic.Uint64
	closed atomic.Bool
}

// NewClient creates a client for cfg.Endpoint.
func NewClient(cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}

	c := &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return c, nil
}

// Endpoint returns the server URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	var res HealthResult
	if err := c.call(ctx, MethodHealth, nil, &res); err != nil {
		return err
	}
	if res.Status != "ok" {
		return fmt.Errorf("%w: health status %q", transport.ErrUnavailable, res.Status)
	}
	return nil
}

// GetContractState implements transport.Transport.
func (c *Client) GetContractState(ctx context.Context, addr types.Address) (types.RawContractState, error) {
	var res ContractStateResult
	params := GetContractStateParams{Address: addr.String()}
	if err := c.call(ctx, MethodGetContractState, params, &res); err != nil {
		return types.RawContractState{}, err
	}
	if !res.Exists {
		return types.ContractNotExists(), nil
	}

	data, err := boc.FromBase64(res.Boc)
	if err != nil {
		return types.RawContractState{}, fmt.Errorf("%w: contract %s: %w", transport.ErrBackend, addr, err)
	}
	contract, err := boc.DecodeContract(data)
	if err != nil {
		return types.RawContractState{}, fmt.Errorf("%w: contract %s: %w", transport.ErrBackend, addr, err)
	}
	return types.ContractExists(contract), nil
}

// GetTransactions implements transport.Transport.
func (c *Client) GetTransactions(ctx context.Context, addr types.Address, from types.TransactionID, count uint8) ([]types.RawTransaction, error) {
	params := GetTransactionsParams{
		Address: addr.String(),
		From:    &from,
		Count:   count,
	}
	var res TransactionsResult
	if err := c.call(ctx, MethodGetTransactions, params, &res); err != nil {
		return nil, err
	}
	if len(res.Transactions) > int(count) {
		return nil, fmt.Errorf("%w: requested %d transactions, got %d", transport.ErrBackend, count, len(res.Transactions))
	}
	if res.Transactions == nil {
		res.Transactions = []types.RawTransaction{}
	}
	return res.Transactions, nil
}

// Close makes further calls fail with transport.ErrClosed.
func (c *Client) Close() error {
	c.closed.Store(true)
	c.http.CloseIdleConnections()
	return nil
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limit: %w", transport.ErrUnavailable, err)
		}
	}

	req := Request{
		JSONRPC: Version,
		Method:  method,
		ID:      c.nextID.Add(1),
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encoding %s params: %w", method, err)
		}
		req.Params = raw
	}
	body, err := json.Marshal(&req)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", transport.ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	otel.InjectHTTP(ctx, httpReq.Header)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", transport.ErrUnavailable, method, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: http status %d", transport.ErrUnavailable, method, httpResp.StatusCode)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("%w: %s: decoding response: %w", transport.ErrBackend, method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s: %w", transport.ErrBackend, method, resp.Error)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%w: %s: decoding result: %w", transport.ErrBackend, method, err)
	}
	return nil
}

var _ transport.Transport = (*Client)(nil)
