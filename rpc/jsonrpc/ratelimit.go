package jsonrpc

import (
	"context"
	"net"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active.
	Enabled bool

	// GlobalRate is the overall requests per second for all clients.
	GlobalRate float64

	// PerClientRate is the requests per second per client IP.
	PerClientRate float64

	// Burst is the maximum burst size allowed per client.
	Burst int

	// MaxClients bounds the number of client limiters kept. The least
	// recently seen client is forgotten first.
	MaxClients int

	// ExemptMethods are methods that bypass rate limiting.
	ExemptMethods []string

	// ExemptClients are client IPs that bypass rate limiting.
	ExemptClients []string
}

// DefaultRateLimitConfig returns sensible rate limiting defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:       false,
		GlobalRate:    1000, // 1000 requests per second globally
		PerClientRate: 100,  // 100 requests per second per client
		Burst:         50,   // Allow bursts up to 50 requests
		MaxClients:    10000,
		ExemptMethods: []string{MethodHealth},
	}
}

// RateLimiter limits JSON-RPC requests globally and per client IP. Each
// request of a batch counts.
// All public methods are safe for concurrent use.
type RateLimiter struct {
	config        RateLimitConfig
	globalLimiter *rate.Limiter
	clients       *lru.Cache[string, *rate.Limiter]
	exemptMethods map[string]struct{}
	exemptClients map[string]struct{}
	mu            sync.RWMutex // Protects exemptMethods and exemptClients
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.MaxClients <= 0 {
		config.MaxClients = DefaultRateLimitConfig().MaxClients
	}

	rl := &RateLimiter{
		config:        config,
		exemptMethods: make(map[string]struct{}),
		exemptClients: make(map[string]struct{}),
	}

	for _, method := range config.ExemptMethods {
		rl.exemptMethods[method] = struct{}{}
	}

	for _, client := range config.ExemptClients {
		rl.exemptClients[client] = struct{}{}
	}

	// Higher burst for global
	rl.globalLimiter = rate.NewLimiter(rate.Limit(config.GlobalRate), config.Burst*10)

	// MaxClients is positive, so New cannot fail.
	rl.clients, _ = lru.New[string, *rate.Limiter](config.MaxClients)

	return rl
}

// checkLimit checks if the request in ctx may call method.
func (rl *RateLimiter) checkLimit(ctx context.Context, method string) *Error {
	if !rl.config.Enabled {
		return nil
	}

	clientIP := clientIPFrom(ctx)

	// Check if method or client is exempt (read lock for map access)
	rl.mu.RLock()
	_, methodExempt := rl.exemptMethods[method]
	_, clientExempt := rl.exemptClients[clientIP]
	rl.mu.RUnlock()

	if methodExempt || clientExempt {
		return nil
	}

	if !rl.globalLimiter.Allow() {
		return NewErrorWithData(CodeRateLimited, "global rate limit exceeded", nil)
	}

	if !rl.clientLimiter(clientIP).Allow() {
		return ErrRateLimited
	}

	return nil
}

func (rl *RateLimiter) clientLimiter(clientIP string) *rate.Limiter {
	if l, ok := rl.clients.Get(clientIP); ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(rl.config.PerClientRate), rl.config.Burst)
	if prev, ok, _ := rl.clients.PeekOrAdd(clientIP, l); ok {
		return prev
	}
	return l
}

// AddExemptClient adds a client IP to the exempt list.
func (rl *RateLimiter) AddExemptClient(clientIP string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.exemptClients[clientIP] = struct{}{}
}

// RemoveExemptClient removes a client IP from the exempt list.
func (rl *RateLimiter) RemoveExemptClient(clientIP string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.exemptClients, clientIP)
}

// AddExemptMethod adds a method to the exempt list.
func (rl *RateLimiter) AddExemptMethod(method string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.exemptMethods[method] = struct{}{}
}

// RemoveExemptMethod removes a method from the exempt list.
func (rl *RateLimiter) RemoveExemptMethod(method string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.exemptMethods, method)
}

// Reset resets the rate limit for a specific client.
func (rl *RateLimiter) Reset(clientIP string) {
	rl.clients.Remove(clientIP)
}

type clientIPKey struct{}

// clientIP returns the host part of the remote address of r.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func withClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIPFrom(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return "unknown"
}
