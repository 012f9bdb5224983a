package jsonrpc

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
)

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	// Enabled controls whether authentication is required.
	Enabled bool

	// APIKeys is a list of valid API keys.
	APIKeys []string

	// PublicMethods are methods that don't require authentication.
	PublicMethods []string
}

// DefaultAuthConfig returns authentication configuration with auth disabled.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled:       false,
		PublicMethods: []string{MethodHealth},
	}
}

// Authenticator checks API keys of JSON-RPC requests. Credentials are read
// once per HTTP request and checked for every method of a batch.
type Authenticator struct {
	config        AuthConfig
	mu            sync.RWMutex
	apiKeySet     map[string]struct{}
	publicMethods map[string]struct{}
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(config AuthConfig) *Authenticator {
	auth := &Authenticator{
		config:        config,
		apiKeySet:     make(map[string]struct{}),
		publicMethods: make(map[string]struct{}),
	}

	for _, key := range config.APIKeys {
		auth.apiKeySet[key] = struct{}{}
	}

	for _, method := range config.PublicMethods {
		auth.publicMethods[method] = struct{}{}
	}

	return auth
}

// authenticateHTTP reads the credentials of r.
func (a *Authenticator) authenticateHTTP(r *http.Request) *AuthInfo {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if a.validateKey(strings.TrimPrefix(auth, "Bearer ")) {
			return &AuthInfo{Authenticated: true, Method: "api_key"}
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" && a.validateKey(key) {
		return &AuthInfo{Authenticated: true, Method: "api_key"}
	}
	return &AuthInfo{Authenticated: false, Method: "none"}
}

// authorize returns ErrUnauthorized if method needs credentials that the
// request in ctx did not carry.
func (a *Authenticator) authorize(ctx context.Context, method string) error {
	if !a.config.Enabled || a.isPublicMethod(method) {
		return nil
	}
	if !GetAuthInfo(ctx).Authenticated {
		return ErrUnauthorized
	}
	return nil
}

// isPublicMethod checks if a method doesn't require authentication.
func (a *Authenticator) isPublicMethod(method string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.publicMethods[method]
	return ok
}

// validateKey checks if a key is valid using constant-time comparison.
func (a *Authenticator) validateKey(key string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for validKey := range a.apiKeySet {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return true
		}
	}
	return false
}

// AddAPIKey adds an API key at runtime.
func (a *Authenticator) AddAPIKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiKeySet[key] = struct{}{}
}

// RemoveAPIKey removes an API key at runtime.
func (a *Authenticator) RemoveAPIKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.apiKeySet, key)
}

// SetPublicMethod adds a method to the public (no-auth) list.
func (a *Authenticator) SetPublicMethod(method string, public bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if public {
		a.publicMethods[method] = struct{}{}
	} else {
		delete(a.publicMethods, method)
	}
}

// authContextKey is the key for storing authentication info in context.
type authContextKey struct{}

// AuthInfo contains authenticated user information.
type AuthInfo struct {
	// Authenticated indicates if the request was authenticated.
	Authenticated bool

	// Method indicates the authentication method used.
	Method string // "api_key", "none"
}

func withAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authContextKey{}, info)
}

// GetAuthInfo retrieves authentication info from context.
func GetAuthInfo(ctx context.Context) *AuthInfo {
	if info, ok := ctx.Value(authContextKey{}).(*AuthInfo); ok {
		return info
	}
	return &AuthInfo{Authenticated: false, Method: "none"}
}
