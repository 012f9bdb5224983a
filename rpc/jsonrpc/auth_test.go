package jsonrpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultAuthConfig(t *testing.T) {
	config := DefaultAuthConfig()

	require.False(t, config.Enabled)
	require.Empty(t, config.APIKeys)
	require.Contains(t, config.PublicMethods, MethodHealth)
}

func TestAuthenticator_ValidateKey(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		Enabled: true,
		APIKeys: []string{"valid-key-123", "another-valid-key"},
	})

	require.True(t, auth.validateKey("valid-key-123"))
	require.True(t, auth.validateKey("another-valid-key"))

	require.False(t, auth.validateKey("invalid-key"))
	require.False(t, auth.validateKey(""))
	require.False(t, auth.validateKey("valid-key-12")) // Substring
}

func TestAuthenticator_AddRemoveAPIKey(t *testing.T) {
	auth := NewAuthenticator(DefaultAuthConfig())

	require.False(t, auth.validateKey("new-key"))
	auth.AddAPIKey("new-key")
	require.True(t, auth.validateKey("new-key"))
	auth.RemoveAPIKey("new-key")
	require.False(t, auth.validateKey("new-key"))
}

func TestAuthenticator_AuthenticateHTTP(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, APIKeys: []string{"secret"}})

	tests := []struct {
		name   string
		header string
		value  string
		want   bool
	}{
		{"bearer", "Authorization", "Bearer secret", true},
		{"api key header", "X-API-Key", "secret", true},
		{"wrong bearer", "Authorization", "Bearer nope", false},
		{"basic scheme", "Authorization", "Basic secret", false},
		{"no credentials", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				r.Header.Set(tt.header, tt.value)
			}
			info := auth.authenticateHTTP(r)
			require.Equal(t, tt.want, info.Authenticated)
		})
	}
}

func TestAuthenticator_Authorize(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		Enabled:       true,
		APIKeys:       []string{"secret"},
		PublicMethods: []string{MethodHealth},
	})
	anonymous := context.Background()
	authed := withAuthInfo(anonymous, &AuthInfo{Authenticated: true, Method: "api_key"})

	require.NoError(t, auth.authorize(anonymous, MethodHealth))
	require.ErrorIs(t, auth.authorize(anonymous, MethodGetTransactions), ErrUnauthorized)
	require.NoError(t, auth.authorize(authed, MethodGetTransactions))

	auth.SetPublicMethod(MethodGetTransactions, true)
	require.NoError(t, auth.authorize(anonymous, MethodGetTransactions))

	disabled := NewAuthenticator(DefaultAuthConfig())
	require.NoError(t, disabled.authorize(anonymous, MethodGetContractState))
}

func TestGetAuthInfo_Default(t *testing.T) {
	info := GetAuthInfo(context.Background())
	require.False(t, info.Authenticated)
	require.Equal(t, "none", info.Method)
}

func TestServer_Auth(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Auth = AuthConfig{Enabled: true, APIKeys: []string{"secret"}, PublicMethods: []string{MethodHealth}}
	s := NewServer(newTestArchive(t), cfg, nil, nil, nil)

	body := request(MethodGetContractState, 1, GetContractStateParams{Address: addrA.String()})

	resp := decodeResponse(t, post(t, s, body))
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeUnauthorized, resp.Error.Code)

	// Health stays public.
	resp = decodeResponse(t, post(t, s, request(MethodHealth, 2, nil)))
	require.Nil(t, resp.Error)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	s.Handler().ServeHTTP(rec, req)
	resp = decodeResponse(t, rec)
	require.Nil(t, resp.Error)
}

func TestClient_APIKey(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Auth = AuthConfig{Enabled: true, APIKeys: []string{"secret"}}
	srv := httptest.NewServer(NewServer(newTestArchive(t), cfg, nil, nil, nil).Handler())
	t.Cleanup(srv.Close)

	anonymous, err := NewClient(ClientConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	_, err = anonymous.GetContractState(context.Background(), addrA)
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, CodeUnauthorized, rpcErr.Code)

	authed, err := NewClient(ClientConfig{Endpoint: srv.URL, APIKey: "secret"})
	require.NoError(t, err)
	state, err := authed.GetContractState(context.Background(), addrA)
	require.NoError(t, err)
	require.True(t, state.Exists)
}
