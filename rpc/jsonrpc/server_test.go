package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/chainbridge/archive"
	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/types"
)

var (
	addrA = types.Address{Workchain: 0, Hash: types.HashBytes([]byte("alice"))}
	addrB = types.Address{Workchain: -1, Hash: types.HashBytes([]byte("bob"))}
)

// failingTransport fails every query with err.
type failingTransport struct {
	err error
}

func (f failingTransport) GetContractState(ctx context.Context, addr types.Address) (types.RawContractState, error) {
	return types.RawContractState{}, f.err
}

func (f failingTransport) GetTransactions(ctx context.Context, addr types.Address, from types.TransactionID, count uint8) ([]types.RawTransaction, error) {
	return nil, f.err
}

func testContract(addr types.Address) *types.ExistingContract {
	return &types.ExistingContract{
		Account: types.Account{
			Address: addr,
			Balance: types.NewGrams(42),
			Status:  types.AccountActive,
			Code:    []byte{0xca, 0xfe},
		},
		Timings:           types.GenTimings{GenLT: 900, GenUtime: 1700000000},
		LastTransactionID: types.LastTransactionID{IsExact: true, LT: 400},
	}
}

func testTx(lt, prev types.LT) *types.RawTransaction {
	return &types.RawTransaction{
		Hash:          types.HashBytes([]byte("tx" + lt.String())),
		LT:            lt,
		PrevTransLT:   prev,
		PrevTransHash: types.HashBytes([]byte("tx" + prev.String())),
		Now:           uint32(lt),
		Data:          []byte("body-" + lt.String()),
	}
}

func newTestArchive(t *testing.T) *archive.MemoryStore {
	t.Helper()
	s := archive.NewMemoryStore()
	require.NoError(t, s.PutContract(testContract(addrA)))
	for _, p := range [][2]types.LT{{100, 0}, {200, 100}, {300, 200}, {400, 300}} {
		require.NoError(t, s.PutTransaction(addrA, testTx(p[0], p[1])))
	}
	return s
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(newTestArchive(t), DefaultServerConfig(), nil, nil, nil)
}

// post sends body to the server handler and returns the recorded response.
func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, Version, resp.JSONRPC)
	return resp
}

func request(method string, id int, params any) string {
	req := Request{JSONRPC: Version, Method: method, ID: id}
	if params != nil {
		req.Params, _ = json.Marshal(params)
	}
	data, _ := json.Marshal(req)
	return string(data)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	require.Len(t, s.methods, 3)
	for _, m := range []string{MethodHealth, MethodGetContractState, MethodGetTransactions} {
		assert.Contains(t, s.methods, m)
	}
}

func TestServer_StartStop(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "tcp://127.0.0.1:0"
	s := NewServer(newTestArchive(t), cfg, nil, nil, nil)

	require.Nil(t, s.Addr())
	require.NoError(t, s.Start())
	require.True(t, s.IsRunning())
	require.NotNil(t, s.Addr())

	// Starting twice is a no-op.
	require.NoError(t, s.Start())

	c, err := NewClient(ClientConfig{Endpoint: "http://" + s.Addr().String()})
	require.NoError(t, err)
	require.NoError(t, c.Health(context.Background()))

	require.NoError(t, s.Stop())
	require.False(t, s.IsRunning())
	require.NoError(t, s.Stop())
}

func TestServer_StartInvalidAddress(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "256.0.0.1:bad"
	s := NewServer(newTestArchive(t), cfg, nil, nil, nil)

	require.Error(t, s.Start())
	require.False(t, s.IsRunning())
}

func TestServer_HTTPMethod(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_RequestErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{not json`, CodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","method":"health","id":1}`, CodeInvalidRequest},
		{"unknown method", request("block", 1, nil), CodeMethodNotFound},
		{"missing params", request(MethodGetContractState, 1, nil), CodeInvalidParams},
		{"bad params", `{"jsonrpc":"2.0","method":"getContractState","params":[1],"id":1}`, CodeInvalidParams},
		{"invalid address", request(MethodGetContractState, 1, GetContractStateParams{Address: "0:zz"}), CodeInvalidParams},
		{"count out of range", `{"jsonrpc":"2.0","method":"getTransactions","params":{"address":"` + addrA.String() + `","count":300},"id":1}`, CodeInvalidParams},
		{"empty batch", `[]`, CodeInvalidRequest},
		{"bad batch", `[{]`, CodeParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeResponse(t, post(t, s, tt.body))
			require.NotNil(t, resp.Error)
			require.Equal(t, tt.code, resp.Error.Code)
			require.Nil(t, resp.Result)
		})
	}
}

func TestServer_GetContractState(t *testing.T) {
	s := newTestServer(t)

	resp := decodeResponse(t, post(t, s, request(MethodGetContractState, 7, GetContractStateParams{Address: addrA.String()})))
	require.Nil(t, resp.Error)
	require.EqualValues(t, 7, resp.ID)

	var res ContractStateResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.True(t, res.Exists)

	data, err := boc.FromBase64(res.Boc)
	require.NoError(t, err)
	c, err := boc.DecodeContract(data)
	require.NoError(t, err)
	require.Equal(t, addrA, c.Account.Address)
	require.Equal(t, "42", c.Account.Balance.String())
	require.Equal(t, []byte{0xca, 0xfe}, c.Account.Code)

	resp = decodeResponse(t, post(t, s, request(MethodGetContractState, 8, GetContractStateParams{Address: addrB.String()})))
	require.Nil(t, resp.Error)
	res = ContractStateResult{}
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.False(t, res.Exists)
	require.Empty(t, res.Boc)
}

func TestServer_GetTransactions(t *testing.T) {
	s := newTestServer(t)

	from := types.TransactionID{LT: 300}
	tests := []struct {
		name   string
		params GetTransactionsParams
		want   []types.LT
	}{
		{"newest", GetTransactionsParams{Address: addrA.String(), Count: 2}, []types.LT{400, 300}},
		{"from cursor", GetTransactionsParams{Address: addrA.String(), From: &from, Count: 10}, []types.LT{300, 200, 100}},
		{"zero count", GetTransactionsParams{Address: addrA.String(), Count: 0}, []types.LT{}},
		{"unknown account", GetTransactionsParams{Address: addrB.String(), Count: 5}, []types.LT{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeResponse(t, post(t, s, request(MethodGetTransactions, 1, tt.params)))
			require.Nil(t, resp.Error)

			var res TransactionsResult
			require.NoError(t, json.Unmarshal(resp.Result, &res))
			require.NotNil(t, res.Transactions)

			got := make([]types.LT, len(res.Transactions))
			for i := range res.Transactions {
				got[i] = res.Transactions[i].LT
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestServer_BackendError(t *testing.T) {
	s := NewServer(failingTransport{err: errors.New("disk on fire")}, DefaultServerConfig(), nil, nil, nil)

	resp := decodeResponse(t, post(t, s, request(MethodGetContractState, 1, GetContractStateParams{Address: addrA.String()})))
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeBackendError, resp.Error.Code)
	require.Equal(t, "disk on fire", resp.Error.Message)
}

func TestServer_Batch(t *testing.T) {
	s := newTestServer(t)

	body := "[" + request(MethodHealth, 1, nil) + "," +
		request("nope", 2, nil) + "," +
		request(MethodGetContractState, 3, GetContractStateParams{Address: addrA.String()}) + "]"

	rec := post(t, s, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var batch BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch, 3)

	require.Nil(t, batch[0].Error)
	require.JSONEq(t, `{"status":"ok"}`, string(batch[0].Result))
	require.NotNil(t, batch[1].Error)
	require.Equal(t, CodeMethodNotFound, batch[1].Error.Code)
	require.Nil(t, batch[2].Error)
	require.EqualValues(t, 3, batch[2].ID)
}

func TestServer_BatchTooLarge(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxBatchSize = 2
	s := NewServer(newTestArchive(t), cfg, nil, nil, nil)

	body := "[" + strings.Repeat(request(MethodHealth, 1, nil)+",", 2) + request(MethodHealth, 1, nil) + "]"
	resp := decodeResponse(t, post(t, s, body))
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestServer_MaxBodyBytes(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxBodyBytes = 16
	s := NewServer(newTestArchive(t), cfg, nil, nil, nil)

	// The body is truncated and no longer parses.
	resp := decodeResponse(t, post(t, s, request(MethodHealth, 1, nil)))
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeParseError, resp.Error.Code)
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.NewPrometheusMetrics("test")
	s := NewServer(newTestArchive(t), DefaultServerConfig(), m, nil, nil)

	post(t, s, request(MethodHealth, 1, nil))
	post(t, s, request("nope", 2, nil))

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.True(t, bytes.Contains(body, []byte(`test_rpc_requests_total{method="health",result="success"} 1`)))
	assert.True(t, bytes.Contains(body, []byte(`test_rpc_requests_total{method="nope",result="failure"} 1`)))
}
