package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/types"
)

func newTestDecoder(t *testing.T, size int) *txDecoder {
	t.Helper()
	d, err := newTxDecoder(size, metrics.NewNopMetrics())
	require.NoError(t, err)
	return d
}

func decodePage(t *testing.T, payload string) types.TransactionsList {
	t.Helper()
	var page types.TransactionsList
	require.NoError(t, json.Unmarshal([]byte(payload), &page))
	return page
}

func TestBuildPage_Continuation(t *testing.T) {
	d := newTestDecoder(t, 0)

	tests := []struct {
		name string
		raws []types.RawTransaction
		want *types.TransactionID
	}{
		{
			name: "older page exists",
			raws: []types.RawTransaction{rawTx(t, 9000, 7000), rawTx(t, 7000, 5000)},
			want: &types.TransactionID{LT: 5000, Hash: types.HashBytes([]byte("tx5000"))},
		},
		{
			name: "first transaction of the account",
			raws: []types.RawTransaction{rawTx(t, 9000, 7000), rawTx(t, 7000, 0)},
			want: nil,
		},
		{
			name: "undecodable oldest transaction",
			raws: []types.RawTransaction{rawTx(t, 9000, 7000), brokenTx(7000, 5000)},
			want: &types.TransactionID{LT: 5000, Hash: types.HashBytes([]byte("tx5000"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, _ := buildPage(tt.raws, d.decode)
			require.Equal(t, tt.want, page.Continuation)
		})
	}
}

func TestBuildPage_BatchRange(t *testing.T) {
	d := newTestDecoder(t, 0)

	page, dropped := buildPage([]types.RawTransaction{
		rawTx(t, 300, 200), rawTx(t, 200, 100), rawTx(t, 100, 50),
	}, d.decode)
	require.Zero(t, dropped)
	require.Equal(t, &types.TransactionsBatchInfo{MinLT: 100, MaxLT: 300, BatchType: types.BatchTypeNew}, page.BatchRange)

	page, dropped = buildPage([]types.RawTransaction{rawTx(t, 42, 0)}, d.decode)
	require.Zero(t, dropped)
	require.Equal(t, &types.TransactionsBatchInfo{MinLT: 42, MaxLT: 42, BatchType: types.BatchTypeNew}, page.BatchRange)
}

func TestBuildPage_Empty(t *testing.T) {
	d := newTestDecoder(t, 0)

	for _, raws := range [][]types.RawTransaction{nil, {}} {
		page, dropped := buildPage(raws, d.decode)
		require.Zero(t, dropped)
		require.NotNil(t, page.Transactions)
		require.Empty(t, page.Transactions)
		require.Nil(t, page.Continuation)
		require.Nil(t, page.BatchRange)
	}
}

func TestBuildPage_LenientFilter(t *testing.T) {
	d := newTestDecoder(t, 0)

	raws := []types.RawTransaction{
		rawTx(t, 500, 400),
		rawTx(t, 400, 300),
		brokenTx(300, 200),
		rawTx(t, 200, 100),
		brokenTx(100, 50),
	}

	page, dropped := buildPage(raws, d.decode)
	require.Equal(t, 2, dropped)
	require.Len(t, page.Transactions, 3)

	got := make([]types.LT, len(page.Transactions))
	for i := range page.Transactions {
		got[i] = page.Transactions[i].ID.LT
	}
	require.Equal(t, []types.LT{500, 400, 200}, got)

	// Range and continuation still cover all five raw transactions.
	require.Equal(t, types.LT(100), page.BatchRange.MinLT)
	require.Equal(t, types.LT(500), page.BatchRange.MaxLT)
	require.Equal(t, types.LT(50), page.Continuation.LT)
}

func TestTransactionsPage_Document(t *testing.T) {
	ft := &fakeTransport{txs: []types.RawTransaction{rawTx(t, 100, 50), rawTx(t, 90, 0)}}

	payload, dropped, err := transactionsPage(context.Background(), ft, newTestDecoder(t, 0), addrA.String(), nil, 2)
	require.NoError(t, err)
	require.Zero(t, dropped)
	require.Equal(t, types.TransactionID{LT: types.MaxLT}, ft.lastFrom)
	require.Equal(t, uint8(2), ft.lastCount)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))
	require.Equal(t, "null", string(doc["continuation"]))
	require.JSONEq(t, `{"minLt":"90","maxLt":"100","batchType":"new"}`, string(doc["batchRange"]))

	page := decodePage(t, payload)
	require.Len(t, page.Transactions, 2)
	require.Equal(t, types.LT(100), page.Transactions[0].ID.LT)
	require.Equal(t, &types.TransactionID{LT: 50, Hash: types.HashBytes([]byte("tx50"))}, page.Transactions[0].PrevTransactionID)
	require.Equal(t, types.LT(90), page.Transactions[1].ID.LT)
	require.Nil(t, page.Transactions[1].PrevTransactionID)
}

func TestTransactionsPage_EmptyDocument(t *testing.T) {
	ft := &fakeTransport{}

	payload, _, err := transactionsPage(context.Background(), ft, newTestDecoder(t, 0), addrA.String(), nil, 10)
	require.NoError(t, err)
	require.JSONEq(t, `{"transactions":[],"continuation":null,"batchRange":null}`, payload)
}

func TestTransactionsPage_Continuation(t *testing.T) {
	ft := &fakeTransport{}
	cursor := `{"lt":"5000","hash":"` + types.HashBytes([]byte("tx5000")).String() + `"}`

	_, _, err := transactionsPage(context.Background(), ft, newTestDecoder(t, 0), addrA.String(), &cursor, 16)
	require.NoError(t, err)
	require.Equal(t, types.TransactionID{LT: 5000}, ft.lastFrom)
	require.Equal(t, uint8(16), ft.lastCount)

	// A cursor produced by a previous page is accepted as is.
	prev := types.TransactionID{LT: 77, Hash: types.HashBytes([]byte("x"))}
	data, err := json.Marshal(prev)
	require.NoError(t, err)
	_, _, err = transactionsPage(context.Background(), ft, newTestDecoder(t, 0), addrA.String(), strPtr(string(data)), 1)
	require.NoError(t, err)
	require.Equal(t, types.LT(77), ft.lastFrom.LT)
}

func TestTransactionsPage_Errors(t *testing.T) {
	tests := []struct {
		name         string
		address      string
		continuation *string
		ft           *fakeTransport
		status       Status
	}{
		{"malformed address", "nope", nil, &fakeTransport{}, StatusInvalidInput},
		{"malformed continuation", addrA.String(), strPtr(`{"lt":`), &fakeTransport{}, StatusConversionError},
		{"continuation with bad lt", addrA.String(), strPtr(`{"lt":"-1","hash":"00"}`), &fakeTransport{}, StatusConversionError},
		{"null continuation", addrA.String(), strPtr(`null`), &fakeTransport{}, StatusConversionError},
		{"empty continuation object", addrA.String(), strPtr(`{}`), &fakeTransport{}, StatusConversionError},
		{"continuation without hash", addrA.String(), strPtr(`{"lt":"5000"}`), &fakeTransport{}, StatusConversionError},
		{"transport failure", addrA.String(), nil, &fakeTransport{err: errors.New("502")}, StatusTransportError},
		{"transport cancelled", addrA.String(), nil, &fakeTransport{err: context.Canceled}, StatusTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, _, err := transactionsPage(context.Background(), tt.ft, newTestDecoder(t, 0), tt.address, tt.continuation, 5)
			require.Error(t, err)
			require.Empty(t, payload)
			require.Equal(t, tt.status, StatusOf(err))
		})
	}
}

func TestTxDecoder_Cache(t *testing.T) {
	m := metrics.NewPrometheusMetrics("test")
	d, err := newTxDecoder(8, m)
	require.NoError(t, err)

	raw := rawTx(t, 10, 0)
	first, ok := d.decode(&raw)
	require.True(t, ok)
	second, ok := d.decode(&raw)
	require.True(t, ok)
	require.Equal(t, first, second)

	broken := brokenTx(11, 10)
	_, ok = d.decode(&broken)
	require.False(t, ok)
	_, ok = d.decode(&broken)
	require.False(t, ok)

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `test_tx_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, `test_tx_cache_lookups_total{result="miss"} 3`)
}

func TestTxDecoder_CacheKeyedOnBody(t *testing.T) {
	d := newTestDecoder(t, 8)

	good := rawTx(t, 10, 0)
	_, ok := d.decode(&good)
	require.True(t, ok)

	// Same id, corrupt body from another backend.
	corrupt := good
	corrupt.Data = nil
	_, ok = d.decode(&corrupt)
	require.False(t, ok)

	page, dropped := buildPage([]types.RawTransaction{corrupt}, d.decode)
	require.Equal(t, 1, dropped)
	require.Empty(t, page.Transactions)
}

func TestTxDecoder_NegativeSize(t *testing.T) {
	d, err := newTxDecoder(-1, metrics.NewNopMetrics())
	require.NoError(t, err)
	require.Nil(t, d.cache)
}
