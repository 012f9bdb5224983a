package bridge

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/memory"
	"github.com/blockberries/chainbridge/metrics"
	"github.com/blockberries/chainbridge/transport"
	"github.com/blockberries/chainbridge/types"
)

// txKey identifies a decoded transaction by its id and the digest of the
// body it was decoded from. Backends may disagree on a body.
type txKey struct {
	id   types.TransactionID
	data types.Hash
}

// txDecoder decodes raw transactions, remembering recent results.
type txDecoder struct {
	cache   *lru.Cache[txKey, types.Transaction]
	metrics metrics.Metrics
}

// newTxDecoder returns a decoder caching up to size transactions. Zero
// disables the cache.
func newTxDecoder(size int, m metrics.Metrics) (*txDecoder, error) {
	d := &txDecoder{metrics: m}
	if size > 0 {
		cache, err := lru.New[txKey, types.Transaction](size)
		if err != nil {
			return nil, fmt.Errorf("creating transaction cache: %w", err)
		}
		d.cache = cache
	}
	return d, nil
}

// decode returns the decoded record of raw and false if it does not decode.
func (d *txDecoder) decode(raw *types.RawTransaction) (types.Transaction, bool) {
	var key txKey
	if d.cache != nil {
		key = txKey{id: raw.ID(), data: types.HashBytes(raw.Data)}
		if tx, ok := d.cache.Get(key); ok {
			d.metrics.IncTxCache(metrics.CacheHit)
			return tx, true
		}
		d.metrics.IncTxCache(metrics.CacheMiss)
	}

	tx, err := boc.DecodeTransaction(raw)
	if err != nil {
		return types.Transaction{}, false
	}
	if d.cache != nil {
		d.cache.Add(key, *tx)
	}
	return *tx, true
}

// transactionsPage fetches one page of history and returns it as a JSON
// document together with the number of transactions that failed to decode.
func transactionsPage(ctx context.Context, t transport.Transport, d *txDecoder, address string, continuation *string, limit uint8) (string, int, error) {
	addr, err := types.ParseAddress(address)
	if err != nil {
		return "", 0, newError(StatusInvalidInput, "", err)
	}

	from := types.TransactionID{LT: types.MaxLT}
	if continuation != nil {
		cursor, err := types.ParseTransactionID(*continuation)
		if err != nil {
			return "", 0, newError(StatusConversionError, "decoding continuation", err)
		}
		from.LT = cursor.LT
	}

	raws, err := t.GetTransactions(ctx, addr, from, limit)
	if err != nil {
		return "", 0, HandleError(err, StatusTransportError)
	}

	page, dropped := buildPage(raws, d.decode)

	payload, err := memory.MarshalJSONStringSized(&page, len(page.Transactions)*txJSONSize)
	if err != nil {
		return "", dropped, newError(StatusConversionError, "encoding transactions", err)
	}
	return payload, dropped, nil
}

// txJSONSize is the typical encoded size of one decoded transaction.
const txJSONSize = 1 << 10

// buildPage decodes raws, newest first, dropping those that do not decode.
// The continuation and batch range come from the raw sequence so a page
// whose oldest transaction is undecodable still links to the next one.
func buildPage(raws []types.RawTransaction, decode func(*types.RawTransaction) (types.Transaction, bool)) (types.TransactionsList, int) {
	page := types.TransactionsList{
		Transactions: make([]types.Transaction, 0, len(raws)),
	}
	for i := range raws {
		if tx, ok := decode(&raws[i]); ok {
			page.Transactions = append(page.Transactions, tx)
		}
	}

	if n := len(raws); n > 0 {
		first, last := &raws[0], &raws[n-1]
		page.Continuation = last.PrevID()
		page.BatchRange = &types.TransactionsBatchInfo{
			MinLT:     last.LT,
			MaxLT:     first.LT,
			BatchType: types.BatchTypeNew,
		}
	}
	return page, len(raws) - len(page.Transactions)
}
