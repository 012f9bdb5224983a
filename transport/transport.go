// Package transport defines the read-only blockchain data source a bridge
// handle wraps.
package transport

import (
	"context"
	"errors"

	"github.com/blockberries/chainbridge/types"
)

// Transport answers account state and transaction history queries.
// Implementations must be safe for concurrent use; the bridge still
// serialises calls made through the same handle.
type Transport interface {
	// GetContractState returns the latest state of an account. An account
	// that is not on chain is reported as types.ContractNotExists, not as an
	// error.
	GetContractState(ctx context.Context, addr types.Address) (types.RawContractState, error)

	// GetTransactions returns up to count transactions of addr, newest
	// first, starting at the transaction with logical time from.LT or the
	// newest one older than it. from.LT == types.MaxLT starts at the
	// newest transaction.
	GetTransactions(ctx context.Context, addr types.Address, from types.TransactionID, count uint8) ([]types.RawTransaction, error)
}

// Closer is implemented by transports that hold resources.
type Closer interface {
	Close() error
}

// Errors returned by transports.
var (
	ErrUnavailable = errors.New("transport unavailable")
	ErrClosed      = errors.New("transport closed")
	ErrBackend     = errors.New("backend error")
)

// Close closes t if it holds resources.
func Close(t Transport) error {
	if c, ok := t.(Closer); ok {
		return c.Close()
	}
	return nil
}
