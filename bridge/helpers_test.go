package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/types"
)

var (
	addrA = types.Address{Workchain: 0, Hash: types.HashBytes([]byte("alice"))}
	addrB = types.Address{Workchain: -1, Hash: types.HashBytes([]byte("bob"))}
)

// fakeTransport is a scriptable transport. It records the arguments of the
// last transactions query and the peak number of concurrent queries.
type fakeTransport struct {
	mu        sync.Mutex
	state     types.RawContractState
	txs       []types.RawTransaction
	err       error
	panicWith any
	lastFrom  types.TransactionID
	lastCount uint8
	closed    bool

	// gate, when set, blocks queries until it is closed. ignoreCtx makes
	// them wait on gate even after their context ends.
	gate      chan struct{}
	ignoreCtx bool
	entered   chan struct{}

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeTransport) enter(ctx context.Context) error {
	f.calls.Add(1)
	n := f.active.Add(1)
	for {
		peak := f.maxActive.Load()
		if n <= peak || f.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		if f.ignoreCtx {
			<-f.gate
		} else {
			select {
			case <-f.gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return nil
}

func (f *fakeTransport) GetContractState(ctx context.Context, addr types.Address) (types.RawContractState, error) {
	defer f.active.Add(-1)
	if err := f.enter(ctx); err != nil {
		return types.RawContractState{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.err
}

func (f *fakeTransport) GetTransactions(ctx context.Context, addr types.Address, from types.TransactionID, count uint8) ([]types.RawTransaction, error) {
	defer f.active.Add(-1)
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFrom = from
	f.lastCount = count
	if f.err != nil {
		return nil, f.err
	}
	return f.txs, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testContract(status types.AccountStatus) *types.ExistingContract {
	last := types.HashBytes([]byte("last"))
	return &types.ExistingContract{
		Account: types.Account{
			Address:          addrA,
			Balance:          types.NewGrams(1_500_000_000),
			Status:           status,
			Code:             []byte{0xde, 0xad},
			Data:             []byte{0xbe, 0xef},
			LastPaid:         1700000000,
			StorageUsedBits:  2048,
			StorageUsedCells: 4,
		},
		Timings:           types.GenTimings{GenLT: 9000, GenUtime: 1700000100},
		LastTransactionID: types.LastTransactionID{IsExact: true, LT: 100, Hash: &last},
	}
}

// rawTx returns a decodable raw transaction.
func rawTx(t *testing.T, lt, prev types.LT) types.RawTransaction {
	t.Helper()
	data, err := boc.EncodeTransactionBody(&types.TransactionBody{
		OrigStatus: types.AccountActive,
		EndStatus:  types.AccountActive,
		TotalFees:  types.NewGrams(uint64(lt)),
		InMsg:      types.Message{Value: types.NewGrams(1)},
	})
	require.NoError(t, err)
	return types.RawTransaction{
		Hash:          types.HashBytes([]byte("tx" + lt.String())),
		LT:            lt,
		PrevTransLT:   prev,
		PrevTransHash: types.HashBytes([]byte("tx" + prev.String())),
		Now:           uint32(lt),
		Data:          data,
	}
}

// brokenTx returns a raw transaction whose body does not decode.
func brokenTx(lt, prev types.LT) types.RawTransaction {
	return types.RawTransaction{
		Hash:          types.HashBytes([]byte("broken" + lt.String())),
		LT:            lt,
		PrevTransLT:   prev,
		PrevTransHash: types.HashBytes([]byte("tx" + prev.String())),
		Now:           uint32(lt),
	}
}

func strPtr(s string) *string {
	return &s
}
