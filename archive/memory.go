package archive

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/blockberries/chainbridge/types"
)

// MemoryStore implements Store with in-memory storage.
// Primarily used for testing.
type MemoryStore struct {
	contracts map[string]*types.ExistingContract
	txs       map[string][]types.RawTransaction // ascending by LT
	closed    bool
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory archive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contracts: make(map[string]*types.ExistingContract),
		txs:       make(map[string][]types.RawTransaction),
	}
}

// PutContract stores the latest state of an account.
func (m *MemoryStore) PutContract(c *types.ExistingContract) error {
	if !c.Account.Status.IsValid() {
		return types.ErrInvalidAccountStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.contracts[string(c.Account.Address.Key())] = cloneContract(c)
	return nil
}

// PutTransaction stores a transaction of addr.
func (m *MemoryStore) PutTransaction(addr types.Address, tx *types.RawTransaction) error {
	if err := validateTx(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	key := string(addr.Key())
	list := m.txs[key]
	i := sort.Search(len(list), func(i int) bool { return list[i].LT >= tx.LT })
	stored := cloneTx(tx)
	if i < len(list) && list[i].LT == tx.LT {
		list[i] = stored
		return nil
	}
	list = append(list, types.RawTransaction{})
	copy(list[i+1:], list[i:])
	list[i] = stored
	m.txs[key] = list
	return nil
}

// GetContractState implements transport.Transport.
func (m *MemoryStore) GetContractState(ctx context.Context, addr types.Address) (types.RawContractState, error) {
	if err := ctx.Err(); err != nil {
		return types.RawContractState{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return types.RawContractState{}, ErrClosed
	}
	c, ok := m.contracts[string(addr.Key())]
	if !ok {
		return types.ContractNotExists(), nil
	}
	return types.ContractExists(cloneContract(c)), nil
}

// GetTransactions implements transport.Transport.
func (m *MemoryStore) GetTransactions(ctx context.Context, addr types.Address, from types.TransactionID, count uint8) ([]types.RawTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	list := m.txs[string(addr.Key())]
	// Index of the first transaction newer than from.LT.
	end := sort.Search(len(list), func(i int) bool { return list[i].LT > from.LT })

	out := make([]types.RawTransaction, 0, min(int(count), end))
	for i := end - 1; i >= 0 && len(out) < int(count); i-- {
		out = append(out, cloneTx(&list[i]))
	}
	return out, nil
}

// Len returns the number of stored accounts and transactions.
func (m *MemoryStore) Len() (accounts, txs int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, list := range m.txs {
		txs += len(list)
	}
	return len(m.contracts), txs
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// cloneContract returns a deep copy so callers cannot mutate stored state.
func cloneContract(c *types.ExistingContract) *types.ExistingContract {
	out := *c
	out.Account.Code = bytes.Clone(c.Account.Code)
	out.Account.Data = bytes.Clone(c.Account.Data)
	if c.Account.FrozenHash != nil {
		h := *c.Account.FrozenHash
		out.Account.FrozenHash = &h
	}
	if c.LastTransactionID.Hash != nil {
		h := *c.LastTransactionID.Hash
		out.LastTransactionID.Hash = &h
	}
	return &out
}

func cloneTx(tx *types.RawTransaction) types.RawTransaction {
	out := *tx
	out.Data = bytes.Clone(tx.Data)
	return out
}

var _ Store = (*MemoryStore)(nil)
