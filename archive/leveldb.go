package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/blockberries/chainbridge/types"
)

// LevelDBStore implements Store using LevelDB.
type LevelDBStore struct {
	db     *leveldb.DB
	path   string
	closed bool
	mu     sync.RWMutex
}

// NewLevelDBStore opens or creates a LevelDB-backed archive.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		NoSync: false,
	})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	return &LevelDBStore{
		db:   db,
		path: path,
	}, nil
}

// PutContract stores the latest state of an account.
func (s *LevelDBStore) PutContract(c *types.ExistingContract) error {
	data, err := encodeContract(c)
	if err != nil {
		return fmt.Errorf("encoding contract: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.db.Put(makeAccountKey(c.Account.Address), data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("writing contract: %w", err)
	}
	return nil
}

// PutTransaction stores a transaction of addr.
func (s *LevelDBStore) PutTransaction(addr types.Address, tx *types.RawTransaction) error {
	if err := validateTx(tx); err != nil {
		return err
	}
	data, err := encodeTx(tx)
	if err != nil {
		return fmt.Errorf("encoding transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.db.Put(makeTxKey(addr, tx.LT), data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("writing transaction: %w", err)
	}
	return nil
}

// GetContractState implements transport.Transport.
func (s *LevelDBStore) GetContractState(ctx context.Context, addr types.Address) (types.RawContractState, error) {
	if err := ctx.Err(); err != nil {
		return types.RawContractState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.RawContractState{}, ErrClosed
	}

	data, err := s.db.Get(makeAccountKey(addr), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return types.ContractNotExists(), nil
	}
	if err != nil {
		return types.RawContractState{}, fmt.Errorf("getting contract %s: %w", addr, err)
	}

	c, err := decodeContract(data)
	if err != nil {
		return types.RawContractState{}, fmt.Errorf("decoding contract %s: %w", addr, err)
	}
	return types.ContractExists(c), nil
}

// GetTransactions implements transport.Transport.
func (s *LevelDBStore) GetTransactions(ctx context.Context, addr types.Address, from types.TransactionID, count uint8) ([]types.RawTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	out := make([]types.RawTransaction, 0, count)
	if count == 0 {
		return out, nil
	}

	iter := s.db.NewIterator(util.BytesPrefix(makeTxPrefix(addr)), nil)
	defer iter.Release()

	// Position on the newest key not above the start key.
	start := makeTxKey(addr, from.LT)
	var ok bool
	if iter.Seek(start) {
		ok = bytes.Equal(iter.Key(), start) || iter.Prev()
	} else {
		ok = iter.Last()
	}

	for ; ok && len(out) < int(count); ok = iter.Prev() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx, err := decodeTx(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("decoding transaction at lt %d: %w", ltFromTxKey(iter.Key()), err)
		}
		out = append(out, *tx)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return out, nil
}

// Compact triggers a full database compaction.
func (s *LevelDBStore) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.db.CompactRange(util.Range{})
}

// Close closes the store.
func (s *LevelDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ Store = (*LevelDBStore)(nil)
