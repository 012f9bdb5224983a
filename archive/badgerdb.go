package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/blockberries/chainbridge/logging"
	"github.com/blockberries/chainbridge/types"
)

// BadgerStore implements Store using BadgerDB.
// BadgerDB is optimized for SSDs and offers better write performance
// than LevelDB for import-heavy workloads.
type BadgerStore struct {
	db     *badger.DB
	path   string
	closed bool
	mu     sync.RWMutex
}

// BadgerOptions contains configuration options for BadgerDB.
type BadgerOptions struct {
	// SyncWrites ensures durability by syncing writes to disk.
	// Default: true
	SyncWrites bool

	// Compression enables Snappy compression for values.
	// Default: true
	Compression bool

	// InMemory keeps all data in memory. Path is ignored.
	// Default: false
	InMemory bool

	// MemTableSize is the size of the memtable.
	// Default: 64MB
	MemTableSize int64

	// Logger receives BadgerDB's internal log output.
	// If nil, logging is disabled.
	Logger *logging.Logger
}

// DefaultBadgerOptions returns sensible default options.
func DefaultBadgerOptions() *BadgerOptions {
	return &BadgerOptions{
		SyncWrites:   true,
		Compression:  true,
		MemTableSize: 64 << 20, // 64MB
	}
}

// NewBadgerStore opens or creates a BadgerDB-backed archive.
func NewBadgerStore(path string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(path, DefaultBadgerOptions())
}

// NewBadgerStoreWithOptions opens or creates a BadgerDB-backed archive with
// custom options.
func NewBadgerStoreWithOptions(path string, opts *BadgerOptions) (*BadgerStore, error) {
	if opts == nil {
		opts = DefaultBadgerOptions()
	}

	badgerOpts := badger.DefaultOptions(path)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites && !opts.InMemory)
	badgerOpts = badgerOpts.WithMemTableSize(opts.MemTableSize)

	if opts.Compression {
		badgerOpts = badgerOpts.WithCompression(options.Snappy)
	} else {
		badgerOpts = badgerOpts.WithCompression(options.None)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(badgerLogger{opts.Logger.WithComponent("badger")})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badgerdb: %w", err)
	}

	return &BadgerStore{
		db:   db,
		path: path,
	}, nil
}

// PutContract stores the latest state of an account.
func (s *BadgerStore) PutContract(c *types.ExistingContract) error {
	data, err := encodeContract(c)
	if err != nil {
		return fmt.Errorf("encoding contract: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeAccountKey(c.Account.Address), data)
	})
	if err != nil {
		return fmt.Errorf("writing contract: %w", err)
	}
	return nil
}

// PutTransaction stores a transaction of addr.
func (s *BadgerStore) PutTransaction(addr types.Address, tx *types.RawTransaction) error {
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
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeTxKey(addr, tx.LT), data)
	})
	if err != nil {
		return fmt.Errorf("writing transaction: %w", err)
	}
	return nil
}

// GetContractState implements transport.Transport.
func (s *BadgerStore) GetContractState(ctx context.Context, addr types.Address) (types.RawContractState, error) {
	if err := ctx.Err(); err != nil {
		return types.RawContractState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.RawContractState{}, ErrClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeAccountKey(addr))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
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
func (s *BadgerStore) GetTransactions(ctx context.Context, addr types.Address, from types.TransactionID, count uint8) ([]types.RawTransaction, error) {
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

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = makeTxPrefix(addr)
		opts.PrefetchSize = int(count)
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the largest key not above the start key.
		for it.Seek(makeTxKey(addr, from.LT)); it.Valid() && len(out) < int(count); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				tx, err := decodeTx(val)
				if err != nil {
					return fmt.Errorf("decoding transaction at lt %d: %w", ltFromTxKey(item.Key()), err)
				}
				out = append(out, *tx)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Compact runs value log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("running value log gc: %w", err)
		}
	}
	return nil
}

// Close closes the store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// badgerLogger adapts a Logger to badger.Logger.
type badgerLogger struct {
	l *logging.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Info(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

var _ Store = (*BadgerStore)(nil)
var _ badger.Logger = badgerLogger{}
