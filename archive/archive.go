// Package archive provides local account and transaction archives that serve
// as bridge transports and back the JSON-RPC server.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blockberries/chainbridge/transport"
	"github.com/blockberries/chainbridge/types"
)

// Store is a writable archive. Reads go through the transport.Transport
// methods. Implementations must be safe for concurrent use.
type Store interface {
	transport.Transport

	// PutContract stores the latest state of an account, replacing any
	// previous one.
	PutContract(c *types.ExistingContract) error

	// PutTransaction stores a transaction of addr. A transaction with the
	// same logical time is replaced.
	PutTransaction(addr types.Address, tx *types.RawTransaction) error

	// Close releases the archive.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendLevelDB  = "leveldb"
	BackendBadgerDB = "badgerdb"
	BackendMemory   = "memory"
)

// Errors returned by archives.
var (
	ErrClosed         = fmt.Errorf("archive: %w", transport.ErrClosed)
	ErrUnknownBackend = errors.New("unknown archive backend")
)

// Open opens an archive of the given backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendLevelDB:
		return NewLevelDBStore(path)
	case BackendBadgerDB:
		return NewBadgerStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Key prefixes shared by the on-disk stores.
var (
	prefixAccount = []byte("A:") // A:<address> -> contract container
	prefixTx      = []byte("T:") // T:<address><lt> -> raw transaction container
)

func makeAccountKey(addr types.Address) []byte {
	return append(append([]byte(nil), prefixAccount...), addr.Key()...)
}

func makeTxPrefix(addr types.Address) []byte {
	return append(append([]byte(nil), prefixTx...), addr.Key()...)
}

func makeTxKey(addr types.Address, lt types.LT) []byte {
	return binary.BigEndian.AppendUint64(makeTxPrefix(addr), uint64(lt))
}

// ltFromTxKey extracts the logical time from the end of a transaction key.
func ltFromTxKey(key []byte) types.LT {
	if len(key) < 8 {
		return 0
	}
	return types.LT(binary.BigEndian.Uint64(key[len(key)-8:]))
}

func validateTx(tx *types.RawTransaction) error {
	if tx.LT == 0 {
		return fmt.Errorf("%w: transaction logical time must be positive", types.ErrInvalidLT)
	}
	if tx.PrevTransLT >= tx.LT {
		return fmt.Errorf("%w: previous logical time %d not below %d", types.ErrInvalidLT, tx.PrevTransLT, tx.LT)
	}
	return nil
}
