// Package types provides common type definitions for chainbridge.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// LT is a logical time: the per-account ordering key of transactions.
type LT uint64

// MaxLT is used as the starting point when fetching from the newest transaction.
const MaxLT = LT(math.MaxUint64)

// String returns the logical time as a decimal string.
func (lt LT) String() string {
	return strconv.FormatUint(uint64(lt), 10)
}

// MarshalJSON encodes the logical time as a decimal string so that
// values above 2^53 survive JavaScript-style JSON consumers.
func (lt LT) MarshalJSON() ([]byte, error) {
	return json.Marshal(lt.String())
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (lt *LT) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := ParseLT(s)
	if err != nil {
		return err
	}
	*lt = v
	return nil
}

// ParseLT parses a decimal logical time.
func ParseLT(s string) (LT, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLT, s)
	}
	return LT(v), nil
}

// HashSize is the size of account and transaction hashes in bytes.
const HashSize = 32

// Hash is a 256-bit account or transaction hash.
type Hash [HashSize]byte

// String returns the hash as a hexadecimal string.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// IsZero returns true if every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashFromHex parses a 64-character hexadecimal string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHash, HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromBytes copies a 32-byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHash, HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// TransactionID identifies a transaction by logical time and hash.
// It doubles as the continuation cursor for transaction history pages.
type TransactionID struct {
	LT   LT   `json:"lt"`
	Hash Hash `json:"hash"`
}

// String returns a compact "lt:hash" representation.
func (id TransactionID) String() string {
	return id.LT.String() + ":" + id.Hash.String()
}

// ParseTransactionID decodes a JSON-encoded transaction id. Both fields
// must be present and non-null.
func ParseTransactionID(s string) (TransactionID, error) {
	var raw struct {
		LT   *LT   `json:"lt"`
		Hash *Hash `json:"hash"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return TransactionID{}, fmt.Errorf("%w: %v", ErrInvalidTransactionID, err)
	}
	switch {
	case raw.LT == nil:
		return TransactionID{}, fmt.Errorf("%w: missing lt", ErrInvalidTransactionID)
	case raw.Hash == nil:
		return TransactionID{}, fmt.Errorf("%w: missing hash", ErrInvalidTransactionID)
	}
	return TransactionID{LT: *raw.LT, Hash: *raw.Hash}, nil
}
