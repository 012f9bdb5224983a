package types

import (
	"crypto/sha256"
)

// HashBytes computes the SHA-256 hash of arbitrary bytes.
func HashBytes(data []byte) Hash {
	return sha256.Sum256(data)
}

// EmptyHash returns the hash of an empty byte slice.
func EmptyHash() Hash {
	return sha256.Sum256([]byte{})
}
