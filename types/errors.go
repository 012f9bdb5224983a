package types

import (
	"errors"
)

// Parsing errors.
var (
	// ErrInvalidAddress is returned when an address fails structural or checksum validation.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidHash is returned when a hash is not 32 bytes of hex.
	ErrInvalidHash = errors.New("invalid hash")

	// ErrInvalidLT is returned when a logical time is not an unsigned decimal.
	ErrInvalidLT = errors.New("invalid logical time")

	// ErrInvalidTransactionID is returned when a continuation cursor cannot be decoded.
	ErrInvalidTransactionID = errors.New("invalid transaction id")

	// ErrInvalidGrams is returned when a balance is not an unsigned decimal below 2^256.
	ErrInvalidGrams = errors.New("invalid grams amount")

	// ErrInvalidAccountStatus is returned for an unknown account status.
	ErrInvalidAccountStatus = errors.New("invalid account status")
)
