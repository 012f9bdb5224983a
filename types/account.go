package types

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// Grams is an unsigned token amount. It is rendered as a decimal string.
type Grams struct {
	v uint256.Int
}

// NewGrams returns an amount holding v.
func NewGrams(v uint64) Grams {
	var g Grams
	g.v.SetUint64(v)
	return g
}

// ParseGrams parses a decimal amount.
func ParseGrams(s string) (Grams, error) {
	var g Grams
	if err := g.v.SetFromDecimal(s); err != nil {
		return g, fmt.Errorf("%w: %q", ErrInvalidGrams, s)
	}
	return g, nil
}

// String returns the decimal representation.
func (g Grams) String() string {
	return g.v.Dec()
}

// IsZero returns true for a zero amount.
func (g Grams) IsZero() bool {
	return g.v.IsZero()
}

// Cmp compares two amounts and returns -1, 0 or 1.
func (g Grams) Cmp(other Grams) int {
	return g.v.Cmp(&other.v)
}

// MarshalJSON encodes the amount as a decimal string.
func (g Grams) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON decodes a decimal string amount.
func (g *Grams) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGrams, err)
	}
	parsed, err := ParseGrams(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// AccountStatus is the lifecycle state of an on-chain account.
type AccountStatus string

// Account status constants.
const (
	AccountUninit   AccountStatus = "uninit"
	AccountActive   AccountStatus = "active"
	AccountFrozen   AccountStatus = "frozen"
	AccountNonExist AccountStatus = "nonexist"
)

// IsValid returns true if the status is one of the known values.
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountUninit, AccountActive, AccountFrozen, AccountNonExist:
		return true
	}
	return false
}

// ParseAccountStatus validates a status string.
func ParseAccountStatus(s string) (AccountStatus, error) {
	status := AccountStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountStatus, s)
	}
	return status, nil
}

// Account is the on-chain representation of a contract.
type Account struct {
	Address          Address       `json:"address"`
	Balance          Grams         `json:"balance"`
	Status           AccountStatus `json:"status"`
	Code             []byte        `json:"code,omitempty"`
	Data             []byte        `json:"data,omitempty"`
	LastPaid         uint32        `json:"lastPaid"`
	StorageUsedBits  uint64        `json:"storageUsedBits"`
	StorageUsedCells uint64        `json:"storageUsedCells"`
	FrozenHash       *Hash         `json:"frozenHash,omitempty"`
}

// IsDeployed reports whether the account is active, i.e. has code and state.
func (a *Account) IsDeployed() bool {
	return a.Status == AccountActive
}

// GenTimings describes when a contract state was generated.
type GenTimings struct {
	GenLT    LT     `json:"genLt"`
	GenUtime uint32 `json:"genUtime"`
}

// LastTransactionID references the most recent transaction of an account.
// Inexact references carry only the latest known logical time.
type LastTransactionID struct {
	IsExact bool  `json:"isExact"`
	LT      LT    `json:"lt"`
	Hash    *Hash `json:"hash,omitempty"`
}

// ExistingContract is a contract state returned by a transport.
type ExistingContract struct {
	Account           Account           `json:"account"`
	Timings           GenTimings        `json:"timings"`
	LastTransactionID LastTransactionID `json:"lastTransactionId"`
}

// RawContractState is the result of a contract state lookup.
type RawContractState struct {
	Exists   bool              `json:"exists"`
	Contract *ExistingContract `json:"contract,omitempty"`
}

// ContractExists wraps an existing contract state.
func ContractExists(c *ExistingContract) RawContractState {
	return RawContractState{Exists: true, Contract: c}
}

// ContractNotExists returns the state of an account that is not on chain.
func ContractNotExists() RawContractState {
	return RawContractState{}
}

// FullContractState is the account snapshot handed back to callers.
type FullContractState struct {
	Balance           string             `json:"balance"`
	GenTimings        GenTimings         `json:"genTimings"`
	LastTransactionID *LastTransactionID `json:"lastTransactionId,omitempty"`
	IsDeployed        bool               `json:"isDeployed"`
	Boc               string             `json:"boc"`
}
