package archive

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/types"
)

// Fixtures is the JSON document accepted by ImportFixtures.
//
//	{
//	  "accounts": [ { "account": {...}, "timings": {...}, "lastTransactionId": {...} } ],
//	  "transactions": [ { "address": "0:..", "hash": "..", "lt": "100", "prevTransLt": "50",
//	                      "prevTransHash": "..", "now": 1700000000, "body": {...} } ]
//	}
//
// A transaction carries either a structured body, which is encoded into a
// container, or a base64 "data" field stored verbatim.
type Fixtures struct {
	Accounts     []types.ExistingContract `json:"accounts"`
	Transactions []FixtureTransaction     `json:"transactions"`
}

// FixtureTransaction is a transaction entry of a fixture document.
type FixtureTransaction struct {
	Address       types.Address          `json:"address"`
	Hash          types.Hash             `json:"hash"`
	LT            types.LT               `json:"lt"`
	PrevTransLT   types.LT               `json:"prevTransLt"`
	PrevTransHash types.Hash             `json:"prevTransHash"`
	Now           uint32                 `json:"now"`
	Body          *types.TransactionBody `json:"body,omitempty"`
	Data          []byte                 `json:"data,omitempty"`
}

// ImportStats reports what ImportFixtures wrote.
type ImportStats struct {
	Accounts     int
	Transactions int
}

// ImportFixtures reads a fixture document from r and writes it to s.
func ImportFixtures(s Store, r io.Reader) (ImportStats, error) {
	var stats ImportStats

	var f Fixtures
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return stats, fmt.Errorf("decoding fixtures: %w", err)
	}

	for i := range f.Accounts {
		if err := s.PutContract(&f.Accounts[i]); err != nil {
			return stats, fmt.Errorf("account %d (%s): %w", i, f.Accounts[i].Account.Address, err)
		}
		stats.Accounts++
	}

	for i := range f.Transactions {
		ft := &f.Transactions[i]
		tx, err := ft.raw()
		if err != nil {
			return stats, fmt.Errorf("transaction %d: %w", i, err)
		}
		if err := s.PutTransaction(ft.Address, tx); err != nil {
			return stats, fmt.Errorf("transaction %d (lt %s): %w", i, ft.LT, err)
		}
		stats.Transactions++
	}

	return stats, nil
}

func (ft *FixtureTransaction) raw() (*types.RawTransaction, error) {
	data := ft.Data
	if ft.Body != nil {
		encoded, err := boc.EncodeTransactionBody(ft.Body)
		if err != nil {
			return nil, err
		}
		data = encoded
	}
	hash := ft.Hash
	if hash.IsZero() {
		hash = types.HashBytes(data)
	}
	return &types.RawTransaction{
		Hash:          hash,
		LT:            ft.LT,
		PrevTransLT:   ft.PrevTransLT,
		PrevTransHash: ft.PrevTransHash,
		Now:           ft.Now,
		Data:          data,
	}, nil
}
