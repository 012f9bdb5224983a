package archive

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/types"
)

// contractRecord is the stored form of an account's latest state. The
// account itself is kept as its boc container so that reads hand back the
// same bytes callers see in snapshots.
type contractRecord struct {
	Account     []byte
	GenLT       uint64
	GenUtime    uint32
	LastExact   bool
	LastLT      uint64
	LastHash    []byte
	HasLastHash bool
}

// txRecord is the stored form of a raw transaction. Data stays encoded.
type txRecord struct {
	Hash          []byte
	LT            uint64
	PrevTransLT   uint64
	PrevTransHash []byte
	Now           uint32
	Data          []byte
}

func encodeContract(c *types.ExistingContract) ([]byte, error) {
	account, err := boc.EncodeAccount(&c.Account)
	if err != nil {
		return nil, err
	}
	rec := contractRecord{
		Account:   account,
		GenLT:     uint64(c.Timings.GenLT),
		GenUtime:  c.Timings.GenUtime,
		LastExact: c.LastTransactionID.IsExact,
		LastLT:    uint64(c.LastTransactionID.LT),
	}
	if h := c.LastTransactionID.Hash; h != nil {
		rec.LastHash = h.Bytes()
		rec.HasLastHash = true
	}
	return cramberry.Marshal(rec)
}

func decodeContract(data []byte) (*types.ExistingContract, error) {
	var rec contractRecord
	if err := cramberry.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling contract record: %w", err)
	}
	account, err := boc.DecodeAccount(rec.Account)
	if err != nil {
		return nil, err
	}

	c := &types.ExistingContract{
		Account: *account,
		Timings: types.GenTimings{GenLT: types.LT(rec.GenLT), GenUtime: rec.GenUtime},
		LastTransactionID: types.LastTransactionID{
			IsExact: rec.LastExact,
			LT:      types.LT(rec.LastLT),
		},
	}
	if rec.HasLastHash {
		h, err := types.HashFromBytes(rec.LastHash)
		if err != nil {
			return nil, fmt.Errorf("last transaction hash: %w", err)
		}
		c.LastTransactionID.Hash = &h
	}
	return c, nil
}

func encodeTx(tx *types.RawTransaction) ([]byte, error) {
	return cramberry.Marshal(txRecord{
		Hash:          tx.Hash.Bytes(),
		LT:            uint64(tx.LT),
		PrevTransLT:   uint64(tx.PrevTransLT),
		PrevTransHash: tx.PrevTransHash.Bytes(),
		Now:           tx.Now,
		Data:          tx.Data,
	})
}

func decodeTx(data []byte) (*types.RawTransaction, error) {
	var rec txRecord
	if err := cramberry.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling transaction record: %w", err)
	}
	hash, err := types.HashFromBytes(rec.Hash)
	if err != nil {
		return nil, fmt.Errorf("transaction hash: %w", err)
	}
	prev, err := types.HashFromBytes(rec.PrevTransHash)
	if err != nil {
		return nil, fmt.Errorf("previous transaction hash: %w", err)
	}
	return &types.RawTransaction{
		Hash:          hash,
		LT:            types.LT(rec.LT),
		PrevTransLT:   types.LT(rec.PrevTransLT),
		PrevTransHash: prev,
		Now:           rec.Now,
		Data:          rec.Data,
	}, nil
}
