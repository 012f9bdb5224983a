package boc

import (
	"fmt"
	"strconv"

	"github.com/blockberries/chainbridge/types"
)

// EncodeAccount serialises the on-chain representation of an account.
func EncodeAccount(a *types.Account) ([]byte, error) {
	fields, err := accountFields(a)
	if err != nil {
		return nil, err
	}
	return encode(KindAccount, fields)
}

// DecodeAccount parses a container produced by EncodeAccount.
func DecodeAccount(data []byte) (*types.Account, error) {
	r, err := decode(KindAccount, data)
	if err != nil {
		return nil, err
	}
	a := readAccount(r)
	if r.err != nil {
		return nil, r.err
	}
	return a, nil
}

// EncodeContract serialises an account together with its generation timings
// and last transaction reference.
func EncodeContract(c *types.ExistingContract) ([]byte, error) {
	account, err := accountFields(&c.Account)
	if err != nil {
		return nil, err
	}
	last := map[string]any{
		"isExact": c.LastTransactionID.IsExact,
		"lt":      c.LastTransactionID.LT.String(),
	}
	if c.LastTransactionID.Hash != nil {
		last["hash"] = c.LastTransactionID.Hash.String()
	}
	return encode(KindContract, map[string]any{
		"account": account,
		"timings": map[string]any{
			"genLt":    c.Timings.GenLT.String(),
			"genUtime": c.Timings.GenUtime,
		},
		"lastTransactionId": last,
	})
}

// DecodeContract parses a container produced by EncodeContract.
func DecodeContract(data []byte) (*types.ExistingContract, error) {
	r, err := decode(KindContract, data)
	if err != nil {
		return nil, err
	}

	ar := r.object("account")
	account := readAccount(ar)
	r.join(ar)

	tr := r.object("timings")
	timings := types.GenTimings{GenLT: tr.lt("genLt"), GenUtime: tr.uint32("genUtime")}
	r.join(tr)

	lr := r.object("lastTransactionId")
	last := types.LastTransactionID{
		IsExact: lr.boolean("isExact"),
		LT:      lr.lt("lt"),
		Hash:    lr.optHash("hash"),
	}
	r.join(lr)

	if r.err != nil {
		return nil, r.err
	}
	return &types.ExistingContract{
		Account:           *account,
		Timings:           timings,
		LastTransactionID: last,
	}, nil
}

func accountFields(a *types.Account) (map[string]any, error) {
	if !a.Status.IsValid() {
		return nil, fmt.Errorf("account %s: %w: %q", a.Address, types.ErrInvalidAccountStatus, a.Status)
	}
	f := map[string]any{
		"address":          a.Address.String(),
		"balance":          a.Balance.String(),
		"status":           string(a.Status),
		"lastPaid":         a.LastPaid,
		"storageUsedBits":  strconv.FormatUint(a.StorageUsedBits, 10),
		"storageUsedCells": strconv.FormatUint(a.StorageUsedCells, 10),
	}
	if a.Code != nil {
		f["code"] = a.Code
	}
	if a.Data != nil {
		f["data"] = a.Data
	}
	if a.FrozenHash != nil {
		f["frozenHash"] = a.FrozenHash.String()
	}
	return f, nil
}

func readAccount(r *reader) *types.Account {
	return &types.Account{
		Address:          r.address("address"),
		Balance:          r.grams("balance"),
		Status:           r.status("status"),
		Code:             r.bytes("code"),
		Data:             r.bytes("data"),
		LastPaid:         r.uint32("lastPaid"),
		StorageUsedBits:  r.uint64("storageUsedBits"),
		StorageUsedCells: r.uint64("storageUsedCells"),
		FrozenHash:       r.optHash("frozenHash"),
	}
}
