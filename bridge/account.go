package bridge

import (
	"context"
	"errors"

	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/memory"
	"github.com/blockberries/chainbridge/transport"
	"github.com/blockberries/chainbridge/types"
)

// fullAccountState looks up an account and returns its snapshot as a JSON
// document, or "null" if the account is not on chain.
func fullAccountState(ctx context.Context, t transport.Transport, address string) (string, error) {
	addr, err := types.ParseAddress(address)
	if err != nil {
		return "", newError(StatusInvalidInput, "", err)
	}

	state, err := t.GetContractState(ctx, addr)
	if err != nil {
		return "", HandleError(err, StatusTransportError)
	}

	var snapshot *types.FullContractState
	if state.Exists {
		snapshot, err = accountSnapshot(state.Contract)
		if err != nil {
			return "", err
		}
	}

	payload, err := memory.MarshalJSONString(snapshot)
	if err != nil {
		return "", newError(StatusConversionError, "encoding account state", err)
	}
	return payload, nil
}

func accountSnapshot(c *types.ExistingContract) (*types.FullContractState, error) {
	if c == nil {
		return nil, newError(StatusTransportError, "", errors.New("existing account without contract state"))
	}

	data, err := boc.EncodeAccount(&c.Account)
	if err != nil {
		return nil, newError(StatusConversionError, "serializing account", err)
	}

	last := c.LastTransactionID
	return &types.FullContractState{
		Balance:           c.Account.Balance.String(),
		GenTimings:        c.Timings,
		LastTransactionID: &last,
		IsDeployed:        c.Account.IsDeployed(),
		Boc:               boc.ToBase64(data),
	}, nil
}
