package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/chainbridge/boc"
	"github.com/blockberries/chainbridge/types"
)

func TestFullAccountState_Exists(t *testing.T) {
	tests := []struct {
		status   types.AccountStatus
		deployed bool
	}{
		{types.AccountActive, true},
		{types.AccountFrozen, false},
		{types.AccountUninit, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c := testContract(tt.status)
			ft := &fakeTransport{state: types.ContractExists(c)}

			payload, err := fullAccountState(context.Background(), ft, addrA.String())
			require.NoError(t, err)

			var snapshot types.FullContractState
			require.NoError(t, json.Unmarshal([]byte(payload), &snapshot))
			require.Equal(t, "1500000000", snapshot.Balance)
			require.Equal(t, c.Timings, snapshot.GenTimings)
			require.Equal(t, &c.LastTransactionID, snapshot.LastTransactionID)
			require.Equal(t, tt.deployed, snapshot.IsDeployed)

			data, err := boc.FromBase64(snapshot.Boc)
			require.NoError(t, err)
			account, err := boc.DecodeAccount(data)
			require.NoError(t, err)
			require.Equal(t, c.Account.Address, account.Address)
			require.Equal(t, c.Account.Status, account.Status)
			require.Equal(t, c.Account.Code, account.Code)
		})
	}
}

func TestFullAccountState_WireKeys(t *testing.T) {
	ft := &fakeTransport{state: types.ContractExists(testContract(types.AccountActive))}

	payload, err := fullAccountState(context.Background(), ft, addrA.String())
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))
	for _, key := range []string{"balance", "genTimings", "lastTransactionId", "isDeployed", "boc"} {
		require.Contains(t, doc, key)
	}
	require.JSONEq(t, `{"genLt":"9000","genUtime":1700000100}`, string(doc["genTimings"]))
}

func TestFullAccountState_Absent(t *testing.T) {
	ft := &fakeTransport{state: types.ContractNotExists()}

	payload, err := fullAccountState(context.Background(), ft, addrA.String())
	require.NoError(t, err)
	require.Equal(t, "null", payload)
}

func TestFullAccountState_Errors(t *testing.T) {
	broken := testContract(types.AccountActive)
	broken.Account.Status = "gone"

	tests := []struct {
		name    string
		address string
		ft      *fakeTransport
		status  Status
	}{
		{"malformed address", "0:xyz", &fakeTransport{}, StatusInvalidInput},
		{"bad checksum", "EQAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", &fakeTransport{}, StatusInvalidInput},
		{"transport failure", addrA.String(), &fakeTransport{err: errors.New("connection reset")}, StatusTransportError},
		{"transport deadline", addrA.String(), &fakeTransport{err: fmt.Errorf("query: %w", context.DeadlineExceeded)}, StatusTimeout},
		{"exists without contract", addrA.String(), &fakeTransport{state: types.RawContractState{Exists: true}}, StatusTransportError},
		{"unserializable account", addrA.String(), &fakeTransport{state: types.ContractExists(broken)}, StatusConversionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := fullAccountState(context.Background(), tt.ft, tt.address)
			require.Error(t, err)
			require.Empty(t, payload)
			require.Equal(t, tt.status, StatusOf(err))
		})
	}
}
