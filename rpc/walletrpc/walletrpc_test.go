// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletrpc

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/utxowallet/chain"
	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/wallet"
	"github.com/btcsuite/utxowallet/walletdb/memdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "acid cattle crumble vocal drill glove mushroom " +
	"elder exhibit vault hover coast"

type rpcHarness struct {
	t       *testing.T
	ctx     context.Context
	node    *chain.MemNode
	handler *Handler
}

func newRPCHarness(t *testing.T) *rpcHarness {
	t.Helper()

	clk := clock.NewTestClock(time.Unix(1_700_000_000, 0))
	node := chain.NewMemNode(ledger.SimnetParams, chain.WithClock(clk))
	mgr, err := wallet.NewManager(wallet.Config{
		DB:     memdb.New(),
		Client: node,
		SecretManager: keychain.NewMemoryManagerFromPassphrase(
			testMnemonic,
		),
		CoinType: wallet.DefaultCoinType,
		Clock:    clk,
		RetryConfig: chain.RetryConfig{
			Interval:    time.Millisecond,
			MaxAttempts: 5,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mgr.Close())
	})

	return &rpcHarness{
		t:       t,
		ctx:     context.Background(),
		node:    node,
		handler: NewHandler(mgr, ledger.SimnetParams.Bech32HRP),
	}
}

// call runs a method whose data is v encoded as JSON.
func (h *rpcHarness) call(name string, v interface{}) *Response {
	h.t.Helper()

	var data json.RawMessage
	if v != nil {
		var err error
		data, err = json.Marshal(v)
		require.NoError(h.t, err)
	}
	return h.handler.Call(h.ctx, Method{Name: name, Data: data})
}

// callAccount runs an account method on the account named alias.
func (h *rpcHarness) callAccount(alias, name string,
	v interface{}) *Response {

	h.t.Helper()

	var data json.RawMessage
	if v != nil {
		var err error
		data, err = json.Marshal(v)
		require.NoError(h.t, err)
	}
	return h.call("callAccountMethod", map[string]interface{}{
		"accountId": alias,
		"method":    Method{Name: name, Data: data},
	})
}

func (h *rpcHarness) createAccount(alias string) AccountResponse {
	h.t.Helper()

	resp := h.call("createAccount", map[string]string{"alias": alias})
	require.Equal(h.t, ResponseAccount, resp.Type, "%v", resp.Payload)

	return resp.Payload.(AccountResponse)
}

// fund books amount on the Bech32 address addr.
func (h *rpcHarness) fund(addr string, amount uint64) {
	h.t.Helper()

	_, parsed, err := ledger.ParseBech32(addr)
	require.NoError(h.t, err)
	h.node.Fund(&ledger.BasicOutput{
		Amount: amount,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.AddressUnlockCondition{Address: parsed},
		},
	})
}

func errorType(t *testing.T, resp *Response) string {
	t.Helper()

	require.Equal(t, ResponseError, resp.Type)
	return resp.Payload.(ErrorPayload).Type
}

// TestResponseNames makes sure every response type has a wire name that
// decodes back to the same type.
func TestResponseNames(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for typ := ResponseOk; typ <= ResponseBackgroundSyncState; typ++ {
		name, err := typ.MarshalText()
		require.NoError(t, err)

		_, dup := seen[string(name)]
		require.False(t, dup, "duplicate name %s", name)
		seen[string(name)] = struct{}{}

		var decoded ResponseType
		require.NoError(t, decoded.UnmarshalText(name))
		require.Equal(t, typ, decoded)
	}
	require.Len(t, seen, len(responseNames))

	_, err := ResponseType(200).MarshalText()
	require.Error(t, err)

	var decoded ResponseType
	require.Error(t, decoded.UnmarshalText([]byte("bogus")))
}

// TestCallJSONErrors checks malformed requests and unknown methods come
// back as error responses.
func TestCallJSONErrors(t *testing.T) {
	t.Parallel()

	h := newRPCHarness(t)

	tests := []struct {
		name     string
		request  string
		wantType string
	}{
		{
			name:     "malformed",
			request:  `{"name":`,
			wantType: "deserialization",
		},
		{
			name:     "unknown manager method",
			request:  `{"name":"mine"}`,
			wantType: "unknownMethod",
		},
		{
			name: "unknown account method",
			request: `{"name":"callAccountMethod","data":` +
				`{"accountId":0,"method":{"name":"mine"}}}`,
			wantType: "unknownMethod",
		},
		{
			name: "missing account",
			request: `{"name":"getAccount","data":` +
				`{"accountId":"nobody"}}`,
			wantType: "ErrAccountNotFound",
		},
		{
			name:     "bad account id",
			request:  `{"name":"getAccount","data":{"accountId":-1}}`,
			wantType: "deserialization",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			raw := h.handler.CallJSON(h.ctx, []byte(test.request))

			var resp struct {
				Type    string       `json:"type"`
				Payload ErrorPayload `json:"payload"`
			}
			require.NoError(t, json.Unmarshal(raw, &resp))
			require.Equal(t, "error", resp.Type)
			require.Equal(t, test.wantType, resp.Payload.Type)
			require.NotEmpty(t, resp.Payload.Message)
		})
	}
}

// TestAccountMethods walks an account through creation, funding, a sync
// and a send, all through the method surface.
func TestAccountMethods(t *testing.T) {
	t.Parallel()

	h := newRPCHarness(t)

	alice := h.createAccount("alice")
	require.Zero(t, alice.Index)
	require.Len(t, alice.PublicAddresses, 1)
	require.Empty(t, alice.InternalAddresses)
	bob := h.createAccount("bob")

	// The same account is found by index and by alias.
	byIndex := h.call("getAccount", map[string]interface{}{
		"accountId": 0,
	})
	require.Equal(t, ResponseAccount, byIndex.Type)
	require.Equal(t, alice, byIndex.Payload.(AccountResponse))

	accounts := h.call("getAccounts", nil)
	require.Equal(t, ResponseAccounts, accounts.Type)
	require.Len(t, accounts.Payload.([]AccountResponse), 2)

	h.fund(alice.PublicAddresses[0].Address, 2_000_000)

	resp := h.callAccount("alice", "sync", nil)
	require.Equal(t, ResponseBalance, resp.Type, "%v", resp.Payload)
	balance := resp.Payload.(*wallet.Balance)
	require.EqualValues(t, 2_000_000, balance.BaseCoin.Total)

	resp = h.callAccount("alice", "send", map[string]interface{}{
		"params": []SendParams{{
			Address: bob.PublicAddresses[0].Address,
			Amount:  1_000_000,
		}},
		"options": TransactionOptions{Note: "rent"},
	})
	require.Equal(t, ResponseSentTransaction, resp.Type, "%v",
		resp.Payload)
	tx := resp.Payload.(*wallet.Transaction)
	require.Equal(t, "rent", tx.Note)

	// Asking for more than what is left fails with the wallet error
	// code.
	resp = h.callAccount("alice", "send", map[string]interface{}{
		"params": []SendParams{{
			Address: bob.PublicAddresses[0].Address,
			Amount:  100_000_000,
		}},
	})
	require.Equal(t, "ErrInsufficientFunds", errorType(t, resp))

	resp = h.callAccount("bob", "sync", nil)
	require.Equal(t, ResponseBalance, resp.Type, "%v", resp.Payload)
	require.EqualValues(t, 1_000_000,
		resp.Payload.(*wallet.Balance).BaseCoin.Total)

	resp = h.callAccount("alice", "transactions", nil)
	require.Equal(t, ResponseTransactions, resp.Type)
	require.Len(t, resp.Payload.([]*wallet.Transaction), 1)
}

// TestSendRejectsForeignNetwork checks addresses of another network are
// refused before anything is built.
func TestSendRejectsForeignNetwork(t *testing.T) {
	t.Parallel()

	h := newRPCHarness(t)
	alice := h.createAccount("alice")

	_, addr, err := ledger.ParseBech32(alice.PublicAddresses[0].Address)
	require.NoError(t, err)

	resp := h.callAccount("alice", "send", map[string]interface{}{
		"params": []SendParams{{
			Address: addr.Bech32("rms"),
			Amount:  1_000_000,
		}},
	})
	require.Equal(t, "invalidParameter", errorType(t, resp))

	resp = h.callAccount("alice", "send", map[string]interface{}{
		"params": []SendParams{{
			Address: alice.PublicAddresses[0].Address,
			Amount:  1_000_000,
		}},
		"options": TransactionOptions{RemainderStrategy: "nowhere"},
	})
	require.Equal(t, "invalidParameter", errorType(t, resp))
}

func TestGenerateAddresses(t *testing.T) {
	t.Parallel()

	h := newRPCHarness(t)
	h.createAccount("alice")

	resp := h.callAccount("alice", "generateAddresses",
		map[string]interface{}{
			"amount":  2,
			"options": map[string]bool{"internal": true},
		})
	require.Equal(t, ResponseAddresses, resp.Type, "%v", resp.Payload)
	addrs := resp.Payload.([]AddressResponse)
	require.Len(t, addrs, 2)
	for i, addr := range addrs {
		require.True(t, addr.Internal)
		require.EqualValues(t, i, addr.KeyIndex)
	}

	resp = h.callAccount("alice", "addresses", nil)
	require.Len(t, resp.Payload.([]AddressResponse), 3)
}

func TestBackgroundSyncMethods(t *testing.T) {
	t.Parallel()

	h := newRPCHarness(t)
	h.createAccount("alice")

	resp := h.call("startBackgroundSync", map[string]interface{}{
		"intervalInMilliseconds": uint64(time.Hour / time.Millisecond),
	})
	require.Equal(t, ResponseOk, resp.Type, "%v", resp.Payload)

	resp = h.call("backgroundSyncState", nil)
	require.Equal(t, "running", resp.Payload)

	resp = h.call("stopBackgroundSync", nil)
	require.Equal(t, ResponseOk, resp.Type)

	resp = h.call("backgroundSyncState", nil)
	require.Equal(t, "idle", resp.Payload)
}

// TestBackupMethods backs an account up and restores it into a manager
// that lost it.
func TestBackupMethods(t *testing.T) {
	t.Parallel()

	h := newRPCHarness(t)
	h.createAccount("alice")

	path := filepath.Join(t.TempDir(), "wallet.backup")
	resp := h.call("backup", map[string]string{
		"destination": path,
		"password":    "correct horse",
	})
	require.Equal(t, ResponseOk, resp.Type, "%v", resp.Payload)

	resp = h.call("removeLatestAccount", nil)
	require.Equal(t, ResponseOk, resp.Type, "%v", resp.Payload)
	require.Empty(t, h.call("getAccounts", nil).Payload)

	resp = h.call("restoreBackup", map[string]string{
		"source":   path,
		"password": "wrong horse",
	})
	require.Equal(t, "ErrBackup", errorType(t, resp))

	resp = h.call("restoreBackup", map[string]string{
		"source":   path,
		"password": "correct horse",
	})
	require.Equal(t, ResponseOk, resp.Type, "%v", resp.Payload)

	accounts := h.call("getAccounts", nil).Payload.([]AccountResponse)
	require.Len(t, accounts, 1)
	require.Equal(t, "alice", accounts[0].Alias)
}
