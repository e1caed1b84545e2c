// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/stretchr/testify/require"
)

// deriveAddress derives an address of the harness seed without going
// through the manager.
func (h *testHarness) deriveAddress(account, index uint32,
	internal bool) ledger.Ed25519Address {

	h.t.Helper()

	addrs, err := h.keys.GenerateAddresses(h.ctx, DefaultCoinType,
		account, keychain.AddressRange{Start: index, End: index + 1},
		keychain.GenerateAddressOptions{Internal: internal})
	require.NoError(h.t, err)

	return addrs[0]
}

// TestRecoverEmptySeed checks that recovering a seed without funds leaves
// no account behind.
func TestRecoverEmptySeed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	accounts, err := h.mgr.RecoverAccounts(h.ctx, 0, 2, 2, nil)
	require.NoError(t, err)
	require.Empty(t, accounts)
	require.Empty(t, h.mgr.Accounts())
}

// TestRecoverAccounts checks that funds beyond the first address of a later
// account are found, and that recovering again changes nothing.
func TestRecoverAccounts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	// We'll fund the fourth public address of the second account and an
	// internal address of the same account.
	h.node.Fund(basicTo(h.deriveAddress(1, 3, false), 1_000_000))
	h.node.Fund(basicTo(h.deriveAddress(1, 1, true), 500_000))

	accounts, err := h.mgr.RecoverAccounts(h.ctx, 0, 2, 5, nil)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	funded := accounts[1]
	require.EqualValues(t, 1, funded.Index())
	require.Len(t, funded.PublicAddresses(), 4)
	require.Len(t, funded.Addresses(), 6)

	balance, err := funded.Balance(h.ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1_500_000, balance.BaseCoin.Total)

	// The empty account below the funded one keeps its first address.
	require.Len(t, accounts[0].PublicAddresses(), 1)

	again, err := h.mgr.RecoverAccounts(h.ctx, 0, 2, 5, nil)
	require.NoError(t, err)
	require.Len(t, again, 2)
	require.Len(t, again[1].PublicAddresses(), 4)
}

// TestRecoverKeepsExistingAccounts checks that accounts created before a
// recovery survive it even when they are empty.
func TestRecoverKeepsExistingAccounts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, alias := range []string{"a", "b", "c"} {
		h.newAccount(alias)
	}

	accounts, err := h.mgr.RecoverAccounts(h.ctx, 1, 1, 2, nil)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for i, alias := range []string{"a", "b", "c"} {
		require.Equal(t, alias, accounts[i].Alias())
	}
}
