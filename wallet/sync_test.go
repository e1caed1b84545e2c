// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/walletdb/memdb"
	"github.com/stretchr/testify/require"
)

// TestSyncIncomingTransactions checks that the transactions creating
// received outputs are reconstructed, and that the ones the node cannot
// serve are never asked for again.
func TestSyncIncomingTransactions(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	bob := h.newAccount("bob")

	h.fund(alice, 1_000_000)
	faucet := h.fund(bob, 700_000)
	h.sync(alice)

	tx, err := alice.Send(h.ctx, []SendParams{{
		Address: bob.firstAddress(),
		Amount:  600_000,
	}}, nil)
	require.NoError(t, err)

	opts := &SyncOptions{SyncIncomingTransactions: true}
	balance, err := bob.Sync(h.ctx, opts)
	require.NoError(t, err)
	require.EqualValues(t, 1_300_000, balance.BaseCoin.Total)

	incoming := bob.IncomingTransactions()
	require.Len(t, incoming, 1)
	require.Equal(t, tx.TransactionID, incoming[0].TransactionID)
	require.True(t, incoming[0].Incoming)
	require.Equal(t, Confirmed, incoming[0].InclusionState)
	require.Len(t, incoming[0].Inputs, 1)

	// The faucet transaction is unknown to the node.
	var inaccessible bool
	bob.read(func(d *accountDetails) {
		_, inaccessible = d.inaccessibleIncomingTransactions[faucet.TransactionID()]
	})
	require.True(t, inaccessible)

	// A second pass does not change anything.
	_, err = bob.Sync(h.ctx, opts)
	require.NoError(t, err)
	require.Len(t, bob.IncomingTransactions(), 1)

	// Own transactions are never reported as incoming.
	_, err = alice.Sync(h.ctx, opts)
	require.NoError(t, err)
	for _, in := range alice.IncomingTransactions() {
		require.NotEqual(t, tx.TransactionID, in.TransactionID)
	}
}

// TestSyncDetectsExternalSpends checks that outputs spent elsewhere, for
// instance by another instance of the same seed, are marked spent.
func TestSyncDetectsExternalSpends(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	id := h.fund(alice, 1_000_000)
	h.sync(alice)

	// A second manager on the same seed and node spends the output.
	twin, err := NewManager(Config{
		DB:            memdb.New(),
		Client:        h.node,
		SecretManager: keychain.NewMemoryManagerFromPassphrase(testMnemonic),
		CoinType:      DefaultCoinType,
		Clock:         h.clock,
		RetryConfig:   testRetryConfig,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, twin.Close())
	})
	twinAlice, err := twin.CreateAccount(h.ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.firstAddress(), twinAlice.firstAddress())

	_, err = twinAlice.Sync(h.ctx, nil)
	require.NoError(t, err)
	_, err = twinAlice.Send(h.ctx, []SendParams{{
		Address: ledger.Ed25519Address{9},
		Amount:  1_000_000,
	}}, nil)
	require.NoError(t, err)

	require.Zero(t, h.sync(alice).BaseCoin.Total)

	out, err := alice.Output(id)
	require.NoError(t, err)
	require.True(t, out.IsSpent)
	require.NotNil(t, out.Metadata.TransactionIDSpent)
}

// TestLightweightSync checks that a basic-only pass sets chain outputs
// aside and that the next full pass restores them.
func TestLightweightSync(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	h.fund(alice, 2_000_000)
	h.sync(alice)

	_, err := alice.MintNFTs(h.ctx, []MintNFTParams{{
		ImmutableMetadata: []byte("artwork"),
	}}, nil)
	require.NoError(t, err)
	require.Len(t, h.sync(alice).NFTs, 1)

	light, err := alice.Sync(h.ctx, &SyncOptions{
		SyncOnlyMostBasicOutputs: true,
	})
	require.NoError(t, err)
	require.Empty(t, light.NFTs)

	full := h.sync(alice)
	require.Len(t, full.NFTs, 1)
	require.EqualValues(t, 2_000_000, full.BaseCoin.Total)
}

// TestSyncDiscoversChainOwnedOutputs checks that outputs owned by an NFT
// of the account are found through the NFT address.
func TestSyncDiscoversChainOwnedOutputs(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	h.fund(alice, 2_000_000)
	h.sync(alice)

	_, err := alice.MintNFTs(h.ctx, []MintNFTParams{{}}, nil)
	require.NoError(t, err)
	balance := h.sync(alice)
	require.Len(t, balance.NFTs, 1)

	// Funds sent to the NFT address belong to the account.
	h.node.Fund(basicTo(balance.NFTs[0].ToAddress(), 300_000))
	require.EqualValues(t, 2_300_000, h.sync(alice).BaseCoin.Total)
}
