// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"
	"time"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/stretchr/testify/require"
)

// TestClaimMicroTransaction checks that claiming an unexpired micro
// transaction returns the storage deposit to the sender.
func TestClaimMicroTransaction(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	bob := h.newAccount("bob")
	h.fund(alice, 1_000_000)
	h.sync(alice)

	// Bob gets a spare output so the claim does not leave dust behind.
	h.fund(bob, 1_000_000)

	tx, err := alice.Send(h.ctx, []SendParams{{
		Address: bob.firstAddress(),
		Amount:  1_000,
	}}, nil)
	require.NoError(t, err)
	// Outputs are in canonical order, so the remainder may come first.
	var sdr *ledger.StorageDepositReturnUnlockCondition
	for _, out := range tx.Payload.Essence.Outputs {
		if ret := out.Conditions().StorageDepositReturn(); ret != nil {
			sdr = ret
		}
	}
	require.NotNil(t, sdr)

	h.sync(bob)
	claimable := bob.ClaimableOutputs()
	require.Len(t, claimable, 1)
	require.Equal(t, tx.TransactionID, claimable[0].TransactionID())

	// Alice cannot claim before expiration.
	h.sync(alice)
	require.Empty(t, alice.ClaimableOutputs())

	claim, err := bob.ClaimOutputs(h.ctx, claimable, nil)
	require.NoError(t, err)
	require.Contains(t, consumed(claim), claimable[0])

	var returned ledger.BaseToken
	for _, out := range claim.Payload.Essence.Outputs {
		if ledger.OwnerAddress(out).Key() == alice.firstAddress().Key() {
			returned += out.Deposit()
		}
	}
	require.Equal(t, sdr.Amount, returned)

	balance := h.sync(bob)
	require.EqualValues(t, 1_001_000, balance.BaseCoin.Total)
	require.EqualValues(t, 1_001_000, balance.BaseCoin.Available)
	require.Empty(t, bob.ClaimableOutputs())

	balance = h.sync(alice)
	require.EqualValues(t, 999_000, balance.BaseCoin.Total)
	require.EqualValues(t, 999_000, balance.BaseCoin.Available)

	_, err = bob.ClaimOutputs(h.ctx, claimable, nil)
	require.True(t, IsError(err, ErrInvalidParameter), err)
}

// TestClaimExpiredOutput checks that the sender takes the whole output back
// once it expired.
func TestClaimExpiredOutput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	bob := h.newAccount("bob")
	h.fund(alice, 1_000_000)
	h.sync(alice)

	_, err := alice.Send(h.ctx, []SendParams{{
		Address:    bob.firstAddress(),
		Amount:     1_000,
		Expiration: time.Hour,
	}}, nil)
	require.NoError(t, err)
	h.sync(alice)
	require.Empty(t, alice.ClaimableOutputs())

	h.advance(2 * time.Hour)
	h.sync(alice)
	claimable := alice.ClaimableOutputs()
	require.Len(t, claimable, 1)

	_, err = alice.ClaimOutputs(h.ctx, claimable, nil)
	require.NoError(t, err)

	balance := h.sync(alice)
	require.EqualValues(t, 1_000_000, balance.BaseCoin.Total)
	require.EqualValues(t, 1_000_000, balance.BaseCoin.Available)
	require.Empty(t, balance.PotentiallyLockedOutputs)

	require.Zero(t, h.sync(bob).BaseCoin.Total)
}

// TestConsolidateOutputs checks the threshold handling of consolidation.
func TestConsolidateOutputs(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")

	h.fund(alice, 1_000_000)
	h.sync(alice)
	_, err := alice.ConsolidateOutputs(h.ctx, true, 0)
	require.True(t, IsError(err, ErrNoOutputsToConsolidate), err)

	for i := 0; i < 3; i++ {
		h.fund(alice, 1_000_000)
	}
	h.sync(alice)

	// Four outputs are below the threshold unless forced.
	_, err = alice.ConsolidateOutputs(h.ctx, false, 5)
	require.True(t, IsError(err, ErrNoOutputsToConsolidate), err)

	tx, err := alice.ConsolidateOutputs(h.ctx, false, 4)
	require.NoError(t, err)
	require.Len(t, consumed(tx), 4)
	require.Len(t, tx.Payload.Essence.Outputs, 1)
	require.Equal(t, alice.firstAddress().Key(),
		ledger.OwnerAddress(tx.Payload.Essence.Outputs[0]).Key())

	balance := h.sync(alice)
	require.EqualValues(t, 4_000_000, balance.BaseCoin.Available)
	require.Len(t, alice.UnspentOutputs(nil), 1)
}
