// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"
	"time"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestMicroTransactionExpiration follows a micro transaction from both
// sides: the recipient can spend it until it expires, the sender after.
func TestMicroTransactionExpiration(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	bob := h.newAccount("bob")

	h.fund(alice, 1_000_000)
	h.sync(alice)

	tx, err := alice.Send(h.ctx, []SendParams{{
		Address: bob.firstAddress(),
		Amount:  1_000,
	}}, nil)
	require.NoError(t, err)

	var (
		microID ledger.OutputID
		micro   ledger.Output
	)
	for i, out := range tx.Payload.Essence.Outputs {
		if out.Conditions().Expiration() != nil {
			microID = ledger.NewOutputID(tx.TransactionID, uint16(i))
			micro = out
		}
	}
	require.NotNil(t, micro)

	sdr := micro.Conditions().StorageDepositReturn()
	require.NotNil(t, sdr)
	require.Equal(t, alice.firstAddress(), sdr.ReturnAddress)
	require.EqualValues(t, micro.Deposit()-1_000, sdr.Amount)

	exp := micro.Conditions().Expiration()
	require.EqualValues(t, h.clock.Now().Add(DefaultExpiration).Unix(),
		exp.UnixTime)

	remainder := 1_000_000 - micro.Deposit()

	// Before expiration the recipient can spend what was sent, the
	// sender only sees the output as locked.
	aliceBalance := h.sync(alice)
	require.EqualValues(t, 1_000_000, aliceBalance.BaseCoin.Total)
	require.EqualValues(t, remainder, aliceBalance.BaseCoin.Available)
	require.Contains(t, aliceBalance.PotentiallyLockedOutputs, microID)
	require.False(t, aliceBalance.PotentiallyLockedOutputs[microID])

	bobBalance := h.sync(bob)
	require.EqualValues(t, micro.Deposit(), bobBalance.BaseCoin.Total)
	require.EqualValues(t, 1_000, bobBalance.BaseCoin.Available)
	require.True(t, bobBalance.PotentiallyLockedOutputs[microID])

	// Once expired, the whole output returns to the sender.
	h.advance(DefaultExpiration + time.Hour)

	aliceBalance, err = alice.Balance(h.ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, aliceBalance.BaseCoin.Available)
	require.True(t, aliceBalance.PotentiallyLockedOutputs[microID])

	bobBalance, err = bob.Balance(h.ctx)
	require.NoError(t, err)
	require.Zero(t, bobBalance.BaseCoin.Available)
	require.False(t, bobBalance.PotentiallyLockedOutputs[microID])
}

// TestExpirationFavoringOtherAccount sends an output that alice can spend
// until it expires and bob afterwards.  Expiry moves the amount into bob's
// available balance, and alice keeps no claim on it.
func TestExpirationFavoringOtherAccount(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	bob := h.newAccount("bob")
	h.fund(alice, 1_000_000)
	h.sync(alice)

	out := basicTo(alice.firstAddress(), 500_000)
	out.UnlockConditions = append(out.UnlockConditions,
		&ledger.ExpirationUnlockCondition{
			ReturnAddress: bob.firstAddress(),
			UnixTime: uint32(
				h.clock.Now().Add(5_000 * time.Second).Unix(),
			),
		},
	)
	tx, err := alice.SendOutputs(h.ctx, []ledger.Output{out}, nil)
	require.NoError(t, err)

	var id ledger.OutputID
	for i, o := range tx.Payload.Essence.Outputs {
		if o.Conditions().Expiration() != nil {
			id = ledger.NewOutputID(tx.TransactionID, uint16(i))
		}
	}

	aliceBalance := h.sync(alice)
	require.EqualValues(t, 1_000_000, aliceBalance.BaseCoin.Available)
	require.True(t, aliceBalance.PotentiallyLockedOutputs[id])

	bobBalance := h.sync(bob)
	require.EqualValues(t, 500_000, bobBalance.BaseCoin.Total)
	require.Zero(t, bobBalance.BaseCoin.Available)
	require.Contains(t, bobBalance.PotentiallyLockedOutputs, id)
	require.False(t, bobBalance.PotentiallyLockedOutputs[id])

	h.advance(5_001 * time.Second)

	bobBalance = h.sync(bob)
	require.EqualValues(t, 500_000, bobBalance.BaseCoin.Available)
	require.True(t, bobBalance.PotentiallyLockedOutputs[id])

	aliceBalance = h.sync(alice)
	require.EqualValues(t, 500_000, aliceBalance.BaseCoin.Available)
	require.False(t, aliceBalance.PotentiallyLockedOutputs[id])
}

// TestTimelockedBalance checks that timelocked funds only become available
// once the timelock passed.
func TestTimelockedBalance(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")

	locked := basicTo(alice.firstAddress(), 500_000)
	locked.UnlockConditions = append(locked.UnlockConditions,
		&ledger.TimelockUnlockCondition{
			UnixTime: uint32(h.clock.Now().Add(time.Hour).Unix()),
		},
	)
	id := h.node.Fund(locked)
	h.fund(alice, 1_000_000)

	balance := h.sync(alice)
	require.EqualValues(t, 1_500_000, balance.BaseCoin.Total)
	require.EqualValues(t, 1_000_000, balance.BaseCoin.Available)
	require.False(t, balance.PotentiallyLockedOutputs[id])

	// Timelocked outputs are never selected.
	_, err := alice.Send(h.ctx, []SendParams{{
		Address: alice.firstAddress(),
		Amount:  1_200_000,
	}}, nil)
	require.True(t, IsError(err, ErrInsufficientFunds), err)

	h.advance(2 * time.Hour)
	balance, err = alice.Balance(h.ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1_500_000, balance.BaseCoin.Available)
	require.True(t, balance.PotentiallyLockedOutputs[id])
}

// TestBalanceProperties checks the relations between the parts of a
// balance over arbitrary sets of plain outputs.
func TestBalanceProperties(t *testing.T) {
	t.Parallel()

	owner := ledger.Ed25519Address{1}
	rapid.Check(t, func(t *rapid.T) {
		d := newAccountDetails(0, DefaultCoinType, "prop")
		d.publicAddresses = []AccountAddress{{Address: owner}}

		n := rapid.IntRange(0, 20).Draw(t, "outputs")
		var total, unlocked ledger.BaseToken
		for i := 0; i < n; i++ {
			amount := rapid.Uint64Range(1, 1_000_000_000).Draw(t,
				"amount")
			id := ledger.NewOutputID(ledger.TransactionID{byte(i)}, 0)
			out := &OutputData{
				OutputID: id,
				Output:   basicTo(owner, amount),
				Amount:   amount,
				Address:  owner,
			}
			d.outputs[id] = out
			d.unspentOutputs[id] = out
			total += amount

			if rapid.Bool().Draw(t, "locked") {
				d.lockInputs([]ledger.OutputID{id})
				continue
			}
			unlocked += amount
		}

		b := d.balance(ledger.SimnetParams.RentStructure,
			uint32(testTime.Unix()))
		if b.BaseCoin.Total != total {
			t.Fatalf("total %d, want %d", b.BaseCoin.Total, total)
		}
		if b.BaseCoin.Available != unlocked {
			t.Fatalf("available %d, want %d", b.BaseCoin.Available,
				unlocked)
		}
		if b.BaseCoin.Available > b.BaseCoin.Total {
			t.Fatalf("available %d above total %d",
				b.BaseCoin.Available, b.BaseCoin.Total)
		}
		if len(b.PotentiallyLockedOutputs) != 0 {
			t.Fatalf("plain outputs reported as potentially locked")
		}
	})
}
