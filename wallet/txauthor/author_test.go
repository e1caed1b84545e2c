// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"context"
	"math/rand"
	"testing"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/wallet/txrules"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var params = &ledger.SimnetParams

type testAccount struct {
	keys  *keychain.MemoryManager
	addrs []ledger.Ed25519Address
}

func newTestAccount(t *testing.T, seed string) *testAccount {
	t.Helper()

	keys := keychain.NewMemoryManagerFromPassphrase(seed)
	addrs, err := keys.GenerateAddresses(context.Background(),
		keychain.CoinTypeShimmer, 0, keychain.AddressRange{End: 3},
		keychain.GenerateAddressOptions{})
	require.NoError(t, err)

	return &testAccount{keys: keys, addrs: addrs}
}

func (a *testAccount) owns(addr ledger.Address) bool {
	for _, own := range a.addrs {
		if ledger.AddressesEqual(own, addr) {
			return true
		}
	}
	return false
}

func (a *testAccount) chain(i uint32) *keychain.Chain {
	return &keychain.Chain{
		CoinType:     keychain.CoinTypeShimmer,
		AddressIndex: i,
	}
}

func basicTo(addr ledger.Address, amount uint64) *ledger.BasicOutput {
	return &ledger.BasicOutput{
		Amount: amount,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.AddressUnlockCondition{Address: addr},
		},
	}
}

func outputID(b byte) ledger.OutputID {
	var txID ledger.TransactionID
	txID[0] = b
	return ledger.NewOutputID(txID, 0)
}

// input returns a basic input of amount owned by address i.
func (a *testAccount) input(b byte, i uint32, amount uint64) Input {
	return Input{
		ID:      outputID(b),
		Output:  basicTo(a.addrs[i], amount),
		Address: a.addrs[i],
		Chain:   a.chain(i),
	}
}

// signAndVerify signs tx and runs semantic validation on the result.
func (a *testAccount) signAndVerify(t *testing.T, tx *AuthoredTx) {
	t.Helper()

	unlocks, err := a.keys.SignTransactionEssence(
		context.Background(), tx.SignRequest(0),
	)
	require.NoError(t, err)

	payload := &ledger.TransactionPayload{
		Essence: tx.Essence,
		Unlocks: unlocks,
	}
	require.Equal(t, ledger.ConflictNone,
		ledger.VerifySemantic(payload, tx.Consumed(), 0))
}

func TestSendWholeInputWithoutRemainder(t *testing.T) {
	t.Parallel()

	acct := newTestAccount(t, "whole input")
	recipient := ledger.Ed25519Address{0xbb}
	outputs := []ledger.Output{basicTo(recipient, 1_000_000)}
	available := []Input{acct.input(1, 0, 1_000_000)}

	selected, err := SelectInputs(&SelectParams{
		Rent:      params.RentStructure,
		Available: available,
		Outputs:   outputs,
	})
	require.NoError(t, err)
	require.Len(t, selected, 1)

	tx, err := NewUnsignedTransaction(&Params{
		Protocol: params,
		Inputs:   selected,
		Outputs:  outputs,
		Owns:     acct.owns,
	})
	require.NoError(t, err)
	require.Nil(t, tx.Remainder)
	require.Equal(t, -1, tx.RemainderIndex)
	require.Len(t, tx.Essence.Outputs, 1)
	require.Equal(t, []ledger.OutputID{outputID(1)}, tx.Essence.Inputs)

	acct.signAndVerify(t, tx)
}

func TestRemainderStrategies(t *testing.T) {
	t.Parallel()

	acct := newTestAccount(t, "remainder")
	custom := ledger.Ed25519Address{0xcc}
	change := ledger.Ed25519Address{0xdd}

	tests := []struct {
		name   string
		change *ChangeSource
		addr   ledger.Address
	}{{
		name: "default reuses the first input address",
		addr: acct.addrs[1],
	}, {
		name: "change address",
		change: &ChangeSource{
			Strategy: ChangeAddress,
			NewAddress: func() (ledger.Address, *keychain.Chain,
				error) {

				return change, acct.chain(9), nil
			},
		},
		addr: change,
	}, {
		name:   "custom address",
		change: &ChangeSource{Strategy: CustomAddress, Custom: custom},
		addr:   custom,
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			tx, err := NewUnsignedTransaction(&Params{
				Protocol: params,
				Inputs: []Input{
					acct.input(2, 2, 700_000),
					acct.input(1, 1, 800_000),
				},
				Outputs: []ledger.Output{
					basicTo(ledger.Ed25519Address{0xbb},
						1_000_000),
				},
				Change: test.change,
				Owns:   acct.owns,
			})
			require.NoError(t, err)
			require.NotNil(t, tx.Remainder)
			require.True(t, ledger.AddressesEqual(test.addr,
				tx.Remainder.Address))
			require.Equal(t, uint64(500_000),
				tx.Remainder.Output.Deposit())
			require.Same(t, tx.Remainder.Output,
				tx.Essence.Outputs[tx.RemainderIndex])

			acct.signAndVerify(t, tx)
		})
	}
}

func TestCanonicalOrder(t *testing.T) {
	t.Parallel()

	acct := newTestAccount(t, "canonical")
	inputs := []Input{
		acct.input(5, 0, 100_000),
		acct.input(3, 1, 200_000),
		acct.input(9, 2, 300_000),
		acct.input(1, 0, 400_000),
	}
	outputs := []ledger.Output{
		basicTo(ledger.Ed25519Address{0x01}, 300_000),
		basicTo(ledger.Ed25519Address{0x02}, 500_000),
		basicTo(ledger.Ed25519Address{0x03}, 100_000),
	}

	build := func(seed int64) *ledger.TransactionEssence {
		r := rand.New(rand.NewSource(seed))
		in := append([]Input(nil), inputs...)
		out := append([]ledger.Output(nil), outputs...)
		r.Shuffle(len(in), func(i, j int) { in[i], in[j] = in[j], in[i] })
		r.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})

		tx, err := NewUnsignedTransaction(&Params{
			Protocol: params,
			Inputs:   in,
			Outputs:  out,
			Change:   &ChangeSource{Strategy: CustomAddress, Custom: acct.addrs[0]},
			Owns:     acct.owns,
		})
		require.NoError(t, err)
		return tx.Essence
	}

	first := build(1)
	for seed := int64(2); seed < 10; seed++ {
		require.Equal(t, first.Serialize(), build(seed).Serialize())
	}
	for i := 1; i < len(first.Inputs); i++ {
		require.True(t, first.Inputs[i-1].Less(first.Inputs[i]))
	}
}

// TestChainOwnedInputOrder checks an input owned by an alias is placed
// behind the alias input even when its id sorts first.
func TestChainOwnedInputOrder(t *testing.T) {
	t.Parallel()

	acct := newTestAccount(t, "alias owner")
	owner := acct.addrs[0]
	aliasID := ledger.AliasID{0xaa}
	alias := &ledger.AliasOutput{
		Amount:  100_000,
		AliasID: aliasID,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.StateControllerAddressUnlockCondition{Address: owner},
			&ledger.GovernorAddressUnlockCondition{Address: owner},
		},
	}
	next := alias.Clone().(*ledger.AliasOutput)
	next.StateIndex++

	inputs := []Input{{
		ID:      outputID(9),
		Output:  alias,
		Address: owner,
		Chain:   acct.chain(0),
	}, {
		ID:      outputID(1),
		Output:  basicTo(aliasID.ToAddress(), 200_000),
		Address: aliasID.ToAddress(),
	}}

	tx, err := NewUnsignedTransaction(&Params{
		Protocol: params,
		Inputs:   inputs,
		Outputs:  []ledger.Output{next},
		Owns:     acct.owns,
	})
	require.NoError(t, err)
	require.Equal(t, []ledger.OutputID{outputID(9), outputID(1)},
		tx.Essence.Inputs)
	require.True(t, ledger.AddressesEqual(owner, tx.Remainder.Address))

	acct.signAndVerify(t, tx)

	_, err = NewUnsignedTransaction(&Params{
		Protocol: params,
		Inputs:   inputs[1:],
		Outputs:  []ledger.Output{basicTo(owner, 200_000)},
		Owns:     acct.owns,
	})
	require.ErrorIs(t, err, ErrMissingChainInput)
}

func TestNewUnsignedTransactionErrors(t *testing.T) {
	t.Parallel()

	acct := newTestAccount(t, "errors")
	stranger := ledger.Ed25519Address{0xee}
	recipient := ledger.Ed25519Address{0xbb}

	tests := []struct {
		name    string
		inputs  []Input
		outputs []ledger.Output
		check   func(t *testing.T, err error)
	}{{
		name:    "insufficient funds",
		inputs:  []Input{acct.input(1, 0, 500_000)},
		outputs: []ledger.Output{basicTo(recipient, 600_000)},
		check: func(t *testing.T, err error) {
			var insufficient *InsufficientFundsError
			require.ErrorAs(t, err, &insufficient)
			require.Equal(t, uint64(600_000), insufficient.Required)
		},
	}, {
		name:    "remainder below deposit",
		inputs:  []Input{acct.input(1, 0, 510_000)},
		outputs: []ledger.Output{basicTo(recipient, 500_000)},
		check: func(t *testing.T, err error) {
			require.ErrorIs(t, err, txrules.ErrRemainderLeavesDust)
		},
	}, {
		name: "input address not owned",
		inputs: []Input{{
			ID:      outputID(1),
			Output:  basicTo(stranger, 500_000),
			Address: stranger,
			Chain:   acct.chain(0),
		}},
		outputs: []ledger.Output{basicTo(recipient, 500_000)},
		check: func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrAddressNotFound)
		},
	}, {
		name:    "output below deposit",
		inputs:  []Input{acct.input(1, 0, 500_000)},
		outputs: []ledger.Output{basicTo(recipient, 1_000)},
		check: func(t *testing.T, err error) {
			require.ErrorIs(t, err, txrules.ErrOutputBelowDeposit)
		},
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewUnsignedTransaction(&Params{
				Protocol: params,
				Inputs:   test.inputs,
				Outputs:  test.outputs,
				Owns:     acct.owns,
			})
			test.check(t, err)
		})
	}
}

func TestSelectInputs(t *testing.T) {
	t.Parallel()

	acct := newTestAccount(t, "select")
	recipient := ledger.Ed25519Address{0xbb}
	tokenID := ledger.TokenID{0x08, 0x01}

	withTokens := acct.input(4, 0, 100_000)
	withTokens.Output.(*ledger.BasicOutput).NativeTokens =
		ledger.NativeTokens{{ID: tokenID, Amount: uint256.NewInt(50)}}

	available := []Input{
		acct.input(1, 0, 300_000),
		acct.input(2, 1, 900_000),
		acct.input(3, 2, 510_000),
		withTokens,
	}

	t.Run("largest first", func(t *testing.T) {
		t.Parallel()

		selected, err := SelectInputs(&SelectParams{
			Rent:      params.RentStructure,
			Available: available,
			Outputs:   []ledger.Output{basicTo(recipient, 800_000)},
		})
		require.NoError(t, err)
		require.Len(t, selected, 1)
		require.Equal(t, outputID(2), selected[0].ID)
	})

	t.Run("avoids dust remainder", func(t *testing.T) {
		t.Parallel()

		// 900k alone leaves 10k, below the deposit of a remainder.
		selected, err := SelectInputs(&SelectParams{
			Rent:      params.RentStructure,
			Available: available,
			Outputs:   []ledger.Output{basicTo(recipient, 890_000)},
		})
		require.NoError(t, err)
		require.Len(t, selected, 2)
	})

	t.Run("exact match", func(t *testing.T) {
		t.Parallel()

		// 300k + 510k covers 810k without a remainder, where the
		// largest output alone would leave 90k behind.
		selected, err := SelectInputs(&SelectParams{
			Rent:      params.RentStructure,
			Available: available,
			Outputs:   []ledger.Output{basicTo(recipient, 810_000)},
		})
		require.NoError(t, err)
		require.Len(t, selected, 2)
		require.ElementsMatch(t,
			[]ledger.OutputID{outputID(1), outputID(3)},
			[]ledger.OutputID{selected[0].ID, selected[1].ID})
	})

	t.Run("native tokens", func(t *testing.T) {
		t.Parallel()

		out := basicTo(recipient, 100_000)
		out.NativeTokens = ledger.NativeTokens{{
			ID: tokenID, Amount: uint256.NewInt(20),
		}}
		selected, err := SelectInputs(&SelectParams{
			Rent:      params.RentStructure,
			Available: available,
			Outputs:   []ledger.Output{out},
		})
		require.NoError(t, err)
		require.Equal(t, outputID(4), selected[0].ID)

		tx, err := NewUnsignedTransaction(&Params{
			Protocol: params,
			Inputs:   selected,
			Outputs:  []ledger.Output{out},
			Owns:     acct.owns,
		})
		require.NoError(t, err)
		require.Equal(t, uint64(30),
			tx.Remainder.Output.Tokens()[0].Amount.Uint64())
		acct.signAndVerify(t, tx)

		out.NativeTokens[0].Amount = uint256.NewInt(51)
		_, err = SelectInputs(&SelectParams{
			Rent:      params.RentStructure,
			Available: available,
			Outputs:   []ledger.Output{out},
		})
		var short *InsufficientNativeTokensError
		require.ErrorAs(t, err, &short)
		require.Equal(t, tokenID, short.TokenID)
	})

	t.Run("mandatory inputs", func(t *testing.T) {
		t.Parallel()

		selected, err := SelectInputs(&SelectParams{
			Rent:      params.RentStructure,
			Available: available,
			Mandatory: []Input{available[0]},
			Outputs:   []ledger.Output{basicTo(recipient, 300_000)},
		})
		require.NoError(t, err)
		require.Len(t, selected, 1)
		require.Equal(t, outputID(1), selected[0].ID)
	})

	t.Run("insufficient", func(t *testing.T) {
		t.Parallel()

		_, err := SelectInputs(&SelectParams{
			Rent:      params.RentStructure,
			Available: available,
			Outputs:   []ledger.Output{basicTo(recipient, 5_000_000)},
		})
		var insufficient *InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		require.Equal(t, uint64(1_810_000), insufficient.Available)
	})
}
