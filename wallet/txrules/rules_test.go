// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txrules

import (
	"testing"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var rent = ledger.SimnetParams.RentStructure

func drawAddress(t *rapid.T, label string) ledger.Address {
	var raw [32]byte
	copy(raw[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, label))

	switch rapid.IntRange(0, 2).Draw(t, label+"-kind") {
	case 0:
		return ledger.Ed25519Address(raw)
	case 1:
		return ledger.AliasAddress(raw)
	default:
		return ledger.NFTAddress(raw)
	}
}

func drawTemplate(t *rapid.T) *OutputTemplate {
	kinds := []ledger.OutputType{
		ledger.OutputBasic, ledger.OutputAlias, ledger.OutputFoundry,
		ledger.OutputNFT,
	}
	tmpl := &OutputTemplate{
		Kind: rapid.SampledFrom(kinds).Draw(t, "kind"),
	}

	owner := drawAddress(t, "owner")
	switch tmpl.Kind {
	case ledger.OutputAlias:
		tmpl.UnlockConditions = ledger.UnlockConditions{
			&ledger.StateControllerAddressUnlockCondition{Address: owner},
			&ledger.GovernorAddressUnlockCondition{Address: owner},
		}
		tmpl.StateMetadata = rapid.SliceOfN(rapid.Byte(), 0, 64).
			Draw(t, "state")

	case ledger.OutputFoundry:
		var alias ledger.AliasAddress
		copy(alias[:], rapid.SliceOfN(rapid.Byte(), 32, 32).
			Draw(t, "alias"))
		tmpl.UnlockConditions = ledger.UnlockConditions{
			&ledger.ImmutableAliasAddressUnlockCondition{Address: alias},
		}
		max := rapid.Uint64Min(1).Draw(t, "max")
		tmpl.TokenScheme = &ledger.SimpleTokenScheme{
			MintedTokens:  new(uint256.Int),
			MeltedTokens:  new(uint256.Int),
			MaximumSupply: uint256.NewInt(max),
		}

	default:
		tmpl.UnlockConditions = ledger.UnlockConditions{
			&ledger.AddressUnlockCondition{Address: owner},
		}
		if rapid.Bool().Draw(t, "expiring") {
			tmpl.UnlockConditions = append(tmpl.UnlockConditions,
				&ledger.ExpirationUnlockCondition{
					ReturnAddress: drawAddress(t, "return"),
					UnixTime:      rapid.Uint32().Draw(t, "expiry"),
				})
		}
	}

	if rapid.Bool().Draw(t, "tagged") {
		tmpl.Features = ledger.Features{&ledger.TagFeature{
			Tag: rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "tag"),
		}}
	}

	return tmpl
}

// TestStorageDepositRoundTrip checks an output built with its minimum
// storage deposit holds exactly that amount and stays valid with more.
func TestStorageDepositRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		tmpl := drawTemplate(t)

		min, err := MinimumStorageDeposit(rent, tmpl)
		require.NoError(t, err)

		out, err := Build(tmpl, min)
		require.NoError(t, err)
		require.Equal(t, min, out.Deposit())
		require.NoError(t, CheckOutput(rent, out))

		extra := rapid.Uint64Range(1, 1<<40).Draw(t, "extra")
		out, err = Build(tmpl, min+extra)
		require.NoError(t, err)
		require.NoError(t, CheckOutput(rent, out))

		out, err = Build(tmpl, min-1)
		require.NoError(t, err)
		require.ErrorIs(t, CheckOutput(rent, out), ErrOutputBelowDeposit)
	})
}

func TestMinimumBasicDeposit(t *testing.T) {
	t.Parallel()

	addr := ledger.Ed25519Address{1}
	require.Equal(t, ledger.BaseToken(42600),
		MinimumBasicDeposit(rent, addr))

	min, err := MinimumStorageDeposit(rent, &OutputTemplate{
		Kind: ledger.OutputBasic,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.AddressUnlockCondition{Address: addr},
		},
	})
	require.NoError(t, err)
	require.Equal(t, MinimumBasicDeposit(rent, addr), min)
}

func TestCheckOutput(t *testing.T) {
	t.Parallel()

	addr := ledger.Ed25519Address{1}
	tests := []struct {
		name string
		out  ledger.Output
		err  error
	}{{
		name: "zero amount",
		out: &ledger.BasicOutput{
			UnlockConditions: ledger.UnlockConditions{
				&ledger.AddressUnlockCondition{Address: addr},
			},
		},
		err: ErrAmountZero,
	}, {
		name: "no unlock conditions",
		out:  &ledger.BasicOutput{Amount: 1_000_000},
		err:  ErrNoUnlockConditions,
	}, {
		name: "valid",
		out: &ledger.BasicOutput{
			Amount: 1_000_000,
			UnlockConditions: ledger.UnlockConditions{
				&ledger.AddressUnlockCondition{Address: addr},
			},
		},
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			err := CheckOutput(rent, test.out)
			if test.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestLeavingDust(t *testing.T) {
	t.Parallel()

	addr := ledger.Ed25519Address{1}
	require.False(t, LeavingDust(rent, addr, 0, nil))
	require.True(t, LeavingDust(rent, addr, 1, nil))
	require.True(t, LeavingDust(rent, addr, 42599, nil))
	require.False(t, LeavingDust(rent, addr, 42600, nil))

	tokens := ledger.NativeTokens{{
		ID: ledger.TokenID{1}, Amount: uint256.NewInt(5),
	}}
	require.True(t, LeavingDust(rent, addr, 0, tokens))
	require.True(t, LeavingDust(rent, addr, 42600, tokens))

	_, err := MinimumStorageDeposit(rent, &OutputTemplate{Kind: 9})
	require.ErrorIs(t, err, ErrInvalidOutputKind)
}
