// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txrules

import (
	"errors"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/holiman/uint256"
)

// Output rule violations.
var (
	ErrAmountZero          = errors.New("output holds no base tokens")
	ErrNoUnlockConditions  = errors.New("output has no unlock conditions")
	ErrInvalidOutputKind   = errors.New("invalid output kind")
	ErrOutputBelowDeposit  = errors.New("output amount below storage deposit")
	ErrRemainderLeavesDust = errors.New("remainder below storage deposit")
)

// OutputTemplate holds the fields of an output that contribute to its
// storage deposit.  Fields that do not apply to Kind are ignored.
type OutputTemplate struct {
	Kind              ledger.OutputType
	NativeTokens      ledger.NativeTokens
	UnlockConditions  ledger.UnlockConditions
	Features          ledger.Features
	ImmutableFeatures ledger.Features

	// StateMetadata is only used by alias outputs.
	StateMetadata []byte

	// TokenScheme is only used by foundry outputs.  A nil scheme is
	// sized as an empty one.
	TokenScheme *ledger.SimpleTokenScheme
}

// Build returns an output of the template kind holding amount.  Chain ids,
// state indexes and counters are zero, which is how they are created.
func Build(t *OutputTemplate, amount ledger.BaseToken) (ledger.Output, error) {
	switch t.Kind {
	case ledger.OutputBasic:
		return &ledger.BasicOutput{
			Amount:           amount,
			NativeTokens:     t.NativeTokens,
			UnlockConditions: t.UnlockConditions,
			Features:         t.Features,
		}, nil

	case ledger.OutputAlias:
		return &ledger.AliasOutput{
			Amount:            amount,
			NativeTokens:      t.NativeTokens,
			StateMetadata:     t.StateMetadata,
			UnlockConditions:  t.UnlockConditions,
			Features:          t.Features,
			ImmutableFeatures: t.ImmutableFeatures,
		}, nil

	case ledger.OutputFoundry:
		scheme := t.TokenScheme
		if scheme == nil {
			scheme = &ledger.SimpleTokenScheme{
				MintedTokens:  new(uint256.Int),
				MeltedTokens:  new(uint256.Int),
				MaximumSupply: new(uint256.Int),
			}
		}
		return &ledger.FoundryOutput{
			Amount:            amount,
			NativeTokens:      t.NativeTokens,
			TokenScheme:       scheme,
			UnlockConditions:  t.UnlockConditions,
			Features:          t.Features,
			ImmutableFeatures: t.ImmutableFeatures,
		}, nil

	case ledger.OutputNFT:
		return &ledger.NFTOutput{
			Amount:            amount,
			NativeTokens:      t.NativeTokens,
			UnlockConditions:  t.UnlockConditions,
			Features:          t.Features,
			ImmutableFeatures: t.ImmutableFeatures,
		}, nil
	}

	return nil, ErrInvalidOutputKind
}

// MinimumStorageDeposit returns the smallest amount an output built from t
// may hold.  The amount field has a fixed width, so sizing a throwaway
// output holding one base token gives the floor for every amount.
func MinimumStorageDeposit(rent ledger.RentStructure,
	t *OutputTemplate) (ledger.BaseToken, error) {

	out, err := Build(t, 1)
	if err != nil {
		return 0, err
	}

	return rent.MinDeposit(out), nil
}

// MinimumBasicDeposit returns the storage deposit of a basic output
// unlocked by addr alone.
func MinimumBasicDeposit(rent ledger.RentStructure,
	addr ledger.Address) ledger.BaseToken {

	return rent.MinDeposit(&ledger.BasicOutput{
		Amount: 1,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.AddressUnlockCondition{Address: addr},
		},
	})
}

// CheckOutput performs the checks the network applies to every created
// output.
func CheckOutput(rent ledger.RentStructure, out ledger.Output) error {
	switch {
	case out.Deposit() == 0:
		return ErrAmountZero
	case len(out.Conditions()) == 0:
		return ErrNoUnlockConditions
	case !rent.CoversRent(out):
		return ErrOutputBelowDeposit
	}

	return nil
}

// LeavingDust returns true if a remainder of amount holding tokens could not
// be returned to addr, because it is not zero yet below the storage deposit
// of the output that would carry it.
func LeavingDust(rent ledger.RentStructure, addr ledger.Address,
	amount ledger.BaseToken, tokens ledger.NativeTokens) bool {

	if amount == 0 && len(tokens) == 0 {
		return false
	}

	min := rent.MinDeposit(&ledger.BasicOutput{
		Amount:       1,
		NativeTokens: tokens,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.AddressUnlockCondition{Address: addr},
		},
	})

	return amount < min
}
