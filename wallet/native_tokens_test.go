// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// TestNativeTokenLifecycle walks a token through its foundry: the alias is
// created, the foundry mints and melts, then both are destroyed.
func TestNativeTokenLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.newAccount("alice")
	h.fund(alice, 10_000_000)
	h.sync(alice)

	// A foundry needs an alias to control it.
	_, err := alice.CreateNativeToken(h.ctx, &CreateNativeTokenParams{
		MaximumSupply: uint256.NewInt(100),
	}, nil)
	require.True(t, IsError(err, ErrMintingFailed), err)

	_, err = alice.CreateAliasOutput(h.ctx, &CreateAliasParams{
		StateMetadata: []byte("state"),
	}, nil)
	require.NoError(t, err)
	balance := h.sync(alice)
	require.Len(t, balance.Aliases, 1)
	aliasID := balance.Aliases[0]

	// The circulating supply cannot exceed the maximum.
	_, err = alice.CreateNativeToken(h.ctx, &CreateNativeTokenParams{
		CirculatingSupply: uint256.NewInt(200),
		MaximumSupply:     uint256.NewInt(100),
	}, nil)
	require.True(t, IsError(err, ErrMintingFailed), err)

	created, err := alice.CreateNativeToken(h.ctx, &CreateNativeTokenParams{
		CirculatingSupply: uint256.NewInt(50),
		MaximumSupply:     uint256.NewInt(100),
		FoundryMetadata:   []byte(`{"name":"test"}`),
	}, nil)
	require.NoError(t, err)
	tokenID := created.TokenID
	require.Equal(t, aliasID, tokenID.AliasAddress().AliasID())

	balance = h.sync(alice)
	require.Equal(t, []ledger.FoundryID{tokenID}, balance.Foundries)
	token := tokenBalance(balance, tokenID)
	require.NotNil(t, token)
	require.Equal(t, uint256.NewInt(50), token.Total)
	require.Equal(t, []byte(`{"name":"test"}`), token.Metadata)

	_, err = alice.MintNativeToken(h.ctx, tokenID, uint256.NewInt(20), nil)
	require.NoError(t, err)
	balance = h.sync(alice)
	require.Equal(t, uint256.NewInt(70), tokenBalance(balance, tokenID).Total)

	_, err = alice.MintNativeToken(h.ctx, tokenID, uint256.NewInt(31), nil)
	require.True(t, IsError(err, ErrMintingFailed), err)

	// The foundry cannot go while tokens circulate.
	_, err = alice.DestroyFoundry(h.ctx, tokenID, nil)
	require.True(t, IsError(err, ErrBurningOrMeltingFailed), err)

	_, err = alice.MeltNativeToken(h.ctx, tokenID, uint256.NewInt(71), nil)
	require.True(t, IsError(err, ErrBurningOrMeltingFailed), err)

	_, err = alice.MeltNativeToken(h.ctx, tokenID, uint256.NewInt(70), nil)
	require.NoError(t, err)
	balance = h.sync(alice)
	require.Nil(t, tokenBalance(balance, tokenID))

	// The alias cannot go while it controls a foundry.
	_, err = alice.DestroyAlias(h.ctx, aliasID, nil)
	require.True(t, IsError(err, ErrBurningOrMeltingFailed), err)

	_, err = alice.DestroyFoundry(h.ctx, tokenID, nil)
	require.NoError(t, err)
	balance = h.sync(alice)
	require.Empty(t, balance.Foundries)
	require.Len(t, balance.Aliases, 1)

	_, err = alice.DestroyAlias(h.ctx, aliasID, nil)
	require.NoError(t, err)
	balance = h.sync(alice)
	require.Empty(t, balance.Aliases)

	// Every deposit came back.
	require.EqualValues(t, 10_000_000, balance.BaseCoin.Total)
	require.EqualValues(t, 10_000_000, balance.BaseCoin.Available)
}
