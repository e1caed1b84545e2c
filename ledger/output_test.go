// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testAddress(b byte) Ed25519Address {
	var a Ed25519Address
	for i := range a {
		a[i] = b
	}
	return a
}

// TestBasicOutputMinDeposit checks the storage deposit of the smallest
// possible output against the known network value.
func TestBasicOutputMinDeposit(t *testing.T) {
	t.Parallel()

	out := &BasicOutput{
		Amount: 1,
		UnlockConditions: UnlockConditions{
			&AddressUnlockCondition{Address: testAddress(1)},
		},
	}

	rent := SimnetParams.RentStructure
	require.Len(t, SerializeOutput(out), 46)
	require.EqualValues(t, 426, rent.VBytes(out))
	require.EqualValues(t, 42600, rent.MinDeposit(out))
	require.False(t, rent.CoversRent(out))

	out.Amount = 42600
	require.True(t, rent.CoversRent(out))
}

func drawAddress(t *rapid.T, label string) Address {
	var raw [32]byte
	copy(raw[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, label))

	switch rapid.IntRange(0, 2).Draw(t, label+"Type") {
	case 0:
		return Ed25519Address(raw)
	case 1:
		return AliasAddress(raw)
	default:
		return NFTAddress(raw)
	}
}

func drawOutput(t *rapid.T) Output {
	conds := UnlockConditions{
		&AddressUnlockCondition{Address: drawAddress(t, "owner")},
	}
	if rapid.Bool().Draw(t, "withExpiration") {
		conds = append(conds, &ExpirationUnlockCondition{
			ReturnAddress: drawAddress(t, "return"),
			UnixTime:      rapid.Uint32().Draw(t, "expiration"),
		})
	}
	if rapid.Bool().Draw(t, "withSDRUC") {
		conds = append(conds, &StorageDepositReturnUnlockCondition{
			ReturnAddress: drawAddress(t, "sdrucReturn"),
			Amount:        rapid.Uint64().Draw(t, "sdrucAmount"),
		})
	}

	var feats Features
	if rapid.Bool().Draw(t, "withTag") {
		feats = append(feats, &TagFeature{
			Tag: rapid.SliceOfN(rapid.Byte(), 1, MaxTagLength).Draw(t, "tag"),
		})
	}
	if rapid.Bool().Draw(t, "withMetadata") {
		feats = append(feats, &MetadataFeature{
			Data: rapid.SliceOfN(rapid.Byte(), 1, 256).Draw(t, "metadata"),
		})
	}

	var tokens NativeTokens
	numTokens := rapid.IntRange(0, 3).Draw(t, "numTokens")
	for i := 0; i < numTokens; i++ {
		var id TokenID
		copy(id[:], rapid.SliceOfN(rapid.Byte(), FoundryIDLength,
			FoundryIDLength).Draw(t, "tokenID"))
		tokens = append(tokens, &NativeToken{
			ID:     id,
			Amount: uint256.NewInt(rapid.Uint64Min(1).Draw(t, "tokenAmount")),
		})
	}

	amount := rapid.Uint64().Draw(t, "amount")
	switch rapid.IntRange(0, 1).Draw(t, "kind") {
	case 0:
		return &BasicOutput{
			Amount:           amount,
			NativeTokens:     tokens,
			UnlockConditions: conds,
			Features:         feats,
		}
	default:
		var id NFTID
		copy(id[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "nftID"))
		return &NFTOutput{
			Amount:           amount,
			NativeTokens:     tokens,
			NFTID:            id,
			UnlockConditions: conds,
			Features:         feats,
		}
	}
}

// TestOutputSerializationCanonical asserts that decoding and re-encoding an
// output yields the same bytes, regardless of the order conditions and
// features were given in.
func TestOutputSerializationCanonical(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		out := drawOutput(t)
		raw := SerializeOutput(out)

		decoded, err := DeserializeOutput(raw)
		require.NoError(t, err)
		require.Equal(t, out.Type(), decoded.Type())
		require.Equal(t, out.Deposit(), decoded.Deposit())
		require.Equal(t, raw, SerializeOutput(decoded))
		require.Equal(t, raw, SerializeOutput(decoded.Clone()))
	})
}

func TestDeserializeOutputErrors(t *testing.T) {
	t.Parallel()

	out := &BasicOutput{
		Amount: 42600,
		UnlockConditions: UnlockConditions{
			&AddressUnlockCondition{Address: testAddress(2)},
		},
	}
	raw := SerializeOutput(out)

	_, err := DeserializeOutput(raw[:len(raw)-2])
	require.ErrorIs(t, err, ErrUnexpectedEOF)

	_, err = DeserializeOutput(append(raw, 0))
	require.ErrorIs(t, err, ErrTrailingBytes)

	bad := append([]byte(nil), raw...)
	bad[0] = 42
	_, err = DeserializeOutput(bad)
	require.Error(t, err)
}

func TestUnlockAddressExpiration(t *testing.T) {
	t.Parallel()

	owner := testAddress(1)
	sender := testAddress(2)
	out := &BasicOutput{
		Amount: 100_000,
		UnlockConditions: UnlockConditions{
			&AddressUnlockCondition{Address: owner},
			&ExpirationUnlockCondition{
				ReturnAddress: sender,
				UnixTime:      1000,
			},
		},
	}

	require.True(t, AddressesEqual(owner, UnlockAddress(out, 999)))
	require.True(t, AddressesEqual(sender, UnlockAddress(out, 1000)))
	require.True(t, AddressesEqual(owner, OwnerAddress(out)))
}

func TestChainIDResolution(t *testing.T) {
	t.Parallel()

	var txID TransactionID
	txID[0] = 7
	id := NewOutputID(txID, 3)
	require.Equal(t, txID, id.TransactionID())
	require.EqualValues(t, 3, id.Index())

	alias := &AliasOutput{}
	require.Equal(t, AliasIDFromOutputID(id), ResolvedAliasID(alias, id))

	alias.AliasID = AliasID{1}
	require.Equal(t, AliasID{1}, ResolvedAliasID(alias, id))

	foundryID := NewFoundryID(AliasAddress{9}, 5, TokenSchemeSimple)
	require.Equal(t, AliasAddress{9}, foundryID.AliasAddress())
	require.EqualValues(t, 5, foundryID.SerialNumber())
}

func TestBech32RoundTrip(t *testing.T) {
	t.Parallel()

	for _, addr := range []Address{
		testAddress(3), AliasAddress{4}, NFTAddress{5},
	} {
		encoded := addr.Bech32("smr")
		hrp, decoded, err := ParseBech32(encoded)
		require.NoError(t, err)
		require.Equal(t, "smr", hrp)
		require.True(t, AddressesEqual(addr, decoded))
	}

	_, _, err := ParseBech32("smr1invalid")
	require.Error(t, err)
}
