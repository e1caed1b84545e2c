// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"
)

// BaseToken is an amount of the base currency.
type BaseToken = uint64

// OutputType is the type byte of a serialized output.
type OutputType byte

const (
	// OutputBasic holds base tokens and native tokens.
	OutputBasic OutputType = 3

	// OutputAlias is a chain output with a state controller and a
	// governor that can control foundries.
	OutputAlias OutputType = 4

	// OutputFoundry controls the supply of a native token.
	OutputFoundry OutputType = 5

	// OutputNFT is a chain output representing a unique token.
	OutputNFT OutputType = 6
)

// String returns the human readable name of the output type.
func (t OutputType) String() string {
	switch t {
	case OutputBasic:
		return "Basic"
	case OutputAlias:
		return "Alias"
	case OutputFoundry:
		return "Foundry"
	case OutputNFT:
		return "Nft"
	default:
		return fmt.Sprintf("OutputType(%d)", byte(t))
	}
}

// Output is an entry of the ledger.
type Output interface {
	// Type returns the kind of the output.
	Type() OutputType

	// Deposit returns the amount of base tokens held by the output.
	Deposit() BaseToken

	// Tokens returns the native tokens held by the output.
	Tokens() NativeTokens

	// Conditions returns the unlock conditions of the output.
	Conditions() UnlockConditions

	// FeatureSet returns the mutable features of the output.
	FeatureSet() Features

	// Clone returns a deep copy of the output.
	Clone() Output

	serialize(w *writer)
}

// BasicOutput holds tokens owned by an address.
type BasicOutput struct {
	Amount           BaseToken
	NativeTokens     NativeTokens
	UnlockConditions UnlockConditions
	Features         Features
}

// Type returns OutputBasic.
func (o *BasicOutput) Type() OutputType { return OutputBasic }

// Deposit returns the base token amount.
func (o *BasicOutput) Deposit() BaseToken { return o.Amount }

// Tokens returns the native tokens.
func (o *BasicOutput) Tokens() NativeTokens { return o.NativeTokens }

// Conditions returns the unlock conditions.
func (o *BasicOutput) Conditions() UnlockConditions { return o.UnlockConditions }

// FeatureSet returns the features.
func (o *BasicOutput) FeatureSet() Features { return o.Features }

// Clone returns a deep copy of the output.
func (o *BasicOutput) Clone() Output {
	return &BasicOutput{
		Amount:           o.Amount,
		NativeTokens:     o.NativeTokens.Clone(),
		UnlockConditions: append(UnlockConditions(nil), o.UnlockConditions...),
		Features:         append(Features(nil), o.Features...),
	}
}

func (o *BasicOutput) serialize(w *writer) {
	w.u8(byte(o.Type()))
	w.u64(o.Amount)
	o.NativeTokens.serialize(w)
	o.UnlockConditions.serialize(w)
	o.Features.serialize(w)
}

// AliasOutput is a chain output that can control foundries and hold state
// metadata.
type AliasOutput struct {
	Amount            BaseToken
	NativeTokens      NativeTokens
	AliasID           AliasID
	StateIndex        uint32
	StateMetadata     []byte
	FoundryCounter    uint32
	UnlockConditions  UnlockConditions
	Features          Features
	ImmutableFeatures Features
}

// Type returns OutputAlias.
func (o *AliasOutput) Type() OutputType { return OutputAlias }

// Deposit returns the base token amount.
func (o *AliasOutput) Deposit() BaseToken { return o.Amount }

// Tokens returns the native tokens.
func (o *AliasOutput) Tokens() NativeTokens { return o.NativeTokens }

// Conditions returns the unlock conditions.
func (o *AliasOutput) Conditions() UnlockConditions { return o.UnlockConditions }

// FeatureSet returns the mutable features.
func (o *AliasOutput) FeatureSet() Features { return o.Features }

// Clone returns a deep copy of the output.
func (o *AliasOutput) Clone() Output {
	return &AliasOutput{
		Amount:            o.Amount,
		NativeTokens:      o.NativeTokens.Clone(),
		AliasID:           o.AliasID,
		StateIndex:        o.StateIndex,
		StateMetadata:     append([]byte(nil), o.StateMetadata...),
		FoundryCounter:    o.FoundryCounter,
		UnlockConditions:  append(UnlockConditions(nil), o.UnlockConditions...),
		Features:          append(Features(nil), o.Features...),
		ImmutableFeatures: append(Features(nil), o.ImmutableFeatures...),
	}
}

func (o *AliasOutput) serialize(w *writer) {
	w.u8(byte(o.Type()))
	w.u64(o.Amount)
	o.NativeTokens.serialize(w)
	w.raw(o.AliasID[:])
	w.u32(o.StateIndex)
	w.prefixed16(o.StateMetadata)
	w.u32(o.FoundryCounter)
	o.UnlockConditions.serialize(w)
	o.Features.serialize(w)
	o.ImmutableFeatures.serialize(w)
}

// FoundryOutput controls the supply of the native token identified by its
// foundry id.
type FoundryOutput struct {
	Amount            BaseToken
	NativeTokens      NativeTokens
	SerialNumber      uint32
	TokenScheme       *SimpleTokenScheme
	UnlockConditions  UnlockConditions
	Features          Features
	ImmutableFeatures Features
}

// Type returns OutputFoundry.
func (o *FoundryOutput) Type() OutputType { return OutputFoundry }

// Deposit returns the base token amount.
func (o *FoundryOutput) Deposit() BaseToken { return o.Amount }

// Tokens returns the native tokens.
func (o *FoundryOutput) Tokens() NativeTokens { return o.NativeTokens }

// Conditions returns the unlock conditions.
func (o *FoundryOutput) Conditions() UnlockConditions { return o.UnlockConditions }

// FeatureSet returns the mutable features.
func (o *FoundryOutput) FeatureSet() Features { return o.Features }

// ID returns the foundry id, which is also the id of its native token.
func (o *FoundryOutput) ID() (FoundryID, error) {
	uc := o.UnlockConditions.ImmutableAlias()
	if uc == nil {
		return FoundryID{}, fmt.Errorf("foundry output without " +
			"immutable alias unlock condition")
	}

	return NewFoundryID(uc.Address, o.SerialNumber, o.TokenScheme.Type()), nil
}

// Clone returns a deep copy of the output.
func (o *FoundryOutput) Clone() Output {
	return &FoundryOutput{
		Amount:            o.Amount,
		NativeTokens:      o.NativeTokens.Clone(),
		SerialNumber:      o.SerialNumber,
		TokenScheme:       o.TokenScheme.Clone(),
		UnlockConditions:  append(UnlockConditions(nil), o.UnlockConditions...),
		Features:          append(Features(nil), o.Features...),
		ImmutableFeatures: append(Features(nil), o.ImmutableFeatures...),
	}
}

func (o *FoundryOutput) serialize(w *writer) {
	w.u8(byte(o.Type()))
	w.u64(o.Amount)
	o.NativeTokens.serialize(w)
	w.u32(o.SerialNumber)
	o.TokenScheme.serialize(w)
	o.UnlockConditions.serialize(w)
	o.Features.serialize(w)
	o.ImmutableFeatures.serialize(w)
}

// NFTOutput is a chain output representing a non fungible token.
type NFTOutput struct {
	Amount            BaseToken
	NativeTokens      NativeTokens
	NFTID             NFTID
	UnlockConditions  UnlockConditions
	Features          Features
	ImmutableFeatures Features
}

// Type returns OutputNFT.
func (o *NFTOutput) Type() OutputType { return OutputNFT }

// Deposit returns the base token amount.
func (o *NFTOutput) Deposit() BaseToken { return o.Amount }

// Tokens returns the native tokens.
func (o *NFTOutput) Tokens() NativeTokens { return o.NativeTokens }

// Conditions returns the unlock conditions.
func (o *NFTOutput) Conditions() UnlockConditions { return o.UnlockConditions }

// FeatureSet returns the mutable features.
func (o *NFTOutput) FeatureSet() Features { return o.Features }

// Clone returns a deep copy of the output.
func (o *NFTOutput) Clone() Output {
	return &NFTOutput{
		Amount:            o.Amount,
		NativeTokens:      o.NativeTokens.Clone(),
		NFTID:             o.NFTID,
		UnlockConditions:  append(UnlockConditions(nil), o.UnlockConditions...),
		Features:          append(Features(nil), o.Features...),
		ImmutableFeatures: append(Features(nil), o.ImmutableFeatures...),
	}
}

func (o *NFTOutput) serialize(w *writer) {
	w.u8(byte(o.Type()))
	w.u64(o.Amount)
	o.NativeTokens.serialize(w)
	w.raw(o.NFTID[:])
	o.UnlockConditions.serialize(w)
	o.Features.serialize(w)
	o.ImmutableFeatures.serialize(w)
}

// SerializeOutput returns the canonical binary form of out.
func SerializeOutput(out Output) []byte {
	var w writer
	out.serialize(&w)

	return w.bytes()
}

// DeserializeOutput parses the canonical binary form of an output.
func DeserializeOutput(b []byte) (Output, error) {
	r := newReader(b)
	out := readOutput(r)
	if err := r.done(); err != nil {
		return nil, err
	}

	return out, nil
}

func readOutput(r *reader) Output {
	t := OutputType(r.u8())
	if r.err != nil {
		return nil
	}

	switch t {
	case OutputBasic:
		o := &BasicOutput{Amount: r.u64()}
		o.NativeTokens = readNativeTokens(r)
		o.UnlockConditions = readUnlockConditions(r)
		o.Features = readFeatures(r)
		return o

	case OutputAlias:
		o := &AliasOutput{Amount: r.u64()}
		o.NativeTokens = readNativeTokens(r)
		r.copyInto(o.AliasID[:])
		o.StateIndex = r.u32()
		o.StateMetadata = r.prefixed16()
		o.FoundryCounter = r.u32()
		o.UnlockConditions = readUnlockConditions(r)
		o.Features = readFeatures(r)
		o.ImmutableFeatures = readFeatures(r)
		return o

	case OutputFoundry:
		o := &FoundryOutput{Amount: r.u64()}
		o.NativeTokens = readNativeTokens(r)
		o.SerialNumber = r.u32()
		o.TokenScheme = readTokenScheme(r)
		o.UnlockConditions = readUnlockConditions(r)
		o.Features = readFeatures(r)
		o.ImmutableFeatures = readFeatures(r)
		return o

	case OutputNFT:
		o := &NFTOutput{Amount: r.u64()}
		o.NativeTokens = readNativeTokens(r)
		r.copyInto(o.NFTID[:])
		o.UnlockConditions = readUnlockConditions(r)
		o.Features = readFeatures(r)
		o.ImmutableFeatures = readFeatures(r)
		return o

	default:
		r.fail("unknown output type %d", t)
		return nil
	}
}

// ResolvedAliasID returns the id of the alias held by out, deriving it from
// the output id if the alias was created by this very output.
func ResolvedAliasID(out *AliasOutput, id OutputID) AliasID {
	if out.AliasID.Empty() {
		return AliasIDFromOutputID(id)
	}
	return out.AliasID
}

// ResolvedNFTID returns the id of the NFT held by out, deriving it from the
// output id if the NFT was minted by this very output.
func ResolvedNFTID(out *NFTOutput, id OutputID) NFTID {
	if out.NFTID.Empty() {
		return NFTIDFromOutputID(id)
	}
	return out.NFTID
}

// ChainAddress returns the address controlled by a chain output, or nil for
// outputs that do not control an address.
func ChainAddress(out Output, id OutputID) Address {
	switch o := out.(type) {
	case *AliasOutput:
		return ResolvedAliasID(o, id).ToAddress()
	case *NFTOutput:
		return ResolvedNFTID(o, id).ToAddress()
	default:
		return nil
	}
}

// IsTimelocked returns true if the output cannot be spent at unixTime.
func IsTimelocked(out Output, unixTime uint32) bool {
	tl := out.Conditions().Timelock()
	return tl != nil && unixTime < tl.UnixTime
}

// IsExpired returns true if the output carries an expiration condition that
// has been reached at unixTime.
func IsExpired(out Output, unixTime uint32) bool {
	exp := out.Conditions().Expiration()
	return exp != nil && unixTime >= exp.UnixTime
}

// UnlockAddress returns the address that has to unlock out at unixTime.
// Alias outputs are reported with their state controller, which is the
// address used for state transitions.
func UnlockAddress(out Output, unixTime uint32) Address {
	conds := out.Conditions()
	switch out.(type) {
	case *AliasOutput:
		if sc := conds.StateController(); sc != nil {
			return sc.Address
		}
		return nil

	case *FoundryOutput:
		if ia := conds.ImmutableAlias(); ia != nil {
			return ia.Address
		}
		return nil
	}

	if IsExpired(out, unixTime) {
		return conds.Expiration().ReturnAddress
	}
	if a := conds.Address(); a != nil {
		return a.Address
	}

	return nil
}

// GovernorAddress returns the governor of an alias output, or nil.
func GovernorAddress(out *AliasOutput) Address {
	if g := out.UnlockConditions.Governor(); g != nil {
		return g.Address
	}
	return nil
}

// OwnerAddress returns the address a basic or NFT output is locked to,
// ignoring expiration.
func OwnerAddress(out Output) Address {
	conds := out.Conditions()
	switch out.(type) {
	case *AliasOutput:
		return UnlockAddress(out, 0)
	case *FoundryOutput:
		return UnlockAddress(out, 0)
	}
	if a := conds.Address(); a != nil {
		return a.Address
	}

	return nil
}
