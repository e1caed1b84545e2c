// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ConflictReason explains why the network rejected a transaction.
type ConflictReason uint8

const (
	ConflictNone                        ConflictReason = 0
	ConflictInputAlreadySpent           ConflictReason = 1
	ConflictInputSpentInThisMilestone   ConflictReason = 2
	ConflictInputNotFound               ConflictReason = 3
	ConflictInputOutputSumMismatch      ConflictReason = 4
	ConflictInvalidSignature            ConflictReason = 5
	ConflictTimelockNotExpired          ConflictReason = 6
	ConflictInvalidNativeTokens         ConflictReason = 7
	ConflictReturnAmountNotFulfilled    ConflictReason = 8
	ConflictInvalidInputUnlock          ConflictReason = 9
	ConflictInvalidInputsCommitment     ConflictReason = 10
	ConflictInvalidSender               ConflictReason = 11
	ConflictInvalidChainStateTransition ConflictReason = 12
	ConflictSemanticValidationFailed    ConflictReason = 255
)

var conflictReasonStrings = map[ConflictReason]string{
	ConflictNone:                        "none",
	ConflictInputAlreadySpent:           "input already spent",
	ConflictInputSpentInThisMilestone:   "input spent in this milestone",
	ConflictInputNotFound:               "input not found",
	ConflictInputOutputSumMismatch:      "input and output amounts differ",
	ConflictInvalidSignature:            "invalid signature",
	ConflictTimelockNotExpired:          "timelock not expired",
	ConflictInvalidNativeTokens:         "invalid native tokens",
	ConflictReturnAmountNotFulfilled:    "storage deposit return not fulfilled",
	ConflictInvalidInputUnlock:          "invalid input unlock",
	ConflictInvalidInputsCommitment:     "invalid inputs commitment",
	ConflictInvalidSender:               "invalid sender",
	ConflictInvalidChainStateTransition: "invalid chain state transition",
	ConflictSemanticValidationFailed:    "semantic validation failed",
}

// String returns the description of the conflict reason.
func (c ConflictReason) String() string {
	if s, ok := conflictReasonStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown conflict reason (%d)", uint8(c))
}

// semanticContext carries the state accumulated while validating a single
// transaction.
type semanticContext struct {
	tx       *TransactionPayload
	inputs   []OutputWithID
	unixTime uint32
	hash     []byte

	// unlocked holds the keys of every address the transaction proved
	// control over.
	unlocked map[string]struct{}

	// signers maps the key of a signature unlocked address to the index
	// of its signature unlock.
	signers map[string]int
}

// VerifySemantic validates tx against the outputs it consumes at unixTime.
// inputs must be given in the order of the essence inputs.
func VerifySemantic(tx *TransactionPayload, inputs []OutputWithID,
	unixTime uint32) ConflictReason {

	essence := tx.Essence
	if len(inputs) != len(essence.Inputs) {
		return ConflictInputNotFound
	}
	outs := make([]Output, len(inputs))
	for i, in := range inputs {
		if in.ID != essence.Inputs[i] || in.Output == nil {
			return ConflictInputNotFound
		}
		outs[i] = in.Output
	}

	if ComputeInputsCommitment(outs) != essence.InputsCommitment {
		return ConflictInvalidInputsCommitment
	}

	var inSum, outSum uint64
	for _, out := range outs {
		inSum += out.Deposit()
	}
	for _, out := range essence.Outputs {
		outSum += out.Deposit()
	}
	if inSum != outSum {
		return ConflictInputOutputSumMismatch
	}

	for _, out := range outs {
		if IsTimelocked(out, unixTime) {
			return ConflictTimelockNotExpired
		}
	}

	hash := essence.SigningHash()
	ctx := &semanticContext{
		tx:       tx,
		inputs:   inputs,
		unixTime: unixTime,
		hash:     hash[:],
		unlocked: make(map[string]struct{}),
		signers:  make(map[string]int),
	}
	if reason := ctx.verifyUnlocks(); reason != ConflictNone {
		return reason
	}
	if reason := ctx.verifyStorageDepositReturns(); reason != ConflictNone {
		return reason
	}
	if reason := ctx.verifySenders(); reason != ConflictNone {
		return reason
	}
	if reason := ctx.verifyChains(); reason != ConflictNone {
		return reason
	}

	return ctx.verifyNativeTokens()
}

// RequiredUnlockAddress returns the address that must unlock in when it is
// consumed by a transaction creating outputs at unixTime.  Aliases are
// unlocked by their state controller when the alias continues with the next
// state index, and by the governor otherwise.
func RequiredUnlockAddress(in OutputWithID, outputs []Output,
	unixTime uint32) Address {

	alias, ok := in.Output.(*AliasOutput)
	if !ok {
		return UnlockAddress(in.Output, unixTime)
	}

	id := ResolvedAliasID(alias, in.ID)
	for _, out := range outputs {
		next, ok := out.(*AliasOutput)
		if !ok || next.AliasID != id {
			continue
		}
		if next.StateIndex == alias.StateIndex+1 {
			return UnlockAddress(alias, unixTime)
		}
	}

	return GovernorAddress(alias)
}

func (c *semanticContext) requiredAddress(i int) Address {
	return RequiredUnlockAddress(c.inputs[i], c.tx.Essence.Outputs,
		c.unixTime)
}

func (c *semanticContext) verifyUnlocks() ConflictReason {
	unlocks := c.tx.Unlocks
	if len(unlocks) != len(c.inputs) {
		return ConflictInvalidInputUnlock
	}

	for i, u := range unlocks {
		required := c.requiredAddress(i)
		if required == nil {
			return ConflictInvalidInputUnlock
		}

		switch u := u.(type) {
		case *SignatureUnlock:
			if required.Type() != AddressEd25519 {
				return ConflictInvalidInputUnlock
			}
			signer := u.Address()
			if !AddressesEqual(signer, required) {
				return ConflictInvalidInputUnlock
			}
			if _, dup := c.signers[signer.Key()]; dup {
				return ConflictInvalidInputUnlock
			}
			if !u.Valid(c.hash) {
				return ConflictInvalidSignature
			}
			c.signers[signer.Key()] = i

		case *ReferenceUnlock:
			ref := int(u.Reference)
			if ref >= i {
				return ConflictInvalidInputUnlock
			}
			sig, ok := unlocks[ref].(*SignatureUnlock)
			if !ok || !AddressesEqual(sig.Address(), required) {
				return ConflictInvalidInputUnlock
			}

		case *AliasUnlock:
			ref := int(u.Reference)
			if ref >= i {
				return ConflictInvalidInputUnlock
			}
			alias, ok := c.inputs[ref].Output.(*AliasOutput)
			if !ok {
				return ConflictInvalidInputUnlock
			}
			addr := ResolvedAliasID(alias, c.inputs[ref].ID).ToAddress()
			if !AddressesEqual(addr, required) {
				return ConflictInvalidInputUnlock
			}

		case *NFTUnlock:
			ref := int(u.Reference)
			if ref >= i {
				return ConflictInvalidInputUnlock
			}
			nft, ok := c.inputs[ref].Output.(*NFTOutput)
			if !ok {
				return ConflictInvalidInputUnlock
			}
			addr := ResolvedNFTID(nft, c.inputs[ref].ID).ToAddress()
			if !AddressesEqual(addr, required) {
				return ConflictInvalidInputUnlock
			}

		default:
			return ConflictInvalidInputUnlock
		}

		c.unlocked[required.Key()] = struct{}{}
		if chain := ChainAddress(c.inputs[i].Output, c.inputs[i].ID); chain != nil {
			c.unlocked[chain.Key()] = struct{}{}
		}
	}

	return ConflictNone
}

// verifyStorageDepositReturns checks that every unexpired storage deposit
// return condition is paid back by plain basic outputs.
func (c *semanticContext) verifyStorageDepositReturns() ConflictReason {
	required := make(map[string]uint64)
	for _, in := range c.inputs {
		sdr := in.Output.Conditions().StorageDepositReturn()
		if sdr == nil || IsExpired(in.Output, c.unixTime) {
			continue
		}
		required[sdr.ReturnAddress.Key()] += sdr.Amount
	}
	if len(required) == 0 {
		return ConflictNone
	}

	returned := make(map[string]uint64)
	for _, out := range c.tx.Essence.Outputs {
		basic, ok := out.(*BasicOutput)
		if !ok || len(basic.UnlockConditions) != 1 {
			continue
		}
		if len(basic.NativeTokens) != 0 {
			continue
		}
		addr := basic.UnlockConditions.Address()
		if addr == nil {
			continue
		}
		returned[addr.Address.Key()] += basic.Amount
	}

	for key, amount := range required {
		if returned[key] < amount {
			return ConflictReturnAmountNotFulfilled
		}
	}

	return ConflictNone
}

func (c *semanticContext) verifySenders() ConflictReason {
	for _, out := range c.tx.Essence.Outputs {
		sender := out.FeatureSet().Sender()
		if sender == nil {
			continue
		}
		if _, ok := c.unlocked[sender.Address.Key()]; !ok {
			return ConflictInvalidSender
		}
	}

	return ConflictNone
}

// verifyChains checks that existing aliases and NFTs are only continued if
// they are consumed, and that aliases advance their state at most by one.
func (c *semanticContext) verifyChains() ConflictReason {
	aliases := make(map[AliasID]*AliasOutput)
	nfts := make(map[NFTID]struct{})
	for _, in := range c.inputs {
		switch o := in.Output.(type) {
		case *AliasOutput:
			aliases[ResolvedAliasID(o, in.ID)] = o
		case *NFTOutput:
			nfts[ResolvedNFTID(o, in.ID)] = struct{}{}
		}
	}

	for _, out := range c.tx.Essence.Outputs {
		switch o := out.(type) {
		case *AliasOutput:
			if o.AliasID.Empty() {
				if o.StateIndex != 0 || o.FoundryCounter != 0 {
					return ConflictInvalidChainStateTransition
				}
				continue
			}
			prev, ok := aliases[o.AliasID]
			if !ok {
				return ConflictInvalidChainStateTransition
			}
			if o.StateIndex != prev.StateIndex &&
				o.StateIndex != prev.StateIndex+1 {

				return ConflictInvalidChainStateTransition
			}
			if o.FoundryCounter < prev.FoundryCounter {
				return ConflictInvalidChainStateTransition
			}

		case *NFTOutput:
			if o.NFTID.Empty() {
				continue
			}
			if _, ok := nfts[o.NFTID]; !ok {
				return ConflictInvalidChainStateTransition
			}
		}
	}

	return ConflictNone
}

type foundryPair struct {
	in, out *FoundryOutput
}

// verifyNativeTokens checks token conservation.  Tokens may be burned
// without their foundry, while minting and melting require the foundry to
// transition accordingly.
func (c *semanticContext) verifyNativeTokens() ConflictReason {
	inSum := make(NativeTokenSum)
	for _, in := range c.inputs {
		for _, t := range in.Output.Tokens() {
			inSum.Add(t.ID, t.Amount)
		}
	}
	outSum := make(NativeTokenSum)
	for _, out := range c.tx.Essence.Outputs {
		for _, t := range out.Tokens() {
			if t.Amount.IsZero() {
				return ConflictInvalidNativeTokens
			}
			outSum.Add(t.ID, t.Amount)
		}
	}

	foundries := make(map[FoundryID]*foundryPair)
	for _, in := range c.inputs {
		f, ok := in.Output.(*FoundryOutput)
		if !ok {
			continue
		}
		id, err := f.ID()
		if err != nil {
			return ConflictInvalidNativeTokens
		}
		foundries[id] = &foundryPair{in: f}
	}
	outputAliases := make(map[AliasID]struct{})
	for _, out := range c.tx.Essence.Outputs {
		if a, ok := out.(*AliasOutput); ok {
			outputAliases[a.AliasID] = struct{}{}
		}
	}
	for _, out := range c.tx.Essence.Outputs {
		f, ok := out.(*FoundryOutput)
		if !ok {
			continue
		}
		id, err := f.ID()
		if err != nil || !f.TokenScheme.Valid() {
			return ConflictInvalidNativeTokens
		}
		pair, ok := foundries[id]
		if !ok {
			aliasID := id.AliasAddress().AliasID()
			if _, ok := outputAliases[aliasID]; !ok {
				return ConflictInvalidChainStateTransition
			}
			pair = &foundryPair{}
			foundries[id] = pair
		}
		pair.out = f
	}

	for id, pair := range foundries {
		if reason := checkFoundry(id, pair, inSum, outSum); reason != ConflictNone {
			return reason
		}
	}

	for id, amount := range outSum {
		if _, ok := foundries[id]; ok {
			continue
		}
		if amount.Gt(inSum.Get(id)) {
			return ConflictInvalidNativeTokens
		}
	}

	return ConflictNone
}

func checkFoundry(id FoundryID, pair *foundryPair, inSum,
	outSum NativeTokenSum) ConflictReason {

	in := inSum.Get(id)
	out := outSum.Get(id)

	zero := new(uint256.Int)
	prevMinted, prevMelted := zero, zero
	if pair.in != nil {
		prevMinted = pair.in.TokenScheme.MintedTokens
		prevMelted = pair.in.TokenScheme.MeltedTokens
	}

	// Destroyed foundries take their remaining supply with them, nothing
	// may be left in the outputs.
	if pair.out == nil {
		if !out.IsZero() {
			return ConflictInvalidNativeTokens
		}
		return ConflictNone
	}

	scheme := pair.out.TokenScheme
	if scheme.MintedTokens.Lt(prevMinted) || scheme.MeltedTokens.Lt(prevMelted) {
		return ConflictInvalidNativeTokens
	}
	if pair.in != nil && !scheme.MaximumSupply.Eq(pair.in.TokenScheme.MaximumSupply) {
		return ConflictInvalidNativeTokens
	}

	minted := new(uint256.Int).Sub(scheme.MintedTokens, prevMinted)
	melted := new(uint256.Int).Sub(scheme.MeltedTokens, prevMelted)

	// in + minted must equal out + melted + burned, burned >= 0.
	lhs := new(uint256.Int).Add(in, minted)
	rhs := new(uint256.Int).Add(out, melted)
	if lhs.Lt(rhs) {
		return ConflictInvalidNativeTokens
	}
	if !minted.IsZero() && !lhs.Eq(rhs) {
		return ConflictInvalidNativeTokens
	}

	return ConflictNone
}
