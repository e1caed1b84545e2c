// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txauthor provides transaction creation code for wallets.
package txauthor

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/wallet/txrules"
)

// ErrAddressNotFound is returned when an input is unlocked by an address
// the account does not own.  It signals corrupted account state rather
// than a user error.
var ErrAddressNotFound = errors.New("input address not found in account")

// Input is an output the transaction consumes.
type Input struct {
	ID     ledger.OutputID
	Output ledger.Output

	// Address has to unlock the input at the time the transaction is
	// built.
	Address ledger.Address

	// Chain locates the key of Address.  It is nil for inputs unlocked
	// by an alias or NFT.
	Chain *keychain.Chain
}

// RemainderStrategy selects where the remainder of a transaction goes.
type RemainderStrategy uint8

const (
	// ReuseAddress sends the remainder to the address of the first
	// input.
	ReuseAddress RemainderStrategy = iota

	// ChangeAddress sends the remainder to a freshly derived internal
	// address.
	ChangeAddress

	// CustomAddress sends the remainder to a caller supplied address.
	CustomAddress
)

// String returns the strategy name.
func (s RemainderStrategy) String() string {
	switch s {
	case ReuseAddress:
		return "ReuseAddress"
	case ChangeAddress:
		return "ChangeAddress"
	case CustomAddress:
		return "CustomAddress"
	}
	return fmt.Sprintf("RemainderStrategy(%d)", uint8(s))
}

// ChangeSource provides the remainder address.
type ChangeSource struct {
	Strategy RemainderStrategy

	// Custom is the address used by CustomAddress.
	Custom ledger.Address

	// NewAddress derives an internal address for ChangeAddress.  It is
	// only invoked when a remainder is actually needed.
	NewAddress func() (ledger.Address, *keychain.Chain, error)
}

// Remainder is the output returning the leftover of the inputs.
type Remainder struct {
	Output  ledger.Output
	Address ledger.Address

	// Chain is set when the remainder address belongs to the account.
	Chain *keychain.Chain
}

// AuthoredTx holds the state of a newly created transaction and its
// remainder output, if one was added.
type AuthoredTx struct {
	Essence *ledger.TransactionEssence

	// Inputs are in essence order.
	Inputs []Input

	Remainder *Remainder

	// RemainderIndex is the index of the remainder in the essence
	// outputs, negative if there is none.
	RemainderIndex int
}

// SignRequest returns the request a secret manager needs to unlock every
// input at unixTime.
func (tx *AuthoredTx) SignRequest(unixTime uint32) *keychain.SignRequest {
	req := &keychain.SignRequest{
		Essence:  tx.Essence,
		Inputs:   make([]keychain.InputSigningData, 0, len(tx.Inputs)),
		UnixTime: unixTime,
	}
	for _, in := range tx.Inputs {
		req.Inputs = append(req.Inputs, keychain.InputSigningData{
			OutputID: in.ID,
			Output:   in.Output,
			Chain:    in.Chain,
		})
	}

	return req
}

// Consumed returns the inputs as outputs with ids, in essence order.
func (tx *AuthoredTx) Consumed() []ledger.OutputWithID {
	res := make([]ledger.OutputWithID, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		res = append(res, ledger.OutputWithID{ID: in.ID, Output: in.Output})
	}
	return res
}

// Params describes the transaction to author.
type Params struct {
	Protocol *ledger.ProtocolParameters

	// Inputs are the selected inputs in any order.
	Inputs []Input

	// Outputs are the requested outputs, without remainder.
	Outputs []ledger.Output

	// Burn holds native tokens to destroy instead of returning them in
	// the remainder.
	Burn ledger.NativeTokenSum

	// Change provides the remainder address.  A nil Change behaves like
	// ReuseAddress.
	Change *ChangeSource

	// Payload is attached to the essence when set.
	Payload *ledger.TaggedData

	// Owns reports whether the account owns addr.  Every Ed25519
	// address unlocking an input has to be owned.
	Owns func(addr ledger.Address) bool
}

// NewUnsignedTransaction assembles an essence consuming every input and
// creating every output plus a remainder for what is left.  Inputs and
// outputs are put in canonical order, so the same logical transaction
// always yields the same essence.
//
// The only I/O it may perform is deriving a change address.
func NewUnsignedTransaction(p *Params) (*AuthoredTx, error) {
	if len(p.Inputs) == 0 {
		return nil, &InsufficientFundsError{}
	}
	for _, out := range p.Outputs {
		if err := txrules.CheckOutput(p.Protocol.RentStructure, out); err != nil {
			return nil, err
		}
	}

	inputs, err := orderInputs(p.Inputs)
	if err != nil {
		return nil, err
	}
	for _, in := range inputs {
		if in.Address.Type() != ledger.AddressEd25519 {
			continue
		}
		if p.Owns == nil || !p.Owns(in.Address) {
			return nil, fmt.Errorf("%w: %v", ErrAddressNotFound,
				in.Address)
		}
	}

	state := newInputState(p.Protocol.RentStructure, nil, p.Outputs,
		inputs, p.Burn)
	state.add(inputs...)
	if state.inputTotal < state.required {
		return nil, &InsufficientFundsError{
			Required:  state.required,
			Available: state.inputTotal,
		}
	}
	if short := state.tokenShortage(); short != nil {
		return nil, short
	}

	outputs := append([]ledger.Output(nil), p.Outputs...)
	remainderAmount := state.inputTotal - state.required
	remainderTokens := state.remainderTokens()

	var remainder *Remainder
	if remainderAmount > 0 || len(remainderTokens) > 0 {
		addr, chain, err := remainderAddress(p.Change, inputs)
		if err != nil {
			return nil, err
		}
		if txrules.LeavingDust(p.Protocol.RentStructure, addr,
			remainderAmount, remainderTokens) {

			return nil, txrules.ErrRemainderLeavesDust
		}

		remainder = &Remainder{
			Output: &ledger.BasicOutput{
				Amount:       remainderAmount,
				NativeTokens: remainderTokens,
				UnlockConditions: ledger.UnlockConditions{
					&ledger.AddressUnlockCondition{Address: addr},
				},
			},
			Address: addr,
			Chain:   chain,
		}
		outputs = append(outputs, remainder.Output)
	}

	outputs = orderOutputs(outputs)
	remainderIndex := -1
	for i, out := range outputs {
		if remainder != nil && out == remainder.Output {
			remainderIndex = i
		}
	}

	essence := &ledger.TransactionEssence{
		NetworkID: p.Protocol.NetworkID(),
		Outputs:   outputs,
		Payload:   p.Payload,
	}
	consumed := make([]ledger.Output, 0, len(inputs))
	for _, in := range inputs {
		essence.Inputs = append(essence.Inputs, in.ID)
		consumed = append(consumed, in.Output)
	}
	essence.InputsCommitment = ledger.ComputeInputsCommitment(consumed)

	if err := essence.SyntacticallyValid(p.Protocol); err != nil {
		return nil, err
	}

	return &AuthoredTx{
		Essence:        essence,
		Inputs:         inputs,
		Remainder:      remainder,
		RemainderIndex: remainderIndex,
	}, nil
}

// remainderAddress picks the remainder address according to the change
// source.
func remainderAddress(change *ChangeSource,
	inputs []Input) (ledger.Address, *keychain.Chain, error) {

	strategy := ReuseAddress
	if change != nil {
		strategy = change.Strategy
	}

	switch strategy {
	case ChangeAddress:
		if change.NewAddress == nil {
			return nil, nil, errors.New("no change address source")
		}
		return change.NewAddress()

	case CustomAddress:
		if change.Custom == nil {
			return nil, nil, errors.New("no custom remainder address")
		}
		return change.Custom, nil, nil
	}

	for _, in := range inputs {
		if in.Chain != nil {
			chain := *in.Chain
			return in.Address, &chain, nil
		}
	}

	return nil, nil, errors.New("no input address to reuse")
}

// orderInputs sorts inputs by id and then moves every input unlocked by an
// alias or NFT behind the input of that alias or NFT, since unlocks may
// only reference earlier inputs.
func orderInputs(inputs []Input) ([]Input, error) {
	sorted := append([]Input(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID.Less(sorted[j].ID)
	})

	chains := make(map[string]struct{})
	for _, in := range sorted {
		if addr := ledger.ChainAddress(in.Output, in.ID); addr != nil {
			chains[addr.Key()] = struct{}{}
		}
	}

	placed := make(map[string]struct{}, len(chains))
	ordered := make([]Input, 0, len(sorted))
	done := make([]bool, len(sorted))
	for len(ordered) < len(sorted) {
		progress := false
		for i, in := range sorted {
			if done[i] {
				continue
			}
			if in.Address.Type() != ledger.AddressEd25519 {
				key := in.Address.Key()
				if _, ok := chains[key]; !ok {
					return nil, fmt.Errorf("%w: %v",
						ErrMissingChainInput, in.Address)
				}
				if _, ok := placed[key]; !ok {
					continue
				}
			}

			done[i] = true
			progress = true
			ordered = append(ordered, in)
			if addr := ledger.ChainAddress(in.Output, in.ID); addr != nil {
				placed[addr.Key()] = struct{}{}
			}
		}
		if !progress {
			return nil, errors.New("circular chain ownership among " +
				"inputs")
		}
	}

	return ordered, nil
}

// orderOutputs sorts outputs by their serialized form.
func orderOutputs(outputs []ledger.Output) []ledger.Output {
	type keyed struct {
		key []byte
		out ledger.Output
	}
	ks := make([]keyed, len(outputs))
	for i, out := range outputs {
		ks[i] = keyed{key: ledger.SerializeOutput(out), out: out}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		return bytes.Compare(ks[i].key, ks[j].key) < 0
	})

	sorted := make([]ledger.Output, len(ks))
	for i, k := range ks {
		sorted[i] = k.out
	}

	return sorted
}
