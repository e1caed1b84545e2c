// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/wallet/txrules"
	"github.com/holiman/uint256"
)

// InputSourceError describes the failure to provide enough input value from
// unspent outputs to meet a target.  A typed error is used so callers can
// tell a shortage apart from inconsistent requests.
type InputSourceError interface {
	error
	InputSourceError()
}

// InsufficientFundsError is returned when the base tokens of every usable
// input do not cover the outputs.
type InsufficientFundsError struct {
	Required  uint64
	Available uint64
}

// InputSourceError marks the error as a shortage.
func (*InsufficientFundsError) InputSourceError() {}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d, available %d",
		e.Required, e.Available)
}

// InsufficientNativeTokensError is returned when the inputs do not hold
// enough of a native token.
type InsufficientNativeTokensError struct {
	TokenID   ledger.TokenID
	Required  *uint256.Int
	Available *uint256.Int
}

// InputSourceError marks the error as a shortage.
func (*InsufficientNativeTokensError) InputSourceError() {}

func (e *InsufficientNativeTokensError) Error() string {
	return fmt.Sprintf("insufficient native token %v: required %v, "+
		"available %v", e.TokenID, e.Required, e.Available)
}

var (
	// ErrTooManyInputs is returned when covering the outputs needs more
	// inputs than a transaction may hold.
	ErrTooManyInputs = errors.New("too many inputs required")

	// ErrMissingChainInput is returned when an output continues an alias,
	// NFT or foundry that is not among the usable inputs.
	ErrMissingChainInput = errors.New("chain input not available")
)

// inputState holds the inputs selected so far together with what they have
// to cover.
type inputState struct {
	rent ledger.RentStructure

	// remainderAddress sizes the remainder output for the dust check.
	remainderAddress ledger.Address

	// required is the sum of the output amounts.
	required uint64

	// need is the amount of every native token the outputs hold, burn
	// or melt.
	need ledger.NativeTokenSum

	// minted is the amount of every native token foundries in the
	// outputs mint.
	minted ledger.NativeTokenSum

	inputs      []Input
	inputTotal  uint64
	inputTokens ledger.NativeTokenSum
	seen        map[ledger.OutputID]struct{}
}

// newInputState returns an empty state for the given outputs.  Foundries
// found among foundryInputs are the previous states of foundries in outputs.
func newInputState(rent ledger.RentStructure, remainderAddress ledger.Address,
	outputs []ledger.Output, foundryInputs []Input,
	burn ledger.NativeTokenSum) *inputState {

	s := &inputState{
		rent:             rent,
		remainderAddress: remainderAddress,
		need:             make(ledger.NativeTokenSum),
		minted:           make(ledger.NativeTokenSum),
		inputTokens:      make(ledger.NativeTokenSum),
		seen:             make(map[ledger.OutputID]struct{}),
	}
	if s.remainderAddress == nil {
		s.remainderAddress = ledger.Ed25519Address{}
	}

	for _, out := range outputs {
		s.required += out.Deposit()
		for _, t := range out.Tokens() {
			s.need.Add(t.ID, t.Amount)
		}
	}
	for id, amount := range burn {
		s.need.Add(id, amount)
	}

	previous := make(map[ledger.FoundryID]*uint256.Int)
	for _, in := range foundryInputs {
		f, ok := in.Output.(*ledger.FoundryOutput)
		if !ok {
			continue
		}
		if id, err := f.ID(); err == nil {
			previous[id] = f.TokenScheme.CirculatingSupply()
		}
	}
	for _, out := range outputs {
		f, ok := out.(*ledger.FoundryOutput)
		if !ok {
			continue
		}
		id, err := f.ID()
		if err != nil {
			continue
		}
		prev, ok := previous[id]
		if !ok {
			prev = new(uint256.Int)
		}
		cur := f.TokenScheme.CirculatingSupply()
		switch {
		case cur.Gt(prev):
			s.minted.Add(id, new(uint256.Int).Sub(cur, prev))
		case prev.Gt(cur):
			s.need.Add(id, new(uint256.Int).Sub(prev, cur))
		}
	}

	return s
}

// add appends inputs to the selection, skipping those already selected.
func (s *inputState) add(inputs ...Input) {
	for _, in := range inputs {
		if _, ok := s.seen[in.ID]; ok {
			continue
		}
		s.seen[in.ID] = struct{}{}
		s.inputs = append(s.inputs, in)
		s.inputTotal += in.Output.Deposit()
		for _, t := range in.Output.Tokens() {
			s.inputTokens.Add(t.ID, t.Amount)
		}
	}
}

// tokenShortage returns the first native token the selection does not hold
// enough of.
func (s *inputState) tokenShortage() *InsufficientNativeTokensError {
	ids := make([]ledger.TokenID, 0, len(s.need))
	for id := range s.need {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})

	for _, id := range ids {
		have := new(uint256.Int).Add(s.inputTokens.Get(id), s.minted.Get(id))
		need := s.need[id]
		if have.Lt(need) {
			return &InsufficientNativeTokensError{
				TokenID:   id,
				Required:  new(uint256.Int).Set(need),
				Available: have,
			}
		}
	}

	return nil
}

// remainderTokens returns the native tokens left over once the outputs,
// burns and melts are covered.  The caller checks tokenShortage first.
func (s *inputState) remainderTokens() ledger.NativeTokens {
	left := make(ledger.NativeTokenSum)
	for id, amount := range s.inputTokens {
		left.Add(id, amount)
	}
	for id, amount := range s.minted {
		left.Add(id, amount)
	}
	for id, amount := range s.need {
		cur := left.Get(id)
		left[id] = new(uint256.Int).Sub(cur, amount)
	}

	return left.ToNativeTokens()
}

// enoughInput returns true if the selection covers the outputs and leaves
// either nothing or a remainder able to hold its own storage deposit.
func (s *inputState) enoughInput() bool {
	if s.inputTotal < s.required || s.tokenShortage() != nil {
		return false
	}

	return !txrules.LeavingDust(
		s.rent, s.remainderAddress, s.inputTotal-s.required,
		s.remainderTokens(),
	)
}

// SelectParams holds what SelectInputs needs to know.
type SelectParams struct {
	Rent ledger.RentStructure

	// Available are the unlocked outputs the account may spend now.
	Available []Input

	// Mandatory inputs are always selected.
	Mandatory []Input

	// Outputs are the requested outputs, without remainder.
	Outputs []ledger.Output

	// Burn holds native tokens to destroy.
	Burn ledger.NativeTokenSum

	// RemainderAddress sizes a potential remainder.  The zero Ed25519
	// address is assumed when nil.
	RemainderAddress ledger.Address
}

// plainBasic returns true if in is a basic output that can be consumed
// without creating any output for it.
func plainBasic(in Input) bool {
	if in.Output.Type() != ledger.OutputBasic {
		return false
	}
	return in.Output.Conditions().StorageDepositReturn() == nil
}

// SelectInputs accumulates inputs until the outputs, the native tokens they
// need and a remainder that is not dust are covered.  Mandatory inputs and
// the previous states of chains continued by the outputs come first, then
// basic outputs holding missing native tokens, then an exact match over the
// basic outputs without native tokens, else those by descending amount.
func SelectInputs(p *SelectParams) ([]Input, error) {
	byChain := make(map[string]Input)
	for _, in := range p.Available {
		if addr := ledger.ChainAddress(in.Output, in.ID); addr != nil {
			byChain[addr.Key()] = in
		}
		if f, ok := in.Output.(*ledger.FoundryOutput); ok {
			if id, err := f.ID(); err == nil {
				byChain[string(id[:])] = in
			}
		}
	}

	var chainInputs []Input
	for _, out := range p.Outputs {
		var key string
		switch o := out.(type) {
		case *ledger.AliasOutput:
			if o.AliasID.Empty() {
				continue
			}
			key = o.AliasID.ToAddress().Key()

		case *ledger.NFTOutput:
			if o.NFTID.Empty() {
				continue
			}
			key = o.NFTID.ToAddress().Key()

		case *ledger.FoundryOutput:
			id, err := o.ID()
			if err != nil {
				return nil, err
			}
			in, ok := byChain[string(id[:])]
			if ok {
				chainInputs = append(chainInputs, in)
			}
			continue

		default:
			continue
		}

		in, ok := byChain[key]
		if !ok {
			if mandatoryHas(p.Mandatory, key) {
				continue
			}
			return nil, fmt.Errorf("%w: %x", ErrMissingChainInput,
				[]byte(key))
		}
		chainInputs = append(chainInputs, in)
	}

	s := newInputState(p.Rent, p.RemainderAddress, p.Outputs,
		append(append([]Input(nil), p.Mandatory...), chainInputs...),
		p.Burn)
	s.add(p.Mandatory...)
	s.add(chainInputs...)

	var plain []Input
	for _, in := range p.Available {
		if plainBasic(in) {
			plain = append(plain, in)
		}
	}
	sort.SliceStable(plain, func(i, j int) bool {
		ti, tj := len(plain[i].Output.Tokens()), len(plain[j].Output.Tokens())
		if (ti == 0) != (tj == 0) {
			return ti == 0
		}
		return plain[i].Output.Deposit() > plain[j].Output.Deposit()
	})

	// Native tokens first, so that base tokens are only added for what
	// is still missing afterwards.
	for short := s.tokenShortage(); short != nil; short = s.tokenShortage() {
		added := false
		for _, in := range plain {
			if _, ok := s.seen[in.ID]; ok {
				continue
			}
			if in.Output.Tokens().Sum().Get(short.TokenID).IsZero() {
				continue
			}
			s.add(in)
			added = true
			break
		}
		if !added {
			return nil, short
		}
	}

	// Spending an exact subset leaves no remainder at all.
	s.add(s.exactMatch(plain)...)

	for _, in := range plain {
		if s.enoughInput() {
			break
		}
		s.add(in)
	}

	switch {
	case s.inputTotal < s.required:
		return nil, &InsufficientFundsError{
			Required:  s.required,
			Available: s.inputTotal,
		}
	case !s.enoughInput():
		return nil, txrules.ErrRemainderLeavesDust
	case len(s.inputs) > ledger.MaxInputsCount:
		return nil, ErrTooManyInputs
	}

	return s.inputs, nil
}

// exactMatch returns plain inputs without native tokens whose amounts add up
// to exactly what the selection still misses, or nil when there is no such
// subset or the selection already carries a native token remainder.
func (s *inputState) exactMatch(plain []Input) []Input {
	if s.inputTotal >= s.required || len(s.remainderTokens()) > 0 {
		return nil
	}

	var (
		candidates []Input
		amounts    []uint64
	)
	for _, in := range plain {
		if _, ok := s.seen[in.ID]; ok || len(in.Output.Tokens()) > 0 {
			continue
		}
		candidates = append(candidates, in)
		amounts = append(amounts, in.Output.Deposit())
	}

	missing := s.required - s.inputTotal
	idx, err := SelectSubset(missing, amounts, nil)
	if err != nil || len(s.inputs)+len(idx) > ledger.MaxInputsCount {
		return nil
	}

	var sum uint64
	picked := make([]Input, 0, len(idx))
	for _, i := range idx {
		sum += amounts[i]
		picked = append(picked, candidates[i])
	}
	if sum != missing {
		return nil
	}

	return picked
}

func mandatoryHas(mandatory []Input, chainKey string) bool {
	for _, in := range mandatory {
		addr := ledger.ChainAddress(in.Output, in.ID)
		if addr != nil && addr.Key() == chainKey {
			return true
		}
	}
	return false
}
