// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"bytes"
	"sort"

	"github.com/holiman/uint256"
)

// MaxNativeTokensCount is the maximum number of distinct native tokens a
// single output may hold.
const MaxNativeTokensCount = 64

// NativeToken is an amount of a user defined token held by an output.
type NativeToken struct {
	ID     TokenID
	Amount *uint256.Int
}

// NativeTokens is the list of native tokens held by an output.
type NativeTokens []*NativeToken

// Clone returns a deep copy of the list.
func (n NativeTokens) Clone() NativeTokens {
	if n == nil {
		return nil
	}
	out := make(NativeTokens, len(n))
	for i, t := range n {
		out[i] = &NativeToken{ID: t.ID, Amount: new(uint256.Int).Set(t.Amount)}
	}

	return out
}

// Sum adds up the amounts per token id.
func (n NativeTokens) Sum() NativeTokenSum {
	sum := make(NativeTokenSum, len(n))
	for _, t := range n {
		sum.Add(t.ID, t.Amount)
	}

	return sum
}

func (n NativeTokens) serialize(w *writer) {
	sorted := make(NativeTokens, len(n))
	copy(sorted, n)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})

	w.u8(uint8(len(sorted)))
	for _, t := range sorted {
		w.raw(t.ID[:])
		writeU256(w, t.Amount)
	}
}

func readNativeTokens(r *reader) NativeTokens {
	n := int(r.u8())
	if n > MaxNativeTokensCount {
		r.fail("too many native tokens: %d", n)
		return nil
	}
	if n == 0 {
		return nil
	}

	tokens := make(NativeTokens, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		var t NativeToken
		r.copyInto(t.ID[:])
		t.Amount = readU256(r)
		tokens = append(tokens, &t)
	}

	return tokens
}

// NativeTokenSum accumulates native token amounts by id.
type NativeTokenSum map[TokenID]*uint256.Int

// Add adds amount to the running total of id.
func (s NativeTokenSum) Add(id TokenID, amount *uint256.Int) {
	cur, ok := s[id]
	if !ok {
		cur = new(uint256.Int)
		s[id] = cur
	}
	cur.Add(cur, amount)
}

// Get returns the total for id, zero if the id is unknown.
func (s NativeTokenSum) Get(id TokenID) *uint256.Int {
	if v, ok := s[id]; ok {
		return v
	}
	return new(uint256.Int)
}

// ToNativeTokens converts the sum into a list, dropping zero amounts.
func (s NativeTokenSum) ToNativeTokens() NativeTokens {
	var out NativeTokens
	for id, amount := range s {
		if amount.IsZero() {
			continue
		}
		out = append(out, &NativeToken{
			ID:     id,
			Amount: new(uint256.Int).Set(amount),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})

	return out
}

// writeU256 writes v as 32 little endian bytes.
func writeU256(w *writer, v *uint256.Int) {
	be := v.Bytes32()
	var le [32]byte
	for i := range be {
		le[i] = be[31-i]
	}
	w.raw(le[:])
}

func readU256(r *reader) *uint256.Int {
	var le [32]byte
	r.copyInto(le[:])
	var be [32]byte
	for i := range le {
		be[i] = le[31-i]
	}

	return new(uint256.Int).SetBytes32(be[:])
}

// TokenSchemeType is the type byte of a token scheme.
type TokenSchemeType byte

// TokenSchemeSimple is the only token scheme in use.
const TokenSchemeSimple TokenSchemeType = 0

// SimpleTokenScheme tracks the supply of a native token controlled by a
// foundry.
type SimpleTokenScheme struct {
	MintedTokens  *uint256.Int
	MeltedTokens  *uint256.Int
	MaximumSupply *uint256.Int
}

// Type returns TokenSchemeSimple.
func (s *SimpleTokenScheme) Type() TokenSchemeType {
	return TokenSchemeSimple
}

// CirculatingSupply returns minted minus melted tokens.
func (s *SimpleTokenScheme) CirculatingSupply() *uint256.Int {
	return new(uint256.Int).Sub(s.MintedTokens, s.MeltedTokens)
}

// Clone returns a deep copy of the scheme.
func (s *SimpleTokenScheme) Clone() *SimpleTokenScheme {
	return &SimpleTokenScheme{
		MintedTokens:  new(uint256.Int).Set(s.MintedTokens),
		MeltedTokens:  new(uint256.Int).Set(s.MeltedTokens),
		MaximumSupply: new(uint256.Int).Set(s.MaximumSupply),
	}
}

// Valid returns false if melted tokens exceed minted tokens or the
// circulating supply exceeds the maximum supply.
func (s *SimpleTokenScheme) Valid() bool {
	if s.MaximumSupply.IsZero() {
		return false
	}
	if s.MeltedTokens.Gt(s.MintedTokens) {
		return false
	}
	return !s.CirculatingSupply().Gt(s.MaximumSupply)
}

func (s *SimpleTokenScheme) serialize(w *writer) {
	w.u8(byte(s.Type()))
	writeU256(w, s.MintedTokens)
	writeU256(w, s.MeltedTokens)
	writeU256(w, s.MaximumSupply)
}

func readTokenScheme(r *reader) *SimpleTokenScheme {
	t := TokenSchemeType(r.u8())
	if r.err == nil && t != TokenSchemeSimple {
		r.fail("unknown token scheme %d", t)
		return nil
	}

	return &SimpleTokenScheme{
		MintedTokens:  readU256(r),
		MeltedTokens:  readU256(r),
		MaximumSupply: readU256(r),
	}
}
