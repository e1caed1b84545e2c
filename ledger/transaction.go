// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	// MaxInputsCount is the maximum number of inputs of a transaction.
	MaxInputsCount = 128

	// MaxOutputsCount is the maximum number of outputs of a transaction.
	MaxOutputsCount = 128

	// MaxTaggedDataTagLength is the maximum tag length of a tagged data
	// payload.
	MaxTaggedDataTagLength = 64

	// MaxBlockParents is the maximum number of parents of a block.
	MaxBlockParents = 8
)

// PayloadType is the type prefix of a serialized payload.
type PayloadType uint32

const (
	// PayloadTransaction is a signed transaction.
	PayloadTransaction PayloadType = 6

	// PayloadTaggedData is arbitrary data with a tag.
	PayloadTaggedData PayloadType = 5
)

// TaggedData is a payload carrying tagged arbitrary data.  Transactions may
// embed one in their essence.
type TaggedData struct {
	Tag  []byte
	Data []byte
}

func (t *TaggedData) serialize(w *writer) {
	w.u32(uint32(PayloadTaggedData))
	w.prefixed8(t.Tag)
	data := t.Data
	w.u32(uint32(len(data)))
	w.raw(data)
}

func readTaggedData(r *reader) *TaggedData {
	t := &TaggedData{Tag: r.prefixed8()}
	n := int(r.u32())
	if b := r.next(n); b != nil {
		t.Data = append([]byte(nil), b...)
	}

	return t
}

// InputsCommitment is the hash committing a transaction to the exact
// outputs it consumes.
type InputsCommitment [blake2b.Size256]byte

// ComputeInputsCommitment hashes the concatenated hashes of the serialized
// consumed outputs, in input order.
func ComputeInputsCommitment(outputs []Output) InputsCommitment {
	var buf bytes.Buffer
	for _, out := range outputs {
		h := blake2b.Sum256(SerializeOutput(out))
		buf.Write(h[:])
	}

	return InputsCommitment(blake2b.Sum256(buf.Bytes()))
}

// TransactionEssence is the signed part of a transaction.
type TransactionEssence struct {
	NetworkID        uint64
	Inputs           []OutputID
	InputsCommitment InputsCommitment
	Outputs          []Output
	Payload          *TaggedData
}

// Serialize returns the canonical binary form of the essence.
func (e *TransactionEssence) Serialize() []byte {
	var w writer
	e.serialize(&w)

	return w.bytes()
}

func (e *TransactionEssence) serialize(w *writer) {
	// Essence type.
	w.u8(1)
	w.u64(e.NetworkID)
	w.u16(uint16(len(e.Inputs)))
	for _, in := range e.Inputs {
		// UTXO input type.
		w.u8(0)
		w.raw(in[:])
	}
	w.raw(e.InputsCommitment[:])
	w.u16(uint16(len(e.Outputs)))
	for _, out := range e.Outputs {
		out.serialize(w)
	}
	if e.Payload == nil {
		w.u32(0)
		return
	}

	var p writer
	e.Payload.serialize(&p)
	w.u32(uint32(len(p.bytes())))
	w.raw(p.bytes())
}

func readEssence(r *reader) *TransactionEssence {
	if t := r.u8(); r.err == nil && t != 1 {
		r.fail("unknown essence type %d", t)
		return nil
	}

	e := &TransactionEssence{NetworkID: r.u64()}
	numInputs := int(r.u16())
	for i := 0; i < numInputs && r.err == nil; i++ {
		if t := r.u8(); t != 0 {
			r.fail("unknown input type %d", t)
			return nil
		}
		var id OutputID
		r.copyInto(id[:])
		e.Inputs = append(e.Inputs, id)
	}
	r.copyInto(e.InputsCommitment[:])
	numOutputs := int(r.u16())
	for i := 0; i < numOutputs && r.err == nil; i++ {
		e.Outputs = append(e.Outputs, readOutput(r))
	}
	payloadLen := r.u32()
	if payloadLen == 0 || r.err != nil {
		return e
	}
	if t := PayloadType(r.u32()); t != PayloadTaggedData {
		r.fail("unsupported essence payload %d", t)
		return nil
	}
	e.Payload = readTaggedData(r)

	return e
}

// SigningHash returns the hash every signature of the transaction signs.
func (e *TransactionEssence) SigningHash() [blake2b.Size256]byte {
	return blake2b.Sum256(e.Serialize())
}

// SyntacticallyValid performs the checks that do not require the consumed
// outputs.
func (e *TransactionEssence) SyntacticallyValid(params *ProtocolParameters) error {
	switch {
	case e.NetworkID != params.NetworkID():
		return fmt.Errorf("network id %d does not match %d",
			e.NetworkID, params.NetworkID())
	case len(e.Inputs) == 0 || len(e.Inputs) > MaxInputsCount:
		return fmt.Errorf("invalid number of inputs %d", len(e.Inputs))
	case len(e.Outputs) == 0 || len(e.Outputs) > MaxOutputsCount:
		return fmt.Errorf("invalid number of outputs %d", len(e.Outputs))
	}

	seen := make(map[OutputID]struct{}, len(e.Inputs))
	for _, in := range e.Inputs {
		if _, ok := seen[in]; ok {
			return fmt.Errorf("duplicate input %v", in)
		}
		seen[in] = struct{}{}
	}

	var total uint64
	for i, out := range e.Outputs {
		if out.Deposit() == 0 {
			return fmt.Errorf("output %d holds no base tokens", i)
		}
		if !params.RentStructure.CoversRent(out) {
			return fmt.Errorf("output %d deposit %d below minimum %d",
				i, out.Deposit(),
				params.RentStructure.MinDeposit(out))
		}
		total += out.Deposit()
		if total > params.TokenSupply {
			return fmt.Errorf("outputs exceed token supply")
		}
	}

	if e.Payload != nil && len(e.Payload.Tag) > MaxTaggedDataTagLength {
		return fmt.Errorf("tag length %d exceeds %d",
			len(e.Payload.Tag), MaxTaggedDataTagLength)
	}

	return nil
}

// UnlockType is the type byte of an unlock.
type UnlockType byte

const (
	// UnlockSignature carries an Ed25519 signature.
	UnlockSignature UnlockType = 0

	// UnlockReference points at an earlier signature unlock.
	UnlockReference UnlockType = 1

	// UnlockAlias points at the unlock of an earlier alias input.
	UnlockAlias UnlockType = 2

	// UnlockNFT points at the unlock of an earlier NFT input.
	UnlockNFT UnlockType = 3
)

// Unlock proves the right to consume one input.
type Unlock interface {
	Type() UnlockType
	serialize(w *writer)
}

// SignatureUnlock carries a signature of the essence signing hash.
type SignatureUnlock struct {
	PublicKey [ed25519.PublicKeySize]byte
	Signature [ed25519.SignatureSize]byte
}

// Type returns UnlockSignature.
func (u *SignatureUnlock) Type() UnlockType { return UnlockSignature }

// Address returns the address of the signing key.
func (u *SignatureUnlock) Address() Ed25519Address {
	return Ed25519AddressFromPubKey(u.PublicKey[:])
}

// Valid verifies the signature against msg.
func (u *SignatureUnlock) Valid(msg []byte) bool {
	return ed25519.Verify(u.PublicKey[:], msg, u.Signature[:])
}

func (u *SignatureUnlock) serialize(w *writer) {
	w.u8(byte(u.Type()))
	// Ed25519 signature type.
	w.u8(0)
	w.raw(u.PublicKey[:])
	w.raw(u.Signature[:])
}

// ReferenceUnlock reuses the signature unlock at index Reference.
type ReferenceUnlock struct {
	Reference uint16
}

// Type returns UnlockReference.
func (u *ReferenceUnlock) Type() UnlockType { return UnlockReference }

func (u *ReferenceUnlock) serialize(w *writer) {
	w.u8(byte(u.Type()))
	w.u16(u.Reference)
}

// AliasUnlock unlocks an input owned by the alias consumed at index
// Reference.
type AliasUnlock struct {
	Reference uint16
}

// Type returns UnlockAlias.
func (u *AliasUnlock) Type() UnlockType { return UnlockAlias }

func (u *AliasUnlock) serialize(w *writer) {
	w.u8(byte(u.Type()))
	w.u16(u.Reference)
}

// NFTUnlock unlocks an input owned by the NFT consumed at index Reference.
type NFTUnlock struct {
	Reference uint16
}

// Type returns UnlockNFT.
func (u *NFTUnlock) Type() UnlockType { return UnlockNFT }

func (u *NFTUnlock) serialize(w *writer) {
	w.u8(byte(u.Type()))
	w.u16(u.Reference)
}

func readUnlock(r *reader) Unlock {
	t := UnlockType(r.u8())
	switch t {
	case UnlockSignature:
		if st := r.u8(); st != 0 {
			r.fail("unknown signature type %d", st)
			return nil
		}
		u := &SignatureUnlock{}
		r.copyInto(u.PublicKey[:])
		r.copyInto(u.Signature[:])
		return u
	case UnlockReference:
		return &ReferenceUnlock{Reference: r.u16()}
	case UnlockAlias:
		return &AliasUnlock{Reference: r.u16()}
	case UnlockNFT:
		return &NFTUnlock{Reference: r.u16()}
	default:
		r.fail("unknown unlock type %d", t)
		return nil
	}
}

// TransactionPayload is a signed transaction.
type TransactionPayload struct {
	Essence *TransactionEssence
	Unlocks []Unlock
}

// Serialize returns the canonical binary form of the payload including its
// type prefix.
func (t *TransactionPayload) Serialize() []byte {
	var w writer
	w.u32(uint32(PayloadTransaction))
	t.Essence.serialize(&w)
	w.u16(uint16(len(t.Unlocks)))
	for _, u := range t.Unlocks {
		u.serialize(&w)
	}

	return w.bytes()
}

// ID returns the transaction id.
func (t *TransactionPayload) ID() TransactionID {
	return TransactionID(blake2b.Sum256(t.Serialize()))
}

// OutputID returns the id of the output at index.
func (t *TransactionPayload) OutputID(index uint16) OutputID {
	return NewOutputID(t.ID(), index)
}

// DeserializeTransaction parses the output of Serialize.
func DeserializeTransaction(b []byte) (*TransactionPayload, error) {
	r := newReader(b)
	tx := readTransaction(r)
	if err := r.done(); err != nil {
		return nil, err
	}

	return tx, nil
}

func readTransaction(r *reader) *TransactionPayload {
	if t := PayloadType(r.u32()); r.err == nil && t != PayloadTransaction {
		r.fail("unexpected payload type %d", t)
		return nil
	}
	tx := &TransactionPayload{Essence: readEssence(r)}
	n := int(r.u16())
	for i := 0; i < n && r.err == nil; i++ {
		tx.Unlocks = append(tx.Unlocks, readUnlock(r))
	}

	return tx
}

// Block wraps a payload for submission to the network.
type Block struct {
	ProtocolVersion uint8
	Parents         []BlockID
	Payload         *TransactionPayload
	Nonce           uint64
}

// Serialize returns the canonical binary form of the block.
func (b *Block) Serialize() []byte {
	var w writer
	w.u8(b.ProtocolVersion)
	w.u8(uint8(len(b.Parents)))
	for _, p := range b.Parents {
		w.raw(p[:])
	}
	if b.Payload == nil {
		w.u32(0)
	} else {
		payload := b.Payload.Serialize()
		w.u32(uint32(len(payload)))
		w.raw(payload)
	}
	w.u64(b.Nonce)

	return w.bytes()
}

// ID returns the block id.
func (b *Block) ID() BlockID {
	return BlockID(blake2b.Sum256(b.Serialize()))
}
