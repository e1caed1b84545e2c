// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// TransactionIDLength is the length of a transaction id.
	TransactionIDLength = blake2b.Size256

	// BlockIDLength is the length of a block id.
	BlockIDLength = blake2b.Size256

	// OutputIDLength is the length of an output id: the id of the
	// creating transaction followed by the little endian output index.
	OutputIDLength = TransactionIDLength + 2

	// FoundryIDLength is the length of a foundry id, which doubles as the
	// id of the native token the foundry controls.
	FoundryIDLength = AddressSerializedLength + 4 + 1
)

// encodeHex renders b with the 0x prefix used at the API boundary.
func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// decodeHexInto parses a 0x prefixed hex string into dst, which must match
// the decoded length exactly.
func decodeHexInto(s string, dst []byte) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("invalid length %d, want %d", len(raw),
			len(dst))
	}
	copy(dst, raw)

	return nil
}

// TransactionID identifies a transaction payload.
type TransactionID [TransactionIDLength]byte

// String returns the hex form of the id.
func (id TransactionID) String() string {
	return encodeHex(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id TransactionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *TransactionID) UnmarshalText(text []byte) error {
	return decodeHexInto(string(text), id[:])
}

// BlockID identifies a block.
type BlockID [BlockIDLength]byte

// String returns the hex form of the id.
func (id BlockID) String() string {
	return encodeHex(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id BlockID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *BlockID) UnmarshalText(text []byte) error {
	return decodeHexInto(string(text), id[:])
}

// OutputID identifies an output by its creating transaction and its index
// within that transaction.
type OutputID [OutputIDLength]byte

// NewOutputID builds the id of the output at index in transaction txID.
func NewOutputID(txID TransactionID, index uint16) OutputID {
	var id OutputID
	copy(id[:TransactionIDLength], txID[:])
	binary.LittleEndian.PutUint16(id[TransactionIDLength:], index)

	return id
}

// OutputIDFromHex parses the hex form of an output id.
func OutputIDFromHex(s string) (OutputID, error) {
	var id OutputID
	err := decodeHexInto(s, id[:])

	return id, err
}

// TransactionID returns the id of the transaction that created the output.
func (id OutputID) TransactionID() TransactionID {
	var txID TransactionID
	copy(txID[:], id[:TransactionIDLength])

	return txID
}

// Index returns the index of the output within its transaction.
func (id OutputID) Index() uint16 {
	return binary.LittleEndian.Uint16(id[TransactionIDLength:])
}

// String returns the hex form of the id.
func (id OutputID) String() string {
	return encodeHex(id[:])
}

// MarshalText implements encoding.TextMarshaler so output ids can be used
// as JSON object keys.
func (id OutputID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *OutputID) UnmarshalText(text []byte) error {
	return decodeHexInto(string(text), id[:])
}

// Less orders output ids by their bytes.
func (id OutputID) Less(other OutputID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// AliasID is the chain id of an alias output.  It is zero in the output that
// creates the alias and derived from that output's id afterwards.
type AliasID [blake2b.Size256]byte

// AliasIDFromOutputID derives the alias id assigned by the ledger to the
// alias created by the output with the given id.
func AliasIDFromOutputID(id OutputID) AliasID {
	return AliasID(blake2b.Sum256(id[:]))
}

// Empty returns true if the id has not been assigned yet.
func (id AliasID) Empty() bool {
	return id == AliasID{}
}

// ToAddress returns the address controlled by the alias.
func (id AliasID) ToAddress() AliasAddress {
	return AliasAddress(id)
}

// String returns the hex form of the id.
func (id AliasID) String() string {
	return encodeHex(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id AliasID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AliasID) UnmarshalText(text []byte) error {
	return decodeHexInto(string(text), id[:])
}

// NFTID is the chain id of an NFT output.  Like AliasID it is zero when the
// NFT is minted.
type NFTID [blake2b.Size256]byte

// NFTIDFromOutputID derives the NFT id assigned by the ledger to the NFT
// minted by the output with the given id.
func NFTIDFromOutputID(id OutputID) NFTID {
	return NFTID(blake2b.Sum256(id[:]))
}

// Empty returns true if the id has not been assigned yet.
func (id NFTID) Empty() bool {
	return id == NFTID{}
}

// ToAddress returns the address controlled by the NFT.
func (id NFTID) ToAddress() NFTAddress {
	return NFTAddress(id)
}

// String returns the hex form of the id.
func (id NFTID) String() string {
	return encodeHex(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id NFTID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NFTID) UnmarshalText(text []byte) error {
	return decodeHexInto(string(text), id[:])
}

// FoundryID identifies a foundry: the serialized controlling alias address,
// the foundry serial number and the token scheme type.
type FoundryID [FoundryIDLength]byte

// TokenID identifies a native token.  A native token id is the id of the
// foundry that controls its supply.
type TokenID = FoundryID

// NewFoundryID builds the id of the foundry with the given serial number
// controlled by alias.
func NewFoundryID(alias AliasAddress, serial uint32,
	scheme TokenSchemeType) FoundryID {

	var id FoundryID
	copy(id[:AddressSerializedLength], AddressBytes(alias))
	binary.LittleEndian.PutUint32(id[AddressSerializedLength:], serial)
	id[FoundryIDLength-1] = byte(scheme)

	return id
}

// AliasAddress returns the alias that controls the foundry.
func (id FoundryID) AliasAddress() AliasAddress {
	var addr AliasAddress
	copy(addr[:], id[1:AddressSerializedLength])

	return addr
}

// SerialNumber returns the serial number of the foundry.
func (id FoundryID) SerialNumber() uint32 {
	return binary.LittleEndian.Uint32(id[AddressSerializedLength:])
}

// String returns the hex form of the id.
func (id FoundryID) String() string {
	return encodeHex(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id FoundryID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *FoundryID) UnmarshalText(text []byte) error {
	return decodeHexInto(string(text), id[:])
}
