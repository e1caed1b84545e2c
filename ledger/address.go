// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// AddressType is the type byte that prefixes a serialized address.
type AddressType byte

const (
	// AddressEd25519 is an address backed by an Ed25519 public key hash.
	AddressEd25519 AddressType = 0

	// AddressAlias is an address controlled by an alias output.
	AddressAlias AddressType = 8

	// AddressNFT is an address controlled by an NFT output.
	AddressNFT AddressType = 16
)

// AddressSerializedLength is the length of every serialized address.
const AddressSerializedLength = 1 + blake2b.Size256

// ErrUnknownAddressType is returned when decoding an address with an
// unsupported type byte.
var ErrUnknownAddressType = errors.New("unknown address type")

// Address is an entity that can own outputs.
type Address interface {
	// Type returns the kind of the address.
	Type() AddressType

	// Key returns a string usable as a map key.  Two addresses are equal
	// iff their keys are equal.
	Key() string

	// Bech32 encodes the address using the given human readable part.
	Bech32(hrp string) string

	// String returns the hex form of the serialized address.
	String() string
}

// Ed25519Address is the blake2b-256 hash of an Ed25519 public key.
type Ed25519Address [blake2b.Size256]byte

// Ed25519AddressFromPubKey derives the address of the given public key.
func Ed25519AddressFromPubKey(pub ed25519.PublicKey) Ed25519Address {
	return Ed25519Address(blake2b.Sum256(pub))
}

// Type returns AddressEd25519.
func (a Ed25519Address) Type() AddressType { return AddressEd25519 }

// Key returns the serialized address as a string.
func (a Ed25519Address) Key() string { return string(AddressBytes(a)) }

// Bech32 encodes the address.
func (a Ed25519Address) Bech32(hrp string) string { return bech32Encode(hrp, a) }

// String returns the hex form of the serialized address.
func (a Ed25519Address) String() string { return encodeHex(AddressBytes(a)) }

// MarshalText implements encoding.TextMarshaler.
func (a Ed25519Address) MarshalText() ([]byte, error) {
	return []byte(encodeHex(a[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Ed25519Address) UnmarshalText(text []byte) error {
	return decodeHexInto(string(text), a[:])
}

// AliasAddress is the address of an alias, equal to its alias id.
type AliasAddress [blake2b.Size256]byte

// Type returns AddressAlias.
func (a AliasAddress) Type() AddressType { return AddressAlias }

// Key returns the serialized address as a string.
func (a AliasAddress) Key() string { return string(AddressBytes(a)) }

// Bech32 encodes the address.
func (a AliasAddress) Bech32(hrp string) string { return bech32Encode(hrp, a) }

// String returns the hex form of the serialized address.
func (a AliasAddress) String() string { return encodeHex(AddressBytes(a)) }

// AliasID returns the id of the alias that controls the address.
func (a AliasAddress) AliasID() AliasID { return AliasID(a) }

// NFTAddress is the address of an NFT, equal to its NFT id.
type NFTAddress [blake2b.Size256]byte

// Type returns AddressNFT.
func (a NFTAddress) Type() AddressType { return AddressNFT }

// Key returns the serialized address as a string.
func (a NFTAddress) Key() string { return string(AddressBytes(a)) }

// Bech32 encodes the address.
func (a NFTAddress) Bech32(hrp string) string { return bech32Encode(hrp, a) }

// String returns the hex form of the serialized address.
func (a NFTAddress) String() string { return encodeHex(AddressBytes(a)) }

// NFTID returns the id of the NFT that controls the address.
func (a NFTAddress) NFTID() NFTID { return NFTID(a) }

// AddressBytes returns the serialized form of addr: the type byte followed by
// the 32 byte body.
func AddressBytes(addr Address) []byte {
	b := make([]byte, 0, AddressSerializedLength)
	b = append(b, byte(addr.Type()))
	switch a := addr.(type) {
	case Ed25519Address:
		b = append(b, a[:]...)
	case *Ed25519Address:
		b = append(b, a[:]...)
	case AliasAddress:
		b = append(b, a[:]...)
	case *AliasAddress:
		b = append(b, a[:]...)
	case NFTAddress:
		b = append(b, a[:]...)
	case *NFTAddress:
		b = append(b, a[:]...)
	}

	return b
}

// AddressFromBytes parses a serialized address.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressSerializedLength {
		return nil, fmt.Errorf("invalid address length %d", len(b))
	}

	var body [blake2b.Size256]byte
	copy(body[:], b[1:])

	switch AddressType(b[0]) {
	case AddressEd25519:
		return Ed25519Address(body), nil
	case AddressAlias:
		return AliasAddress(body), nil
	case AddressNFT:
		return NFTAddress(body), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAddressType, b[0])
	}
}

// AddressesEqual returns true if both addresses are non-nil and equal.
func AddressesEqual(a, b Address) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Key() == b.Key()
}

func bech32Encode(hrp string, addr Address) string {
	conv, err := bech32.ConvertBits(AddressBytes(addr), 8, 5, true)
	if err != nil {
		return ""
	}
	s, err := bech32.Encode(hrp, conv)
	if err != nil {
		return ""
	}

	return s
}

// ParseBech32 decodes a Bech32 address and returns its human readable part
// together with the address.
func ParseBech32(s string) (string, Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", nil, fmt.Errorf("invalid bech32 address %q: %w", s,
			err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("invalid bech32 address %q: %w", s,
			err)
	}
	addr, err := AddressFromBytes(raw)
	if err != nil {
		return "", nil, err
	}

	return hrp, addr, nil
}

func writeAddress(w *writer, addr Address) {
	w.raw(AddressBytes(addr))
}

func readAddress(r *reader) Address {
	b := r.next(AddressSerializedLength)
	if b == nil {
		return nil
	}
	addr, err := AddressFromBytes(b)
	if err != nil {
		r.fail("%w", err)
		return nil
	}

	return addr
}
