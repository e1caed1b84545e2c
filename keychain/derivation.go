// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"fmt"
)

const (
	// BIP0044Purpose is the purpose level of every derivation path used
	// by the wallet.
	BIP0044Purpose = 44

	// HardenedKeyStart is the index of the first hardened child key.
	// Ed25519 derivation only supports hardened children, so every level
	// of a Chain is hardened.
	HardenedKeyStart = 0x80000000

	// CoinTypeShimmer and CoinTypeIOTA are the registered coin types of
	// the networks the wallet is usually used with.
	CoinTypeShimmer uint32 = 4219
	CoinTypeIOTA    uint32 = 4218
)

// Chain locates a key within the BIP-44 hierarchy:
//
//   - m/44'/coinType'/account'/change'/index'
//
// where change is 1 for internal (remainder) addresses and 0 otherwise.
type Chain struct {
	CoinType     uint32 `json:"coinType"`
	Account      uint32 `json:"account"`
	Internal     bool   `json:"internal"`
	AddressIndex uint32 `json:"addressIndex"`
}

// Path returns the hardened path segments of the chain.
func (c Chain) Path() [5]uint32 {
	var change uint32
	if c.Internal {
		change = 1
	}

	return [5]uint32{
		BIP0044Purpose + HardenedKeyStart,
		c.CoinType + HardenedKeyStart,
		c.Account + HardenedKeyStart,
		change + HardenedKeyStart,
		c.AddressIndex + HardenedKeyStart,
	}
}

// String renders the chain as a derivation path.
func (c Chain) String() string {
	var change uint32
	if c.Internal {
		change = 1
	}

	return fmt.Sprintf("m/%d'/%d'/%d'/%d'/%d'", BIP0044Purpose,
		c.CoinType, c.Account, change, c.AddressIndex)
}
