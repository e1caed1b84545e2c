// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package ledger implements the data model of the UTXO ledger the wallet
operates on.

Outputs come in four kinds: basic outputs hold plain value and native
tokens, alias outputs carry mutable state and own foundries, foundry
outputs control the supply of a native token and NFT outputs carry a unique
identity.  Every output must hold enough base tokens to cover the storage
deposit its serialized size requires, see RentStructure.

All identifiers are derived with blake2b-256 over the binary serialization
defined in this package.  The serialization is little endian with count
prefixed lists; unlock conditions and features are always written in
ascending type order so that equal outputs serialize to equal bytes.
*/
package ledger
