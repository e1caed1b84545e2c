// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// ProtocolParameters are the network wide settings a wallet needs to build
// valid transactions.
type ProtocolParameters struct {
	Version       uint8         `json:"version"`
	NetworkName   string        `json:"networkName"`
	Bech32HRP     string        `json:"bech32Hrp"`
	MinPoWScore   uint32        `json:"minPowScore"`
	BelowMaxDepth uint8         `json:"belowMaxDepth"`
	RentStructure RentStructure `json:"rentStructure"`
	TokenSupply   BaseToken     `json:"tokenSupply"`
}

// NetworkID returns the id transactions must commit to, derived from the
// network name.
func (p *ProtocolParameters) NetworkID() uint64 {
	h := blake2b.Sum256([]byte(p.NetworkName))
	return binary.LittleEndian.Uint64(h[:8])
}

// SimnetParams are the parameters of the in-process simulated network.
var SimnetParams = ProtocolParameters{
	Version:       2,
	NetworkName:   "simnet",
	Bech32HRP:     "smr",
	MinPoWScore:   0,
	BelowMaxDepth: 15,
	RentStructure: RentStructure{
		VByteCost:       100,
		VByteFactorData: 1,
		VByteFactorKey:  10,
	},
	TokenSupply: 2_779_530_283_277_761,
}
