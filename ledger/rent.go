// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

// outputMetadataOffset is the virtual size the node spends on the metadata
// of every output: the id of the including block, the milestone index and
// the milestone timestamp.
const outputMetadataOffset = BlockIDLength + 4 + 4

// RentStructure defines how much base currency an output has to hold for
// the space it occupies in the ledger.
type RentStructure struct {
	VByteCost       uint32 `json:"vByteCost"`
	VByteFactorData uint8  `json:"vByteFactorData"`
	VByteFactorKey  uint8  `json:"vByteFactorKey"`
}

// VBytes returns the virtual byte size of out.
func (r RentStructure) VBytes(out Output) uint64 {
	data := uint64(r.VByteFactorData)
	key := uint64(r.VByteFactorKey)
	size := uint64(len(SerializeOutput(out)))

	return data*size + key*OutputIDLength + data*outputMetadataOffset
}

// MinDeposit returns the minimum amount of base tokens out must hold.
func (r RentStructure) MinDeposit(out Output) BaseToken {
	return uint64(r.VByteCost) * r.VBytes(out)
}

// CoversRent returns true if out holds at least its minimum deposit.
func (r RentStructure) CoversRent(out Output) bool {
	return out.Deposit() >= r.MinDeposit(out)
}
