// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

// OutputMetadata is what the node knows about the inclusion and spending of
// an output.
type OutputMetadata struct {
	BlockID                  BlockID        `json:"blockId"`
	TransactionID            TransactionID  `json:"transactionId"`
	OutputIndex              uint16         `json:"outputIndex"`
	IsSpent                  bool           `json:"isSpent"`
	MilestoneIndexSpent      uint32         `json:"milestoneIndexSpent,omitempty"`
	MilestoneTimestampSpent  uint32         `json:"milestoneTimestampSpent,omitempty"`
	TransactionIDSpent       *TransactionID `json:"transactionIdSpent,omitempty"`
	MilestoneIndexBooked     uint32         `json:"milestoneIndexBooked"`
	MilestoneTimestampBooked uint32         `json:"milestoneTimestampBooked"`
	LedgerIndex              uint32         `json:"ledgerIndex"`
}

// OutputID returns the id of the output the metadata describes.
func (m *OutputMetadata) OutputID() OutputID {
	return NewOutputID(m.TransactionID, m.OutputIndex)
}

// OutputWithID pairs an output with its id.
type OutputWithID struct {
	ID     OutputID
	Output Output
}

// OutputWithMetadata is an output as returned by the node.
type OutputWithMetadata struct {
	Metadata OutputMetadata
	Output   Output
}
