// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"errors"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/participation"
)

// ErrNotFound is returned when the node does not know the requested object.
// It is the only error callers may treat as a definitive answer rather than
// a transport failure.
var ErrNotFound = errors.New("not found")

// Ledger inclusion states reported in block metadata.
const (
	// InclusionIncluded means the payload of the block was applied to
	// the ledger.
	InclusionIncluded = "included"

	// InclusionConflicting means the payload was referenced by a
	// milestone but rejected.
	InclusionConflicting = "conflicting"

	// InclusionNoTransaction means the block carries no transaction.
	InclusionNoTransaction = "noTransaction"
)

// NodeInfo is the state of the node and the network it follows.
type NodeInfo struct {
	Params                   ledger.ProtocolParameters `json:"protocol"`
	LatestMilestoneIndex     uint32                    `json:"latestMilestoneIndex"`
	LatestMilestoneTimestamp uint32                    `json:"latestMilestoneTimestamp"`
}

// BlockMetadata is what the node knows about the fate of a block.
type BlockMetadata struct {
	BlockID ledger.BlockID `json:"blockId"`

	// ReferencedByMilestoneIndex is zero while the block is not
	// referenced yet.
	ReferencedByMilestoneIndex uint32 `json:"referencedByMilestoneIndex,omitempty"`

	// LedgerInclusionState is empty while the block is not referenced.
	LedgerInclusionState string                `json:"ledgerInclusionState,omitempty"`
	ConflictReason       ledger.ConflictReason `json:"conflictReason,omitempty"`

	// ShouldReattach is set when the block can no longer be referenced
	// and its payload has to be wrapped into a new block.
	ShouldReattach bool `json:"shouldReattach,omitempty"`
}

// Referenced returns true once a milestone referenced the block.
func (m *BlockMetadata) Referenced() bool {
	return m.ReferencedByMilestoneIndex != 0
}

// OutputQuery selects unspent outputs through the node indexer.
type OutputQuery struct {
	// Address matches outputs the address owns, can reclaim after
	// expiration, controls as state controller or governor, or controls
	// as the alias of a foundry.
	Address ledger.Address

	// Types restricts the result to some output types.  Empty means all.
	Types []ledger.OutputType
}

// Client is the node API the wallet consumes.
type Client interface {
	// Info returns the protocol parameters and the latest milestone.
	Info(ctx context.Context) (*NodeInfo, error)

	// OutputIDs returns the ids of the unspent outputs matching q.
	OutputIDs(ctx context.Context, q OutputQuery) ([]ledger.OutputID, error)

	// Outputs returns the outputs with their metadata, spent or not, in
	// the order of ids.  Unknown ids yield ErrNotFound.
	Outputs(ctx context.Context,
		ids []ledger.OutputID) ([]*ledger.OutputWithMetadata, error)

	// SubmitPayload wraps the transaction into a block and submits it.
	SubmitPayload(ctx context.Context,
		tx *ledger.TransactionPayload) (ledger.BlockID, error)

	// Block returns a block by id.
	Block(ctx context.Context, id ledger.BlockID) (*ledger.Block, error)

	// BlockMetadata returns the inclusion state of a block.
	BlockMetadata(ctx context.Context,
		id ledger.BlockID) (*BlockMetadata, error)

	// IncludedBlock returns the block that included the transaction.
	IncludedBlock(ctx context.Context,
		txID ledger.TransactionID) (*ledger.Block, error)

	// ParticipationEvent returns a participation event known by the
	// node.
	ParticipationEvent(ctx context.Context,
		id participation.EventID) (*participation.Event, error)

	// ParticipationEventStatus returns the current status of an event.
	ParticipationEventStatus(ctx context.Context,
		id participation.EventID) (*participation.EventStatus, error)
}
