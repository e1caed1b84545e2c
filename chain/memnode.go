// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/participation"
	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/crypto/blake2b"
)

// blockEntry is a submitted block together with its metadata.
type blockEntry struct {
	block *ledger.Block
	meta  BlockMetadata
}

// MemNode is an in-process node.  It books transactions under milestones
// issued either right after every submission or explicitly through
// IssueMilestone, and validates them with ledger.VerifySemantic using the
// clock for milestone timestamps.
//
// MemNode is used by tests and by the simnet daemon.  It also offers fault
// injection so failure paths of the wallet can be exercised.
type MemNode struct {
	mtx sync.Mutex

	params ledger.ProtocolParameters
	clock  clock.Clock

	milestoneIndex     uint32
	milestoneTimestamp uint32
	autoMilestone      bool

	outputs  map[ledger.OutputID]*ledger.OutputWithMetadata
	blocks   map[ledger.BlockID]*blockEntry
	txBlocks map[ledger.TransactionID]ledger.BlockID
	pending  []ledger.BlockID
	tip      ledger.BlockID
	nonce    uint64

	events map[participation.EventID]*participation.Event

	submitErr  error
	infoErr    error
	hidden     map[ledger.TransactionID]struct{}
	reattach   map[ledger.BlockID]struct{}
	submitted  int
	faucetSeed uint64
}

// MemNodeOption tweaks a MemNode.
type MemNodeOption func(*MemNode)

// WithManualMilestones disables the milestone issued after every
// submission.  Blocks stay unreferenced until IssueMilestone is called.
func WithManualMilestones() MemNodeOption {
	return func(n *MemNode) {
		n.autoMilestone = false
	}
}

// WithClock sets the clock used for milestone timestamps.
func WithClock(c clock.Clock) MemNodeOption {
	return func(n *MemNode) {
		n.clock = c
	}
}

// NewMemNode returns a node following a network with the given parameters.
func NewMemNode(params ledger.ProtocolParameters,
	opts ...MemNodeOption) *MemNode {

	n := &MemNode{
		params:        params,
		clock:         clock.NewDefaultClock(),
		autoMilestone: true,
		outputs:       make(map[ledger.OutputID]*ledger.OutputWithMetadata),
		blocks:        make(map[ledger.BlockID]*blockEntry),
		txBlocks:      make(map[ledger.TransactionID]ledger.BlockID),
		events:        make(map[participation.EventID]*participation.Event),
		hidden:        make(map[ledger.TransactionID]struct{}),
		reattach:      make(map[ledger.BlockID]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.milestoneIndex = 1
	n.milestoneTimestamp = n.now()

	return n
}

func (n *MemNode) now() uint32 {
	return uint32(n.clock.Now().Unix())
}

// Info returns the parameters and the latest milestone.
func (n *MemNode) Info(_ context.Context) (*NodeInfo, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	if n.infoErr != nil {
		return nil, n.infoErr
	}

	return &NodeInfo{
		Params:                   n.params,
		LatestMilestoneIndex:     n.milestoneIndex,
		LatestMilestoneTimestamp: n.milestoneTimestamp,
	}, nil
}

// relatedAddresses returns every address an output query may match out by.
func relatedAddresses(out ledger.Output) []ledger.Address {
	var addrs []ledger.Address
	conds := out.Conditions()
	if c := conds.Address(); c != nil {
		addrs = append(addrs, c.Address)
	}
	if c := conds.Expiration(); c != nil {
		addrs = append(addrs, c.ReturnAddress)
	}
	if c := conds.StateController(); c != nil {
		addrs = append(addrs, c.Address)
	}
	if c := conds.Governor(); c != nil {
		addrs = append(addrs, c.Address)
	}
	if c := conds.ImmutableAlias(); c != nil {
		addrs = append(addrs, c.Address)
	}

	return addrs
}

// OutputIDs returns the sorted ids of the unspent outputs matching q.
func (n *MemNode) OutputIDs(_ context.Context,
	q OutputQuery) ([]ledger.OutputID, error) {

	n.mtx.Lock()
	defer n.mtx.Unlock()

	var ids []ledger.OutputID
	for id, out := range n.outputs {
		if out.Metadata.IsSpent || !typeMatches(out.Output, q.Types) {
			continue
		}
		for _, addr := range relatedAddresses(out.Output) {
			if ledger.AddressesEqual(addr, q.Address) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	return ids, nil
}

func typeMatches(out ledger.Output, types []ledger.OutputType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if out.Type() == t {
			return true
		}
	}
	return false
}

// Outputs returns copies of the requested outputs.
func (n *MemNode) Outputs(_ context.Context,
	ids []ledger.OutputID) ([]*ledger.OutputWithMetadata, error) {

	n.mtx.Lock()
	defer n.mtx.Unlock()

	res := make([]*ledger.OutputWithMetadata, 0, len(ids))
	for _, id := range ids {
		out, ok := n.outputs[id]
		if !ok {
			return nil, fmt.Errorf("output %v: %w", id, ErrNotFound)
		}
		res = append(res, &ledger.OutputWithMetadata{
			Metadata: out.Metadata,
			Output:   out.Output.Clone(),
		})
	}

	return res, nil
}

// SubmitPayload validates tx syntactically, wraps it into a block and, with
// automatic milestones, books it right away.
func (n *MemNode) SubmitPayload(_ context.Context,
	tx *ledger.TransactionPayload) (ledger.BlockID, error) {

	n.mtx.Lock()
	defer n.mtx.Unlock()

	if n.submitErr != nil {
		return ledger.BlockID{}, n.submitErr
	}
	if err := tx.Essence.SyntacticallyValid(&n.params); err != nil {
		return ledger.BlockID{}, fmt.Errorf("invalid payload: %w", err)
	}

	n.nonce++
	block := &ledger.Block{
		ProtocolVersion: n.params.Version,
		Parents:         []ledger.BlockID{n.tip},
		Payload:         tx,
		Nonce:           n.nonce,
	}
	id := block.ID()
	n.blocks[id] = &blockEntry{
		block: block,
		meta:  BlockMetadata{BlockID: id},
	}
	n.tip = id
	n.pending = append(n.pending, id)
	n.submitted++

	log.Debugf("Accepted block %v with transaction %v", id, tx.ID())

	if n.autoMilestone {
		n.issueMilestone()
	}

	return id, nil
}

// IssueMilestone references every pending block and applies their
// transactions to the ledger in submission order.
func (n *MemNode) IssueMilestone() {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.issueMilestone()
}

func (n *MemNode) issueMilestone() {
	n.milestoneIndex++
	n.milestoneTimestamp = n.now()

	pending := n.pending
	n.pending = nil
	for _, id := range pending {
		entry := n.blocks[id]
		if _, ok := n.reattach[id]; ok {
			entry.meta.ShouldReattach = true
			continue
		}
		entry.meta.ReferencedByMilestoneIndex = n.milestoneIndex

		reason := n.apply(id, entry.block.Payload)
		if reason != ledger.ConflictNone {
			entry.meta.LedgerInclusionState = InclusionConflicting
			entry.meta.ConflictReason = reason
			log.Debugf("Block %v conflicting: %v", id, reason)
			continue
		}
		entry.meta.LedgerInclusionState = InclusionIncluded
	}
}

// apply books tx if it is valid against the current ledger.
func (n *MemNode) apply(blockID ledger.BlockID,
	tx *ledger.TransactionPayload) ledger.ConflictReason {

	txID := tx.ID()
	if _, ok := n.txBlocks[txID]; ok {
		return ledger.ConflictInputAlreadySpent
	}

	inputs := make([]ledger.OutputWithID, 0, len(tx.Essence.Inputs))
	for _, id := range tx.Essence.Inputs {
		out, ok := n.outputs[id]
		if !ok {
			return ledger.ConflictInputNotFound
		}
		if out.Metadata.IsSpent {
			if out.Metadata.MilestoneIndexSpent == n.milestoneIndex {
				return ledger.ConflictInputSpentInThisMilestone
			}
			return ledger.ConflictInputAlreadySpent
		}
		inputs = append(inputs, ledger.OutputWithID{
			ID: id, Output: out.Output,
		})
	}

	reason := ledger.VerifySemantic(tx, inputs, n.milestoneTimestamp)
	if reason != ledger.ConflictNone {
		return reason
	}

	for _, id := range tx.Essence.Inputs {
		meta := &n.outputs[id].Metadata
		meta.IsSpent = true
		meta.MilestoneIndexSpent = n.milestoneIndex
		meta.MilestoneTimestampSpent = n.milestoneTimestamp
		spentBy := txID
		meta.TransactionIDSpent = &spentBy
	}
	for i, out := range tx.Essence.Outputs {
		n.book(blockID, txID, uint16(i), out.Clone())
	}
	n.txBlocks[txID] = blockID

	return ledger.ConflictNone
}

func (n *MemNode) book(blockID ledger.BlockID, txID ledger.TransactionID,
	index uint16, out ledger.Output) ledger.OutputID {

	id := ledger.NewOutputID(txID, index)
	n.outputs[id] = &ledger.OutputWithMetadata{
		Metadata: ledger.OutputMetadata{
			BlockID:                  blockID,
			TransactionID:            txID,
			OutputIndex:              index,
			MilestoneIndexBooked:     n.milestoneIndex,
			MilestoneTimestampBooked: n.milestoneTimestamp,
			LedgerIndex:              n.milestoneIndex,
		},
		Output: out,
	}

	return id
}

// Block returns a submitted block.
func (n *MemNode) Block(_ context.Context,
	id ledger.BlockID) (*ledger.Block, error) {

	n.mtx.Lock()
	defer n.mtx.Unlock()

	entry, ok := n.blocks[id]
	if !ok {
		return nil, fmt.Errorf("block %v: %w", id, ErrNotFound)
	}

	return entry.block, nil
}

// BlockMetadata returns the inclusion state of a submitted block.
func (n *MemNode) BlockMetadata(_ context.Context,
	id ledger.BlockID) (*BlockMetadata, error) {

	n.mtx.Lock()
	defer n.mtx.Unlock()

	entry, ok := n.blocks[id]
	if !ok {
		return nil, fmt.Errorf("block %v: %w", id, ErrNotFound)
	}
	meta := entry.meta

	return &meta, nil
}

// IncludedBlock returns the block that included txID.
func (n *MemNode) IncludedBlock(_ context.Context,
	txID ledger.TransactionID) (*ledger.Block, error) {

	n.mtx.Lock()
	defer n.mtx.Unlock()

	if _, ok := n.hidden[txID]; ok {
		return nil, fmt.Errorf("transaction %v: %w", txID, ErrNotFound)
	}
	id, ok := n.txBlocks[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %v: %w", txID, ErrNotFound)
	}

	return n.blocks[id].block, nil
}

// ParticipationEvent returns a registered event.
func (n *MemNode) ParticipationEvent(_ context.Context,
	id participation.EventID) (*participation.Event, error) {

	n.mtx.Lock()
	defer n.mtx.Unlock()

	ev, ok := n.events[id]
	if !ok {
		return nil, fmt.Errorf("event %v: %w", id, ErrNotFound)
	}
	cp := *ev

	return &cp, nil
}

// ParticipationEventStatus derives the status of an event from the latest
// milestone index.
func (n *MemNode) ParticipationEventStatus(_ context.Context,
	id participation.EventID) (*participation.EventStatus, error) {

	n.mtx.Lock()
	defer n.mtx.Unlock()

	ev, ok := n.events[id]
	if !ok {
		return nil, fmt.Errorf("event %v: %w", id, ErrNotFound)
	}
	status := ev.StatusAt(n.milestoneIndex)

	return &status, nil
}

// AddEvent registers a participation event.
func (n *MemNode) AddEvent(ev participation.Event) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.events[ev.ID] = &ev
}

// Fund books out as if it had been created by a transaction the node no
// longer serves, and returns its id.
func (n *MemNode) Fund(out ledger.Output) ledger.OutputID {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.faucetSeed++
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], n.faucetSeed)
	txID := ledger.TransactionID(blake2b.Sum256(append(
		[]byte("faucet"), seed[:]...,
	)))

	return n.book(ledger.BlockID{}, txID, 0, out)
}

// MilestoneIndex returns the latest milestone index.
func (n *MemNode) MilestoneIndex() uint32 {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	return n.milestoneIndex
}

// Submitted returns the number of accepted submissions.
func (n *MemNode) Submitted() int {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	return n.submitted
}

// FailSubmissions makes every submission fail with err until it is called
// again with nil.
func (n *MemNode) FailSubmissions(err error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.submitErr = err
}

// FailInfo makes Info fail with err until it is called again with nil.
func (n *MemNode) FailInfo(err error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.infoErr = err
}

// HideTransaction makes IncludedBlock report txID as unknown.
func (n *MemNode) HideTransaction(txID ledger.TransactionID) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.hidden[txID] = struct{}{}
}

// RequireReattach marks a pending block as orphaned: the next milestone
// does not reference it and its metadata asks for reattachment.
func (n *MemNode) RequireReattach(id ledger.BlockID) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.reattach[id] = struct{}{}
}

// A compile time check to ensure MemNode satisfies Client.
var _ Client = (*MemNode)(nil)
