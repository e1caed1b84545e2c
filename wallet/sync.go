// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"strconv"

	"github.com/btcsuite/utxowallet/chain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// incomingChunkSize bounds the transactions fetched in parallel during
// incoming transaction discovery.
const incomingChunkSize = 100

// SyncOptions tweak a sync pass.
type SyncOptions struct {
	// SyncIncomingTransactions fetches the transactions that created
	// outputs the account did not create itself.
	SyncIncomingTransactions bool

	// SkipPendingTransactions leaves pending transactions untouched.
	SkipPendingTransactions bool

	// SyncOnlyMostBasicOutputs only queries basic outputs.  Known alias,
	// NFT and foundry outputs are set aside until the next full pass.
	SyncOnlyMostBasicOutputs bool
}

// Sync reconciles the ledger of the account with the node and returns the
// resulting balance.
func (a *Account) Sync(ctx context.Context, opts *SyncOptions) (*Balance,
	error) {

	if opts == nil {
		opts = &SyncOptions{}
	}
	start := a.mgr.cfg.Clock.Now()

	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}
	networkID := info.Params.NetworkID()

	unspent, err := a.queryUnspent(ctx, opts, networkID)
	if err != nil {
		return nil, err
	}
	if err := a.reconcile(ctx, opts, unspent); err != nil {
		return nil, err
	}

	if !opts.SkipPendingTransactions {
		if err := a.syncPendingTransactions(ctx); err != nil {
			return nil, err
		}
	}
	if opts.SyncIncomingTransactions {
		err := a.syncIncomingTransactions(ctx, unspent, networkID)
		if err != nil {
			return nil, err
		}
	}

	if err := a.save(); err != nil {
		return nil, err
	}

	var balance *Balance
	a.read(func(d *accountDetails) {
		balance = d.balance(info.Params.RentStructure, a.mgr.unixNow())
		a.mgr.metrics.unspentOutputs.WithLabelValues(
			strconv.FormatUint(uint64(a.index), 10),
		).Set(float64(len(d.unspentOutputs)))
	})
	a.mgr.metrics.syncDuration.Observe(
		a.mgr.cfg.Clock.Now().Sub(start).Seconds(),
	)

	log.Debugf("Account %d: synced %d unspent %s", a.index, len(unspent),
		pickNoun(len(unspent), "output", "outputs"))

	return balance, nil
}

// syncAddresses returns the addresses of the account and of the chains it
// holds.
func (a *Account) syncAddresses() []ledger.Address {
	var addrs []ledger.Address
	a.read(func(d *accountDetails) {
		for _, list := range [][]AccountAddress{
			d.publicAddresses, d.internalAddresses,
		} {
			for _, addr := range list {
				addrs = append(addrs, addr.Address)
			}
		}
		for _, addr := range d.ownedChains() {
			addrs = append(addrs, addr)
		}
	})
	return addrs
}

// queryUnspent asks the indexer for the unspent outputs of every account
// address, following the alias and NFT outputs it finds, and returns them
// by id.
func (a *Account) queryUnspent(ctx context.Context, opts *SyncOptions,
	networkID uint64) (map[ledger.OutputID]*OutputData, error) {

	unspent := make(map[ledger.OutputID]*OutputData)
	queried := make(map[string]struct{})
	queue := a.syncAddresses()

	for len(queue) > 0 {
		var ids []ledger.OutputID
		for _, addr := range queue {
			if _, ok := queried[addr.Key()]; ok {
				continue
			}
			queried[addr.Key()] = struct{}{}

			q := chain.OutputQuery{Address: addr}
			if opts.SyncOnlyMostBasicOutputs {
				q.Types = []ledger.OutputType{ledger.OutputBasic}
			}
			found, err := a.mgr.cfg.Client.OutputIDs(ctx, q)
			if err != nil {
				return nil, clientError("unable to query outputs",
					err)
			}
			for _, id := range found {
				if _, ok := unspent[id]; !ok {
					ids = append(ids, id)
				}
			}
		}
		queue = nil

		outputs, err := a.getOutputs(ctx, ids, networkID)
		if err != nil {
			return nil, err
		}
		for _, out := range outputs {
			if out.IsSpent {
				continue
			}
			unspent[out.OutputID] = out
			addr := ledger.ChainAddress(out.Output, out.OutputID)
			if addr != nil {
				queue = append(queue, addr)
			}
		}
	}

	return unspent, nil
}

// getOutputs returns the outputs of ids.  Outputs the account already knows
// as unspent are served from the ledger, the others are fetched in one
// batch.
func (a *Account) getOutputs(ctx context.Context, ids []ledger.OutputID,
	networkID uint64) ([]*OutputData, error) {

	var (
		res   []*OutputData
		fetch []ledger.OutputID
	)
	a.read(func(d *accountDetails) {
		for _, id := range ids {
			if out, ok := d.unspentOutputs[id]; ok {
				res = append(res, out.clone())
				continue
			}

			// Set aside by a lightweight pass.
			if out, ok := d.outputs[id]; ok && !out.IsSpent {
				res = append(res, out.clone())
				continue
			}
			fetch = append(fetch, id)
		}
	})
	if len(fetch) == 0 {
		return res, nil
	}

	resp, err := a.mgr.cfg.Client.Outputs(ctx, fetch)
	if err != nil {
		return nil, clientError("unable to fetch outputs", err)
	}

	unixTime := a.mgr.unixNow()
	a.read(func(d *accountDetails) {
		for _, r := range resp {
			res = append(res, d.outputResponseToOutputData(r,
				networkID, unixTime))
		}
	})

	return res, nil
}

// outputResponseToOutputData converts a node response.  The address is the
// account address related to the output, preferring the one that unlocks
// it at unixTime.
func (d *accountDetails) outputResponseToOutputData(
	r *ledger.OutputWithMetadata, networkID uint64,
	unixTime uint32) *OutputData {

	id := r.Metadata.OutputID()
	candidates := []ledger.Address{
		ledger.UnlockAddress(r.Output, unixTime),
		ledger.OwnerAddress(r.Output),
	}
	conds := r.Output.Conditions()
	if exp := conds.Expiration(); exp != nil {
		candidates = append(candidates, exp.ReturnAddress)
	}
	if alias, ok := r.Output.(*ledger.AliasOutput); ok {
		candidates = append(candidates, ledger.GovernorAddress(alias))
	}

	addr := candidates[0]
	for _, c := range candidates {
		if d.owns(c) {
			addr = c
			break
		}
	}
	if addr == nil {
		addr = ledger.OwnerAddress(r.Output)
	}

	out := &OutputData{
		OutputID:  id,
		Metadata:  r.Metadata,
		Output:    r.Output,
		Amount:    r.Output.Deposit(),
		IsSpent:   r.Metadata.IsSpent,
		Address:   addr,
		NetworkID: networkID,
		Chain:     d.chainFor(addr),
	}
	out.Remainder = isRemainder(d, out)

	return out
}

// isRemainder returns true if out is change the account sent to itself.
func isRemainder(d *accountDetails, out *OutputData) bool {
	tx, ok := d.transactions[out.OutputID.TransactionID()]
	if !ok || tx.Incoming {
		return false
	}
	return out.Output.Type() == ledger.OutputBasic &&
		d.chainFor(out.Address) != nil
}

// reconcile stores the unspent outputs and marks every known unspent output
// missing from them as spent.
func (a *Account) reconcile(ctx context.Context, opts *SyncOptions,
	unspent map[ledger.OutputID]*OutputData) error {

	var gone []ledger.OutputID
	a.read(func(d *accountDetails) {
		for id, out := range d.unspentOutputs {
			if _, ok := unspent[id]; ok {
				continue
			}
			if opts.SyncOnlyMostBasicOutputs &&
				out.Output.Type() != ledger.OutputBasic {

				continue
			}
			gone = append(gone, id)
		}
	})

	// Outputs a node pruned count as spent without metadata.
	spentMeta := make(map[ledger.OutputID]ledger.OutputMetadata)
	if len(gone) > 0 {
		resp, err := a.mgr.cfg.Client.Outputs(ctx, gone)
		switch {
		case errors.Is(err, chain.ErrNotFound):
		case err != nil:
			return clientError("unable to fetch spent outputs", err)
		default:
			for _, r := range resp {
				spentMeta[r.Metadata.OutputID()] = r.Metadata
			}
		}
	}

	return a.write(func(d *accountDetails) error {
		for id, out := range unspent {
			out = out.clone()
			out.IsSpent = false
			d.outputs[id] = out
			d.unspentOutputs[id] = out
			d.markUsed(out.Address)
		}

		for _, id := range gone {
			out, ok := d.outputs[id]
			if !ok {
				continue
			}
			if meta, ok := spentMeta[id]; ok {
				out.Metadata = meta
			}
			out.IsSpent = true
			out.Metadata.IsSpent = true
			delete(d.unspentOutputs, id)
		}

		// Set aside until a full pass sees them again.
		if opts.SyncOnlyMostBasicOutputs {
			for id, out := range d.unspentOutputs {
				if _, ok := unspent[id]; !ok &&
					out.Output.Type() != ledger.OutputBasic {

					delete(d.unspentOutputs, id)
				}
			}
		}

		return nil
	})
}

// pendingFate is what sync learned about a pending transaction.
type pendingFate struct {
	txID    ledger.TransactionID
	state   InclusionState
	blockID fn.Option[ledger.BlockID]
}

// syncPendingTransactions submits pending transactions without a block and
// settles the ones a milestone referenced.
func (a *Account) syncPendingTransactions(ctx context.Context) error {
	type pending struct {
		tx      *Transaction
		settled bool
	}
	var txs []pending
	a.read(func(d *accountDetails) {
		for id := range d.pendingTransactions {
			tx := d.transactions[id]

			// Spending any of its inputs settles a transaction.
			settled := false
			for _, in := range tx.Payload.Essence.Inputs {
				out, ok := d.outputs[in]
				if ok && out.IsSpent &&
					out.Metadata.TransactionIDSpent != nil &&
					*out.Metadata.TransactionIDSpent == id {

					settled = true
				}
			}
			txs = append(txs, pending{tx: tx.clone(), settled: settled})
		}
	})

	var fates []pendingFate
	for _, p := range txs {
		txID := p.tx.TransactionID

		if p.settled {
			fates = append(fates, pendingFate{
				txID: txID, state: Confirmed,
				blockID: p.tx.BlockID,
			})
			continue
		}

		if p.tx.BlockID.IsNone() {
			id, err := a.mgr.cfg.Client.SubmitPayload(ctx,
				p.tx.Payload)
			if err != nil {
				log.Warnf("Account %d: unable to submit "+
					"transaction %v: %v", a.index, txID, err)
				continue
			}
			log.Infof("Account %d: submitted transaction %v in "+
				"block %v", a.index, txID, id)
			a.mgr.metrics.submittedTransactions.Inc()
			fates = append(fates, pendingFate{
				txID: txID, state: Pending,
				blockID: fn.Some(id),
			})
			a.monitorInclusion(txID, id)
			continue
		}

		blockID := p.tx.BlockID.UnwrapOr(ledger.BlockID{})
		meta, err := a.mgr.cfg.Client.BlockMetadata(ctx, blockID)
		switch {
		case errors.Is(err, chain.ErrNotFound):
			continue
		case err != nil:
			return clientError("unable to query block metadata", err)
		}

		switch {
		case meta.LedgerInclusionState == chain.InclusionIncluded:
			fates = append(fates, pendingFate{
				txID: txID, state: Confirmed,
				blockID: p.tx.BlockID,
			})

		case meta.LedgerInclusionState == chain.InclusionConflicting:
			// Another attachment of the payload may have won.
			block, err := a.mgr.cfg.Client.IncludedBlock(ctx, txID)
			switch {
			case err == nil:
				fates = append(fates, pendingFate{
					txID: txID, state: Confirmed,
					blockID: fn.Some(block.ID()),
				})
			case errors.Is(err, chain.ErrNotFound):
				log.Warnf("Account %d: transaction %v "+
					"conflicting: %v", a.index, txID,
					meta.ConflictReason)
				fates = append(fates, pendingFate{
					txID: txID, state: Conflicting,
					blockID: p.tx.BlockID,
				})
			default:
				return clientError("unable to query included "+
					"block", err)
			}

		case meta.ShouldReattach:
			id, err := a.mgr.cfg.Client.SubmitPayload(ctx,
				p.tx.Payload)
			if err != nil {
				log.Warnf("Account %d: unable to reattach "+
					"transaction %v: %v", a.index, txID, err)
				continue
			}
			fates = append(fates, pendingFate{
				txID: txID, state: Pending, blockID: fn.Some(id),
			})
		}
	}

	return a.write(func(d *accountDetails) error {
		for _, f := range fates {
			tx, ok := d.transactions[f.txID]
			if !ok {
				continue
			}
			tx.BlockID = f.blockID
			tx.InclusionState = f.state
			if f.state == Pending {
				continue
			}

			delete(d.pendingTransactions, f.txID)
			d.unlockInputs(tx.Payload.Essence.Inputs)
			if f.state != Confirmed {
				continue
			}
			for _, id := range tx.Payload.Essence.Inputs {
				if out, ok := d.outputs[id]; ok {
					out.IsSpent = true
					delete(d.unspentOutputs, id)
				}
			}
		}
		return nil
	})
}

// syncIncomingTransactions reconstructs the transactions that created
// unspent outputs the account did not create itself.
func (a *Account) syncIncomingTransactions(ctx context.Context,
	unspent map[ledger.OutputID]*OutputData, networkID uint64) error {

	seen := make(map[ledger.TransactionID]struct{})
	var todo []ledger.TransactionID
	a.read(func(d *accountDetails) {
		for id := range unspent {
			txID := id.TransactionID()
			if _, ok := seen[txID]; ok {
				continue
			}
			seen[txID] = struct{}{}

			_, own := d.transactions[txID]
			_, known := d.incomingTransactions[txID]
			_, gone := d.inaccessibleIncomingTransactions[txID]
			if !own && !known && !gone {
				todo = append(todo, txID)
			}
		}
	})

	for len(todo) > 0 {
		n := min(len(todo), incomingChunkSize)
		chunk := todo[:n]
		todo = todo[n:]

		found := make([]*Transaction, len(chunk))
		inaccessible := make([]bool, len(chunk))

		g, gctx := errgroup.WithContext(ctx)
		for i, txID := range chunk {
			g.Go(func() error {
				tx, err := a.fetchIncoming(gctx, txID, networkID)
				if errors.Is(err, chain.ErrNotFound) {
					inaccessible[i] = true
					return nil
				}
				found[i] = tx
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return clientError("unable to fetch incoming "+
				"transactions", err)
		}

		_ = a.write(func(d *accountDetails) error {
			for i, txID := range chunk {
				if inaccessible[i] {
					d.inaccessibleIncomingTransactions[txID] =
						struct{}{}
					continue
				}
				d.incomingTransactions[txID] = found[i]
			}
			return nil
		})
	}

	return nil
}

// fetchIncoming reconstructs one incoming transaction with its inputs.
func (a *Account) fetchIncoming(ctx context.Context,
	txID ledger.TransactionID, networkID uint64) (*Transaction, error) {

	block, err := a.mgr.cfg.Client.IncludedBlock(ctx, txID)
	if err != nil {
		return nil, err
	}
	if block.Payload == nil {
		return nil, chain.ErrNotFound
	}

	tx := &Transaction{
		TransactionID:  txID,
		Payload:        block.Payload,
		BlockID:        fn.Some(block.ID()),
		InclusionState: Confirmed,
		Timestamp:      a.mgr.cfg.Clock.Now(),
		NetworkID:      networkID,
		Incoming:       true,
	}

	inputs, err := a.mgr.cfg.Client.Outputs(ctx,
		block.Payload.Essence.Inputs)
	switch {
	case errors.Is(err, chain.ErrNotFound):
		log.Debugf("Inputs of incoming transaction %v are pruned", txID)
	case err != nil:
		return nil, err
	default:
		for _, in := range inputs {
			tx.Inputs = append(tx.Inputs, *in)
		}
	}

	return tx, nil
}
