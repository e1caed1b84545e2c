// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/utxowallet/chain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SendOutputs turns outputs into a transaction: inputs are selected and
// locked, the essence is signed and validated, then submitted and stored
// as pending.  A failed submission still stores the transaction without a
// block id, so that sync submits it again.
func (a *Account) SendOutputs(ctx context.Context, outputs []ledger.Output,
	opts *TransactionOptions) (*Transaction, error) {

	return a.sendOutputs(ctx, outputs, nil, opts)
}

func (a *Account) sendOutputs(ctx context.Context, outputs []ledger.Output,
	burn ledger.NativeTokenSum,
	opts *TransactionOptions) (*Transaction, error) {

	prepared, err := a.prepareTransaction(ctx, outputs, burn, opts)
	if err != nil {
		return nil, err
	}
	payload, err := a.signTransaction(ctx, prepared)
	if err != nil {
		return nil, err
	}
	if err := a.validateTransaction(prepared, payload); err != nil {
		return nil, err
	}

	return a.submitAndStore(ctx, prepared, payload)
}

// submitAndStore submits payload and stores it as pending.  Its inputs stay
// locked until sync sees the transaction included or rejected.
func (a *Account) submitAndStore(ctx context.Context, p *preparedTransaction,
	payload *ledger.TransactionPayload) (*Transaction, error) {

	txID := payload.ID()
	tx := &Transaction{
		TransactionID:  txID,
		Payload:        payload,
		BlockID:        fn.None[ledger.BlockID](),
		InclusionState: Pending,
		Timestamp:      a.mgr.cfg.Clock.Now(),
		NetworkID:      p.params.NetworkID(),
		Note:           p.options.Note,
	}

	blockID, err := a.mgr.cfg.Client.SubmitPayload(ctx, payload)
	if err != nil {
		log.Warnf("Account %d: unable to submit transaction %v, "+
			"it will be submitted again on sync: %v", a.index,
			txID, err)
		a.mgr.metrics.failedTransactions.Inc()
	} else {
		tx.BlockID = fn.Some(blockID)
		a.mgr.metrics.submittedTransactions.Inc()
		log.Infof("Account %d: submitted transaction %v in block %v",
			a.index, txID, blockID)
	}

	_ = a.write(func(d *accountDetails) error {
		for _, id := range payload.Essence.Inputs {
			if out, ok := d.outputs[id]; ok {
				tx.Inputs = append(tx.Inputs,
					ledger.OutputWithMetadata{
						Metadata: out.Metadata,
						Output:   out.Output,
					})
			}
		}
		for _, out := range payload.Essence.Outputs {
			d.markUsed(ledger.OwnerAddress(out))
		}
		d.transactions[txID] = tx
		d.pendingTransactions[txID] = struct{}{}

		return nil
	})
	if err := a.save(); err != nil {
		return nil, err
	}

	tx.BlockID.WhenSome(func(id ledger.BlockID) {
		a.monitorInclusion(txID, id)
	})

	var res *Transaction
	a.read(func(*accountDetails) {
		res = tx.clone()
	})

	return res, nil
}

// monitorInclusion polls the inclusion of a submitted transaction in the
// background.  Failures are only logged.
func (a *Account) monitorInclusion(txID ledger.TransactionID,
	blockID ledger.BlockID) {

	started := a.mgr.gm.Go(context.Background(), func(ctx context.Context) {
		blocks, err := chain.RetryUntilIncluded(ctx, a.mgr.cfg.Client,
			blockID, a.mgr.cfg.RetryConfig)
		if len(blocks) > 1 {
			log.Infof("Transaction %v reattached %d %s", txID,
				len(blocks)-1, pickNoun(len(blocks)-1, "time",
					"times"))
			a.setBlockID(txID, blocks[len(blocks)-1])
		}

		var conflict *chain.ConflictError
		switch {
		case err == nil:
			log.Debugf("Transaction %v included", txID)

		case errors.As(err, &conflict):
			log.Warnf("Transaction %v conflicting: %v", txID,
				conflict.Reason)

		case errors.Is(err, context.Canceled):

		default:
			log.Warnf("Unable to confirm inclusion of transaction "+
				"%v: %v", txID, err)
		}
	})
	if !started {
		log.Debugf("Not monitoring transaction %v, shutting down", txID)
	}
}

// setBlockID records the block that carries a transaction after a
// reattachment.
func (a *Account) setBlockID(txID ledger.TransactionID, id ledger.BlockID) {
	changed := false
	_ = a.write(func(d *accountDetails) error {
		if tx, ok := d.transactions[txID]; ok {
			tx.BlockID = fn.Some(id)
			changed = true
		}
		return nil
	})
	if !changed {
		return
	}
	if err := a.save(); err != nil {
		log.Errorf("Unable to store block of transaction %v: %v", txID,
			err)
	}
}

// RetryTransactionUntilIncluded submits a pending transaction that has no
// block yet and waits for its inclusion, reattaching when needed.  It
// returns the id of the block that carries the transaction.
func (a *Account) RetryTransactionUntilIncluded(ctx context.Context,
	txID ledger.TransactionID) (ledger.BlockID, error) {

	var (
		payload *ledger.TransactionPayload
		blockID fn.Option[ledger.BlockID]
		state   InclusionState
		found   bool
	)
	a.read(func(d *accountDetails) {
		if tx, ok := d.transactions[txID]; ok {
			payload, blockID, state = tx.Payload, tx.BlockID,
				tx.InclusionState
			found = true
		}
	})
	if !found {
		return ledger.BlockID{}, walletError(ErrRecordNotFound,
			fmt.Sprintf("transaction %v not found", txID), nil)
	}
	if state != Pending {
		return blockID.UnwrapOr(ledger.BlockID{}), walletError(
			ErrInvalidParameter, fmt.Sprintf("transaction %v is "+
				"%v", txID, state), nil)
	}

	if blockID.IsNone() {
		id, err := a.mgr.cfg.Client.SubmitPayload(ctx, payload)
		if err != nil {
			return ledger.BlockID{}, clientError("unable to submit "+
				"transaction", err)
		}
		a.setBlockID(txID, id)
		blockID = fn.Some(id)
	}

	first := blockID.UnwrapOr(ledger.BlockID{})
	blocks, err := chain.RetryUntilIncluded(ctx, a.mgr.cfg.Client, first,
		a.mgr.cfg.RetryConfig)
	last := blocks[len(blocks)-1]
	if last != first {
		a.setBlockID(txID, last)
	}
	if err != nil {
		return last, clientError("transaction not included", err)
	}

	return last, nil
}
