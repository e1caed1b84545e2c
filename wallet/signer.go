// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/utxowallet/ledger"
)

// signTransaction unlocks every input of a prepared transaction.  A signer
// failure releases the inputs.
func (a *Account) signTransaction(ctx context.Context,
	p *preparedTransaction) (*ledger.TransactionPayload, error) {

	req := p.authored.SignRequest(p.unixTime)
	unlocks, err := a.mgr.cfg.SecretManager.SignTransactionEssence(ctx, req)
	if err != nil {
		a.unlockInputs(p.authored.Essence.Inputs)
		return nil, clientError("unable to sign transaction", err)
	}

	return &ledger.TransactionPayload{
		Essence: p.authored.Essence,
		Unlocks: unlocks,
	}, nil
}

// validateTransaction runs semantic validation at the time the inputs were
// selected.  A conflict releases the inputs.
func (a *Account) validateTransaction(p *preparedTransaction,
	payload *ledger.TransactionPayload) error {

	reason := ledger.VerifySemantic(payload, p.authored.Consumed(),
		p.unixTime)
	if reason == ledger.ConflictNone {
		return nil
	}

	a.unlockInputs(p.authored.Essence.Inputs)
	a.mgr.metrics.failedTransactions.Inc()

	return walletError(ErrTransactionSemantic, fmt.Sprintf(
		"transaction %v conflicts", payload.ID()), reasonError(reason))
}

// reasonError turns a conflict reason into an error.
type reasonError ledger.ConflictReason

// Error implements the error interface.
func (r reasonError) Error() string {
	return ledger.ConflictReason(r).String()
}
