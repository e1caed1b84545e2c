// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/wallet/txauthor"
)

// DefaultConsolidationThreshold is the number of outputs an account needs
// before ConsolidateOutputs merges them without being forced.
const DefaultConsolidationThreshold = 100

// claimable returns true if out carries conditions that make it worth
// claiming and the account can unlock it at unixTime.
func (d *accountDetails) claimable(out *OutputData, unixTime uint32,
	chains map[string]ledger.Address) bool {

	if out.Output.Type() != ledger.OutputBasic &&
		out.Output.Type() != ledger.OutputNFT {

		return false
	}
	if _, ok := d.lockedOutputs[out.OutputID]; ok {
		return false
	}
	conds := out.Output.Conditions()
	if conds.StorageDepositReturn() == nil && conds.Expiration() == nil &&
		conds.Timelock() == nil {

		return false
	}

	return d.unlockable(out.Output, unixTime, chains)
}

// ClaimableOutputs returns the outputs with storage deposit return,
// expiration or timelock conditions the account can claim now.
func (a *Account) ClaimableOutputs() []ledger.OutputID {
	unixTime := a.mgr.unixNow()

	var ids []ledger.OutputID
	a.read(func(d *accountDetails) {
		chains := d.ownedChains()
		for _, out := range filterOutputs(d.unspentOutputs, nil) {
			if d.claimable(out, unixTime, chains) {
				ids = append(ids, out.OutputID)
			}
		}
	})
	return ids
}

// ClaimOutputs consumes outputs with extra unlock conditions into plain
// outputs of the account, returning unexpired storage deposits to their
// owners.
func (a *Account) ClaimOutputs(ctx context.Context, ids []ledger.OutputID,
	opts *TransactionOptions) (*Transaction, error) {

	if len(ids) == 0 {
		return nil, walletError(ErrInvalidParameter, "no outputs to "+
			"claim", nil)
	}
	unixTime := a.mgr.unixNow()

	var (
		outputs []ledger.Output
		err     error
	)
	a.read(func(d *accountDetails) {
		chains := d.ownedChains()
		returns := make(map[string]*ledger.BasicOutput)
		for _, id := range ids {
			out, ok := d.unspentOutputs[id]
			if !ok || !d.claimable(out, unixTime, chains) {
				err = walletError(ErrInvalidParameter, fmt.Sprintf(
					"output %v cannot be claimed", id), nil)
				return
			}

			// NFTs stay NFTs, owned by the account alone.
			if nft, ok := out.Output.(*ledger.NFTOutput); ok {
				next := nft.Clone().(*ledger.NFTOutput)
				next.NFTID = ledger.ResolvedNFTID(nft, id)
				next.UnlockConditions = ledger.UnlockConditions{
					&ledger.AddressUnlockCondition{
						Address: d.publicAddresses[0].Address,
					},
				}
				if sdr := nft.UnlockConditions.StorageDepositReturn(); sdr != nil &&
					!ledger.IsExpired(nft, unixTime) {

					next.Amount -= sdr.Amount
				}
				outputs = append(outputs, next)
			}

			sdr := out.Output.Conditions().StorageDepositReturn()
			if sdr == nil || ledger.IsExpired(out.Output, unixTime) {
				continue
			}
			key := sdr.ReturnAddress.Key()
			ret, ok := returns[key]
			if !ok {
				ret = &ledger.BasicOutput{
					UnlockConditions: ledger.UnlockConditions{
						&ledger.AddressUnlockCondition{
							Address: sdr.ReturnAddress,
						},
					},
				}
				returns[key] = ret
				outputs = append(outputs, ret)
			}
			ret.Amount += sdr.Amount
		}
	})
	if err != nil {
		return nil, err
	}

	claimOpts := *opts.orDefault()
	claimOpts.MandatoryInputs = append(claimOpts.MandatoryInputs, ids...)

	return a.SendOutputs(ctx, outputs, &claimOpts)
}

// ConsolidateOutputs merges the plain basic outputs of the account into one
// output on its first address.  Unless forced, it only does so once the
// account holds at least threshold of them; a zero threshold means
// DefaultConsolidationThreshold.
func (a *Account) ConsolidateOutputs(ctx context.Context, force bool,
	threshold int) (*Transaction, error) {

	if threshold <= 0 {
		threshold = DefaultConsolidationThreshold
	}
	unixTime := a.mgr.unixNow()

	var (
		ids   []ledger.OutputID
		first ledger.Address
	)
	a.read(func(d *accountDetails) {
		first = d.publicAddresses[0].Address
		available, _, _ := d.spendableInputs(unixTime, nil)
		for _, in := range available {
			if in.Output.Type() != ledger.OutputBasic ||
				len(in.Output.Conditions()) != 1 ||
				in.Chain == nil {

				continue
			}
			ids = append(ids, in.ID)
		}
	})

	if len(ids) < 2 || (!force && len(ids) < threshold) {
		return nil, walletError(ErrNoOutputsToConsolidate, fmt.Sprintf(
			"%d %s to consolidate", len(ids),
			pickNoun(len(ids), "output", "outputs")), nil)
	}
	if len(ids) > ledger.MaxInputsCount {
		ids = ids[:ledger.MaxInputsCount]
	}

	return a.SendOutputs(ctx, nil, &TransactionOptions{
		RemainderStrategy:      txauthor.CustomAddress,
		CustomRemainderAddress: first,
		CustomInputs:           ids,
	})
}
