// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet provides a UTXO wallet engine: accounts holding a local
// ledger of outputs, intents that become signed and tracked transactions,
// and the synchronization that reconciles the ledger with a node.
package wallet

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/participation"
	"github.com/btcsuite/utxowallet/wallet/txauthor"
)

// TransactionOptions tweak how outputs become a transaction.
type TransactionOptions struct {
	// RemainderStrategy selects the remainder address.
	RemainderStrategy txauthor.RemainderStrategy

	// CustomRemainderAddress is used by txauthor.CustomAddress.
	CustomRemainderAddress ledger.Address

	// TaggedDataPayload is embedded in the essence.
	TaggedDataPayload *ledger.TaggedData

	// MandatoryInputs are consumed on top of what selection picks.
	MandatoryInputs []ledger.OutputID

	// CustomInputs replace input selection.  They have to cover the
	// outputs on their own.
	CustomInputs []ledger.OutputID

	// AllowBurning permits consuming alias, NFT and foundry outputs
	// without continuing them.
	AllowBurning bool

	// Note is stored with the transaction.
	Note string
}

func (o *TransactionOptions) orDefault() *TransactionOptions {
	if o == nil {
		return &TransactionOptions{}
	}
	return o
}

// preparedTransaction is an essence whose inputs are locked.
type preparedTransaction struct {
	authored *txauthor.AuthoredTx
	options  *TransactionOptions
	params   ledger.ProtocolParameters

	// unixTime is the time unlock addresses were evaluated at.
	unixTime uint32
}

// inputIDs returns the ids of the inputs.
func inputIDs(inputs []txauthor.Input) []ledger.OutputID {
	ids := make([]ledger.OutputID, len(inputs))
	for i, in := range inputs {
		ids[i] = in.ID
	}
	return ids
}

// IsVotingOutput returns true if out carries the participation tag.
func IsVotingOutput(out ledger.Output) bool {
	basic, ok := out.(*ledger.BasicOutput)
	if !ok {
		return false
	}
	tag := basic.Features.Tag()
	return tag != nil && bytes.Equal(tag.Tag, participation.Tag)
}

// spendableInputs returns the unlocked outputs the account can unlock at
// unixTime, and the subset of them listed in mandatory.  Voting outputs are
// only returned when mandatory.
func (d *accountDetails) spendableInputs(unixTime uint32,
	mandatory []ledger.OutputID) ([]txauthor.Input, []txauthor.Input,
	error) {

	wanted := make(map[ledger.OutputID]struct{}, len(mandatory))
	for _, id := range mandatory {
		wanted[id] = struct{}{}
	}

	chains := d.ownedChains()
	var available, required []txauthor.Input
	for _, out := range filterOutputs(d.unspentOutputs, nil) {
		if _, ok := d.lockedOutputs[out.OutputID]; ok {
			continue
		}
		if ledger.IsTimelocked(out.Output, unixTime) {
			continue
		}
		addr := ledger.UnlockAddress(out.Output, unixTime)
		if addr == nil {
			continue
		}

		chain := d.chainFor(addr)
		if chain == nil {
			if _, ok := chains[addr.Key()]; !ok {
				continue
			}
		}

		in := txauthor.Input{
			ID:      out.OutputID,
			Output:  out.Output,
			Address: addr,
			Chain:   chain,
		}
		if _, ok := wanted[out.OutputID]; ok {
			required = append(required, in)
			delete(wanted, out.OutputID)
			continue
		}
		if IsVotingOutput(out.Output) {
			continue
		}
		available = append(available, in)
	}

	if len(wanted) > 0 {
		ids := make([]string, 0, len(wanted))
		for id := range wanted {
			ids = append(ids, id.String())
		}
		sort.Strings(ids)
		return nil, nil, walletError(ErrInvalidParameter, fmt.Sprintf(
			"inputs %v are not available", ids), nil)
	}

	return available, required, nil
}

// checkBurning fails if inputs contain chain outputs the outputs do not
// continue.
func checkBurning(inputs []txauthor.Input, outputs []ledger.Output) error {
	continued := make(map[string]struct{})
	for _, out := range outputs {
		switch o := out.(type) {
		case *ledger.AliasOutput:
			continued[o.AliasID.ToAddress().Key()] = struct{}{}
		case *ledger.NFTOutput:
			continued[o.NFTID.ToAddress().Key()] = struct{}{}
		case *ledger.FoundryOutput:
			if id, err := o.ID(); err == nil {
				continued[string(id[:])] = struct{}{}
			}
		}
	}

	for _, in := range inputs {
		key := ""
		if addr := ledger.ChainAddress(in.Output, in.ID); addr != nil {
			key = addr.Key()
		} else if f, ok := in.Output.(*ledger.FoundryOutput); ok {
			id, err := f.ID()
			if err != nil {
				return err
			}
			key = string(id[:])
		}
		if key == "" {
			continue
		}
		if _, ok := continued[key]; !ok {
			return walletError(ErrBurningOrMeltingFailed, fmt.Sprintf(
				"input %v would be destroyed without "+
					"burning allowed", in.ID), nil)
		}
	}

	return nil
}

// prepareTransaction selects and locks inputs for outputs and assembles the
// essence.  On error nothing stays locked.
func (a *Account) prepareTransaction(ctx context.Context,
	outputs []ledger.Output, burn ledger.NativeTokenSum,
	opts *TransactionOptions) (*preparedTransaction, error) {

	opts = opts.orDefault()

	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}
	params := info.Params
	unixTime := a.mgr.unixNow()

	var selected []txauthor.Input
	err = a.write(func(d *accountDetails) error {
		if len(opts.CustomInputs) > 0 {
			wanted := append(append([]ledger.OutputID(nil),
				opts.CustomInputs...), opts.MandatoryInputs...)
			_, custom, err := d.spendableInputs(unixTime, wanted)
			if err != nil {
				return err
			}
			selected = custom
		} else {
			available, mandatory, err := d.spendableInputs(
				unixTime, opts.MandatoryInputs,
			)
			if err != nil {
				return err
			}
			selected, err = txauthor.SelectInputs(
				&txauthor.SelectParams{
					Rent:             params.RentStructure,
					Available:        available,
					Mandatory:        mandatory,
					Outputs:          outputs,
					Burn:             burn,
					RemainderAddress: d.publicAddresses[0].Address,
				},
			)
			if err != nil {
				return err
			}
		}

		if !opts.AllowBurning {
			if err := checkBurning(selected, outputs); err != nil {
				return err
			}
		}

		// Reserved before anything can suspend.
		d.lockInputs(inputIDs(selected))

		return nil
	})
	if err != nil {
		return nil, buildError(err)
	}

	authored, err := txauthor.NewUnsignedTransaction(&txauthor.Params{
		Protocol: &params,
		Inputs:   selected,
		Outputs:  outputs,
		Burn:     burn,
		Change: &txauthor.ChangeSource{
			Strategy: opts.RemainderStrategy,
			Custom:   opts.CustomRemainderAddress,
			NewAddress: func() (ledger.Address, *keychain.Chain, error) {
				return a.changeAddress(ctx)
			},
		},
		Payload: opts.TaggedDataPayload,
		Owns:    a.owns,
	})
	if err != nil {
		a.unlockInputs(inputIDs(selected))
		return nil, buildError(err)
	}

	log.Debugf("Account %d: prepared transaction with %d %s and %d %s",
		a.index, len(authored.Inputs),
		pickNoun(len(authored.Inputs), "input", "inputs"),
		len(authored.Essence.Outputs),
		pickNoun(len(authored.Essence.Outputs), "output", "outputs"))
	log.Tracef("Essence: %v", spewPayload(authored.Essence))

	return &preparedTransaction{
		authored: authored,
		options:  opts,
		params:   params,
		unixTime: unixTime,
	}, nil
}

// owns returns true if the account can unlock outputs owned by addr.
func (a *Account) owns(addr ledger.Address) bool {
	var ok bool
	a.read(func(d *accountDetails) {
		ok = d.owns(addr)
	})
	return ok
}

// unlockInputs releases reserved inputs.
func (a *Account) unlockInputs(ids []ledger.OutputID) {
	_ = a.write(func(d *accountDetails) error {
		d.unlockInputs(ids)
		return nil
	})
}
