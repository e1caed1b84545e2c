// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/wallet/txrules"
)

// DefaultExpiration is how long the recipient of a micro transaction has to
// claim it before the storage deposit returns to the sender.
const DefaultExpiration = 24 * time.Hour

// SendParams describe one basic output.
type SendParams struct {
	Address ledger.Address
	Amount  ledger.BaseToken

	// NativeTokens are sent along with Amount.
	NativeTokens ledger.NativeTokens

	// ReturnAddress receives the storage deposit of a micro transaction
	// back.  Defaults to the first address of the account.
	ReturnAddress ledger.Address

	// Expiration is the claim window of a micro transaction.  Defaults
	// to DefaultExpiration.
	Expiration time.Duration
}

// basicOutput builds the output of p.  Amounts below the storage deposit
// are sent as a micro transaction: the account adds the missing deposit
// and gets it back through a storage deposit return condition, or through
// expiration if the recipient does not claim the output.
func (a *Account) basicOutput(rent ledger.RentStructure, p *SendParams,
	unixTime uint32) (ledger.Output, error) {

	switch {
	case p.Address == nil:
		return nil, walletError(ErrInvalidParameter, "missing "+
			"recipient address", nil)
	case p.Amount == 0 && len(p.NativeTokens) == 0:
		return nil, walletError(ErrInvalidParameter, "amount is zero",
			txrules.ErrAmountZero)
	}

	out := &ledger.BasicOutput{
		Amount:       p.Amount,
		NativeTokens: p.NativeTokens.Clone(),
		UnlockConditions: ledger.UnlockConditions{
			&ledger.AddressUnlockCondition{Address: p.Address},
		},
	}
	if p.Amount > 0 && rent.CoversRent(out) {
		return out, nil
	}

	ret := p.ReturnAddress
	if ret == nil {
		ret = a.firstAddress()
	}
	expiration := p.Expiration
	if expiration == 0 {
		expiration = DefaultExpiration
	}

	sdr := &ledger.StorageDepositReturnUnlockCondition{ReturnAddress: ret}
	out.UnlockConditions = append(out.UnlockConditions, sdr,
		&ledger.ExpirationUnlockCondition{
			ReturnAddress: ret,
			UnixTime:      unixTime + uint32(expiration/time.Second),
		},
	)

	// Amounts have a fixed width, so the deposit does not depend on the
	// return amount.
	deposit := rent.MinDeposit(out)
	sdr.Amount = deposit - p.Amount
	out.Amount = deposit

	return out, nil
}

// Send creates one basic output per params entry.
func (a *Account) Send(ctx context.Context, params []SendParams,
	opts *TransactionOptions) (*Transaction, error) {

	if len(params) == 0 {
		return nil, walletError(ErrInvalidParameter, "nothing to send",
			nil)
	}
	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}

	unixTime := a.mgr.unixNow()
	outputs := make([]ledger.Output, 0, len(params))
	for i := range params {
		out, err := a.basicOutput(info.Params.RentStructure, &params[i],
			unixTime)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}

	return a.SendOutputs(ctx, outputs, opts)
}

// SendNativeTokensParams describe native tokens to send.  The storage
// deposit of the output is always returned to the account.
type SendNativeTokensParams struct {
	Address       ledger.Address
	NativeTokens  ledger.NativeTokens
	ReturnAddress ledger.Address
	Expiration    time.Duration
}

// SendNativeTokens sends native tokens without base tokens.
func (a *Account) SendNativeTokens(ctx context.Context,
	params []SendNativeTokensParams,
	opts *TransactionOptions) (*Transaction, error) {

	send := make([]SendParams, 0, len(params))
	for _, p := range params {
		if len(p.NativeTokens) == 0 {
			return nil, walletError(ErrInvalidParameter, "no native "+
				"tokens to send", nil)
		}
		send = append(send, SendParams{
			Address:       p.Address,
			NativeTokens:  p.NativeTokens,
			ReturnAddress: p.ReturnAddress,
			Expiration:    p.Expiration,
		})
	}

	return a.Send(ctx, send, opts)
}

// findNFT returns the unspent output of an NFT.
func (d *accountDetails) findNFT(id ledger.NFTID) *OutputData {
	for oid, out := range d.unspentOutputs {
		nft, ok := out.Output.(*ledger.NFTOutput)
		if ok && ledger.ResolvedNFTID(nft, oid) == id {
			return out.clone()
		}
	}
	return nil
}

// findAlias returns the unspent output of an alias.
func (d *accountDetails) findAlias(id ledger.AliasID) *OutputData {
	for oid, out := range d.unspentOutputs {
		alias, ok := out.Output.(*ledger.AliasOutput)
		if ok && ledger.ResolvedAliasID(alias, oid) == id {
			return out.clone()
		}
	}
	return nil
}

// findFoundry returns the unspent output of a foundry.
func (d *accountDetails) findFoundry(id ledger.FoundryID) *OutputData {
	for _, out := range d.unspentOutputs {
		f, ok := out.Output.(*ledger.FoundryOutput)
		if !ok {
			continue
		}
		if fid, err := f.ID(); err == nil && fid == id {
			return out.clone()
		}
	}
	return nil
}

// SendNFTParams move an NFT to a new owner.
type SendNFTParams struct {
	Address ledger.Address
	NFTID   ledger.NFTID
}

// SendNFT transfers NFTs held by the account.
func (a *Account) SendNFT(ctx context.Context, params []SendNFTParams,
	opts *TransactionOptions) (*Transaction, error) {

	var (
		outputs []ledger.Output
		missing *ledger.NFTID
	)
	a.read(func(d *accountDetails) {
		for _, p := range params {
			found := d.findNFT(p.NFTID)
			if found == nil {
				id := p.NFTID
				missing = &id
				return
			}
			next := found.Output.(*ledger.NFTOutput)
			next.NFTID = p.NFTID
			next.UnlockConditions = ledger.UnlockConditions{
				&ledger.AddressUnlockCondition{Address: p.Address},
			}
			outputs = append(outputs, next)
		}
	})
	if missing != nil {
		return nil, walletError(ErrInvalidParameter, fmt.Sprintf(
			"nft %v not owned", *missing), nil)
	}
	if len(outputs) == 0 {
		return nil, walletError(ErrInvalidParameter, "nothing to send",
			nil)
	}

	return a.SendOutputs(ctx, outputs, opts)
}

// MintNFTParams describe an NFT to create.
type MintNFTParams struct {
	// Address owns the NFT.  Defaults to the first account address.
	Address ledger.Address

	// Sender is stated as the sender and has to be unlocked.
	Sender ledger.Address

	Metadata []byte
	Tag      []byte

	// Issuer is stated as the issuer and has to be unlocked.
	Issuer ledger.Address

	ImmutableMetadata []byte
}

// MintNFTs creates NFTs holding the minimum storage deposit.
func (a *Account) MintNFTs(ctx context.Context, params []MintNFTParams,
	opts *TransactionOptions) (*Transaction, error) {

	if len(params) == 0 {
		return nil, walletError(ErrMintingFailed, "no nft to mint", nil)
	}
	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}

	var outputs []ledger.Output
	for _, p := range params {
		addr := p.Address
		if addr == nil {
			addr = a.firstAddress()
		}

		t := &txrules.OutputTemplate{
			Kind: ledger.OutputNFT,
			UnlockConditions: ledger.UnlockConditions{
				&ledger.AddressUnlockCondition{Address: addr},
			},
		}
		if p.Sender != nil {
			if !a.owns(p.Sender) {
				return nil, walletError(ErrMintingFailed,
					"sender not owned by account", nil)
			}
			t.Features = append(t.Features,
				&ledger.SenderFeature{Address: p.Sender})
		}
		if len(p.Metadata) > 0 {
			t.Features = append(t.Features,
				&ledger.MetadataFeature{Data: p.Metadata})
		}
		if len(p.Tag) > 0 {
			t.Features = append(t.Features,
				&ledger.TagFeature{Tag: p.Tag})
		}
		if p.Issuer != nil {
			if !a.owns(p.Issuer) {
				return nil, walletError(ErrMintingFailed,
					"issuer not owned by account", nil)
			}
			t.ImmutableFeatures = append(t.ImmutableFeatures,
				&ledger.IssuerFeature{Address: p.Issuer})
		}
		if len(p.ImmutableMetadata) > 0 {
			t.ImmutableFeatures = append(t.ImmutableFeatures,
				&ledger.MetadataFeature{Data: p.ImmutableMetadata})
		}

		out, err := depositOutput(info.Params.RentStructure, t)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}

	return a.SendOutputs(ctx, outputs, opts)
}

// depositOutput builds t holding its minimum storage deposit.
func depositOutput(rent ledger.RentStructure,
	t *txrules.OutputTemplate) (ledger.Output, error) {

	deposit, err := txrules.MinimumStorageDeposit(rent, t)
	if err != nil {
		return nil, buildError(err)
	}
	out, err := txrules.Build(t, deposit)
	return out, buildError(err)
}

// BurnNFT destroys an NFT, returning its deposit to the account.
func (a *Account) BurnNFT(ctx context.Context, id ledger.NFTID,
	opts *TransactionOptions) (*Transaction, error) {

	var found *OutputData
	a.read(func(d *accountDetails) {
		found = d.findNFT(id)
	})
	if found == nil {
		return nil, walletError(ErrBurningOrMeltingFailed, fmt.Sprintf(
			"nft %v not owned", id), nil)
	}

	burnOpts := *opts.orDefault()
	burnOpts.AllowBurning = true
	burnOpts.MandatoryInputs = append(burnOpts.MandatoryInputs,
		found.OutputID)

	return a.SendOutputs(ctx, nil, &burnOpts)
}
