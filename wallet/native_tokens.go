// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/wallet/txrules"
	"github.com/holiman/uint256"
)

// CreateAliasParams describe an alias to create.
type CreateAliasParams struct {
	// Address is state controller and governor.  Defaults to the first
	// account address.
	Address ledger.Address

	Metadata          []byte
	ImmutableMetadata []byte
	StateMetadata     []byte
}

// CreateAliasOutput creates an alias holding the minimum storage deposit.
func (a *Account) CreateAliasOutput(ctx context.Context,
	p *CreateAliasParams, opts *TransactionOptions) (*Transaction, error) {

	if p == nil {
		p = &CreateAliasParams{}
	}
	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}

	addr := p.Address
	if addr == nil {
		addr = a.firstAddress()
	}
	t := &txrules.OutputTemplate{
		Kind: ledger.OutputAlias,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.StateControllerAddressUnlockCondition{Address: addr},
			&ledger.GovernorAddressUnlockCondition{Address: addr},
		},
		StateMetadata: p.StateMetadata,
	}
	if len(p.Metadata) > 0 {
		t.Features = ledger.Features{
			&ledger.MetadataFeature{Data: p.Metadata},
		}
	}
	if len(p.ImmutableMetadata) > 0 {
		t.ImmutableFeatures = ledger.Features{
			&ledger.MetadataFeature{Data: p.ImmutableMetadata},
		}
	}

	out, err := depositOutput(info.Params.RentStructure, t)
	if err != nil {
		return nil, err
	}

	return a.SendOutputs(ctx, []ledger.Output{out}, opts)
}

// DestroyAlias consumes an alias without continuing it.  The alias must not
// control foundries.
func (a *Account) DestroyAlias(ctx context.Context, id ledger.AliasID,
	opts *TransactionOptions) (*Transaction, error) {

	var (
		found     *OutputData
		foundries int
	)
	a.read(func(d *accountDetails) {
		found = d.findAlias(id)
		for _, out := range d.unspentOutputs {
			f, ok := out.Output.(*ledger.FoundryOutput)
			if !ok {
				continue
			}
			if fid, err := f.ID(); err == nil &&
				fid.AliasAddress().AliasID() == id {

				foundries++
			}
		}
	})
	switch {
	case found == nil:
		return nil, walletError(ErrBurningOrMeltingFailed, fmt.Sprintf(
			"alias %v not owned", id), nil)
	case foundries > 0:
		return nil, walletError(ErrBurningOrMeltingFailed, fmt.Sprintf(
			"alias %v still controls %d %s", id, foundries,
			pickNoun(foundries, "foundry", "foundries")), nil)
	}

	burnOpts := *opts.orDefault()
	burnOpts.AllowBurning = true
	burnOpts.MandatoryInputs = append(burnOpts.MandatoryInputs,
		found.OutputID)

	return a.SendOutputs(ctx, nil, &burnOpts)
}

// nextAliasState returns the state transition of the alias with id.
func (d *accountDetails) nextAliasState(id ledger.AliasID) (*ledger.AliasOutput,
	error) {

	found := d.findAlias(id)
	if found == nil {
		return nil, fmt.Errorf("alias %v not owned", id)
	}
	next := found.Output.(*ledger.AliasOutput)
	next.AliasID = id
	next.StateIndex++

	return next, nil
}

// firstAlias returns the id of an alias the account holds, if any.
func (d *accountDetails) firstAlias() (ledger.AliasID, bool) {
	for _, out := range filterOutputs(d.unspentOutputs, nil) {
		if alias, ok := out.Output.(*ledger.AliasOutput); ok {
			return ledger.ResolvedAliasID(alias, out.OutputID), true
		}
	}
	return ledger.AliasID{}, false
}

// CreateNativeTokenParams describe a new native token.
type CreateNativeTokenParams struct {
	// AliasID controls the foundry.  Defaults to the first alias of the
	// account.
	AliasID *ledger.AliasID

	CirculatingSupply *uint256.Int
	MaximumSupply     *uint256.Int

	// FoundryMetadata is stored as an immutable feature.
	FoundryMetadata []byte
}

// CreateNativeTokenTransaction is the result of CreateNativeToken.
type CreateNativeTokenTransaction struct {
	TokenID     ledger.TokenID
	Transaction *Transaction
}

// CreateNativeToken creates a foundry on an alias and mints the circulating
// supply into it.
func (a *Account) CreateNativeToken(ctx context.Context,
	p *CreateNativeTokenParams,
	opts *TransactionOptions) (*CreateNativeTokenTransaction, error) {

	if p.MaximumSupply == nil || p.MaximumSupply.IsZero() {
		return nil, walletError(ErrMintingFailed, "maximum supply is "+
			"zero", nil)
	}
	circulating := p.CirculatingSupply
	if circulating == nil {
		circulating = new(uint256.Int)
	}
	if circulating.Gt(p.MaximumSupply) {
		return nil, walletError(ErrMintingFailed, "circulating supply "+
			"exceeds maximum supply", nil)
	}

	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}

	var alias *ledger.AliasOutput
	err = a.view(func(d *accountDetails) error {
		id, ok := d.firstAlias()
		if p.AliasID != nil {
			id, ok = *p.AliasID, true
		}
		if !ok {
			return errors.New("account holds no alias")
		}
		var err error
		alias, err = d.nextAliasState(id)
		return err
	})
	if err != nil {
		return nil, walletError(ErrMintingFailed, "unable to create "+
			"foundry", err)
	}
	alias.FoundryCounter++

	scheme := &ledger.SimpleTokenScheme{
		MintedTokens:  new(uint256.Int).Set(circulating),
		MeltedTokens:  new(uint256.Int),
		MaximumSupply: new(uint256.Int).Set(p.MaximumSupply),
	}
	aliasAddr := alias.AliasID.ToAddress()
	tokenID := ledger.NewFoundryID(aliasAddr, alias.FoundryCounter,
		scheme.Type())

	t := &txrules.OutputTemplate{
		Kind:        ledger.OutputFoundry,
		TokenScheme: scheme,
		UnlockConditions: ledger.UnlockConditions{
			&ledger.ImmutableAliasAddressUnlockCondition{
				Address: aliasAddr,
			},
		},
	}
	if !circulating.IsZero() {
		t.NativeTokens = ledger.NativeTokens{{
			ID: tokenID, Amount: new(uint256.Int).Set(circulating),
		}}
	}
	if len(p.FoundryMetadata) > 0 {
		t.ImmutableFeatures = ledger.Features{
			&ledger.MetadataFeature{Data: p.FoundryMetadata},
		}
	}

	out, err := depositOutput(info.Params.RentStructure, t)
	if err != nil {
		return nil, err
	}
	foundry := out.(*ledger.FoundryOutput)
	foundry.SerialNumber = alias.FoundryCounter

	tx, err := a.SendOutputs(ctx, []ledger.Output{alias, foundry}, opts)
	if err != nil {
		return nil, err
	}

	return &CreateNativeTokenTransaction{TokenID: tokenID, Transaction: tx},
		nil
}

// foundryTransition returns the next state of a foundry and of the alias
// controlling it.
func (a *Account) foundryTransition(tokenID ledger.TokenID) (
	*ledger.FoundryOutput, *ledger.AliasOutput, error) {

	var (
		foundry *ledger.FoundryOutput
		alias   *ledger.AliasOutput
	)
	err := a.view(func(d *accountDetails) error {
		found := d.findFoundry(tokenID)
		if found == nil {
			return fmt.Errorf("foundry %v not owned", tokenID)
		}
		foundry = found.Output.(*ledger.FoundryOutput)

		var err error
		alias, err = d.nextAliasState(tokenID.AliasAddress().AliasID())
		return err
	})

	return foundry, alias, err
}

// MintNativeToken increases the circulating supply of a native token.  The
// new tokens are held by the foundry.
func (a *Account) MintNativeToken(ctx context.Context,
	tokenID ledger.TokenID, amount *uint256.Int,
	opts *TransactionOptions) (*Transaction, error) {

	if amount == nil || amount.IsZero() {
		return nil, walletError(ErrMintingFailed, "amount is zero", nil)
	}
	foundry, alias, err := a.foundryTransition(tokenID)
	if err != nil {
		return nil, walletError(ErrMintingFailed, "unable to mint", err)
	}

	scheme := foundry.TokenScheme.Clone()
	scheme.MintedTokens.Add(scheme.MintedTokens, amount)
	if !scheme.Valid() {
		return nil, walletError(ErrMintingFailed, "minting exceeds "+
			"maximum supply", nil)
	}
	foundry.TokenScheme = scheme

	held := foundry.NativeTokens.Sum()
	held.Add(tokenID, amount)
	foundry.NativeTokens = held.ToNativeTokens()

	if err := a.coverDeposit(ctx, foundry); err != nil {
		return nil, err
	}

	return a.SendOutputs(ctx, []ledger.Output{alias, foundry}, opts)
}

// MeltNativeToken decreases the circulating supply of a native token.
// Tokens held by the foundry are melted first.
func (a *Account) MeltNativeToken(ctx context.Context,
	tokenID ledger.TokenID, amount *uint256.Int,
	opts *TransactionOptions) (*Transaction, error) {

	if amount == nil || amount.IsZero() {
		return nil, walletError(ErrBurningOrMeltingFailed, "amount is "+
			"zero", nil)
	}
	foundry, alias, err := a.foundryTransition(tokenID)
	if err != nil {
		return nil, walletError(ErrBurningOrMeltingFailed, "unable to "+
			"melt", err)
	}

	scheme := foundry.TokenScheme.Clone()
	if amount.Gt(scheme.CirculatingSupply()) {
		return nil, walletError(ErrBurningOrMeltingFailed, "melting "+
			"exceeds circulating supply", nil)
	}
	scheme.MeltedTokens.Add(scheme.MeltedTokens, amount)
	foundry.TokenScheme = scheme

	held := foundry.NativeTokens.Sum()
	fromFoundry := new(uint256.Int).Set(held.Get(tokenID))
	if fromFoundry.Gt(amount) {
		fromFoundry.Set(amount)
	}
	held.Get(tokenID).Sub(held.Get(tokenID), fromFoundry)
	foundry.NativeTokens = held.ToNativeTokens()

	tx, err := a.SendOutputs(ctx, []ledger.Output{alias, foundry}, opts)
	if IsError(err, ErrInsufficientFunds) {
		return nil, walletError(ErrBurningOrMeltingFailed, "not "+
			"enough tokens to melt", err)
	}
	return tx, err
}

// BurnNativeToken destroys native tokens without their foundry.
func (a *Account) BurnNativeToken(ctx context.Context,
	tokenID ledger.TokenID, amount *uint256.Int,
	opts *TransactionOptions) (*Transaction, error) {

	if amount == nil || amount.IsZero() {
		return nil, walletError(ErrBurningOrMeltingFailed, "amount is "+
			"zero", nil)
	}

	burn := make(ledger.NativeTokenSum)
	burn.Add(tokenID, amount)

	tx, err := a.sendOutputs(ctx, nil, burn, opts)
	if IsError(err, ErrInsufficientFunds) {
		return nil, walletError(ErrBurningOrMeltingFailed, "not "+
			"enough tokens to burn", err)
	}
	return tx, err
}

// DestroyFoundry consumes a foundry whose circulating supply is zero.
func (a *Account) DestroyFoundry(ctx context.Context,
	tokenID ledger.FoundryID, opts *TransactionOptions) (*Transaction,
	error) {

	foundry, alias, err := a.foundryTransition(tokenID)
	if err != nil {
		return nil, walletError(ErrBurningOrMeltingFailed, "unable to "+
			"destroy foundry", err)
	}
	if !foundry.TokenScheme.CirculatingSupply().IsZero() {
		return nil, walletError(ErrBurningOrMeltingFailed, fmt.Sprintf(
			"foundry %v still has circulating supply", tokenID), nil)
	}

	var found *OutputData
	a.read(func(d *accountDetails) {
		found = d.findFoundry(tokenID)
	})
	if found == nil {
		return nil, walletError(ErrBurningOrMeltingFailed, fmt.Sprintf(
			"foundry %v not owned", tokenID), nil)
	}

	burnOpts := *opts.orDefault()
	burnOpts.AllowBurning = true
	burnOpts.MandatoryInputs = append(burnOpts.MandatoryInputs,
		found.OutputID)

	return a.SendOutputs(ctx, []ledger.Output{alias}, &burnOpts)
}

// coverDeposit raises the amount of out to its storage deposit.
func (a *Account) coverDeposit(ctx context.Context, out ledger.Output) error {
	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return err
	}
	deposit := info.Params.RentStructure.MinDeposit(out)

	switch o := out.(type) {
	case *ledger.FoundryOutput:
		o.Amount = max(o.Amount, deposit)
	case *ledger.AliasOutput:
		o.Amount = max(o.Amount, deposit)
	case *ledger.NFTOutput:
		o.Amount = max(o.Amount, deposit)
	case *ledger.BasicOutput:
		o.Amount = max(o.Amount, deposit)
	}

	return nil
}
