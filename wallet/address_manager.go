// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
)

// GenerateAddresses derives the next n public or internal addresses of the
// account.
func (a *Account) GenerateAddresses(ctx context.Context, n uint32,
	opts keychain.GenerateAddressOptions) ([]AccountAddress, error) {

	if n == 0 {
		return nil, nil
	}

	a.addrMtx.Lock()
	defer a.addrMtx.Unlock()

	var start uint32
	a.read(func(d *accountDetails) {
		if opts.Internal {
			start = uint32(len(d.internalAddresses))
		} else {
			start = uint32(len(d.publicAddresses))
		}
	})

	// No ledger lock is held while the secret manager derives.
	raw, err := a.mgr.cfg.SecretManager.GenerateAddresses(ctx,
		a.mgr.CoinType(), a.index,
		keychain.AddressRange{Start: start, End: start + n}, opts)
	if err != nil {
		return nil, clientError("unable to derive addresses", err)
	}

	addrs := make([]AccountAddress, len(raw))
	for i, addr := range raw {
		addrs[i] = AccountAddress{
			Address:  addr,
			KeyIndex: start + uint32(i),
			Internal: opts.Internal,
		}
	}

	_ = a.write(func(d *accountDetails) error {
		if opts.Internal {
			d.internalAddresses = append(d.internalAddresses,
				addrs...)
		} else {
			d.publicAddresses = append(d.publicAddresses, addrs...)
		}
		return nil
	})

	kind := "public"
	if opts.Internal {
		kind = "internal"
	}
	log.Debugf("Account %d: derived %d %s %s", a.index, n, kind,
		pickNoun(int(n), "address", "addresses"))

	return addrs, a.save()
}

// changeAddress derives a fresh internal address for a remainder.
func (a *Account) changeAddress(
	ctx context.Context) (ledger.Address, *keychain.Chain, error) {

	addrs, err := a.GenerateAddresses(ctx, 1,
		keychain.GenerateAddressOptions{Internal: true})
	if err != nil {
		return nil, nil, err
	}

	return addrs[0].Address, &keychain.Chain{
		CoinType:     a.mgr.CoinType(),
		Account:      a.index,
		Internal:     true,
		AddressIndex: addrs[0].KeyIndex,
	}, nil
}

// firstAddress returns the first public address of the account.
func (a *Account) firstAddress() ledger.Ed25519Address {
	var addr ledger.Ed25519Address
	a.read(func(d *accountDetails) {
		addr = d.publicAddresses[0].Address
	})
	return addr
}
