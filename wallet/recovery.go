// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"

	"github.com/btcsuite/utxowallet/keychain"
	"golang.org/x/sync/errgroup"
)

// highestUsed returns one past the highest public and internal key index
// holding an output, or zero when no address of the kind does.
func (d *accountDetails) highestUsed() (public, internal int) {
	for _, out := range d.outputs {
		chain := d.chainFor(out.Address)
		if chain == nil {
			continue
		}
		n := int(chain.AddressIndex) + 1
		if chain.Internal {
			internal = max(internal, n)
		} else {
			public = max(public, n)
		}
	}
	return public, internal
}

// truncateAddresses drops the addresses past the given counts.  The first
// public address is always kept.
func (d *accountDetails) truncateAddresses(public, internal int) {
	public = max(public, 1)
	if len(d.publicAddresses) > public {
		d.publicAddresses = d.publicAddresses[:public]
	}
	if len(d.internalAddresses) > internal {
		d.internalAddresses = d.internalAddresses[:internal]
	}
}

// searchAddresses derives addresses in batches of gapLimit per kind and
// syncs them until a whole batch holds no output.  Addresses past the last
// one holding an output, and past those the account had before, are
// dropped again.  It returns true if the account holds any output.
func (a *Account) searchAddresses(ctx context.Context, gapLimit uint32,
	opts *SyncOptions) (bool, error) {

	var keepPublic, keepInternal int
	a.read(func(d *accountDetails) {
		keepPublic = len(d.publicAddresses)
		keepInternal = len(d.internalAddresses)
	})

	if _, err := a.Sync(ctx, opts); err != nil {
		return false, err
	}

	for gapLimit > 0 {
		var public, internal int
		a.read(func(d *accountDetails) {
			public, internal = d.highestUsed()
		})

		for _, internalKind := range []bool{false, true} {
			_, err := a.GenerateAddresses(ctx, gapLimit,
				keychain.GenerateAddressOptions{
					Internal: internalKind,
				})
			if err != nil {
				return false, err
			}
		}
		if _, err := a.Sync(ctx, opts); err != nil {
			return false, err
		}

		var nextPublic, nextInternal int
		a.read(func(d *accountDetails) {
			nextPublic, nextInternal = d.highestUsed()
		})
		if nextPublic == public && nextInternal == internal {
			break
		}
	}

	var funded bool
	err := a.write(func(d *accountDetails) error {
		public, internal := d.highestUsed()
		funded = len(d.outputs) > 0
		d.truncateAddresses(max(public, keepPublic),
			max(internal, keepInternal))
		return nil
	})
	if err != nil {
		return false, err
	}

	return funded, a.save()
}

// RecoverAccounts searches the seed for funded accounts.  Existing accounts
// from accountStartIndex on get their addresses searched with
// addressGapLimit.  New accounts are then created in batches searched in
// parallel, until accountGapLimit consecutive accounts hold no output.
// Accounts past the last funded one are removed again, so recovering twice
// yields the same accounts.
func (m *Manager) RecoverAccounts(ctx context.Context, accountStartIndex,
	accountGapLimit, addressGapLimit uint32,
	opts *SyncOptions) ([]*Account, error) {

	log.Infof("Recovering accounts from index %d (account gap %d, "+
		"address gap %d)", accountStartIndex, accountGapLimit,
		addressGapLimit)

	existing := m.Accounts()
	keep := len(existing)
	for _, acct := range existing {
		if acct.index < accountStartIndex {
			continue
		}
		if _, err := acct.searchAddresses(ctx, addressGapLimit,
			opts); err != nil {

			return nil, err
		}
	}

	// Indexes are contiguous, so accounts below the start index are
	// created without being searched.
	for uint32(len(m.Accounts())) < accountStartIndex {
		if _, err := m.CreateAccount(ctx, ""); err != nil {
			return nil, err
		}
	}

	var (
		highestFunded = -1
		trailing      uint32
	)
	for trailing < accountGapLimit {
		batch := make([]*Account, 0, accountGapLimit-trailing)
		for i := trailing; i < accountGapLimit; i++ {
			acct, err := m.CreateAccount(ctx, "")
			if err != nil {
				return nil, err
			}
			batch = append(batch, acct)
		}

		funded := make([]bool, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, acct := range batch {
			g.Go(func() error {
				found, err := acct.searchAddresses(gctx,
					addressGapLimit, opts)
				funded[i] = found
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, found := range funded {
			if found {
				highestFunded = int(batch[i].index)
				trailing = 0
				continue
			}
			trailing++
		}
		log.Debugf("Recovery batch of %d %s done, %d empty in a row",
			len(batch), pickNoun(len(batch), "account", "accounts"),
			trailing)
	}

	keep = max(keep, highestFunded+1)
	if err := m.truncateAccounts(keep); err != nil {
		return nil, err
	}

	accounts := m.Accounts()
	log.Infof("Recovered %d %s", len(accounts),
		pickNoun(len(accounts), "account", "accounts"))

	return accounts, nil
}
