// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"context"
	"sort"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/holiman/uint256"
)

// BaseCoinBalance is the base token part of a balance.
type BaseCoinBalance struct {
	// Total is the amount of every unspent output, including outputs
	// the account can only unlock once their expiration passes.
	Total ledger.BaseToken `json:"total"`

	// Available is what can be spent now.  It excludes locked outputs,
	// outputs that cannot be unlocked yet, storage deposits that have to
	// be returned, chain outputs and the voting output.
	Available ledger.BaseToken `json:"available"`

	// VotingPower is the amount of the voting output.
	VotingPower ledger.BaseToken `json:"votingPower"`
}

// RequiredStorageDeposit is the deposit tied up per output kind.
type RequiredStorageDeposit struct {
	Basic   ledger.BaseToken `json:"basic"`
	Alias   ledger.BaseToken `json:"alias"`
	Foundry ledger.BaseToken `json:"foundry"`
	NFT     ledger.BaseToken `json:"nft"`
}

// NativeTokensBalance is the balance of one native token.  Total and
// Available follow the same rules as BaseCoinBalance.
type NativeTokensBalance struct {
	TokenID   ledger.TokenID `json:"tokenId"`
	Total     *uint256.Int   `json:"total"`
	Available *uint256.Int   `json:"available"`

	// Metadata is the metadata feature of the foundry, if the account
	// holds it.
	Metadata []byte `json:"metadata,omitempty"`
}

// Balance is derived from the unspent outputs of an account.
type Balance struct {
	BaseCoin               BaseCoinBalance        `json:"baseCoin"`
	RequiredStorageDeposit RequiredStorageDeposit `json:"requiredStorageDeposit"`
	NativeTokens           []NativeTokensBalance  `json:"nativeTokens"`

	Aliases   []ledger.AliasID   `json:"aliases"`
	Foundries []ledger.FoundryID `json:"foundries"`
	NFTs      []ledger.NFTID     `json:"nfts"`

	// PotentiallyLockedOutputs maps outputs with time conditions to
	// whether they can be spent now.
	PotentiallyLockedOutputs map[ledger.OutputID]bool `json:"potentiallyLockedOutputs"`
}

// Balance computes the balance of the ledger as of the last sync.
func (a *Account) Balance(ctx context.Context) (*Balance, error) {
	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}

	var b *Balance
	a.read(func(d *accountDetails) {
		b = d.balance(info.Params.RentStructure, a.mgr.unixNow())
	})
	return b, nil
}

// unlockable returns true if the account can unlock out at unixTime.
func (d *accountDetails) unlockable(out ledger.Output, unixTime uint32,
	chains map[string]ledger.Address) bool {

	if ledger.IsTimelocked(out, unixTime) {
		return false
	}
	addr := ledger.UnlockAddress(out, unixTime)
	if addr == nil {
		return false
	}
	if d.chainFor(addr) != nil {
		return true
	}
	_, ok := chains[addr.Key()]
	return ok
}

func (d *accountDetails) balance(rent ledger.RentStructure,
	unixTime uint32) *Balance {

	b := &Balance{
		PotentiallyLockedOutputs: make(map[ledger.OutputID]bool),
	}
	chains := d.ownedChains()
	total := make(ledger.NativeTokenSum)
	available := make(ledger.NativeTokenSum)
	foundryMeta := make(map[ledger.TokenID][]byte)

	var votingPower ledger.BaseToken
	for id, out := range d.unspentOutputs {
		b.BaseCoin.Total += out.Amount
		for _, t := range out.Output.Tokens() {
			total.Add(t.ID, t.Amount)
		}

		deposit := rent.MinDeposit(out.Output)
		switch o := out.Output.(type) {
		case *ledger.BasicOutput:
			b.RequiredStorageDeposit.Basic += deposit
		case *ledger.AliasOutput:
			b.RequiredStorageDeposit.Alias += deposit
			b.Aliases = append(b.Aliases, ledger.ResolvedAliasID(o, id))
		case *ledger.NFTOutput:
			b.RequiredStorageDeposit.NFT += deposit
			b.NFTs = append(b.NFTs, ledger.ResolvedNFTID(o, id))
		case *ledger.FoundryOutput:
			b.RequiredStorageDeposit.Foundry += deposit
			if fid, err := o.ID(); err == nil {
				b.Foundries = append(b.Foundries, fid)
				if m := o.ImmutableFeatures.Metadata(); m != nil {
					foundryMeta[fid] = m.Data
				} else if m := o.Features.Metadata(); m != nil {
					foundryMeta[fid] = m.Data
				}
			}
		}

		conds := out.Output.Conditions()
		spendable := d.unlockable(out.Output, unixTime, chains)
		if conds.HasTimeConditions() {
			b.PotentiallyLockedOutputs[id] = spendable
		}

		if IsVotingOutput(out.Output) {
			votingPower = max(votingPower, out.Amount)
			continue
		}
		if _, locked := d.lockedOutputs[id]; locked || !spendable {
			continue
		}
		for _, t := range out.Output.Tokens() {
			available.Add(t.ID, t.Amount)
		}
		if out.Output.Type() != ledger.OutputBasic {
			continue
		}

		amount := out.Amount
		if ret := conds.StorageDepositReturn(); ret != nil &&
			!ledger.IsExpired(out.Output, unixTime) {

			if ret.Amount >= amount {
				continue
			}
			amount -= ret.Amount
		}
		b.BaseCoin.Available += amount
	}
	b.BaseCoin.VotingPower = votingPower

	for _, t := range total.ToNativeTokens() {
		b.NativeTokens = append(b.NativeTokens, NativeTokensBalance{
			TokenID:   t.ID,
			Total:     t.Amount,
			Available: new(uint256.Int).Set(available.Get(t.ID)),
			Metadata:  foundryMeta[t.ID],
		})
	}

	sort.Slice(b.Aliases, func(i, j int) bool {
		return bytes.Compare(b.Aliases[i][:], b.Aliases[j][:]) < 0
	})
	sort.Slice(b.NFTs, func(i, j int) bool {
		return bytes.Compare(b.NFTs[i][:], b.NFTs[j][:]) < 0
	})
	sort.Slice(b.Foundries, func(i, j int) bool {
		return bytes.Compare(b.Foundries[i][:], b.Foundries[j][:]) < 0
	})

	return b
}
