// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"context"
	"fmt"

	"github.com/btcsuite/utxowallet/ledger"
)

// SignFunc signs hash with the key located by chain and returns the
// resulting signature unlock.
type SignFunc func(ctx context.Context, chain Chain,
	hash []byte) (*ledger.SignatureUnlock, error)

// BuildUnlocks constructs the unlocks of every input in req, calling sign
// at most once per distinct address.  Later inputs of an already signed
// address get a reference unlock, inputs owned by an alias or NFT consumed
// earlier in the transaction get an alias or NFT unlock.
func BuildUnlocks(ctx context.Context, req *SignRequest,
	sign SignFunc) ([]ledger.Unlock, error) {

	hash := req.Essence.SigningHash()
	outputs := req.Essence.Outputs

	// Index of the unlock that proves control over an address, keyed by
	// the address key.
	signed := make(map[string]int)
	chains := make(map[string]int)

	unlocks := make([]ledger.Unlock, 0, len(req.Inputs))
	for i, in := range req.Inputs {
		input := ledger.OutputWithID{ID: in.OutputID, Output: in.Output}
		required := ledger.RequiredUnlockAddress(input, outputs,
			req.UnixTime)
		if required == nil {
			return nil, fmt.Errorf("input %v: no unlock address",
				in.OutputID)
		}

		switch required.Type() {
		case ledger.AddressAlias:
			ref, ok := chains[required.Key()]
			if !ok {
				return nil, fmt.Errorf("input %v: %w", in.OutputID,
					ErrMissingChainInput)
			}
			unlocks = append(unlocks, &ledger.AliasUnlock{
				Reference: uint16(ref),
			})

		case ledger.AddressNFT:
			ref, ok := chains[required.Key()]
			if !ok {
				return nil, fmt.Errorf("input %v: %w", in.OutputID,
					ErrMissingChainInput)
			}
			unlocks = append(unlocks, &ledger.NFTUnlock{
				Reference: uint16(ref),
			})

		default:
			if ref, ok := signed[required.Key()]; ok {
				unlocks = append(unlocks, &ledger.ReferenceUnlock{
					Reference: uint16(ref),
				})
				break
			}
			if in.Chain == nil {
				return nil, fmt.Errorf("input %v: %w", in.OutputID,
					ErrMissingChain)
			}

			u, err := sign(ctx, *in.Chain, hash[:])
			if err != nil {
				return nil, err
			}
			if !ledger.AddressesEqual(u.Address(), required) {
				return nil, fmt.Errorf("input %v chain %v: %w",
					in.OutputID, in.Chain, ErrAddressMismatch)
			}
			signed[required.Key()] = i
			unlocks = append(unlocks, u)
		}

		if addr := ledger.ChainAddress(in.Output, in.OutputID); addr != nil {
			chains[addr.Key()] = i
		}
	}

	return unlocks, nil
}
