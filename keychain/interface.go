// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/btcsuite/utxowallet/ledger"
)

var (
	// ErrAddressMismatch is returned when the key located by an input's
	// chain does not own the address that has to unlock the input.
	ErrAddressMismatch = errors.New("derived address does not unlock input")

	// ErrMissingChainInput is returned when an input is owned by an alias
	// or NFT that is not consumed earlier in the same transaction.
	ErrMissingChainInput = errors.New("owning alias or nft is not an " +
		"earlier input")

	// ErrMissingChain is returned when an input that needs a signature
	// carries no derivation chain.
	ErrMissingChain = errors.New("input has no derivation chain")
)

// AddressRange selects the address indexes to generate, [Start, End).
type AddressRange struct {
	Start uint32
	End   uint32
}

// GenerateAddressOptions tweaks address generation.
type GenerateAddressOptions struct {
	// Internal selects the remainder branch.
	Internal bool

	// LedgerNanoPrompt asks a hardware signer to display the address.
	// Software managers ignore it.
	LedgerNanoPrompt bool
}

// InputSigningData is what the signer needs to know about one input.
type InputSigningData struct {
	OutputID ledger.OutputID
	Output   ledger.Output

	// Chain locates the key of the address that has to unlock the input.
	// It is nil for inputs owned by an alias or NFT.
	Chain *Chain
}

// SignRequest asks the secret manager to unlock every input of Essence.
// Inputs has to be given in essence order.
type SignRequest struct {
	Essence *ledger.TransactionEssence
	Inputs  []InputSigningData

	// UnixTime is the time used to decide which address unlocks outputs
	// with an expiration condition.
	UnixTime uint32
}

// Descriptor describes a secret manager so it can be rebuilt when a backup
// is restored.
type Descriptor struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`

	// Persistable is false for managers whose secrets must never leave
	// memory.  Their descriptor is omitted from backups.
	Persistable bool `json:"-"`
}

// SecretManager derives addresses and signs transactions.  Implementations
// must be safe for concurrent use.
type SecretManager interface {
	// GenerateAddresses returns the Ed25519 addresses of the given range
	// of one account.
	GenerateAddresses(ctx context.Context, coinType, account uint32,
		rng AddressRange,
		opts GenerateAddressOptions) ([]ledger.Ed25519Address, error)

	// SignTransactionEssence returns one unlock per input of the essence.
	SignTransactionEssence(ctx context.Context,
		req *SignRequest) ([]ledger.Unlock, error)

	// Descriptor returns the description used by backups.
	Descriptor() Descriptor
}
