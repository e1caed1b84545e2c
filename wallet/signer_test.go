// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"testing"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestSignRequest checks what the signer is asked to sign: the essence as
// authored, the chain of every input and the time unlocks were chosen at.
func TestSignRequest(t *testing.T) {
	t.Parallel()

	sm := &mockSecretManager{}
	h := newHarness(t, withSecretManager(sm))
	sm.MemoryManager = h.keys

	var req *keychain.SignRequest
	sm.On("SignTransactionEssence", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			req = args.Get(1).(*keychain.SignRequest)
		}).
		Return(nil, errSigner)

	alice := h.newAccount("alice")
	h.fund(alice, 1_000_000)
	h.sync(alice)

	_, err := alice.Send(h.ctx, []SendParams{{
		Address: alice.firstAddress(),
		Amount:  400_000,
	}}, nil)
	require.ErrorIs(t, err, errSigner)

	require.NotNil(t, req)
	require.EqualValues(t, h.clock.Now().Unix(), req.UnixTime)
	require.Len(t, req.Inputs, 1)
	require.Len(t, req.Essence.Outputs, 2)
	require.NotNil(t, req.Inputs[0].Chain)
	require.Zero(t, req.Inputs[0].Chain.AddressIndex)
	require.False(t, req.Inputs[0].Chain.Internal)
}

// tamperingSigner signs with the right keys but corrupts every signature,
// so the unlocks are well formed and still fail verification.
type tamperingSigner struct {
	*keychain.MemoryManager
}

func (t *tamperingSigner) SignTransactionEssence(ctx context.Context,
	req *keychain.SignRequest) ([]ledger.Unlock, error) {

	unlocks, err := t.MemoryManager.SignTransactionEssence(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, u := range unlocks {
		if sig, ok := u.(*ledger.SignatureUnlock); ok {
			sig.Signature[0] ^= 0xff
		}
	}

	return unlocks, nil
}

// TestInvalidSignaturesAreRejected checks that a transaction failing
// semantic validation is never submitted and releases its inputs.
func TestInvalidSignaturesAreRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withSecretManager(&tamperingSigner{
		MemoryManager: keychain.NewMemoryManagerFromPassphrase(
			testMnemonic,
		),
	}))

	alice := h.newAccount("alice")
	h.fund(alice, 1_000_000)
	h.sync(alice)

	_, err := alice.Send(h.ctx, []SendParams{{
		Address: alice.firstAddress(),
		Amount:  400_000,
	}}, nil)
	require.True(t, IsError(err, ErrTransactionSemantic), err)

	require.Empty(t, alice.LockedOutputs())
	require.Zero(t, h.node.Submitted())
	require.Empty(t, alice.PendingTransactions())
}
