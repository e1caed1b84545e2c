// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/stretchr/testify/require"
)

// TestGenerateAddresses tests that public and internal addresses are
// derived in separate, gapless sequences.
func TestGenerateAddresses(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	acct := h.newAccount("alice")

	addrs, err := acct.GenerateAddresses(h.ctx, 3,
		keychain.GenerateAddressOptions{})
	require.NoError(t, err)
	require.Len(t, addrs, 3)
	for i, addr := range addrs {
		require.EqualValues(t, i+1, addr.KeyIndex)
		require.False(t, addr.Internal)
		require.Equal(t, h.deriveAddress(0, uint32(i+1), false),
			addr.Address)
	}

	internal, err := acct.GenerateAddresses(h.ctx, 2,
		keychain.GenerateAddressOptions{Internal: true})
	require.NoError(t, err)
	require.Len(t, internal, 2)
	require.Zero(t, internal[0].KeyIndex)
	require.True(t, internal[1].Internal)
	require.Equal(t, h.deriveAddress(0, 1, true), internal[1].Address)

	require.Len(t, acct.PublicAddresses(), 4)
	require.Len(t, acct.Addresses(), 6)

	none, err := acct.GenerateAddresses(h.ctx, 0,
		keychain.GenerateAddressOptions{})
	require.NoError(t, err)
	require.Empty(t, none)

	// The addresses survive a restart.
	reopened, err := h.open().Account(0)
	require.NoError(t, err)
	require.Equal(t, acct.Addresses(), reopened.Addresses())
}

// TestGenerateAddressesConcurrently tests that concurrent callers never get
// the same key index.
func TestGenerateAddressesConcurrently(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	acct := h.newAccount("alice")

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := acct.GenerateAddresses(h.ctx, 2,
				keychain.GenerateAddressOptions{})
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
	}

	seen := make(map[uint32]struct{})
	for _, addr := range acct.PublicAddresses() {
		_, dup := seen[addr.KeyIndex]
		require.False(t, dup, "duplicate index %d", addr.KeyIndex)
		seen[addr.KeyIndex] = struct{}{}
	}
	require.Len(t, seen, 1+workers*2)
}
