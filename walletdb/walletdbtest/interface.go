// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walletdbtest provides the conformance test every walletdb driver
// runs against its own backend.
package walletdbtest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/btcsuite/utxowallet/walletdb"
	"github.com/stretchr/testify/require"
)

// TestInterface exercises the walletdb.DB contract against db, which must
// be open and empty.
func TestInterface(t *testing.T, db walletdb.DB) {
	t.Helper()

	// Missing keys read as nil without an error.
	value, err := db.Get("missing")
	require.NoError(t, err)
	require.Nil(t, value)

	require.NoError(t, db.Set("account-0", []byte("first")))
	require.NoError(t, db.Set("account-0", []byte("second")))
	value, err = db.Get("account-0")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), value)

	// The returned value is owned by the caller.
	value[0] = 'X'
	value, err = db.Get("account-0")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), value)

	require.NoError(t, db.Remove("account-0"))
	require.NoError(t, db.Remove("account-0"))
	value, err = db.Get("account-0")
	require.NoError(t, err)
	require.Nil(t, value)

	require.Error(t, db.Set("", []byte("x")))

	// Concurrent writers to distinct keys do not interfere.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			_ = db.Set(key, []byte(key))
		}(i)
	}
	wg.Wait()
	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, err := db.Get(key)
		require.NoError(t, err)
		require.Equal(t, []byte(key), value)
	}
}
