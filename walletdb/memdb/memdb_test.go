// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memdb_test

import (
	"testing"

	"github.com/btcsuite/utxowallet/walletdb"
	"github.com/btcsuite/utxowallet/walletdb/memdb"
	"github.com/btcsuite/utxowallet/walletdb/walletdbtest"
	"github.com/stretchr/testify/require"
)

func TestInterface(t *testing.T) {
	t.Parallel()

	db, err := walletdb.Create("memdb")
	require.NoError(t, err)

	walletdbtest.TestInterface(t, db)

	require.NoError(t, db.Close())
	require.ErrorIs(t, db.Close(), walletdb.ErrDbNotOpen)
	_, err = db.Get("key-0")
	require.ErrorIs(t, err, walletdb.ErrDbNotOpen)
}

func TestLen(t *testing.T) {
	t.Parallel()

	db := memdb.New()
	require.NoError(t, db.Set("a", nil))
	require.NoError(t, db.Set("b", []byte{1}))
	require.Equal(t, 2, db.Len())
}
