// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bdb_test

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/utxowallet/walletdb"
	_ "github.com/btcsuite/utxowallet/walletdb/bdb"
	"github.com/btcsuite/utxowallet/walletdb/walletdbtest"
	"github.com/stretchr/testify/require"
)

// dbType is the database type name for this driver.
const dbType = "bdb"

func TestCreateOpen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "wallet.db")

	_, err := walletdb.Open(dbType, dbPath)
	require.ErrorIs(t, err, walletdb.ErrDbDoesNotExist)

	_, err = walletdb.Open(dbType, 1, 2, 3)
	require.ErrorContains(t, err, "invalid arguments to bdb.Open")

	db, err := walletdb.Create(dbType, dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Set("key", []byte("value")))
	require.NoError(t, db.Close())

	_, err = walletdb.Create(dbType, dbPath)
	require.ErrorIs(t, err, walletdb.ErrDbExists)

	// Values survive reopening.
	db, err = walletdb.Open(dbType, dbPath)
	require.NoError(t, err)
	value, err := db.Get("key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)
	require.NoError(t, db.Close())

	_, err = db.Get("key")
	require.ErrorIs(t, err, walletdb.ErrDbNotOpen)
}

func TestInterface(t *testing.T) {
	t.Parallel()

	db, err := walletdb.Create(dbType,
		filepath.Join(t.TempDir(), "interface.db"))
	require.NoError(t, err)
	defer db.Close()

	walletdbtest.TestInterface(t, db)
}
