// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb_test

import (
	"testing"

	"github.com/btcsuite/utxowallet/snacl"
	"github.com/btcsuite/utxowallet/walletdb"
	"github.com/btcsuite/utxowallet/walletdb/memdb"
	"github.com/btcsuite/utxowallet/walletdb/walletdbtest"
	"github.com/stretchr/testify/require"
)

func init() {
	walletdb.ScryptParams.N = 1 << 10
}

func TestEncryptedDB(t *testing.T) {
	raw := memdb.New()

	enc, err := walletdb.NewEncrypted(raw, []byte("password"))
	require.NoError(t, err)
	require.NoError(t, enc.Set("account-0", []byte("secret")))

	// The underlying store only sees ciphertext.
	blob, err := raw.Get("account-0")
	require.NoError(t, err)
	require.NotEqual(t, []byte("secret"), blob)

	value, err := enc.Get("account-0")
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), value)

	encrypted, err := walletdb.IsEncrypted(raw)
	require.NoError(t, err)
	require.True(t, encrypted)

	// Without the password nothing can be read.
	plain, err := walletdb.Plaintext(raw)
	require.NoError(t, err)
	_, err = plain.Get("account-0")
	require.ErrorIs(t, err, walletdb.ErrStorageIsEncrypted)
	require.ErrorIs(t, plain.Set("x", nil), walletdb.ErrStorageIsEncrypted)

	// A wrong password is rejected.
	_, err = walletdb.NewEncrypted(raw, []byte("wrong"))
	require.ErrorIs(t, err, snacl.ErrInvalidPassword)

	// The right one unlocks it again.
	again, err := walletdb.NewEncrypted(raw, []byte("password"))
	require.NoError(t, err)
	value, err = again.Get("account-0")
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), value)
}

func TestEncryptedInterface(t *testing.T) {
	enc, err := walletdb.NewEncrypted(memdb.New(), []byte("password"))
	require.NoError(t, err)

	walletdbtest.TestInterface(t, enc)
}

func TestPlaintextPassthrough(t *testing.T) {
	raw := memdb.New()
	db, err := walletdb.Plaintext(raw)
	require.NoError(t, err)
	require.Same(t, raw, db)
}

func TestUnknownDriver(t *testing.T) {
	_, err := walletdb.Open("nope")
	require.ErrorIs(t, err, walletdb.ErrDbUnknownType)

	err = walletdb.RegisterDriver(walletdb.Driver{DbType: "memdb"})
	require.ErrorIs(t, err, walletdb.ErrDbTypeRegistered)
}
