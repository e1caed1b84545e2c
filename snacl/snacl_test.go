// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snacl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Cheap scrypt parameters keep the tests fast.
const (
	testN = 1 << 10
	testR = 8
	testP = 1
)

func TestSecretKeyRoundTrip(t *testing.T) {
	t.Parallel()

	password := []byte("sikrit")
	message := []byte("accounts and outputs of sorts")

	key, err := NewSecretKey(&password, testN, testR, testP)
	require.NoError(t, err)

	params := key.Marshal()
	require.Len(t, params, marshalledSize)

	blob, err := key.Encrypt(message)
	require.NoError(t, err)
	require.Len(t, blob, NonceSize+len(message)+Overhead)

	// A key restored from the stored parameters decrypts the blob.
	var restored SecretKey
	require.NoError(t, restored.Unmarshal(params))
	require.NoError(t, restored.DeriveKey(&password))
	require.Equal(t, key.Key[:], restored.Key[:])

	plain, err := restored.Decrypt(blob)
	require.NoError(t, err)
	require.Equal(t, message, plain)

	// Tampering with the ciphertext is detected.
	blob[len(blob)-15]++
	_, err = restored.Decrypt(blob)
	require.ErrorIs(t, err, ErrDecryptFailed)

	_, err = restored.Decrypt(blob[:NonceSize-1])
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDeriveKeyInvalidPassword(t *testing.T) {
	t.Parallel()

	password := []byte("sikrit")
	key, err := NewSecretKey(&password, testN, testR, testP)
	require.NoError(t, err)

	var sk SecretKey
	require.NoError(t, sk.Unmarshal(key.Marshal()))

	wrong := []byte("wrong password")
	require.ErrorIs(t, sk.DeriveKey(&wrong), ErrInvalidPassword)

	require.ErrorIs(t, sk.Unmarshal([]byte{1, 2, 3}), ErrMalformed)
}

func TestZero(t *testing.T) {
	t.Parallel()

	password := []byte("sikrit")
	key, err := NewSecretKey(&password, testN, testR, testP)
	require.NoError(t, err)

	key.Zero()
	require.Equal(t, make([]byte, KeySize), key.Key[:])

	// The parameters survive, so the key can be derived again.
	require.NoError(t, key.DeriveKey(&password))
	require.NotEqual(t, make([]byte, KeySize), key.Key[:])
}

func TestGenerateCryptoKey(t *testing.T) {
	t.Parallel()

	a, err := GenerateCryptoKey()
	require.NoError(t, err)
	b, err := GenerateCryptoKey()
	require.NoError(t, err)
	require.NotEqual(t, a[:], b[:])

	blob, err := a.Encrypt([]byte("x"))
	require.NoError(t, err)
	_, err = b.Decrypt(blob)
	require.ErrorIs(t, err, ErrDecryptFailed)
}
