// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"fmt"
	"sync"

	"github.com/btcsuite/utxowallet/snacl"
)

// encryptionParamsKey holds the scrypt parameters of an encrypted store in
// plain text.
const encryptionParamsKey = "storage-encryption-params"

// ScryptParams are the scrypt costs used for new encrypted stores.
// Tests lower them.
var ScryptParams = struct{ N, R, P int }{
	N: snacl.DefaultN,
	R: snacl.DefaultR,
	P: snacl.DefaultP,
}

// IsEncrypted returns true if db was initialized by NewEncrypted.
func IsEncrypted(db DB) (bool, error) {
	params, err := db.Get(encryptionParamsKey)
	if err != nil {
		return false, err
	}
	return params != nil, nil
}

// EncryptedDB stores every value as snacl ciphertext in an underlying DB.
type EncryptedDB struct {
	db DB

	mtx sync.RWMutex
	key *snacl.SecretKey
}

// NewEncrypted unlocks an encrypted db with password, or turns a fresh db
// into an encrypted one.  A wrong password yields snacl.ErrInvalidPassword.
func NewEncrypted(db DB, password []byte) (*EncryptedDB, error) {
	params, err := db.Get(encryptionParamsKey)
	if err != nil {
		return nil, err
	}

	pass := append([]byte(nil), password...)
	if params == nil {
		key, err := snacl.NewSecretKey(&pass, ScryptParams.N,
			ScryptParams.R, ScryptParams.P)
		if err != nil {
			return nil, err
		}
		if err := db.Set(encryptionParamsKey, key.Marshal()); err != nil {
			return nil, err
		}
		log.Infof("Initialized storage encryption")

		return &EncryptedDB{db: db, key: key}, nil
	}

	var key snacl.SecretKey
	if err := key.Unmarshal(params); err != nil {
		return nil, err
	}
	if err := key.DeriveKey(&pass); err != nil {
		return nil, err
	}

	return &EncryptedDB{db: db, key: &key}, nil
}

// Get returns the decrypted value of key.
func (e *EncryptedDB) Get(key string) ([]byte, error) {
	blob, err := e.db.Get(key)
	if err != nil || blob == nil {
		return nil, err
	}

	e.mtx.RLock()
	defer e.mtx.RUnlock()

	if e.key == nil {
		return nil, ErrDbNotOpen
	}
	value, err := e.key.Decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt %q: %w", key, err)
	}

	return value, nil
}

// Set encrypts value and stores it under key.
func (e *EncryptedDB) Set(key string, value []byte) error {
	if key == encryptionParamsKey {
		return fmt.Errorf("%q is reserved", key)
	}

	e.mtx.RLock()
	if e.key == nil {
		e.mtx.RUnlock()
		return ErrDbNotOpen
	}
	blob, err := e.key.Encrypt(value)
	e.mtx.RUnlock()
	if err != nil {
		return err
	}

	return e.db.Set(key, blob)
}

// Remove deletes key.
func (e *EncryptedDB) Remove(key string) error {
	return e.db.Remove(key)
}

// Close zeroes the key and closes the underlying db.
func (e *EncryptedDB) Close() error {
	e.mtx.Lock()
	if e.key != nil {
		e.key.Zero()
		e.key = nil
	}
	e.mtx.Unlock()

	return e.db.Close()
}

// lockedDB guards an encrypted store that was opened without a password.
type lockedDB struct {
	DB
}

func (l lockedDB) Get(string) ([]byte, error) {
	return nil, ErrStorageIsEncrypted
}

func (l lockedDB) Set(string, []byte) error {
	return ErrStorageIsEncrypted
}

// Plaintext returns db if it is not encrypted.  Encrypted stores are
// returned wrapped so that every read or write fails with
// ErrStorageIsEncrypted.
func Plaintext(db DB) (DB, error) {
	encrypted, err := IsEncrypted(db)
	if err != nil {
		return nil, err
	}
	if encrypted {
		return lockedDB{db}, nil
	}

	return db, nil
}

// A compile time check to ensure EncryptedDB satisfies DB.
var _ DB = (*EncryptedDB)(nil)
