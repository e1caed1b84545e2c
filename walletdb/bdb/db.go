// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bdb

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/utxowallet/walletdb"
	bolt "go.etcd.io/bbolt"
)

// bucketName is the bucket every key is stored in.
var bucketName = []byte("utxowallet")

// convertErr converts some bolt errors to the equivalent walletdb error.
func convertErr(err error) error {
	switch {
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		return walletdb.ErrDbNotOpen
	case errors.Is(err, bolt.ErrInvalid):
		return walletdb.ErrInvalid
	case errors.Is(err, bolt.ErrKeyRequired):
		return walletdb.ErrKeyRequired
	}

	// Return the original error if none of the above applies.
	return err
}

// db represents a collection of namespaces which are persisted and
// implements the walletdb.DB interface.  All database access is performed
// through transactions which are obtained through the specific Namespace.
type db bolt.DB

// Enforce db implements the walletdb.DB interface.
var _ walletdb.DB = (*db)(nil)

func (d *db) bolt() *bolt.DB {
	return (*bolt.DB)(d)
}

// Get returns a copy of the value stored under key.
//
// This function is part of the walletdb.DB interface implementation.
func (d *db) Get(key string) ([]byte, error) {
	var value []byte
	err := d.bolt().View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return walletdb.ErrInvalid
		}
		if v := b.Get([]byte(key)); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})

	return value, convertErr(err)
}

// Set stores value under key.
//
// This function is part of the walletdb.DB interface implementation.
func (d *db) Set(key string, value []byte) error {
	err := d.bolt().Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})

	return convertErr(err)
}

// Remove deletes key.
//
// This function is part of the walletdb.DB interface implementation.
func (d *db) Remove(key string) error {
	err := d.bolt().Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})

	return convertErr(err)
}

// Close cleanly shuts down the database and syncs all data.
//
// This function is part of the walletdb.DB interface implementation.
func (d *db) Close() error {
	return convertErr(d.bolt().Close())
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// openDB opens the database at the provided path.  walletdb.ErrDbDoesNotExist
// is returned if the database doesn't exist and the create flag is not set.
func openDB(dbPath string, create bool, timeout time.Duration) (walletdb.DB,
	error) {

	exists := fileExists(dbPath)
	switch {
	case !create && !exists:
		return nil, walletdb.ErrDbDoesNotExist
	case create && exists:
		return nil, walletdb.ErrDbExists
	}

	if create {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			return nil, err
		}
	}

	boltDB, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: timeout,
	})
	if err != nil {
		return nil, convertErr(err)
	}

	err = boltDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = boltDB.Close()
		return nil, convertErr(err)
	}

	return (*db)(boltDB), nil
}
