// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memdb implements a walletdb driver that keeps everything in
// memory.  It is used by tests and by the simnet daemon.
//
// The Open and Create functions take no arguments.  Every call returns a
// fresh, empty store:
//
//	db, err := walletdb.Create("memdb")
package memdb

import (
	"fmt"
	"sync"

	"github.com/btcsuite/utxowallet/walletdb"
)

const dbType = "memdb"

// DB is an in-memory walletdb.DB.
type DB struct {
	mtx    sync.RWMutex
	values map[string][]byte
	closed bool
}

// New returns an empty store.
func New() *DB {
	return &DB{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (d *DB) Get(key string) ([]byte, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	if d.closed {
		return nil, walletdb.ErrDbNotOpen
	}
	v, ok := d.values[key]
	if !ok {
		return nil, nil
	}

	return append([]byte{}, v...), nil
}

// Set stores a copy of value under key.
func (d *DB) Set(key string, value []byte) error {
	if key == "" {
		return walletdb.ErrKeyRequired
	}

	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.closed {
		return walletdb.ErrDbNotOpen
	}
	d.values[key] = append([]byte{}, value...)

	return nil
}

// Remove deletes key.
func (d *DB) Remove(key string) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.closed {
		return walletdb.ErrDbNotOpen
	}
	delete(d.values, key)

	return nil
}

// Len returns the number of stored keys.
func (d *DB) Len() int {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	return len(d.values)
}

// Close marks the store closed.
func (d *DB) Close() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.closed {
		return walletdb.ErrDbNotOpen
	}
	d.closed = true
	d.values = nil

	return nil
}

func openDBDriver(args ...interface{}) (walletdb.DB, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("invalid arguments to %s -- expected "+
			"none", dbType)
	}
	return New(), nil
}

func init() {
	driver := walletdb.Driver{
		DbType: dbType,
		Create: openDBDriver,
		Open:   openDBDriver,
	}
	if err := walletdb.RegisterDriver(driver); err != nil {
		panic(fmt.Sprintf("Failed to register database driver '%s': %v",
			dbType, err))
	}
}

// A compile time check to ensure DB satisfies walletdb.DB.
var _ walletdb.DB = (*DB)(nil)
