// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sqlitedb implements a walletdb driver on top of a single SQLite
// table, using the pure Go modernc.org/sqlite driver.
//
// The Open and Create functions take the database path as a string:
//
//	db, err := walletdb.Create("sqlite", "path/to/wallet.sqlite")
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/btcsuite/utxowallet/walletdb"

	// Register the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

const (
	dbType = "sqlite"

	// pingTimeout bounds the connectivity check done when opening.
	pingTimeout = 5 * time.Second

	schema = `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`
)

// DB is a walletdb.DB backed by SQLite.
type DB struct {
	mtx sync.RWMutex
	db  *sql.DB
}

// Get returns the value stored under key.
func (d *DB) Get(key string) ([]byte, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	if d.db == nil {
		return nil, walletdb.ErrDbNotOpen
	}

	var value []byte
	err := d.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).
		Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}

	return value, nil
}

// Set stores value under key.
func (d *DB) Set(key string, value []byte) error {
	if key == "" {
		return walletdb.ErrKeyRequired
	}
	if value == nil {
		value = []byte{}
	}

	d.mtx.RLock()
	defer d.mtx.RUnlock()

	if d.db == nil {
		return walletdb.ErrDbNotOpen
	}
	_, err := d.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)

	return err
}

// Remove deletes key.
func (d *DB) Remove(key string) error {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	if d.db == nil {
		return walletdb.ErrDbNotOpen
	}
	_, err := d.db.Exec(`DELETE FROM kv WHERE key = ?`, key)

	return err
}

// Close closes the connection pool.
func (d *DB) Close() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.db == nil {
		return walletdb.ErrDbNotOpen
	}
	err := d.db.Close()
	d.db = nil

	return err
}

func openDB(dbPath string, create bool) (*DB, error) {
	_, statErr := os.Stat(dbPath)
	exists := statErr == nil
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

	dsn := "file:" + dbPath + "?mode=rwc&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers anyway; a single connection avoids
	// SQLITE_BUSY between pooled connections.
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &DB{db: sqlDB}, nil
}

func parseArgs(funcName string, args ...interface{}) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("invalid arguments to %s.%s -- "+
			"expected database path", dbType, funcName)
	}

	dbPath, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("first argument to %s.%s is invalid -- "+
			"expected database path string", dbType, funcName)
	}

	return dbPath, nil
}

func init() {
	driver := walletdb.Driver{
		DbType: dbType,
		Create: func(args ...interface{}) (walletdb.DB, error) {
			dbPath, err := parseArgs("Create", args...)
			if err != nil {
				return nil, err
			}
			return openDB(dbPath, true)
		},
		Open: func(args ...interface{}) (walletdb.DB, error) {
			dbPath, err := parseArgs("Open", args...)
			if err != nil {
				return nil, err
			}
			return openDB(dbPath, false)
		},
	}
	if err := walletdb.RegisterDriver(driver); err != nil {
		panic(fmt.Sprintf("Failed to register database driver '%s': %v",
			dbType, err))
	}
}

// A compile time check to ensure DB satisfies walletdb.DB.
var _ walletdb.DB = (*DB)(nil)
