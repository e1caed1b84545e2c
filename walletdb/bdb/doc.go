// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package bdb implements an instance of walletdb that uses bbolt for the backing
datastore.  Every key lives in a single top level bucket.

Usage

This package is only a driver to the walletdb package and provides the database
type of "bdb".  The Open and Create functions take the database path as a
string and an optional open timeout as a time.Duration:

	db, err := walletdb.Open("bdb", "path/to/wallet.db", time.Minute)
	if err != nil {
		// Handle error
	}

	db, err := walletdb.Create("bdb", "path/to/wallet.db")
	if err != nil {
		// Handle error
	}
*/
package bdb
