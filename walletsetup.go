// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/utxowallet/internal/cfgutil"
	"github.com/btcsuite/utxowallet/internal/prompt"
	"github.com/btcsuite/utxowallet/internal/zero"
	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/snacl"
	"github.com/btcsuite/utxowallet/walletdb"

	// Storage drivers selectable with --dbtype.
	_ "github.com/btcsuite/utxowallet/walletdb/bdb"
	_ "github.com/btcsuite/utxowallet/walletdb/memdb"
	_ "github.com/btcsuite/utxowallet/walletdb/sqlitedb"
)

// errWalletMissing is returned when the wallet does not exist and --create
// was not passed.
var errWalletMissing = errors.New("the wallet does not exist -- run with " +
	"the --create option to initialize and create it")

// errWalletExists is returned by --create for a wallet that exists.
var errWalletExists = errors.New("the wallet already exists")

// openStorage opens the storage of the wallet, creating it when cfg asks
// for it.  Encrypted storage is unlocked with a passphrase read from p.  The
// second return value reports whether the storage was just created.
func openStorage(cfg *config, p *prompt.Prompter) (walletdb.DB, bool, error) {
	path := cfg.dbPath()

	// Storage kept in memory starts out empty on every run.
	if path == "" {
		db, err := walletdb.Create(cfg.DBType)
		if err != nil {
			return nil, false, err
		}
		return db, true, nil
	}

	exists, err := cfgutil.FileExists(path)
	if err != nil {
		return nil, false, err
	}
	switch {
	case !exists && !cfg.Create:
		return nil, false, errWalletMissing
	case exists && cfg.Create:
		return nil, false, errWalletExists
	}

	if cfg.Create {
		return createStorage(cfg, p, path)
	}

	db, err := walletdb.Open(cfg.DBType, path)
	if err != nil {
		return nil, false, err
	}
	encrypted, err := walletdb.IsEncrypted(db)
	if err != nil {
		db.Close()
		return nil, false, err
	}
	if !encrypted {
		return db, false, nil
	}

	for {
		pass, err := p.PassPrompt("Enter the storage passphrase", false)
		if err != nil {
			db.Close()
			return nil, false, err
		}
		edb, err := walletdb.NewEncrypted(db, pass)
		zero.Bytes(pass)
		switch {
		case errors.Is(err, snacl.ErrInvalidPassword):
			fmt.Fprintln(os.Stderr, "Incorrect storage passphrase")
			continue
		case err != nil:
			db.Close()
			return nil, false, err
		}

		return edb, false, nil
	}
}

func createStorage(cfg *config, p *prompt.Prompter,
	path string) (walletdb.DB, bool, error) {

	pass, err := p.StoragePass()
	if err != nil {
		return nil, false, err
	}
	defer zero.Bytes(pass)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, false, err
	}
	db, err := walletdb.Create(cfg.DBType, path)
	if err != nil {
		return nil, false, err
	}
	if pass == nil {
		return db, true, nil
	}

	edb, err := walletdb.NewEncrypted(db, pass)
	if err != nil {
		db.Close()
		return nil, false, err
	}

	log.Infof("Created encrypted %s storage at %s", cfg.DBType, path)

	return edb, true, nil
}

// secretManager builds the in-memory secret manager of the wallet.  A new
// wallet gets a fresh seed unless the user supplies one.  The seed is never
// stored, so reopening a wallet asks for it again.
func secretManager(p *prompt.Prompter, created bool) (*keychain.MemoryManager,
	error) {

	var (
		secret *prompt.Secret
		err    error
	)
	if created {
		secret, err = p.Seed()
	} else {
		secret, err = p.ExistingSecret()
	}
	if err != nil {
		return nil, err
	}

	if secret.Seed == nil {
		return keychain.NewMemoryManagerFromPassphrase(secret.Mnemonic), nil
	}

	keys := keychain.NewMemoryManager(secret.Seed)
	zero.Bytes(secret.Seed)

	return keys, nil
}
