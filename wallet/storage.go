// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/participation"
	"github.com/btcsuite/utxowallet/walletdb"
)

const (
	accountsIndexationKey        = "accounts_indexation"
	accountKeyPrefix             = "account-"
	managerConfigKey             = "manager-config"
	participationEventsKeyPrefix = "participation-events-"
	schemaVersionKey             = "db-schema-version"

	// schemaVersion is the current layout of stored accounts.  Version 0
	// records predate remainder flags.
	schemaVersion = 1
)

func accountKey(index uint32) string {
	return accountKeyPrefix + strconv.FormatUint(uint64(index), 10)
}

func participationEventsKey(index uint32) string {
	return participationEventsKeyPrefix +
		strconv.FormatUint(uint64(index), 10)
}

// managerConfig holds the settings shared by all accounts.
type managerConfig struct {
	CoinType      uint32               `json:"coinType"`
	ClientOptions ClientOptions        `json:"clientOptions"`
	SecretManager *keychain.Descriptor `json:"secretManager,omitempty"`
}

// storageManager maps wallet state onto the keys of a walletdb.DB.
type storageManager struct {
	db walletdb.DB

	// mtx serializes read-modify-write cycles of the indexation.
	mtx sync.Mutex
}

// openStorage checks the schema version of db, migrating older layouts.
func openStorage(db walletdb.DB) (*storageManager, error) {
	s := &storageManager{db: db}

	raw, err := db.Get(schemaVersionKey)
	if err != nil {
		return nil, storageError("unable to read schema version", err)
	}

	version := -1
	if len(raw) == 1 {
		version = int(raw[0])
	} else if raw != nil {
		return nil, walletError(ErrAccountSchemaMigration,
			"malformed schema version", nil)
	}

	if version == -1 {
		indexation, err := s.loadIndexation()
		if err != nil {
			return nil, err
		}

		// A store holding accounts without a version predates
		// versioning.
		version = schemaVersion
		if len(indexation) > 0 {
			version = 0
		}
	}

	switch {
	case version > schemaVersion:
		return nil, walletError(ErrAccountSchemaMigration,
			fmt.Sprintf("unsupported schema version %d", version), nil)

	case version == 0:
		log.Infof("Migrating storage from schema version 0 to %d",
			schemaVersion)
		if err := s.migrateRemainderFlags(); err != nil {
			return nil, walletError(ErrAccountSchemaMigration,
				"unable to migrate accounts", err)
		}
	}

	err = db.Set(schemaVersionKey, []byte{schemaVersion})
	if err != nil {
		return nil, storageError("unable to write schema version", err)
	}

	return s, nil
}

// migrateRemainderFlags recomputes the remainder flag of every output from
// the transactions the account created.
func (s *storageManager) migrateRemainderFlags() error {
	recs, err := s.loadAccounts()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d, err := detailsFromRecord(rec)
		if err != nil {
			return err
		}
		for _, out := range d.outputs {
			out.Remainder = isRemainder(d, out)
		}
		if err := s.saveAccount(d.record()); err != nil {
			return err
		}
	}

	return nil
}

func (s *storageManager) loadIndexation() ([]uint32, error) {
	raw, err := s.db.Get(accountsIndexationKey)
	if err != nil {
		return nil, storageError("unable to read accounts", err)
	}
	if raw == nil {
		return nil, nil
	}

	var indexation []uint32
	if err := json.Unmarshal(raw, &indexation); err != nil {
		return nil, walletError(ErrStorage, "malformed account index", err)
	}

	return indexation, nil
}

func (s *storageManager) saveIndexation(indexation []uint32) error {
	sort.Slice(indexation, func(i, j int) bool {
		return indexation[i] < indexation[j]
	})
	raw, err := json.Marshal(indexation)
	if err != nil {
		return err
	}

	return storageError("unable to write accounts",
		s.db.Set(accountsIndexationKey, raw))
}

// loadAccounts returns every stored account ordered by index.
func (s *storageManager) loadAccounts() ([]*accountRecord, error) {
	indexation, err := s.loadIndexation()
	if err != nil {
		return nil, err
	}

	recs := make([]*accountRecord, 0, len(indexation))
	for _, index := range indexation {
		raw, err := s.db.Get(accountKey(index))
		if err != nil {
			return nil, storageError("unable to read account", err)
		}
		if raw == nil {
			return nil, walletError(ErrStorage, fmt.Sprintf(
				"account %d indexed but missing", index), nil)
		}

		var rec accountRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, walletError(ErrStorage, fmt.Sprintf(
				"malformed account %d", index), err)
		}
		recs = append(recs, &rec)
	}

	return recs, nil
}

// saveAccount stores rec and indexes it.
func (s *storageManager) saveAccount(rec *accountRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	err = s.db.Set(accountKey(rec.Index), raw)
	if err != nil {
		return storageError("unable to write account", err)
	}

	indexation, err := s.loadIndexation()
	if err != nil {
		return err
	}
	for _, index := range indexation {
		if index == rec.Index {
			return nil
		}
	}

	return s.saveIndexation(append(indexation, rec.Index))
}

// removeAccount deletes an account and its participation events.
func (s *storageManager) removeAccount(index uint32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	indexation, err := s.loadIndexation()
	if err != nil {
		return err
	}
	kept := indexation[:0]
	for _, i := range indexation {
		if i != index {
			kept = append(kept, i)
		}
	}
	if err := s.saveIndexation(kept); err != nil {
		return err
	}

	for _, key := range []string{
		accountKey(index), participationEventsKey(index),
	} {
		if err := s.db.Remove(key); err != nil {
			return storageError("unable to remove account", err)
		}
	}

	return nil
}

func (s *storageManager) loadManagerConfig() (*managerConfig, error) {
	raw, err := s.db.Get(managerConfigKey)
	if err != nil {
		return nil, storageError("unable to read manager config", err)
	}
	if raw == nil {
		return nil, nil
	}

	var cfg managerConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, walletError(ErrStorage, "malformed manager config",
			err)
	}

	return &cfg, nil
}

func (s *storageManager) saveManagerConfig(cfg *managerConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	return storageError("unable to write manager config",
		s.db.Set(managerConfigKey, raw))
}

// loadEvents returns the participation events registered for an account.
func (s *storageManager) loadEvents(
	index uint32) (map[participation.EventID]*participation.Event, error) {

	events := make(map[participation.EventID]*participation.Event)
	raw, err := s.db.Get(participationEventsKey(index))
	if err != nil {
		return nil, storageError("unable to read events", err)
	}
	if raw == nil {
		return events, nil
	}

	var list []*participation.Event
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, walletError(ErrStorage, "malformed events", err)
	}
	for _, ev := range list {
		events[ev.ID] = ev
	}

	return events, nil
}

func (s *storageManager) saveEvents(index uint32,
	events map[participation.EventID]*participation.Event) error {

	list := make([]*participation.Event, 0, len(events))
	for _, ev := range events {
		list = append(list, ev)
	}
	sort.Slice(list, func(i, j int) bool {
		return string(list[i].ID[:]) < string(list[j].ID[:])
	})
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}

	return storageError("unable to write events",
		s.db.Set(participationEventsKey(index), raw))
}
