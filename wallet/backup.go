// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/participation"
	"github.com/btcsuite/utxowallet/snacl"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/tlv"
)

// backupVersion is the format version of backups.
const backupVersion uint8 = 1

// Record types of the backup stream.
const (
	backupVersionType       tlv.Type = 0
	backupClientOptionsType tlv.Type = 1
	backupCoinTypeType      tlv.Type = 2
	backupDescriptorType    tlv.Type = 3
	backupAccountsType      tlv.Type = 4
	backupEventsType        tlv.Type = 5
)

// Scrypt parameters of the backup key.  Variables so tests can make them
// cheap.
var (
	backupScryptN = snacl.DefaultN
	backupScryptR = snacl.DefaultR
	backupScryptP = snacl.DefaultP
)

// backupContent is the decrypted content of a backup.
type backupContent struct {
	version       uint8
	clientOptions []byte
	coinType      uint32
	descriptor    []byte
	accounts      []byte
	events        []byte
}

func (c *backupContent) records() []tlv.Record {
	return []tlv.Record{
		tlv.MakePrimitiveRecord(backupVersionType, &c.version),
		tlv.MakePrimitiveRecord(backupClientOptionsType,
			&c.clientOptions),
		tlv.MakePrimitiveRecord(backupCoinTypeType, &c.coinType),
		tlv.MakePrimitiveRecord(backupDescriptorType, &c.descriptor),
		tlv.MakePrimitiveRecord(backupAccountsType, &c.accounts),
		tlv.MakePrimitiveRecord(backupEventsType, &c.events),
	}
}

func (c *backupContent) encode(w io.Writer) error {
	records := c.records()
	if len(c.descriptor) == 0 {
		records = append(records[:3], records[4:]...)
	}
	stream, err := tlv.NewStream(records...)
	if err != nil {
		return err
	}
	return stream.Encode(w)
}

func (c *backupContent) decode(r io.Reader) (bool, error) {
	stream, err := tlv.NewStream(c.records()...)
	if err != nil {
		return false, err
	}
	parsed, err := stream.DecodeWithParsedTypes(r)
	if err != nil {
		return false, err
	}
	_, hasDescriptor := parsed[backupDescriptorType]

	return hasDescriptor, nil
}

// Backup writes the settings and accounts of the manager to w, encrypted
// with a key derived from password.  The secret manager descriptor is only
// included when it is persistable.
func (m *Manager) Backup(w io.Writer, password []byte) error {
	content := &backupContent{version: backupVersion}

	m.mtx.RLock()
	content.coinType = m.coinType
	clientOptions := m.clientOptions
	accounts := append([]*Account(nil), m.accounts...)
	m.mtx.RUnlock()

	var err error
	content.clientOptions, err = json.Marshal(clientOptions)
	if err != nil {
		return err
	}
	if desc := m.cfg.SecretManager.Descriptor(); desc.Persistable {
		content.descriptor, err = json.Marshal(desc)
		if err != nil {
			return err
		}
	}

	recs := make([]*accountRecord, 0, len(accounts))
	events := make(map[uint32][]*participation.Event)
	for _, acct := range accounts {
		acct.read(func(d *accountDetails) {
			recs = append(recs, d.record())
		})
		for _, ev := range acct.ParticipationEvents() {
			events[acct.index] = append(events[acct.index], ev)
		}
	}
	for _, list := range events {
		sort.Slice(list, func(i, j int) bool {
			return bytes.Compare(list[i].ID[:], list[j].ID[:]) < 0
		})
	}
	if content.accounts, err = json.Marshal(recs); err != nil {
		return err
	}
	if content.events, err = json.Marshal(events); err != nil {
		return err
	}

	var plain bytes.Buffer
	if err := content.encode(&plain); err != nil {
		return walletError(ErrBackup, "unable to encode backup", err)
	}

	key, err := snacl.NewSecretKey(&password, backupScryptN,
		backupScryptR, backupScryptP)
	if err != nil {
		return walletError(ErrBackup, "unable to derive backup key", err)
	}
	defer key.Zero()

	sealed, err := key.Encrypt(plain.Bytes())
	if err != nil {
		return walletError(ErrBackup, "unable to encrypt backup", err)
	}

	if _, err := w.Write(key.Marshal()); err != nil {
		return err
	}
	if _, err := w.Write(sealed); err != nil {
		return err
	}

	log.Infof("Backed up %d %s", len(recs),
		pickNoun(len(recs), "account", "accounts"))

	return nil
}

// BackupToFile writes a backup to path, readable by the owner only.
func (m *Manager) BackupToFile(path string, password []byte) error {
	var buf bytes.Buffer
	if err := m.Backup(&buf, password); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// RestoreBackup replaces the settings and accounts of the manager with the
// content of a backup.  A backup made with another coin type fails unless
// ignoreCoinTypeMismatch is set, in which case only the client options are
// restored.  The secret manager descriptor of the backup, if any, is
// returned so the caller can rebuild its secret manager.
func (m *Manager) RestoreBackup(r io.Reader, password []byte,
	ignoreCoinTypeMismatch bool) (fn.Option[keychain.Descriptor], error) {

	none := fn.None[keychain.Descriptor]()

	raw, err := io.ReadAll(r)
	if err != nil {
		return none, walletError(ErrBackup, "unable to read backup", err)
	}
	var key snacl.SecretKey
	paramsLen := len(key.Marshal())
	if len(raw) < paramsLen {
		return none, walletError(ErrBackup, "truncated backup", nil)
	}
	if err := key.Unmarshal(raw[:paramsLen]); err != nil {
		return none, walletError(ErrBackup, "malformed backup", err)
	}
	if err := key.DeriveKey(&password); err != nil {
		return none, walletError(ErrBackup, "unable to derive backup "+
			"key", err)
	}
	defer key.Zero()

	plain, err := key.Decrypt(raw[paramsLen:])
	if err != nil {
		return none, walletError(ErrBackup, "unable to decrypt backup",
			err)
	}

	var content backupContent
	hasDescriptor, err := content.decode(bytes.NewReader(plain))
	if err != nil {
		return none, walletError(ErrBackup, "malformed backup", err)
	}
	if content.version != backupVersion {
		return none, walletError(ErrBackup, fmt.Sprintf("unsupported "+
			"backup version %d", content.version), nil)
	}

	var clientOptions ClientOptions
	if err := json.Unmarshal(content.clientOptions, &clientOptions); err != nil {
		return none, walletError(ErrBackup, "malformed client options",
			err)
	}
	desc := none
	if hasDescriptor {
		var d keychain.Descriptor
		if err := json.Unmarshal(content.descriptor, &d); err != nil {
			return none, walletError(ErrBackup, "malformed secret "+
				"manager descriptor", err)
		}
		d.Persistable = true
		desc = fn.Some(d)
	}

	if content.coinType != m.CoinType() {
		if !ignoreCoinTypeMismatch {
			return none, walletError(ErrBackup, fmt.Sprintf("backup "+
				"coin type %d does not match %d",
				content.coinType, m.CoinType()), nil)
		}

		log.Infof("Backup coin type %d differs, restoring client "+
			"options only", content.coinType)
		return desc, m.SetClientOptions(clientOptions)
	}

	var recs []*accountRecord
	if err := json.Unmarshal(content.accounts, &recs); err != nil {
		return none, walletError(ErrBackup, "malformed accounts", err)
	}
	events := make(map[uint32][]*participation.Event)
	if err := json.Unmarshal(content.events, &events); err != nil {
		return none, walletError(ErrBackup, "malformed events", err)
	}

	m.StopBackgroundSync(true)
	if err := m.truncateAccounts(0); err != nil {
		return none, err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.clientOptions = clientOptions
	for _, rec := range recs {
		evs := make(map[participation.EventID]*participation.Event)
		for _, ev := range events[rec.Index] {
			evs[ev.ID] = ev
		}
		if err := m.storage.saveEvents(rec.Index, evs); err != nil {
			return none, err
		}
		if err := m.storage.saveAccount(rec); err != nil {
			return none, err
		}
		acct, err := m.accountFromRecord(rec)
		if err != nil {
			return none, err
		}
		m.accounts = append(m.accounts, acct)
	}

	cfg := &managerConfig{
		CoinType:      m.coinType,
		ClientOptions: m.clientOptions,
	}
	desc.WhenSome(func(d keychain.Descriptor) {
		cfg.SecretManager = &d
	})
	if err := m.storage.saveManagerConfig(cfg); err != nil {
		return none, err
	}

	log.Infof("Restored %d %s from backup", len(recs),
		pickNoun(len(recs), "account", "accounts"))

	return desc, nil
}

// RestoreBackupFromFile restores the backup stored at path.
func (m *Manager) RestoreBackupFromFile(path string, password []byte,
	ignoreCoinTypeMismatch bool) (fn.Option[keychain.Descriptor], error) {

	f, err := os.Open(path)
	if err != nil {
		return fn.None[keychain.Descriptor](), walletError(ErrBackup,
			"unable to open backup", err)
	}
	defer f.Close()

	return m.RestoreBackup(f, password, ignoreCoinTypeMismatch)
}
