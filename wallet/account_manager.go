// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/utxowallet/chain"
	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/participation"
	"github.com/btcsuite/utxowallet/walletdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCoinType is the BIP-44 coin type used when none is configured.
const DefaultCoinType = 4218

// ClientOptions configure the node client.  The manager only stores them so
// they survive restarts and backups.
type ClientOptions struct {
	Nodes      []string      `json:"nodes"`
	LocalPoW   bool          `json:"localPow"`
	APITimeout time.Duration `json:"apiTimeout,omitempty"`
}

// Config holds the collaborators of a Manager.
type Config struct {
	// DB stores accounts, settings and participation events.
	DB walletdb.DB

	// Client talks to the node.
	Client chain.Client

	// SecretManager derives addresses and signs transactions.
	SecretManager keychain.SecretManager

	// CoinType is used for a store without accounts.  Stores that
	// already hold accounts keep their coin type.
	CoinType uint32

	ClientOptions ClientOptions

	// Clock evaluates timelocks and expirations.  Defaults to the wall
	// clock.
	Clock clock.Clock

	// NewTicker creates the background sync ticker.  Defaults to
	// ticker.New.
	NewTicker func(time.Duration) ticker.Ticker

	// Goroutines runs inclusion monitors and the background sync.  A
	// manager creates its own when nil.
	Goroutines *fn.GoroutineManager

	// Registerer receives the wallet metrics when set.
	Registerer prometheus.Registerer

	// RetryConfig paces inclusion monitors.
	RetryConfig chain.RetryConfig
}

// Manager owns the accounts of one secret manager.
//
// # Account Derivation
//
// Every address is derived from the path
//
//	m / 44' / coin_type' / account' / change' / address_index'
//
// where account' is the index of the account within the manager.  Indexes
// have no gaps: accounts are only ever appended, and only the latest one can
// be removed.
//
// # Concurrency
//
// Each account guards its ledger with its own lock, so operations on
// different accounts never wait on each other.  The manager lock only
// guards the account list and the shared settings.
type Manager struct {
	cfg     Config
	storage *storageManager
	metrics *metrics
	gm      *fn.GoroutineManager
	bg      *backgroundSync

	mtx           sync.RWMutex
	accounts      []*Account
	coinType      uint32
	clientOptions ClientOptions
}

// NewManager opens the store of cfg and loads its accounts.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.DB == nil || cfg.Client == nil || cfg.SecretManager == nil {
		return nil, walletError(ErrInvalidParameter, "storage, client "+
			"and secret manager are required", nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = func(d time.Duration) ticker.Ticker {
			return ticker.New(d)
		}
	}
	if cfg.Goroutines == nil {
		cfg.Goroutines = fn.NewGoroutineManager()
	}
	if cfg.RetryConfig == (chain.RetryConfig{}) {
		cfg.RetryConfig = chain.DefaultRetryConfig
	}

	storage, err := openStorage(cfg.DB)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:           cfg,
		storage:       storage,
		metrics:       newMetrics(cfg.Registerer),
		gm:            cfg.Goroutines,
		coinType:      cfg.CoinType,
		clientOptions: cfg.ClientOptions,
	}
	m.bg = newBackgroundSync(m)

	stored, err := storage.loadManagerConfig()
	if err != nil {
		return nil, err
	}

	recs, err := storage.loadAccounts()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		acct, err := m.accountFromRecord(rec)
		if err != nil {
			return nil, err
		}
		m.accounts = append(m.accounts, acct)
	}

	switch {
	case stored != nil && len(m.accounts) > 0:
		m.coinType = stored.CoinType
		m.clientOptions = stored.ClientOptions

	case stored != nil:
		m.clientOptions = stored.ClientOptions
	}
	if err := m.saveConfig(); err != nil {
		return nil, err
	}

	log.Infof("Opened wallet with %d %s", len(m.accounts),
		pickNoun(len(m.accounts), "account", "accounts"))

	return m, nil
}

func (m *Manager) accountFromRecord(rec *accountRecord) (*Account, error) {
	d, err := detailsFromRecord(rec)
	if err != nil {
		return nil, walletError(ErrStorage, fmt.Sprintf(
			"malformed account %d", rec.Index), err)
	}
	events, err := m.storage.loadEvents(rec.Index)
	if err != nil {
		return nil, err
	}

	return &Account{
		mgr:     m,
		index:   d.index,
		alias:   d.alias,
		details: d,
		events:  events,
	}, nil
}

// saveConfig persists the shared settings.
func (m *Manager) saveConfig() error {
	m.mtx.RLock()
	cfg := &managerConfig{
		CoinType:      m.coinType,
		ClientOptions: m.clientOptions,
	}
	m.mtx.RUnlock()

	desc := m.cfg.SecretManager.Descriptor()
	if desc.Persistable {
		cfg.SecretManager = &desc
	}

	return m.storage.saveManagerConfig(cfg)
}

// CoinType returns the coin type of every account.
func (m *Manager) CoinType() uint32 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	return m.coinType
}

// SetCoinType changes the coin type.  It is only allowed while the manager
// holds no accounts.
func (m *Manager) SetCoinType(coinType uint32) error {
	m.mtx.Lock()
	if len(m.accounts) > 0 {
		m.mtx.Unlock()
		return walletError(ErrInvalidParameter, "coin type cannot "+
			"change once accounts exist", nil)
	}
	m.coinType = coinType
	m.mtx.Unlock()

	return m.saveConfig()
}

// ClientOptions returns the stored client options.
func (m *Manager) ClientOptions() ClientOptions {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	return m.clientOptions
}

// SetClientOptions stores new client options.
func (m *Manager) SetClientOptions(opts ClientOptions) error {
	m.mtx.Lock()
	m.clientOptions = opts
	m.mtx.Unlock()

	return m.saveConfig()
}

// CreateAccount appends an account and derives its first public address.
// An empty alias defaults to "Account <index>".
func (m *Manager) CreateAccount(ctx context.Context,
	alias string) (*Account, error) {

	m.mtx.Lock()
	defer m.mtx.Unlock()

	index := uint32(len(m.accounts))
	if alias == "" {
		alias = fmt.Sprintf("Account %d", index)
	}
	for _, a := range m.accounts {
		if a.alias == alias {
			return nil, walletError(ErrAccountAliasExists,
				fmt.Sprintf("alias %q already exists", alias), nil)
		}
	}

	addrs, err := m.cfg.SecretManager.GenerateAddresses(ctx, m.coinType,
		index, keychain.AddressRange{Start: 0, End: 1},
		keychain.GenerateAddressOptions{})
	if err != nil {
		return nil, clientError("unable to derive first address", err)
	}

	d := newAccountDetails(index, m.coinType, alias)
	d.publicAddresses = []AccountAddress{{Address: addrs[0]}}

	acct := &Account{
		mgr:     m,
		index:   index,
		alias:   alias,
		details: d,
		events:  make(map[participation.EventID]*participation.Event),
	}
	if err := m.storage.saveAccount(d.record()); err != nil {
		return nil, err
	}
	m.accounts = append(m.accounts, acct)

	log.Infof("Created account %d (%s)", index, alias)

	return acct, nil
}

// Account returns the account with the given index.
func (m *Manager) Account(index uint32) (*Account, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	if int(index) >= len(m.accounts) {
		return nil, walletError(ErrAccountNotFound,
			fmt.Sprintf("account %d not found", index), nil)
	}

	return m.accounts[index], nil
}

// AccountByAlias returns the account with the given alias.
func (m *Manager) AccountByAlias(alias string) (*Account, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	for _, a := range m.accounts {
		if a.alias == alias {
			return a, nil
		}
	}

	return nil, walletError(ErrAccountNotFound,
		fmt.Sprintf("account %q not found", alias), nil)
}

// Accounts returns every account ordered by index.
func (m *Manager) Accounts() []*Account {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	return append([]*Account(nil), m.accounts...)
}

// RemoveLatestAccount removes the account with the highest index from the
// manager and the store.
func (m *Manager) RemoveLatestAccount() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if len(m.accounts) == 0 {
		return nil
	}

	last := m.accounts[len(m.accounts)-1]
	if err := m.storage.removeAccount(last.index); err != nil {
		return err
	}
	m.accounts = m.accounts[:len(m.accounts)-1]

	log.Infof("Removed account %d (%s)", last.index, last.alias)

	return nil
}

// truncateAccounts removes every account with an index of at least n.
func (m *Manager) truncateAccounts(n int) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	for len(m.accounts) > n {
		last := m.accounts[len(m.accounts)-1]
		if err := m.storage.removeAccount(last.index); err != nil {
			return err
		}
		m.accounts = m.accounts[:len(m.accounts)-1]
	}

	return nil
}

// nodeInfo queries the node, wrapping failures as client errors.
func (m *Manager) nodeInfo(ctx context.Context) (*chain.NodeInfo, error) {
	info, err := m.cfg.Client.Info(ctx)
	if err != nil {
		return nil, clientError("unable to query node info", err)
	}
	return info, nil
}

// unixNow returns the current time in the resolution of time conditions.
func (m *Manager) unixNow() uint32 {
	return uint32(m.cfg.Clock.Now().Unix())
}

// Close stops the background sync, waits for inclusion monitors and
// closes the store.
func (m *Manager) Close() error {
	m.StopBackgroundSync(true)
	m.gm.Stop()

	return storageError("unable to close storage", m.cfg.DB.Close())
}
