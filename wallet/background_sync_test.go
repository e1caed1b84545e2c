// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/utxowallet/chain"
	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/walletdb/memdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestBackgroundSync checks that the loop syncs on start and on every tick,
// and that stopping it leaves no goroutine behind.
func TestBackgroundSync(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	clk := clock.NewTestClock(testTime)
	node := chain.NewMemNode(ledger.SimnetParams, chain.WithClock(clk))

	// Every started loop gets a fresh mock ticker that we feed by hand.
	tickers := make(chan *ticker.Force, 2)
	mgr, err := NewManager(Config{
		DB:            memdb.New(),
		Client:        node,
		SecretManager: keychain.NewMemoryManagerFromPassphrase(testMnemonic),
		Clock:         clk,
		RetryConfig:   testRetryConfig,
		NewTicker: func(d time.Duration) ticker.Ticker {
			m := ticker.NewForce(d)
			tickers <- m
			return m
		},
	})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, mgr.Close())
	}()

	acct, err := mgr.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	total := func() uint64 {
		balance, err := acct.Balance(ctx)
		require.NoError(t, err)
		return uint64(balance.BaseCoin.Total)
	}

	node.Fund(basicTo(acct.firstAddress(), 1_000_000))
	require.Equal(t, BackgroundSyncIdle, mgr.BackgroundSyncState())

	require.NoError(t, mgr.StartBackgroundSync(nil, time.Hour))
	require.Equal(t, BackgroundSyncRunning, mgr.BackgroundSyncState())
	mock := <-tickers

	// The first pass runs right away.
	require.Eventually(t, func() bool {
		return total() == 1_000_000
	}, 5*time.Second, 10*time.Millisecond)

	// Starting again is a no-op.
	require.NoError(t, mgr.StartBackgroundSync(nil, time.Hour))
	require.Len(t, tickers, 0)

	node.Fund(basicTo(acct.firstAddress(), 500_000))
	mock.Force <- time.Now()
	require.Eventually(t, func() bool {
		return total() == 1_500_000
	}, 5*time.Second, 10*time.Millisecond)

	mgr.StopBackgroundSync(true)
	require.Equal(t, BackgroundSyncIdle, mgr.BackgroundSyncState())

	// A stopped loop can be started again.
	node.Fund(basicTo(acct.firstAddress(), 250_000))
	require.NoError(t, mgr.StartBackgroundSync(nil, 0))
	<-tickers
	require.Eventually(t, func() bool {
		return total() == 1_750_000
	}, 5*time.Second, 10*time.Millisecond)
}

// gatedNode holds the first Info call once armed until release is closed.
type gatedNode struct {
	*chain.MemNode

	armed   atomic.Bool
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedNode) Info(ctx context.Context) (*chain.NodeInfo, error) {
	if g.armed.Load() && g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.MemNode.Info(ctx)
}

// TestBackgroundSyncStopsBetweenAccounts checks that a stop requested while
// an account syncs ends the pass before the next account.
func TestBackgroundSyncStopsBetweenAccounts(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	clk := clock.NewTestClock(testTime)
	node := &gatedNode{
		MemNode: chain.NewMemNode(ledger.SimnetParams,
			chain.WithClock(clk)),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	mgr, err := NewManager(Config{
		DB:            memdb.New(),
		Client:        node,
		SecretManager: keychain.NewMemoryManagerFromPassphrase(testMnemonic),
		Clock:         clk,
		RetryConfig:   testRetryConfig,
		NewTicker: func(d time.Duration) ticker.Ticker {
			return ticker.NewForce(d)
		},
	})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, mgr.Close())
	}()

	var accts []*Account
	for _, alias := range []string{"alice", "bob", "carol"} {
		acct, err := mgr.CreateAccount(ctx, alias)
		require.NoError(t, err)
		node.Fund(basicTo(acct.firstAddress(), 1_000_000))
		accts = append(accts, acct)
	}

	node.armed.Store(true)
	require.NoError(t, mgr.StartBackgroundSync(nil, time.Hour))
	<-node.entered

	// The first account is stuck in its sync while the stop comes in.
	stopped := make(chan struct{})
	go func() {
		mgr.StopBackgroundSync(true)
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		return mgr.BackgroundSyncState() == BackgroundSyncStopRequested
	}, 5*time.Second, 10*time.Millisecond)

	close(node.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("background sync did not stop")
	}
	require.Equal(t, BackgroundSyncIdle, mgr.BackgroundSyncState())

	synced := 0
	for _, acct := range accts {
		balance, err := acct.Balance(ctx)
		require.NoError(t, err)
		if balance.BaseCoin.Total > 0 {
			synced++
		}
	}
	require.Equal(t, 1, synced)
}

func TestBackgroundSyncStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state BackgroundSyncState
		want  string
	}{
		{BackgroundSyncIdle, "idle"},
		{BackgroundSyncRunning, "running"},
		{BackgroundSyncStopRequested, "stop requested"},
		{BackgroundSyncState(9), "unknown"},
	}
	for _, test := range tests {
		require.Equal(t, test.want, test.state.String())
	}
}
