// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultBackgroundSyncInterval is the pause between background sync
// passes when no interval is given.
const DefaultBackgroundSyncInterval = 7 * time.Second

// BackgroundSyncState is the state of the background sync loop.
type BackgroundSyncState uint8

const (
	// BackgroundSyncIdle means no loop is running.
	BackgroundSyncIdle BackgroundSyncState = iota

	// BackgroundSyncRunning means the loop syncs every account
	// periodically.
	BackgroundSyncRunning

	// BackgroundSyncStopRequested means the loop was asked to stop and
	// exits before syncing the next account.
	BackgroundSyncStopRequested
)

// String returns the state name.
func (s BackgroundSyncState) String() string {
	switch s {
	case BackgroundSyncIdle:
		return "idle"
	case BackgroundSyncRunning:
		return "running"
	case BackgroundSyncStopRequested:
		return "stop requested"
	}
	return "unknown"
}

// backgroundSync drives periodic syncs of every account.
type backgroundSync struct {
	m *Manager

	mtx   sync.Mutex
	state BackgroundSyncState
	quit  chan struct{}
	done  chan struct{}
}

func newBackgroundSync(m *Manager) *backgroundSync {
	return &backgroundSync{m: m}
}

// StartBackgroundSync syncs every account now and then again every
// interval until StopBackgroundSync is called.  Starting a running loop
// does nothing.
func (m *Manager) StartBackgroundSync(opts *SyncOptions,
	interval time.Duration) error {

	if interval <= 0 {
		interval = DefaultBackgroundSyncInterval
	}

	b := m.bg
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.state != BackgroundSyncIdle {
		return nil
	}

	quit := make(chan struct{})
	done := make(chan struct{})
	started := m.gm.Go(context.Background(), func(ctx context.Context) {
		defer func() {
			b.mtx.Lock()
			b.state = BackgroundSyncIdle
			b.mtx.Unlock()
			close(done)
		}()
		b.run(ctx, opts, interval, quit)
	})
	if !started {
		return walletError(ErrInvalidParameter, "manager is shutting "+
			"down", nil)
	}

	b.state = BackgroundSyncRunning
	b.quit = quit
	b.done = done

	log.Infof("Started background sync every %v", interval)

	return nil
}

func (b *backgroundSync) run(ctx context.Context, opts *SyncOptions,
	interval time.Duration, quit <-chan struct{}) {

	t := b.m.cfg.NewTicker(interval)
	t.Resume()
	defer t.Stop()

	for {
		if !b.syncAll(ctx, opts, quit) {
			return
		}

		select {
		case <-t.Ticks():
		case <-quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// syncAll syncs every account, logging failures.  It returns false if the
// loop has to exit, which is checked between accounts.
func (b *backgroundSync) syncAll(ctx context.Context, opts *SyncOptions,
	quit <-chan struct{}) bool {

	for _, acct := range b.m.Accounts() {
		select {
		case <-quit:
			return false
		case <-ctx.Done():
			return false
		default:
		}

		_, err := acct.Sync(ctx, opts)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			return false
		default:
			log.Warnf("Background sync of account %d failed: %v",
				acct.index, err)
		}
	}

	return true
}

// StopBackgroundSync asks the loop to stop, waiting for it to exit when
// wait is set.
func (m *Manager) StopBackgroundSync(wait bool) {
	b := m.bg
	b.mtx.Lock()
	done := b.done
	if b.state == BackgroundSyncRunning {
		b.state = BackgroundSyncStopRequested
		close(b.quit)
		log.Infof("Stopping background sync")
	}
	b.mtx.Unlock()

	if wait && done != nil {
		<-done
	}
}

// BackgroundSyncState returns the state of the background sync loop.
func (m *Manager) BackgroundSyncState() BackgroundSyncState {
	m.bg.mtx.Lock()
	defer m.bg.mtx.Unlock()

	return m.bg.state
}
