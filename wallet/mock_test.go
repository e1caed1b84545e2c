// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// This file contains a mock secret manager.  It derives addresses with a
// real in-memory manager and lets tests decide how signing behaves.

package wallet

import (
	"context"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/stretchr/testify/mock"
)

// mockSecretManager signs through its mock and derives through the
// embedded manager.
type mockSecretManager struct {
	mock.Mock
	*keychain.MemoryManager
}

// A compile-time assertion to ensure that mockSecretManager implements the
// SecretManager interface.
var _ keychain.SecretManager = (*mockSecretManager)(nil)

// SignTransactionEssence implements the keychain.SecretManager interface.
func (m *mockSecretManager) SignTransactionEssence(ctx context.Context,
	req *keychain.SignRequest) ([]ledger.Unlock, error) {

	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]ledger.Unlock), args.Error(1)
}

// Descriptor implements the keychain.SecretManager interface.
func (m *mockSecretManager) Descriptor() keychain.Descriptor {
	return keychain.Descriptor{
		Kind:        "mock",
		Data:        []byte(`{"id":1}`),
		Persistable: true,
	}
}

// withSecretManager makes the harness manager use sm.
func withSecretManager(sm keychain.SecretManager) harnessOption {
	return func(cfg *Config) {
		cfg.SecretManager = sm
	}
}
