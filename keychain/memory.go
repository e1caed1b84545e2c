// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/btcsuite/utxowallet/internal/zero"
	"github.com/btcsuite/utxowallet/ledger"
	"golang.org/x/crypto/blake2b"
)

// MemoryManagerKind is the descriptor kind of a MemoryManager.
const MemoryManagerKind = "memory"

// ErrManagerClosed is returned by a MemoryManager after Close.
var ErrManagerClosed = errors.New("secret manager closed")

// MemoryManager is a SecretManager holding its seed in memory.  Keys are
// derived by hashing the derivation path with blake2b keyed by the seed,
// which yields the Ed25519 private key seed of every chain.
type MemoryManager struct {
	mtx  sync.RWMutex
	seed []byte
}

// NewMemoryManager returns a manager backed by a copy of seed.  Seeds longer
// than 64 bytes are compressed with blake2b-512 first.
func NewMemoryManager(seed []byte) *MemoryManager {
	var s []byte
	if len(seed) > blake2b.Size {
		h := blake2b.Sum512(seed)
		s = h[:]
	} else {
		s = append([]byte(nil), seed...)
	}

	return &MemoryManager{seed: s}
}

// NewMemoryManagerFromPassphrase derives the seed from a passphrase such as
// a mnemonic sentence.
func NewMemoryManagerFromPassphrase(phrase string) *MemoryManager {
	h := blake2b.Sum512([]byte(phrase))
	m := NewMemoryManager(h[:])
	zero.Bytea64(&h)

	return m
}

func (m *MemoryManager) privateKey(chain Chain) (ed25519.PrivateKey, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	if m.seed == nil {
		return nil, ErrManagerClosed
	}

	h, err := blake2b.New256(m.seed)
	if err != nil {
		return nil, err
	}
	var buf [4]byte
	for _, seg := range chain.Path() {
		binary.BigEndian.PutUint32(buf[:], seg)
		h.Write(buf[:])
	}
	keySeed := h.Sum(nil)
	defer zero.Bytes(keySeed)

	return ed25519.NewKeyFromSeed(keySeed), nil
}

// GenerateAddresses returns the addresses of the requested range.
func (m *MemoryManager) GenerateAddresses(ctx context.Context, coinType,
	account uint32, rng AddressRange,
	opts GenerateAddressOptions) ([]ledger.Ed25519Address, error) {

	if rng.End < rng.Start {
		return nil, errors.New("invalid address range")
	}

	addrs := make([]ledger.Ed25519Address, 0, rng.End-rng.Start)
	for i := rng.Start; i < rng.End; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		priv, err := m.privateKey(Chain{
			CoinType:     coinType,
			Account:      account,
			Internal:     opts.Internal,
			AddressIndex: i,
		})
		if err != nil {
			return nil, err
		}
		pub := priv.Public().(ed25519.PublicKey)
		addrs = append(addrs, ledger.Ed25519AddressFromPubKey(pub))
		zero.Bytes(priv)
	}

	return addrs, nil
}

// SignTransactionEssence unlocks every input of the request.
func (m *MemoryManager) SignTransactionEssence(ctx context.Context,
	req *SignRequest) ([]ledger.Unlock, error) {

	unlocks, err := BuildUnlocks(ctx, req, m.sign)
	if err != nil {
		return nil, err
	}
	log.Debugf("Signed essence with %d inputs", len(req.Inputs))

	return unlocks, nil
}

func (m *MemoryManager) sign(_ context.Context, chain Chain,
	hash []byte) (*ledger.SignatureUnlock, error) {

	priv, err := m.privateKey(chain)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(priv)

	u := &ledger.SignatureUnlock{}
	copy(u.PublicKey[:], priv.Public().(ed25519.PublicKey))
	copy(u.Signature[:], ed25519.Sign(priv, hash))

	return u, nil
}

// Descriptor returns a non-persistable descriptor: in-memory seeds are
// never written to backups.
func (m *MemoryManager) Descriptor() Descriptor {
	return Descriptor{Kind: MemoryManagerKind}
}

// Close zeroes the seed.  Every later call fails with ErrManagerClosed.
func (m *MemoryManager) Close() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	zero.Bytes(m.seed)
	m.seed = nil
}

// A compile time check to ensure MemoryManager satisfies SecretManager.
var _ SecretManager = (*MemoryManager)(nil)
