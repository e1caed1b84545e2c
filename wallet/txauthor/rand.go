// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// newRand returns a math/rand source seeded from the system CSPRNG.
func newRand() *rand.Rand {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(err)
	}

	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(
		seed[:],
	))))
}
