// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txrules provides the storage deposit rules every output created by the
wallet has to abide by.

Storage Deposit

Every output occupies space in the ledger of every node, so it has to hold an
amount of base tokens proportional to its virtual byte size:

    vbytes  = fd*len(output) + fk*len(output id) + fd*len(metadata)
    deposit = cost * vbytes

    where fd   = data byte factor of the rent structure
          fk   = key byte factor of the rent structure
          cost = cost of one virtual byte

The deposit does not depend on the amount itself since amounts are encoded
with a fixed width, which lets MinimumStorageDeposit size a throwaway output.

Dust

A remainder that is not zero yet below the deposit of the output that would
carry it cannot be created.  Such transactions are rejected with
ErrRemainderLeavesDust rather than silently burning the remainder.
*/
package txrules
