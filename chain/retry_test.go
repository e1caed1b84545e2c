// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{Interval: time.Millisecond, MaxAttempts: 3}

// confirmingNode issues a milestone right after every submission, while
// leaving blocks submitted directly on the embedded node pending.
type confirmingNode struct {
	*MemNode
}

func (c *confirmingNode) SubmitPayload(ctx context.Context,
	tx *ledger.TransactionPayload) (ledger.BlockID, error) {

	id, err := c.MemNode.SubmitPayload(ctx, tx)
	if err == nil {
		c.MemNode.IssueMilestone()
	}
	return id, err
}

func TestRetryUntilIncluded(t *testing.T) {
	t.Parallel()

	alice := newTestKey(1)

	tests := []struct {
		name    string
		prepare func(n *MemNode, id ledger.BlockID)
		blocks  int
		check   func(t *testing.T, err error)
	}{{
		name: "included",
		prepare: func(n *MemNode, _ ledger.BlockID) {
			n.IssueMilestone()
		},
		blocks: 1,
		check: func(t *testing.T, err error) {
			require.NoError(t, err)
		},
	}, {
		name:    "never referenced",
		prepare: func(*MemNode, ledger.BlockID) {},
		blocks:  1,
		check: func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrNotIncluded)
		},
	}, {
		name: "reattached",
		prepare: func(n *MemNode, id ledger.BlockID) {
			n.RequireReattach(id)
			n.IssueMilestone()
		},
		blocks: 2,
		check: func(t *testing.T, err error) {
			require.NoError(t, err)
		},
	}, {
		name: "conflicting",
		prepare: func(n *MemNode, _ ledger.BlockID) {
			n.IssueMilestone()
		},
		blocks: 1,
		check: func(t *testing.T, err error) {
			var conflict *ConflictError
			require.ErrorAs(t, err, &conflict)
			require.Equal(t, ledger.ConflictInputOutputSumMismatch,
				conflict.Reason)
		},
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			n := NewMemNode(ledger.SimnetParams, WithManualMilestones())
			funded := n.Fund(basicTo(alice.addr, 1_000_000))

			amount := uint64(1_000_000)
			if test.name == "conflicting" {
				amount = 900_000
			}
			tx := alice.spend(t, n, []ledger.OutputID{funded},
				basicTo(alice.addr, amount))
			id, err := n.SubmitPayload(ctx, tx)
			require.NoError(t, err)

			test.prepare(n, id)

			blocks, err := RetryUntilIncluded(
				ctx, &confirmingNode{n}, id, fastRetry,
			)
			test.check(t, err)
			require.Len(t, blocks, test.blocks)
			require.Equal(t, id, blocks[0])
		})
	}
}

func TestRetryUntilIncludedCanceled(t *testing.T) {
	t.Parallel()

	n := NewMemNode(ledger.SimnetParams, WithManualMilestones())
	alice := newTestKey(1)
	funded := n.Fund(basicTo(alice.addr, 1_000_000))
	id, err := n.SubmitPayload(context.Background(), alice.spend(t, n,
		[]ledger.OutputID{funded}, basicTo(alice.addr, 1_000_000)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = RetryUntilIncluded(ctx, n, id, RetryConfig{
		Interval: time.Hour, MaxAttempts: 10,
	})
	require.ErrorIs(t, err, context.Canceled)
}
