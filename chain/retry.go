// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrNotIncluded is returned when a block was still not referenced
	// after every attempt.
	ErrNotIncluded = errors.New("block not included")
)

// ConflictError is returned when a milestone referenced a block but the
// ledger rejected its transaction.
type ConflictError struct {
	BlockID ledger.BlockID
	Reason  ledger.ConflictReason
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("block %v conflicting: %v", e.BlockID, e.Reason)
}

// RetryConfig tunes RetryUntilIncluded.
type RetryConfig struct {
	// Interval is the time between two metadata polls.
	Interval time.Duration

	// MaxAttempts bounds the number of polls.
	MaxAttempts uint64
}

// DefaultRetryConfig polls every five seconds for up to five minutes.
var DefaultRetryConfig = RetryConfig{
	Interval:    5 * time.Second,
	MaxAttempts: 60,
}

var errPending = errors.New("pending")

// RetryUntilIncluded polls the metadata of blockID until a milestone
// references it, reattaching the payload whenever the node asks for it.  It
// returns the ids of every block that carried the payload, the original one
// first.
func RetryUntilIncluded(ctx context.Context, c Client, blockID ledger.BlockID,
	cfg RetryConfig) ([]ledger.BlockID, error) {

	blocks := []ledger.BlockID{blockID}
	current := blockID

	op := func() error {
		meta, err := c.BlockMetadata(ctx, current)
		if err != nil {
			return backoff.Permanent(err)
		}

		switch {
		case meta.LedgerInclusionState == InclusionIncluded:
			return nil

		case meta.LedgerInclusionState == InclusionConflicting:
			return backoff.Permanent(&ConflictError{
				BlockID: current,
				Reason:  meta.ConflictReason,
			})

		case meta.ShouldReattach:
			block, err := c.Block(ctx, current)
			if err != nil {
				return backoff.Permanent(err)
			}
			if block.Payload == nil {
				return backoff.Permanent(fmt.Errorf("block %v "+
					"has no transaction", current))
			}
			next, err := c.SubmitPayload(ctx, block.Payload)
			if err != nil {
				return err
			}
			log.Debugf("Reattached block %v as %v", current, next)
			current = next
			blocks = append(blocks, next)
		}

		return errPending
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(cfg.Interval), cfg.MaxAttempts,
	), ctx)

	err := backoff.Retry(op, policy)
	if errors.Is(err, errPending) {
		return blocks, ErrNotIncluded
	}

	return blocks, err
}
