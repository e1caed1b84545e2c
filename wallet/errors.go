// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/utxowallet/snacl"
	"github.com/btcsuite/utxowallet/wallet/txauthor"
	"github.com/btcsuite/utxowallet/wallet/txrules"
	"github.com/btcsuite/utxowallet/walletdb"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrInsufficientFunds indicates the unlocked outputs of the account
	// do not cover the requested outputs.
	ErrInsufficientFunds ErrorCode = iota

	// ErrLeavingDust indicates the remainder would be below its storage
	// deposit.
	ErrLeavingDust

	// ErrInvalidOutputKind indicates an output kind that cannot be used
	// for the requested operation.
	ErrInvalidOutputKind

	// ErrAddressNotFoundInAccount indicates an input unlocked by an
	// address the account does not know.  It signals corrupted state.
	ErrAddressNotFoundInAccount

	// ErrBurningOrMeltingFailed indicates native tokens could not be
	// burned or melted.
	ErrBurningOrMeltingFailed

	// ErrMintingFailed indicates native tokens or NFTs could not be
	// minted.
	ErrMintingFailed

	// ErrVoting indicates a participation request that cannot be served.
	ErrVoting

	// ErrTransactionSemantic indicates the transaction failed local
	// semantic validation.
	ErrTransactionSemantic

	// ErrStorageIsEncrypted indicates storage was accessed without its
	// password.
	ErrStorageIsEncrypted

	// ErrBackup indicates an unusable backup.
	ErrBackup

	// ErrAccountSchemaMigration indicates stored data with an
	// unsupported schema version.
	ErrAccountSchemaMigration

	// ErrClient wraps errors of the node client or the secret manager.
	ErrClient

	// ErrAccountNotFound indicates an unknown account index or alias.
	ErrAccountNotFound

	// ErrAccountAliasExists indicates an alias already in use.
	ErrAccountAliasExists

	// ErrInvalidParameter indicates an invalid request.
	ErrInvalidParameter

	// ErrStorage indicates a storage failure.
	ErrStorage

	// ErrNoOutputsToConsolidate indicates too few outputs to
	// consolidate.
	ErrNoOutputsToConsolidate

	// ErrRecordNotFound indicates an unknown output or transaction.
	ErrRecordNotFound
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrInsufficientFunds:        "ErrInsufficientFunds",
	ErrLeavingDust:              "ErrLeavingDust",
	ErrInvalidOutputKind:        "ErrInvalidOutputKind",
	ErrAddressNotFoundInAccount: "ErrAddressNotFoundInAccount",
	ErrBurningOrMeltingFailed:   "ErrBurningOrMeltingFailed",
	ErrMintingFailed:            "ErrMintingFailed",
	ErrVoting:                   "ErrVoting",
	ErrTransactionSemantic:      "ErrTransactionSemantic",
	ErrStorageIsEncrypted:       "ErrStorageIsEncrypted",
	ErrBackup:                   "ErrBackup",
	ErrAccountSchemaMigration:   "ErrAccountSchemaMigration",
	ErrClient:                   "ErrClient",
	ErrAccountNotFound:          "ErrAccountNotFound",
	ErrAccountAliasExists:       "ErrAccountAliasExists",
	ErrInvalidParameter:         "ErrInvalidParameter",
	ErrStorage:                  "ErrStorage",
	ErrNoOutputsToConsolidate:   "ErrNoOutputsToConsolidate",
	ErrRecordNotFound:           "ErrRecordNotFound",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during wallet
// operation.
type Error struct {
	Code        ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// walletError creates an Error given a set of arguments.
func walletError(c ErrorCode, desc string, err error) *Error {
	return &Error{Code: c, Description: desc, Err: err}
}

// IsError returns true if err, or an error it wraps, is an Error of kind
// code.
func IsError(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// clientError wraps an opaque node or signer error.
func clientError(desc string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return walletError(ErrClient, desc, err)
}

// storageError maps storage failures, telling a locked store apart.
func storageError(desc string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, walletdb.ErrStorageIsEncrypted),
		errors.Is(err, snacl.ErrInvalidPassword):
		return walletError(ErrStorageIsEncrypted, desc, err)
	}
	return walletError(ErrStorage, desc, err)
}

// buildError maps the errors of input selection and transaction authoring
// into wallet errors.
func buildError(err error) error {
	var (
		e            *Error
		insufficient *txauthor.InsufficientFundsError
		tokens       *txauthor.InsufficientNativeTokensError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return err
	case errors.As(err, &insufficient), errors.As(err, &tokens):
		return walletError(ErrInsufficientFunds, "unable to fund "+
			"transaction", err)
	case errors.Is(err, txrules.ErrRemainderLeavesDust):
		return walletError(ErrLeavingDust, "remainder below storage "+
			"deposit", err)
	case errors.Is(err, txrules.ErrInvalidOutputKind):
		return walletError(ErrInvalidOutputKind, "invalid output", err)
	case errors.Is(err, txauthor.ErrAddressNotFound):
		return walletError(ErrAddressNotFoundInAccount, "inconsistent "+
			"account state", err)
	}
	return walletError(ErrInvalidParameter, "unable to build transaction",
		err)
}
