// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletrpc

import (
	"errors"

	"github.com/btcsuite/utxowallet/wallet"
)

// Error types to simplify the reporting of specific categories of errors.
type (
	// DeserializationError describes method data that could not be
	// decoded.
	DeserializationError struct {
		error
	}

	// InvalidParameterError describes an invalid parameter passed by
	// the caller.
	InvalidParameterError struct {
		error
	}
)

// ErrUnknownMethod is returned for a method name with no handler.
var ErrUnknownMethod = errors.New("unknown method")

// errorResponse turns err into a ResponseError.
func errorResponse(err error) *Response {
	payload := ErrorPayload{Type: "generic", Message: err.Error()}

	var (
		walletErr *wallet.Error
		deserErr  DeserializationError
		paramErr  InvalidParameterError
	)
	switch {
	case errors.As(err, &walletErr):
		payload.Type = walletErr.Code.String()
	case errors.As(err, &deserErr):
		payload.Type = "deserialization"
	case errors.As(err, &paramErr):
		payload.Type = "invalidParameter"
	case errors.Is(err, ErrUnknownMethod):
		payload.Type = "unknownMethod"
	}

	return &Response{Type: ResponseError, Payload: payload}
}
