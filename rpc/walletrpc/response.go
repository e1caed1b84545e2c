// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletrpc

import (
	"encoding/json"
	"fmt"
)

// Method is a command sent by a binding.  Data holds the JSON encoded
// arguments of the method named Name.
type Method struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ResponseType tags the payload of a Response.
type ResponseType uint8

// These constants are all the response types.
const (
	ResponseOk ResponseType = iota
	ResponseError
	ResponseAccount
	ResponseAccounts
	ResponseAddresses
	ResponseBalance
	ResponseOutputs
	ResponseOutputIDs
	ResponseTransactions
	ResponseSentTransaction
	ResponseParticipationOverview
	ResponseBackgroundSyncState
)

// responseNames maps each response type to its wire name.  Bindings switch
// on these names, so an entry must never change once released.
var responseNames = map[ResponseType]string{
	ResponseOk:                    "ok",
	ResponseError:                 "error",
	ResponseAccount:               "account",
	ResponseAccounts:              "accounts",
	ResponseAddresses:             "addresses",
	ResponseBalance:               "balance",
	ResponseOutputs:               "outputs",
	ResponseOutputIDs:             "outputIds",
	ResponseTransactions:          "transactions",
	ResponseSentTransaction:       "sentTransaction",
	ResponseParticipationOverview: "participationOverview",
	ResponseBackgroundSyncState:   "backgroundSyncState",
}

// responseTypes is the inverse of responseNames.
var responseTypes = func() map[string]ResponseType {
	m := make(map[string]ResponseType, len(responseNames))
	for t, name := range responseNames {
		m[name] = t
	}
	return m
}()

// String returns the wire name of the response type.
func (t ResponseType) String() string {
	if name, ok := responseNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown ResponseType (%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t ResponseType) MarshalText() ([]byte, error) {
	name, ok := responseNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown response type %d", uint8(t))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ResponseType) UnmarshalText(text []byte) error {
	parsed, ok := responseTypes[string(text)]
	if !ok {
		return fmt.Errorf("unknown response type %q", text)
	}
	*t = parsed
	return nil
}

// Response is the answer to a Method.
type Response struct {
	Type    ResponseType `json:"type"`
	Payload interface{}  `json:"payload,omitempty"`
}

// ErrorPayload is the payload of a ResponseError.  Type names the wallet
// error code, or is "generic" for errors outside the wallet taxonomy.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"error"`
}

func okResponse() *Response {
	return &Response{Type: ResponseOk}
}
