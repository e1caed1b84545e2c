// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/btcsuite/utxowallet/wallet"
)

// Handler dispatches methods to a wallet manager.  It is safe for
// concurrent use.
type Handler struct {
	mgr *wallet.Manager

	// hrp renders addresses in responses and is the only human readable
	// part accepted in requests.
	hrp string
}

// NewHandler returns a handler serving mgr on the network with the given
// Bech32 human readable part.
func NewHandler(mgr *wallet.Manager, hrp string) *Handler {
	return &Handler{mgr: mgr, hrp: hrp}
}

// managerHandler handles a method of the manager.
type managerHandler func(context.Context, *Handler, json.RawMessage) (
	*Response, error)

// accountHandler handles a method of a single account.
type accountHandler func(context.Context, *Handler, *wallet.Account,
	json.RawMessage) (*Response, error)

// managerHandlers holds every manager method.  callAccountMethod is added in
// init since it refers back to the table.
var managerHandlers = map[string]managerHandler{
	"createAccount":       createAccount,
	"getAccount":          getAccount,
	"getAccounts":         getAccounts,
	"recoverAccounts":     recoverAccounts,
	"removeLatestAccount": removeLatestAccount,
	"backup":              backup,
	"restoreBackup":       restoreBackup,
	"setClientOptions":    setClientOptions,
	"startBackgroundSync": startBackgroundSync,
	"stopBackgroundSync":  stopBackgroundSync,
	"backgroundSyncState": backgroundSyncState,
}

var accountHandlers = map[string]accountHandler{
	"sync":                  syncAccount,
	"getBalance":            getBalance,
	"addresses":             addresses,
	"generateAddresses":     generateAddresses,
	"outputs":               outputs,
	"unspentOutputs":        unspentOutputs,
	"transactions":          transactions,
	"pendingTransactions":   pendingTransactions,
	"send":                  send,
	"claimableOutputs":      claimableOutputs,
	"claimOutputs":          claimOutputs,
	"consolidateOutputs":    consolidateOutputs,
	"vote":                  vote,
	"stopParticipating":     stopParticipating,
	"increaseVotingPower":   increaseVotingPower,
	"decreaseVotingPower":   decreaseVotingPower,
	"participationOverview": participationOverview,
}

func init() {
	managerHandlers["callAccountMethod"] = callAccountMethod
}

// Call runs m and returns its response.  Failures are reported as a
// ResponseError rather than a Go error so that bindings only ever decode
// responses.
func (h *Handler) Call(ctx context.Context, m Method) *Response {
	handler, ok := managerHandlers[m.Name]
	if !ok {
		return errorResponse(fmt.Errorf("%w %q", ErrUnknownMethod,
			m.Name))
	}

	log.Debugf("Handling method %s", m.Name)

	resp, err := handler(ctx, h, m.Data)
	if err != nil {
		log.Debugf("Method %s failed: %v", m.Name, err)
		return errorResponse(err)
	}
	return resp
}

// CallJSON decodes a Method from raw, runs it and returns the encoded
// response.
func (h *Handler) CallJSON(ctx context.Context, raw []byte) []byte {
	var (
		m    Method
		resp *Response
	)
	if err := json.Unmarshal(raw, &m); err != nil {
		resp = errorResponse(DeserializationError{err})
	} else {
		resp = h.Call(ctx, m)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("Unable to encode %v response: %v", resp.Type, err)
		b, _ = json.Marshal(errorResponse(err))
	}
	return b
}

// decode unmarshals method data into v.  Missing data leaves v untouched.
func decode(data json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return DeserializationError{err}
	}
	return nil
}

// AccountID identifies an account by index or by alias.  It decodes from
// either a JSON number or a JSON string.
type AccountID struct {
	Index *uint32
	Alias string
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *AccountID) UnmarshalJSON(b []byte) error {
	var alias string
	if err := json.Unmarshal(b, &alias); err == nil {
		*id = AccountID{Alias: alias}
		return nil
	}

	index, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return fmt.Errorf("account id must be an index or an alias: %w",
			err)
	}
	i := uint32(index)
	*id = AccountID{Index: &i}

	return nil
}

// MarshalJSON implements json.Marshaler.
func (id AccountID) MarshalJSON() ([]byte, error) {
	if id.Index != nil {
		return json.Marshal(*id.Index)
	}
	return json.Marshal(id.Alias)
}

func (h *Handler) account(id AccountID) (*wallet.Account, error) {
	if id.Index != nil {
		return h.mgr.Account(*id.Index)
	}
	return h.mgr.AccountByAlias(id.Alias)
}
