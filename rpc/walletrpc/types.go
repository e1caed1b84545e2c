// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletrpc

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/wallet"
	"github.com/btcsuite/utxowallet/wallet/txauthor"
)

// HexBytes is a byte slice encoded as 0x prefixed hex.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(b)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *HexBytes) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return err
	}
	*b = raw
	return nil
}

// AddressResponse is an account address rendered in Bech32.
type AddressResponse struct {
	Address  string `json:"address"`
	KeyIndex uint32 `json:"keyIndex"`
	Internal bool   `json:"internal"`
	Used     bool   `json:"used"`
}

// AccountResponse describes an account.
type AccountResponse struct {
	Index             uint32            `json:"index"`
	Alias             string            `json:"alias"`
	PublicAddresses   []AddressResponse `json:"publicAddresses"`
	InternalAddresses []AddressResponse `json:"internalAddresses"`
}

func (h *Handler) addressResponses(addrs []wallet.AccountAddress) []AddressResponse {
	resp := make([]AddressResponse, 0, len(addrs))
	for _, addr := range addrs {
		resp = append(resp, AddressResponse{
			Address:  addr.Address.Bech32(h.hrp),
			KeyIndex: addr.KeyIndex,
			Internal: addr.Internal,
			Used:     addr.Used,
		})
	}
	return resp
}

func (h *Handler) accountResponse(acct *wallet.Account) AccountResponse {
	resp := AccountResponse{
		Index:             acct.Index(),
		Alias:             acct.Alias(),
		PublicAddresses:   []AddressResponse{},
		InternalAddresses: []AddressResponse{},
	}
	for _, addr := range h.addressResponses(acct.Addresses()) {
		if addr.Internal {
			resp.InternalAddresses = append(resp.InternalAddresses,
				addr)
		} else {
			resp.PublicAddresses = append(resp.PublicAddresses, addr)
		}
	}
	return resp
}

// parseAddress decodes a Bech32 address of the handler's network.
func (h *Handler) parseAddress(s string) (ledger.Address, error) {
	hrp, addr, err := ledger.ParseBech32(s)
	if err != nil {
		return nil, InvalidParameterError{err}
	}
	if hrp != h.hrp {
		return nil, InvalidParameterError{fmt.Errorf("address %s "+
			"belongs to network %q, expected %q", s, hrp, h.hrp)}
	}
	return addr, nil
}

// SyncOptions mirror wallet.SyncOptions.
type SyncOptions struct {
	SyncIncomingTransactions bool `json:"syncIncomingTransactions"`
	SkipPendingTransactions  bool `json:"skipPendingTransactions"`
	SyncOnlyMostBasicOutputs bool `json:"syncOnlyMostBasicOutputs"`
}

func (o *SyncOptions) wallet() *wallet.SyncOptions {
	if o == nil {
		return nil
	}
	return &wallet.SyncOptions{
		SyncIncomingTransactions: o.SyncIncomingTransactions,
		SkipPendingTransactions:  o.SkipPendingTransactions,
		SyncOnlyMostBasicOutputs: o.SyncOnlyMostBasicOutputs,
	}
}

// TaggedData is an arbitrary payload carried by a transaction.
type TaggedData struct {
	Tag  HexBytes `json:"tag"`
	Data HexBytes `json:"data"`
}

// TransactionOptions mirror wallet.TransactionOptions.  RemainderStrategy
// is one of "reuseAddress", "changeAddress" and "customAddress".
type TransactionOptions struct {
	RemainderStrategy      string            `json:"remainderStrategy,omitempty"`
	CustomRemainderAddress string            `json:"customRemainderAddress,omitempty"`
	TaggedDataPayload      *TaggedData       `json:"taggedDataPayload,omitempty"`
	MandatoryInputs        []ledger.OutputID `json:"mandatoryInputs,omitempty"`
	CustomInputs           []ledger.OutputID `json:"customInputs,omitempty"`
	AllowBurning           bool              `json:"allowBurning,omitempty"`
	Note                   string            `json:"note,omitempty"`
}

var remainderStrategies = map[string]txauthor.RemainderStrategy{
	"":              txauthor.ReuseAddress,
	"reuseAddress":  txauthor.ReuseAddress,
	"changeAddress": txauthor.ChangeAddress,
	"customAddress": txauthor.CustomAddress,
}

func (h *Handler) transactionOptions(o *TransactionOptions) (
	*wallet.TransactionOptions, error) {

	if o == nil {
		return nil, nil
	}

	strategy, ok := remainderStrategies[o.RemainderStrategy]
	if !ok {
		return nil, InvalidParameterError{fmt.Errorf("unknown "+
			"remainder strategy %q", o.RemainderStrategy)}
	}
	opts := &wallet.TransactionOptions{
		RemainderStrategy: strategy,
		MandatoryInputs:   o.MandatoryInputs,
		CustomInputs:      o.CustomInputs,
		AllowBurning:      o.AllowBurning,
		Note:              o.Note,
	}
	if o.CustomRemainderAddress != "" {
		addr, err := h.parseAddress(o.CustomRemainderAddress)
		if err != nil {
			return nil, err
		}
		opts.CustomRemainderAddress = addr
	}
	if o.TaggedDataPayload != nil {
		opts.TaggedDataPayload = &ledger.TaggedData{
			Tag:  o.TaggedDataPayload.Tag,
			Data: o.TaggedDataPayload.Data,
		}
	}

	return opts, nil
}

// SendParams describe one basic output.  Expiration is in seconds.
type SendParams struct {
	Address       string           `json:"address"`
	Amount        ledger.BaseToken `json:"amount"`
	ReturnAddress string           `json:"returnAddress,omitempty"`
	Expiration    uint32           `json:"expiration,omitempty"`
}

func (h *Handler) sendParams(params []SendParams) ([]wallet.SendParams,
	error) {

	out := make([]wallet.SendParams, 0, len(params))
	for _, p := range params {
		addr, err := h.parseAddress(p.Address)
		if err != nil {
			return nil, err
		}
		sp := wallet.SendParams{
			Address:    addr,
			Amount:     p.Amount,
			Expiration: time.Duration(p.Expiration) * time.Second,
		}
		if p.ReturnAddress != "" {
			sp.ReturnAddress, err = h.parseAddress(p.ReturnAddress)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, sp)
	}
	return out, nil
}

// ParticipationOverviewEntry is the participation of the voting output in
// one event.
type ParticipationOverviewEntry struct {
	Answers  HexBytes         `json:"answers"`
	Amount   ledger.BaseToken `json:"amount"`
	OutputID ledger.OutputID  `json:"outputId"`
}
