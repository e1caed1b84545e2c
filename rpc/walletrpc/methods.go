// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/participation"
	"github.com/btcsuite/utxowallet/wallet"
)

// Default recovery limits used when a recoverAccounts call leaves them
// unset.
const (
	defaultAccountGapLimit = 2
	defaultAddressGapLimit = 20
)

func createAccount(ctx context.Context, h *Handler,
	data json.RawMessage) (*Response, error) {

	var args struct {
		Alias string `json:"alias"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}

	acct, err := h.mgr.CreateAccount(ctx, args.Alias)
	if err != nil {
		return nil, err
	}
	return &Response{
		Type:    ResponseAccount,
		Payload: h.accountResponse(acct),
	}, nil
}

func getAccount(_ context.Context, h *Handler,
	data json.RawMessage) (*Response, error) {

	var args struct {
		AccountID *AccountID `json:"accountId"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	if args.AccountID == nil {
		return nil, InvalidParameterError{errors.New("missing " +
			"accountId")}
	}

	acct, err := h.account(*args.AccountID)
	if err != nil {
		return nil, err
	}
	return &Response{
		Type:    ResponseAccount,
		Payload: h.accountResponse(acct),
	}, nil
}

func (h *Handler) accountsResponse(accts []*wallet.Account) *Response {
	resp := make([]AccountResponse, 0, len(accts))
	for _, acct := range accts {
		resp = append(resp, h.accountResponse(acct))
	}
	return &Response{Type: ResponseAccounts, Payload: resp}
}

func getAccounts(_ context.Context, h *Handler,
	_ json.RawMessage) (*Response, error) {

	return h.accountsResponse(h.mgr.Accounts()), nil
}

func recoverAccounts(ctx context.Context, h *Handler,
	data json.RawMessage) (*Response, error) {

	var args struct {
		AccountStartIndex uint32       `json:"accountStartIndex"`
		AccountGapLimit   uint32       `json:"accountGapLimit"`
		AddressGapLimit   uint32       `json:"addressGapLimit"`
		SyncOptions       *SyncOptions `json:"syncOptions"`
	}
	args.AccountGapLimit = defaultAccountGapLimit
	args.AddressGapLimit = defaultAddressGapLimit
	if err := decode(data, &args); err != nil {
		return nil, err
	}

	accts, err := h.mgr.RecoverAccounts(ctx, args.AccountStartIndex,
		args.AccountGapLimit, args.AddressGapLimit,
		args.SyncOptions.wallet())
	if err != nil {
		return nil, err
	}
	return h.accountsResponse(accts), nil
}

func removeLatestAccount(_ context.Context, h *Handler,
	_ json.RawMessage) (*Response, error) {

	if err := h.mgr.RemoveLatestAccount(); err != nil {
		return nil, err
	}
	return okResponse(), nil
}

func backup(_ context.Context, h *Handler,
	data json.RawMessage) (*Response, error) {

	var args struct {
		Destination string `json:"destination"`
		Password    string `json:"password"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	if args.Destination == "" || args.Password == "" {
		return nil, InvalidParameterError{errors.New("backup needs a " +
			"destination and a password")}
	}

	err := h.mgr.BackupToFile(args.Destination, []byte(args.Password))
	if err != nil {
		return nil, err
	}
	return okResponse(), nil
}

func restoreBackup(_ context.Context, h *Handler,
	data json.RawMessage) (*Response, error) {

	var args struct {
		Source                   string `json:"source"`
		Password                 string `json:"password"`
		IgnoreIfCoinTypeMismatch bool   `json:"ignoreIfCoinTypeMismatch"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}

	desc, err := h.mgr.RestoreBackupFromFile(args.Source,
		[]byte(args.Password), args.IgnoreIfCoinTypeMismatch)
	if err != nil {
		return nil, err
	}
	desc.WhenSome(func(d keychain.Descriptor) {
		log.Infof("Backup carries a %s secret manager", d.Kind)
	})

	return okResponse(), nil
}

func setClientOptions(_ context.Context, h *Handler,
	data json.RawMessage) (*Response, error) {

	var args struct {
		ClientOptions *wallet.ClientOptions `json:"clientOptions"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	if args.ClientOptions == nil {
		return nil, InvalidParameterError{errors.New("missing " +
			"clientOptions")}
	}

	if err := h.mgr.SetClientOptions(*args.ClientOptions); err != nil {
		return nil, err
	}
	return okResponse(), nil
}

func startBackgroundSync(_ context.Context, h *Handler,
	data json.RawMessage) (*Response, error) {

	var args struct {
		Options                *SyncOptions `json:"options"`
		IntervalInMilliseconds uint64       `json:"intervalInMilliseconds"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}

	interval := time.Duration(args.IntervalInMilliseconds) *
		time.Millisecond
	err := h.mgr.StartBackgroundSync(args.Options.wallet(), interval)
	if err != nil {
		return nil, err
	}
	return okResponse(), nil
}

func stopBackgroundSync(_ context.Context, h *Handler,
	_ json.RawMessage) (*Response, error) {

	h.mgr.StopBackgroundSync(true)
	return okResponse(), nil
}

func backgroundSyncState(_ context.Context, h *Handler,
	_ json.RawMessage) (*Response, error) {

	return &Response{
		Type:    ResponseBackgroundSyncState,
		Payload: h.mgr.BackgroundSyncState().String(),
	}, nil
}

func callAccountMethod(ctx context.Context, h *Handler,
	data json.RawMessage) (*Response, error) {

	var args struct {
		AccountID *AccountID `json:"accountId"`
		Method    Method     `json:"method"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	if args.AccountID == nil {
		return nil, InvalidParameterError{errors.New("missing " +
			"accountId")}
	}

	handler, ok := accountHandlers[args.Method.Name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownMethod,
			args.Method.Name)
	}
	acct, err := h.account(*args.AccountID)
	if err != nil {
		return nil, err
	}

	return handler(ctx, h, acct, args.Method.Data)
}

func syncAccount(ctx context.Context, _ *Handler, acct *wallet.Account,
	data json.RawMessage) (*Response, error) {

	var args struct {
		Options *SyncOptions `json:"options"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}

	balance, err := acct.Sync(ctx, args.Options.wallet())
	if err != nil {
		return nil, err
	}
	return &Response{Type: ResponseBalance, Payload: balance}, nil
}

func getBalance(ctx context.Context, _ *Handler, acct *wallet.Account,
	_ json.RawMessage) (*Response, error) {

	balance, err := acct.Balance(ctx)
	if err != nil {
		return nil, err
	}
	return &Response{Type: ResponseBalance, Payload: balance}, nil
}

func addresses(_ context.Context, h *Handler, acct *wallet.Account,
	_ json.RawMessage) (*Response, error) {

	return &Response{
		Type:    ResponseAddresses,
		Payload: h.addressResponses(acct.Addresses()),
	}, nil
}

func generateAddresses(ctx context.Context, h *Handler,
	acct *wallet.Account, data json.RawMessage) (*Response, error) {

	var args struct {
		Amount  uint32 `json:"amount"`
		Options struct {
			Internal bool `json:"internal"`
		} `json:"options"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}

	addrs, err := acct.GenerateAddresses(ctx, args.Amount,
		keychain.GenerateAddressOptions{
			Internal: args.Options.Internal,
		})
	if err != nil {
		return nil, err
	}
	return &Response{
		Type:    ResponseAddresses,
		Payload: h.addressResponses(addrs),
	}, nil
}

func outputs(_ context.Context, _ *Handler, acct *wallet.Account,
	_ json.RawMessage) (*Response, error) {

	return &Response{
		Type:    ResponseOutputs,
		Payload: acct.Outputs(nil),
	}, nil
}

func unspentOutputs(_ context.Context, _ *Handler, acct *wallet.Account,
	_ json.RawMessage) (*Response, error) {

	return &Response{
		Type:    ResponseOutputs,
		Payload: acct.UnspentOutputs(nil),
	}, nil
}

func transactions(_ context.Context, _ *Handler, acct *wallet.Account,
	_ json.RawMessage) (*Response, error) {

	return &Response{
		Type:    ResponseTransactions,
		Payload: acct.Transactions(),
	}, nil
}

func pendingTransactions(_ context.Context, _ *Handler,
	acct *wallet.Account, _ json.RawMessage) (*Response, error) {

	return &Response{
		Type:    ResponseTransactions,
		Payload: acct.PendingTransactions(),
	}, nil
}

func sentTransaction(tx *wallet.Transaction, err error) (*Response, error) {
	if err != nil {
		return nil, err
	}
	return &Response{Type: ResponseSentTransaction, Payload: tx}, nil
}

func send(ctx context.Context, h *Handler, acct *wallet.Account,
	data json.RawMessage) (*Response, error) {

	var args struct {
		Params  []SendParams        `json:"params"`
		Options *TransactionOptions `json:"options"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}

	params, err := h.sendParams(args.Params)
	if err != nil {
		return nil, err
	}
	opts, err := h.transactionOptions(args.Options)
	if err != nil {
		return nil, err
	}

	return sentTransaction(acct.Send(ctx, params, opts))
}

func claimableOutputs(_ context.Context, _ *Handler, acct *wallet.Account,
	_ json.RawMessage) (*Response, error) {

	ids := acct.ClaimableOutputs()
	if ids == nil {
		ids = []ledger.OutputID{}
	}
	return &Response{Type: ResponseOutputIDs, Payload: ids}, nil
}

func claimOutputs(ctx context.Context, h *Handler, acct *wallet.Account,
	data json.RawMessage) (*Response, error) {

	var args struct {
		OutputIDs []ledger.OutputID   `json:"outputIdsToClaim"`
		Options   *TransactionOptions `json:"options"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	opts, err := h.transactionOptions(args.Options)
	if err != nil {
		return nil, err
	}

	return sentTransaction(acct.ClaimOutputs(ctx, args.OutputIDs, opts))
}

func consolidateOutputs(ctx context.Context, _ *Handler,
	acct *wallet.Account, data json.RawMessage) (*Response, error) {

	var args struct {
		Force     bool `json:"force"`
		Threshold int  `json:"outputConsolidationThreshold"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}

	return sentTransaction(acct.ConsolidateOutputs(ctx, args.Force,
		args.Threshold))
}

func vote(ctx context.Context, h *Handler, acct *wallet.Account,
	data json.RawMessage) (*Response, error) {

	var args struct {
		EventID *participation.EventID `json:"eventId"`
		Answers HexBytes               `json:"answers"`
		Options *TransactionOptions    `json:"options"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	if args.EventID == nil {
		return nil, InvalidParameterError{errors.New("missing eventId")}
	}
	opts, err := h.transactionOptions(args.Options)
	if err != nil {
		return nil, err
	}

	return sentTransaction(acct.Vote(ctx, *args.EventID, args.Answers,
		opts))
}

func stopParticipating(ctx context.Context, h *Handler,
	acct *wallet.Account, data json.RawMessage) (*Response, error) {

	var args struct {
		EventID *participation.EventID `json:"eventId"`
		Options *TransactionOptions    `json:"options"`
	}
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	if args.EventID == nil {
		return nil, InvalidParameterError{errors.New("missing eventId")}
	}
	opts, err := h.transactionOptions(args.Options)
	if err != nil {
		return nil, err
	}

	return sentTransaction(acct.StopParticipating(ctx, *args.EventID,
		opts))
}

// votingPowerArgs are the arguments of increaseVotingPower and
// decreaseVotingPower.
type votingPowerArgs struct {
	Amount  ledger.BaseToken    `json:"amount"`
	Options *TransactionOptions `json:"options"`
}

func increaseVotingPower(ctx context.Context, h *Handler,
	acct *wallet.Account, data json.RawMessage) (*Response, error) {

	var args votingPowerArgs
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	opts, err := h.transactionOptions(args.Options)
	if err != nil {
		return nil, err
	}

	return sentTransaction(acct.IncreaseVotingPower(ctx, args.Amount,
		opts))
}

func decreaseVotingPower(ctx context.Context, h *Handler,
	acct *wallet.Account, data json.RawMessage) (*Response, error) {

	var args votingPowerArgs
	if err := decode(data, &args); err != nil {
		return nil, err
	}
	opts, err := h.transactionOptions(args.Options)
	if err != nil {
		return nil, err
	}

	return sentTransaction(acct.DecreaseVotingPower(ctx, args.Amount,
		opts))
}

func participationOverview(_ context.Context, _ *Handler,
	acct *wallet.Account, _ json.RawMessage) (*Response, error) {

	overview, err := acct.ParticipationOverview()
	if err != nil {
		return nil, err
	}

	payload := make(map[participation.EventID]ParticipationOverviewEntry,
		len(overview))
	for id, entry := range overview {
		payload[id] = ParticipationOverviewEntry{
			Answers:  entry.Answers,
			Amount:   entry.Amount,
			OutputID: entry.OutputID,
		}
	}
	return &Response{
		Type:    ResponseParticipationOverview,
		Payload: payload,
	}, nil
}
