// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/utxowallet/chain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/participation"
)

// RegisterParticipationEvents fetches the events from the node and keeps
// them with the account.  Registered events are used to purge ended
// participations without asking the node again.
func (a *Account) RegisterParticipationEvents(ctx context.Context,
	ids []participation.EventID) (map[participation.EventID]*participation.Event,
	error) {

	fetched := make(map[participation.EventID]*participation.Event, len(ids))
	for _, id := range ids {
		ev, err := a.mgr.cfg.Client.ParticipationEvent(ctx, id)
		if err != nil {
			return nil, clientError(fmt.Sprintf("unable to fetch "+
				"event %v", id), err)
		}
		fetched[id] = ev
	}

	a.eventsMtx.Lock()
	defer a.eventsMtx.Unlock()

	for id, ev := range fetched {
		a.events[id] = ev
	}
	if err := a.mgr.storage.saveEvents(a.index, a.events); err != nil {
		return nil, err
	}

	log.Infof("Account %d: registered %d participation %s", a.index,
		len(fetched), pickNoun(len(fetched), "event", "events"))

	return fetched, nil
}

// DeregisterParticipationEvent forgets a registered event.
func (a *Account) DeregisterParticipationEvent(id participation.EventID) error {
	a.eventsMtx.Lock()
	defer a.eventsMtx.Unlock()

	if _, ok := a.events[id]; !ok {
		return walletError(ErrVoting, fmt.Sprintf("event %v is not "+
			"registered", id), nil)
	}
	delete(a.events, id)

	return a.mgr.storage.saveEvents(a.index, a.events)
}

// ParticipationEvents returns the registered events.
func (a *Account) ParticipationEvents() map[participation.EventID]*participation.Event {
	a.eventsMtx.Lock()
	defer a.eventsMtx.Unlock()

	events := make(map[participation.EventID]*participation.Event,
		len(a.events))
	for id, ev := range a.events {
		cp := *ev
		events[id] = &cp
	}
	return events
}

// event returns a registered event, asking the node for unknown ones.
func (a *Account) event(ctx context.Context,
	id participation.EventID) (*participation.Event, error) {

	a.eventsMtx.Lock()
	ev, ok := a.events[id]
	a.eventsMtx.Unlock()
	if ok {
		return ev, nil
	}

	ev, err := a.mgr.cfg.Client.ParticipationEvent(ctx, id)
	if err != nil {
		return nil, clientError(fmt.Sprintf("unable to fetch event %v",
			id), err)
	}
	return ev, nil
}

// VotingOutput returns the voting output of the account, the one with the
// largest amount if there are several.  It returns nil if there is none.
func (a *Account) VotingOutput() *OutputData {
	var voting *OutputData
	a.read(func(d *accountDetails) {
		voting = d.votingOutput()
	})
	return voting
}

func (d *accountDetails) votingOutput() *OutputData {
	var voting *OutputData
	for _, out := range filterOutputs(d.unspentOutputs, nil) {
		if !IsVotingOutput(out.Output) {
			continue
		}
		if voting == nil || out.Output.Deposit() > voting.Output.Deposit() {
			voting = out
		}
	}
	return voting
}

// participations decodes the participations stored in a voting output.  An
// output without metadata participates in nothing.
func participations(out ledger.Output) (*participation.Participations, error) {
	meta := out.FeatureSet().Metadata()
	if meta == nil {
		return &participation.Participations{}, nil
	}

	parts, err := participation.Deserialize(meta.Data)
	switch {
	case errors.Is(err, participation.ErrEmpty):
		return &participation.Participations{}, nil
	case err != nil:
		return nil, walletError(ErrVoting, "malformed voting output "+
			"metadata", err)
	}
	return parts, nil
}

// votingTransition returns the next state of the voting output holding
// amount and parts, with the options that spend the current one.
func votingTransition(current *OutputData, amount ledger.BaseToken,
	parts *participation.Participations,
	opts *TransactionOptions) (*ledger.BasicOutput, *TransactionOptions,
	error) {

	raw, err := parts.Serialize()
	if err != nil {
		return nil, nil, walletError(ErrVoting, "unable to encode "+
			"participations", err)
	}

	next := current.Output.Clone().(*ledger.BasicOutput)
	next.Amount = amount
	next.Features = next.Features.
		Upsert(&ledger.TagFeature{Tag: participation.Tag}).
		Upsert(&ledger.MetadataFeature{Data: raw})

	voteOpts := *opts.orDefault()
	voteOpts.MandatoryInputs = append(voteOpts.MandatoryInputs,
		current.OutputID)
	voteOpts.TaggedDataPayload = &ledger.TaggedData{
		Tag:  participation.Tag,
		Data: raw,
	}

	return next, &voteOpts, nil
}

// purgeEnded drops the participations of events that ended before
// milestoneIndex.  Events the node no longer knows are kept.
func (a *Account) purgeEnded(ctx context.Context,
	parts *participation.Participations, milestoneIndex uint32) {

	for _, part := range append([]participation.Participation(nil),
		parts.Participations...) {

		ev, err := a.event(ctx, part.EventID)
		if err != nil {
			log.Debugf("Account %d: keeping participation in %v: %v",
				a.index, part.EventID, err)
			continue
		}
		if ev.Ended(milestoneIndex) {
			log.Debugf("Account %d: purging ended event %v", a.index,
				part.EventID)
			parts.Remove(part.EventID)
		}
	}
}

// Vote records answers for an event in the voting output.  The output is
// spent as a mandatory input and recreated with the same amount, so no
// other output takes part in the transaction.
func (a *Account) Vote(ctx context.Context, eventID participation.EventID,
	answers []byte, opts *TransactionOptions) (*Transaction, error) {

	status, err := a.mgr.cfg.Client.ParticipationEventStatus(ctx, eventID)
	switch {
	case errors.Is(err, chain.ErrNotFound):
		return nil, walletError(ErrVoting, fmt.Sprintf("unknown event %v",
			eventID), err)
	case err != nil:
		return nil, clientError("unable to fetch event status", err)
	case status.Ended():
		return nil, walletError(ErrVoting, fmt.Sprintf("event %v has "+
			"ended", eventID), nil)
	}

	current := a.VotingOutput()
	if current == nil {
		return nil, walletError(ErrVoting, "no voting output", nil)
	}
	parts, err := participations(current.Output)
	if err != nil {
		return nil, err
	}

	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}
	a.purgeEnded(ctx, parts, info.LatestMilestoneIndex)
	parts.AddOrReplace(participation.Participation{
		EventID: eventID,
		Answers: append([]byte(nil), answers...),
	})

	next, voteOpts, err := votingTransition(current,
		current.Output.Deposit(), parts, opts)
	if err != nil {
		return nil, err
	}

	log.Infof("Account %d: voting in event %v with %d", a.index, eventID,
		current.Output.Deposit())

	return a.SendOutputs(ctx, []ledger.Output{next}, voteOpts)
}

// StopParticipating removes the participation in an event from the voting
// output.
func (a *Account) StopParticipating(ctx context.Context,
	eventID participation.EventID,
	opts *TransactionOptions) (*Transaction, error) {

	current := a.VotingOutput()
	if current == nil {
		return nil, walletError(ErrVoting, "no voting output", nil)
	}
	parts, err := participations(current.Output)
	if err != nil {
		return nil, err
	}
	if !parts.Remove(eventID) {
		return nil, walletError(ErrVoting, fmt.Sprintf("not "+
			"participating in event %v", eventID), nil)
	}

	info, err := a.mgr.nodeInfo(ctx)
	if err != nil {
		return nil, err
	}
	a.purgeEnded(ctx, parts, info.LatestMilestoneIndex)

	next, voteOpts, err := votingTransition(current,
		current.Output.Deposit(), parts, opts)
	if err != nil {
		return nil, err
	}

	return a.SendOutputs(ctx, []ledger.Output{next}, voteOpts)
}

// IncreaseVotingPower moves amount into the voting output, creating one on
// the first address if the account has none.
func (a *Account) IncreaseVotingPower(ctx context.Context,
	amount ledger.BaseToken, opts *TransactionOptions) (*Transaction, error) {

	if amount == 0 {
		return nil, walletError(ErrVoting, "zero voting power increase",
			nil)
	}

	current := a.VotingOutput()
	if current == nil {
		out := &ledger.BasicOutput{
			Amount: amount,
			UnlockConditions: ledger.UnlockConditions{
				&ledger.AddressUnlockCondition{
					Address: a.firstAddress(),
				},
			},
			Features: ledger.Features{
				&ledger.TagFeature{Tag: participation.Tag},
			},
		}
		return a.SendOutputs(ctx, []ledger.Output{out}, opts)
	}

	parts, err := participations(current.Output)
	if err != nil {
		return nil, err
	}
	next, voteOpts, err := votingTransition(current,
		current.Output.Deposit()+amount, parts, opts)
	if err != nil {
		return nil, err
	}

	return a.SendOutputs(ctx, []ledger.Output{next}, voteOpts)
}

// DecreaseVotingPower moves amount out of the voting output.  Removing all
// of it turns the voting output into a plain basic output.
func (a *Account) DecreaseVotingPower(ctx context.Context,
	amount ledger.BaseToken, opts *TransactionOptions) (*Transaction, error) {

	current := a.VotingOutput()
	if current == nil {
		return nil, walletError(ErrVoting, "no voting output", nil)
	}
	have := current.Output.Deposit()
	if amount == 0 || amount > have {
		return nil, walletError(ErrVoting, fmt.Sprintf("cannot "+
			"decrease voting power %d by %d", have, amount), nil)
	}

	if amount == have {
		plain := current.Output.Clone().(*ledger.BasicOutput)
		plain.Features = plain.Features.Without(ledger.FeatureTag,
			ledger.FeatureMetadata)

		decOpts := *opts.orDefault()
		decOpts.MandatoryInputs = append(decOpts.MandatoryInputs,
			current.OutputID)

		return a.SendOutputs(ctx, []ledger.Output{plain}, &decOpts)
	}

	parts, err := participations(current.Output)
	if err != nil {
		return nil, err
	}
	next, voteOpts, err := votingTransition(current, have-amount, parts,
		opts)
	if err != nil {
		return nil, err
	}

	return a.SendOutputs(ctx, []ledger.Output{next}, voteOpts)
}

// ParticipationOverviewEntry is the participation of the voting output in
// one event.
type ParticipationOverviewEntry struct {
	Answers  []byte
	Amount   ledger.BaseToken
	OutputID ledger.OutputID
}

// ParticipationOverview returns the events the voting output participates
// in.
func (a *Account) ParticipationOverview() (
	map[participation.EventID]ParticipationOverviewEntry, error) {

	overview := make(map[participation.EventID]ParticipationOverviewEntry)
	current := a.VotingOutput()
	if current == nil {
		return overview, nil
	}
	parts, err := participations(current.Output)
	if err != nil {
		return nil, err
	}
	for _, part := range parts.Participations {
		overview[part.EventID] = ParticipationOverviewEntry{
			Answers:  part.Answers,
			Amount:   current.Output.Deposit(),
			OutputID: current.OutputID,
		}
	}

	return overview, nil
}
