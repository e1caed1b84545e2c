// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"sort"
)

// UnlockConditionType is the type byte of an unlock condition.
type UnlockConditionType byte

const (
	// UnlockConditionAddress requires a signature of the address owner.
	UnlockConditionAddress UnlockConditionType = 0

	// UnlockConditionStorageDepositReturn requires the unlocker to return
	// a part of the deposit to the return address.
	UnlockConditionStorageDepositReturn UnlockConditionType = 1

	// UnlockConditionTimelock forbids spending before a point in time.
	UnlockConditionTimelock UnlockConditionType = 2

	// UnlockConditionExpiration hands the output to the return address
	// once a point in time has passed.
	UnlockConditionExpiration UnlockConditionType = 3

	// UnlockConditionStateController names the state controller of an
	// alias.
	UnlockConditionStateController UnlockConditionType = 4

	// UnlockConditionGovernor names the governor of an alias.
	UnlockConditionGovernor UnlockConditionType = 5

	// UnlockConditionImmutableAlias binds a foundry to its alias.
	UnlockConditionImmutableAlias UnlockConditionType = 6
)

// UnlockCondition is a predicate that must hold for an output to be spent.
type UnlockCondition interface {
	Type() UnlockConditionType
	serialize(w *writer)
}

// AddressUnlockCondition locks an output to an address.
type AddressUnlockCondition struct {
	Address Address
}

// Type returns UnlockConditionAddress.
func (c *AddressUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionAddress
}

func (c *AddressUnlockCondition) serialize(w *writer) {
	w.u8(byte(c.Type()))
	writeAddress(w, c.Address)
}

// StorageDepositReturnUnlockCondition requires the transaction spending the
// output to create a basic output returning Amount to ReturnAddress.
type StorageDepositReturnUnlockCondition struct {
	ReturnAddress Address
	Amount        BaseToken
}

// Type returns UnlockConditionStorageDepositReturn.
func (c *StorageDepositReturnUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionStorageDepositReturn
}

func (c *StorageDepositReturnUnlockCondition) serialize(w *writer) {
	w.u8(byte(c.Type()))
	writeAddress(w, c.ReturnAddress)
	w.u64(c.Amount)
}

// TimelockUnlockCondition forbids spending the output before UnixTime.
type TimelockUnlockCondition struct {
	UnixTime uint32
}

// Type returns UnlockConditionTimelock.
func (c *TimelockUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionTimelock
}

func (c *TimelockUnlockCondition) serialize(w *writer) {
	w.u8(byte(c.Type()))
	w.u32(c.UnixTime)
}

// ExpirationUnlockCondition makes ReturnAddress the only address able to
// unlock the output once UnixTime has been reached.
type ExpirationUnlockCondition struct {
	ReturnAddress Address
	UnixTime      uint32
}

// Type returns UnlockConditionExpiration.
func (c *ExpirationUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionExpiration
}

func (c *ExpirationUnlockCondition) serialize(w *writer) {
	w.u8(byte(c.Type()))
	writeAddress(w, c.ReturnAddress)
	w.u32(c.UnixTime)
}

// StateControllerAddressUnlockCondition names the address allowed to
// perform state transitions of an alias.
type StateControllerAddressUnlockCondition struct {
	Address Address
}

// Type returns UnlockConditionStateController.
func (c *StateControllerAddressUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionStateController
}

func (c *StateControllerAddressUnlockCondition) serialize(w *writer) {
	w.u8(byte(c.Type()))
	writeAddress(w, c.Address)
}

// GovernorAddressUnlockCondition names the address allowed to perform
// governance transitions of an alias.
type GovernorAddressUnlockCondition struct {
	Address Address
}

// Type returns UnlockConditionGovernor.
func (c *GovernorAddressUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionGovernor
}

func (c *GovernorAddressUnlockCondition) serialize(w *writer) {
	w.u8(byte(c.Type()))
	writeAddress(w, c.Address)
}

// ImmutableAliasAddressUnlockCondition binds a foundry to the alias that
// controls it.
type ImmutableAliasAddressUnlockCondition struct {
	Address AliasAddress
}

// Type returns UnlockConditionImmutableAlias.
func (c *ImmutableAliasAddressUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionImmutableAlias
}

func (c *ImmutableAliasAddressUnlockCondition) serialize(w *writer) {
	w.u8(byte(c.Type()))
	writeAddress(w, c.Address)
}

// UnlockConditions is the set of unlock conditions of an output.
type UnlockConditions []UnlockCondition

func (u UnlockConditions) find(t UnlockConditionType) UnlockCondition {
	for _, c := range u {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// Address returns the address unlock condition or nil.
func (u UnlockConditions) Address() *AddressUnlockCondition {
	c, _ := u.find(UnlockConditionAddress).(*AddressUnlockCondition)
	return c
}

// StorageDepositReturn returns the storage deposit return unlock condition
// or nil.
func (u UnlockConditions) StorageDepositReturn() *StorageDepositReturnUnlockCondition {
	c, _ := u.find(UnlockConditionStorageDepositReturn).(*StorageDepositReturnUnlockCondition)
	return c
}

// Timelock returns the timelock unlock condition or nil.
func (u UnlockConditions) Timelock() *TimelockUnlockCondition {
	c, _ := u.find(UnlockConditionTimelock).(*TimelockUnlockCondition)
	return c
}

// Expiration returns the expiration unlock condition or nil.
func (u UnlockConditions) Expiration() *ExpirationUnlockCondition {
	c, _ := u.find(UnlockConditionExpiration).(*ExpirationUnlockCondition)
	return c
}

// StateController returns the state controller unlock condition or nil.
func (u UnlockConditions) StateController() *StateControllerAddressUnlockCondition {
	c, _ := u.find(UnlockConditionStateController).(*StateControllerAddressUnlockCondition)
	return c
}

// Governor returns the governor unlock condition or nil.
func (u UnlockConditions) Governor() *GovernorAddressUnlockCondition {
	c, _ := u.find(UnlockConditionGovernor).(*GovernorAddressUnlockCondition)
	return c
}

// ImmutableAlias returns the immutable alias unlock condition or nil.
func (u UnlockConditions) ImmutableAlias() *ImmutableAliasAddressUnlockCondition {
	c, _ := u.find(UnlockConditionImmutableAlias).(*ImmutableAliasAddressUnlockCondition)
	return c
}

// HasTimeConditions returns true if spendability of the output depends on
// the current time.
func (u UnlockConditions) HasTimeConditions() bool {
	return u.Timelock() != nil || u.Expiration() != nil
}

// sorted returns a copy of the conditions in ascending type order.
func (u UnlockConditions) sorted() UnlockConditions {
	s := make(UnlockConditions, len(u))
	copy(s, u)
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Type() < s[j].Type()
	})

	return s
}

func (u UnlockConditions) serialize(w *writer) {
	s := u.sorted()
	w.u8(uint8(len(s)))
	for _, c := range s {
		c.serialize(w)
	}
}

func readUnlockConditions(r *reader) UnlockConditions {
	n := int(r.u8())
	conds := make(UnlockConditions, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		t := UnlockConditionType(r.u8())
		switch t {
		case UnlockConditionAddress:
			conds = append(conds, &AddressUnlockCondition{
				Address: readAddress(r),
			})

		case UnlockConditionStorageDepositReturn:
			addr := readAddress(r)
			conds = append(conds, &StorageDepositReturnUnlockCondition{
				ReturnAddress: addr,
				Amount:        r.u64(),
			})

		case UnlockConditionTimelock:
			conds = append(conds, &TimelockUnlockCondition{
				UnixTime: r.u32(),
			})

		case UnlockConditionExpiration:
			addr := readAddress(r)
			conds = append(conds, &ExpirationUnlockCondition{
				ReturnAddress: addr,
				UnixTime:      r.u32(),
			})

		case UnlockConditionStateController:
			conds = append(conds, &StateControllerAddressUnlockCondition{
				Address: readAddress(r),
			})

		case UnlockConditionGovernor:
			conds = append(conds, &GovernorAddressUnlockCondition{
				Address: readAddress(r),
			})

		case UnlockConditionImmutableAlias:
			addr, ok := readAddress(r).(AliasAddress)
			if !ok {
				r.fail("immutable alias condition without " +
					"alias address")
			}
			conds = append(conds, &ImmutableAliasAddressUnlockCondition{
				Address: addr,
			})

		default:
			r.fail("unknown unlock condition type %d", t)
		}
	}

	return conds
}
