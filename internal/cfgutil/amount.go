// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/utxowallet/ledger"
	"github.com/shopspring/decimal"
)

// BaseTokenDecimals is the number of decimal places between a whole coin and
// the smallest base token unit.
const BaseTokenDecimals = 6

// AmountFlag embeds a base token amount and implements the flags.Marshaler
// and Unmarshaler interfaces so it can be used as a config struct field.
// Values are written in whole coins, e.g. "1.5" or "1.5 SMR".
type AmountFlag struct {
	ledger.BaseToken
}

// NewAmountFlag creates an AmountFlag with a default amount.
func NewAmountFlag(defaultValue ledger.BaseToken) *AmountFlag {
	return &AmountFlag{defaultValue}
}

// MarshalFlag satisfies the flags.Marshaler interface.
func (a *AmountFlag) MarshalFlag() (string, error) {
	return FormatAmount(a.BaseToken), nil
}

// UnmarshalFlag satisfies the flags.Unmarshaler interface.
func (a *AmountFlag) UnmarshalFlag(value string) error {
	amount, err := ParseAmount(value)
	if err != nil {
		return err
	}
	a.BaseToken = amount
	return nil
}

// ParseAmount converts a decimal coin amount into base token units.  Amounts
// that are negative, overflow or carry more precision than the smallest
// unit are rejected.
func ParseAmount(value string) (ledger.BaseToken, error) {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, ' '); i >= 0 {
		value = value[:i]
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", value)
	}

	units := d.Shift(BaseTokenDecimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal "+
			"places", value, BaseTokenDecimals)
	}
	if !units.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s is too large", value)
	}

	return ledger.BaseToken(units.BigInt().Uint64()), nil
}

// FormatAmount renders base token units as a decimal coin amount.
func FormatAmount(amount ledger.BaseToken) string {
	units := new(big.Int).SetUint64(uint64(amount))
	return decimal.NewFromBigInt(units, -BaseTokenDecimals).String()
}
