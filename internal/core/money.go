// Package core provides money parsing and handling utilities.
//
// Amounts are kept as exact decimals with two fractional digits so that
// ledger sums never accumulate floating point drift.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency-agnostic amount with two decimal places.
type Money struct {
	d decimal.Decimal
}

var ErrInvalidAmount = errors.New("invalid amount")

// ErrAmountPrecision rejects amounts finer than a cent.
var ErrAmountPrecision = fmt.Errorf("%w: more than two decimal places", ErrInvalidAmount)

// Zero is the zero amount.
var Zero = Money{d: decimal.Zero}

// NewMoney rounds d half-up to two decimals.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(2)}
}

// MoneyFromCents builds an amount from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// ParseMoney converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Input
// finer than a cent fails with ErrAmountPrecision instead of being rounded.
// Unlike ParseAmount it does not reject zero or negative values, which are
// the validator's concern.
//
//	ParseMoney("12.340") -> 12.34
//	ParseMoney("12,345") -> ErrAmountPrecision
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if !d.Equal(d.Round(2)) {
		return Money{}, ErrAmountPrecision
	}
	return NewMoney(d), nil
}

// ParseAmount parses a strictly positive amount.
func ParseAmount(s string) (Money, error) {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if !m.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

func (m Money) IsZero() bool { return m.d.IsZero() }

// Cents returns the amount in cents.
func (m Money) Cents() int64 {
	return m.d.Shift(2).IntPart()
}

// DivRound divides by n and rounds to two decimals. Division by zero yields zero.
func (m Money) DivRound(n int64) Money {
	if n == 0 {
		return Zero
	}
	return Money{d: m.d.DivRound(decimal.NewFromInt(n), 2)}
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// MarshalJSON emits a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return ErrInvalidAmount
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidAmount
		}
	} else {
		s = string(b)
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
