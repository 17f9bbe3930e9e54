// Package money provides an integer minor-unit amount type.
//
// Amounts are counted in cents. Arithmetic is exact integer arithmetic; the
// only place a fractional value can arise is proportional division, which is
// handled by SplitEven and Allocate with explicit remainder rules.
// Decimal strings are accepted and produced only at the edges (CLI, logs).
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents).
type Money int64

var (
	// ErrInvalidAmount is returned when a decimal string cannot be represented
	// exactly in minor units.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrOverflow is returned when an operation would exceed the int64 range.
	ErrOverflow = errors.New("amount overflow")
)

var hundred = decimal.NewFromInt(100)

// Neg returns -m.
func (m Money) Neg() Money { return -m }

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Sign returns -1, 0 or +1.
func (m Money) Sign() int {
	switch {
	case m < 0:
		return -1
	case m > 0:
		return 1
	default:
		return 0
	}
}

// CheckedAdd adds o to m and reports ErrOverflow instead of wrapping.
func (m Money) CheckedAdd(o Money) (Money, error) {
	s := m + o
	if (o > 0 && s < m) || (o < 0 && s > m) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, m, o)
	}
	return s, nil
}

// Sum adds amounts, failing on overflow.
func Sum(amounts ...Money) (Money, error) {
	var total Money
	for _, a := range amounts {
		var err error
		if total, err = total.CheckedAdd(a); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Decimal returns m in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats m in major units with two decimals, e.g. "10.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// FromDecimal converts a major-unit decimal into minor units. Values with
// sub-cent precision are rejected rather than rounded.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than two decimal places", ErrInvalidAmount, d.String())
	}
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, d.String())
	}
	return Money(cents.IntPart()), nil
}

// Parse reads a major-unit decimal string such as "12.34".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}
