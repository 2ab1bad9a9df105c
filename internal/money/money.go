// Package money holds the exact decimal amount used for every balance and
// movement in the ledger.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits an amount may carry.
const Scale = 2

// maxExponent and maxDigits bound what New and UnmarshalJSON accept so that
// arithmetic on a parsed value never has to rescale an enormous coefficient.
const (
	maxExponent = 32
	maxDigits   = 40
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrTooPrecise    = errors.New("amount has more than two decimal places")
)

// MaxAmount is the largest value a NUMERIC(18,2) column holds.
var MaxAmount = Money{d: decimal.RequireFromString("9999999999999999.99")}

// Money is an exact decimal amount. The zero value is 0.
type Money struct {
	d decimal.Decimal
}

func Zero() Money { return Money{} }

func FromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// New parses a decimal string such as "150.00".
func New(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money.New: %q: %w", s, ErrInvalidAmount)
	}
	if err := checkMagnitude(d); err != nil {
		return Money{}, fmt.Errorf("money.New: %w", err)
	}
	return Money{d: d}, nil
}

// MustNew is New for constants and tests.
func MustNew(s string) Money {
	m, err := New(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money        { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money        { return Money{d: m.d.Sub(o.d)} }
func (m Money) LessThan(o Money) bool    { return m.d.LessThan(o.d) }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) Cmp(o Money) int          { return m.d.Cmp(o.d) }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) Decimal() decimal.Decimal { return m.d }

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// ValidateAmount accepts strictly positive amounts no larger than
// MaxAmount with at most two fractional digits.
func ValidateAmount(m Money) error {
	if !m.d.IsPositive() {
		return ErrInvalidAmount
	}
	if err := checkMagnitude(m.d); err != nil {
		return err
	}
	if m.d.GreaterThan(MaxAmount.d) {
		return ErrInvalidAmount
	}
	if !m.d.Equal(m.d.Truncate(Scale)) {
		return ErrTooPrecise
	}
	return nil
}

func (m *Money) Scan(src any) error {
	return m.d.Scan(src)
}

func (m Money) Value() (driver.Value, error) {
	return m.d.StringFixed(Scale), nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("money: %w", ErrInvalidAmount)
	}
	if err := checkMagnitude(d); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	m.d = d
	return nil
}

func checkMagnitude(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp > maxExponent || exp < -maxExponent || d.NumDigits() > maxDigits {
		return ErrInvalidAmount
	}
	return nil
}
