// Package money holds amounts as integer minor units (cents). Decimal major
// units only exist at the JSON and presentation edges, so every value is
// converted exactly once on its way in.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is an amount in minor currency units.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromCents wraps an amount already expressed in minor units.
func FromCents(cents int64) Money {
	return Money(cents)
}

// FromDecimal converts major units to minor units, rounding half away from zero.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(hundred).Round(0).IntPart())
}

// FromFloat converts a major-unit float (e.g. 19.99) to minor units.
func FromFloat(f float64) Money {
	return FromDecimal(decimal.NewFromFloat(f))
}

// Parse reads a decimal major-unit string such as "55.00".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Cents returns the minor-unit amount, the only form sent to the payment platform.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Float64 returns the amount in major units for presentation.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return m + o }

func (m Money) Mul(qty int64) Money { return m * Money(qty) }

func (m Money) IsPositive() bool { return m > 0 }

// Percent returns round(m * pct / 100) in minor units.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(pct).Div(hundred).Round(0).IntPart())
}

// AtLeast reports m >= threshold.
func (m Money) AtLeast(threshold Money) bool {
	return m >= threshold
}

// MarshalJSON renders major units with two fractional digits, e.g. 55.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string in major units.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
