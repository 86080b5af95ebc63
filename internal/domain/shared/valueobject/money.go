// Package valueobject holds immutable values shared by the domain packages.
package valueobject

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Currency is the ISO 4217 code every marketplace amount is expressed in
const Currency = "BRL"

// CurrencyPlaces is the number of fractional digits kept for stored amounts
const CurrencyPlaces int32 = 2

// Money is an exact decimal amount in Currency. Arithmetic never rounds;
// Rounded is applied once to a finished total.
type Money struct {
	amount decimal.Decimal
}

// NewMoneyBRL wraps an amount
func NewMoneyBRL(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// MaxAmount is the largest amount a decimal(12,2) column holds
var MaxAmount = Cents(999_999_999_999)

// Cents builds an amount from an integer number of cents
func Cents(n int64) Money {
	return Money{amount: decimal.New(n, -CurrencyPlaces)}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Plus returns m + o
func (m Money) Plus(o Money) Money {
	return Money{amount: m.amount.Add(o.amount)}
}

// Times returns the line amount for qty units priced at m
func (m Money) Times(qty int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(qty)))}
}

// Rounded rounds half away from zero to CurrencyPlaces (25.505 -> 25.51)
func (m Money) Rounded() Money {
	return Money{amount: m.amount.Round(CurrencyPlaces)}
}

// WithinLimit reports whether m, rounded to cents, is at most MaxAmount
func (m Money) WithinLimit() bool {
	return m.Rounded().amount.LessThanOrEqual(MaxAmount.amount)
}

func (m Money) Equal(o Money) bool {
	return m.amount.Equal(o.amount)
}

// StringFixed formats the amount with a fixed number of decimals
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

func (m Money) String() string {
	return m.amount.StringFixed(CurrencyPlaces) + " " + Currency
}

// MarshalJSON writes the amount as a fixed two-decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.StringFixed(CurrencyPlaces))
}

// Sum adds exact line amounts and rounds the result once
func Sum(lines ...Money) Money {
	var total Money
	for _, l := range lines {
		total = total.Plus(l)
	}
	return total.Rounded()
}
