package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency is a validated ISO 4217 currency code
type Currency string

// DefaultCurrency is used when a plan or document does not specify one
const DefaultCurrency Currency = "INR"

// ParseCurrency validates and normalizes an ISO 4217 code
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return Currency(unit.String()), nil
}

// MinorUnitScale returns the number of decimal digits of the currency's minor unit
// (2 for INR/USD, 0 for JPY).
func (c Currency) MinorUnitScale() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// Money is a value object representing monetary amounts.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, fmt.Errorf("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromMinor builds Money from an integer amount in minor units (paise, cents)
func NewMoneyFromMinor(minor int64, currency Currency) Money {
	return Money{
		amount:   decimal.New(minor, -currency.MinorUnitScale()),
		currency: currency,
	}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// MinorUnits returns the amount in minor units, rounded half away from zero
func (m Money) MinorUnits() int64 {
	scale := m.currency.MinorUnitScale()
	return m.amount.Shift(scale).Round(0).IntPart()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Add returns a new Money with the sum of both amounts
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Round rounds to the currency's minor unit
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(m.currency.MinorUnitScale()), currency: m.currency}
}

// String formats the amount with its currency code, e.g. "499.00 INR"
func (m Money) String() string {
	return m.amount.StringFixed(m.currency.MinorUnitScale()) + " " + string(m.currency)
}
