package domain

import (
	"github.com/shopspring/decimal"
)

// Money is a fixed-point monetary value with an ISO 4217 currency code.
// Amount is always a decimal string with exactly two fractional digits
// ("1234.56") — never a binary float. All arithmetic goes through
// decimal parsing and is re-rendered to two places.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// DefaultCurrency is used when callers omit the currency code.
const DefaultCurrency = "BRL"

// NewMoney builds a Money from a decimal string, validating the format.
func NewMoney(amount, currency string) (Money, error) {
	if currency == "" {
		currency = DefaultCurrency
	}
	if !IsValidDecimal(amount) {
		return Money{}, &ErrInvalidMoneyFormat{Value: amount}
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, &ErrInvalidMoneyFormat{Value: amount}
	}
	return Money{Amount: d.StringFixed(2), Currency: currency}, nil
}

// MoneyFromDecimal renders a decimal into Money, rounding half-up to two places.
func MoneyFromDecimal(d decimal.Decimal, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: d.Round(2).StringFixed(2), Currency: currency}
}

// ZeroMoney returns 0.00 in the given currency.
func ZeroMoney(currency string) Money {
	return Money{Amount: "0.00", Currency: currency}
}

// Decimal parses the amount. The amount is validated on construction, so a
// parse failure here means the value was built outside the constructors.
func (m Money) Decimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return decimal.Zero, &ErrInvalidMoneyFormat{Value: m.Amount}
	}
	return d, nil
}

// Add returns a+b. Both values must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, &ErrCurrencyMismatch{Left: m.Currency, Right: other.Currency}
	}
	a, err := m.Decimal()
	if err != nil {
		return Money{}, err
	}
	b, err := other.Decimal()
	if err != nil {
		return Money{}, err
	}
	return MoneyFromDecimal(a.Add(b), m.Currency), nil
}

// Sub returns a-b. Both values must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, &ErrCurrencyMismatch{Left: m.Currency, Right: other.Currency}
	}
	a, err := m.Decimal()
	if err != nil {
		return Money{}, err
	}
	b, err := other.Decimal()
	if err != nil {
		return Money{}, err
	}
	return MoneyFromDecimal(a.Sub(b), m.Currency), nil
}

// Mul scales the value by a factor, rounding the result to two places.
func (m Money) Mul(factor float64) (Money, error) {
	a, err := m.Decimal()
	if err != nil {
		return Money{}, err
	}
	return MoneyFromDecimal(a.Mul(decimal.NewFromFloat(factor)), m.Currency), nil
}

// Neg returns the value with the sign flipped.
func (m Money) Neg() (Money, error) {
	a, err := m.Decimal()
	if err != nil {
		return Money{}, err
	}
	return MoneyFromDecimal(a.Neg(), m.Currency), nil
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	d, err := m.Decimal()
	return err == nil && d.IsPositive()
}

// IsNegative reports whether the amount is strictly less than zero.
func (m Money) IsNegative() bool {
	d, err := m.Decimal()
	return err == nil && d.IsNegative()
}

// ToFloat converts to float64 for display only. Never feed the result back
// into arithmetic.
func (m Money) ToFloat() float64 {
	d, err := m.Decimal()
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
