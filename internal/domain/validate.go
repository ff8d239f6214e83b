package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================
// Validation layer — pure predicates, no I/O
// ============================================================

// decimalRe accepts an optional leading minus, digits, and an optional
// fractional part of one or two digits.
var decimalRe = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)

// IsValidDecimal reports whether s is a money-safe decimal string.
func IsValidDecimal(s string) bool {
	return decimalRe.MatchString(s)
}

// IsPositiveAmount reports whether s parses to a value > 0.
func IsPositiveAmount(s string) bool {
	d, err := decimal.NewFromString(s)
	return err == nil && d.IsPositive()
}

// IsValidUUID reports whether id is a well-formed UUID.
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// IsNotEmpty reports whether s has non-whitespace content.
func IsNotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// InRange reports min <= v <= max.
func InRange(v, min, max float64) bool {
	return v >= min && v <= max
}

// IsValidDate rejects the zero time.
func IsValidDate(t time.Time) bool {
	return !t.IsZero()
}

// IsDateInRange reports start <= t <= end.
func IsDateInRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// ValidateMoney checks the decimal format and, unless allowNegative, the
// sign. It returns ErrInvalidMoneyFormat or ErrNegativeNotAllowed.
func ValidateMoney(amount string, allowNegative bool) error {
	if !IsValidDecimal(amount) {
		return &ErrInvalidMoneyFormat{Value: amount}
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return &ErrInvalidMoneyFormat{Value: amount}
	}
	if !allowNegative && d.IsNegative() {
		return &ErrNegativeNotAllowed{Value: amount}
	}
	return nil
}

// splitTolerance is the cumulative rounding slack allowed between the sum
// of split values and the transaction total.
var splitTolerance = decimal.NewFromFloat(0.01)

// ValidateSplits checks every split against the transaction total: valid
// money, matching currency, and a sum within one cent of the total.
func ValidateSplits(splits []Split, total Money) error {
	if len(splits) == 0 {
		return &ErrInvalidInput{Field: "splits", Message: "must not be empty"}
	}

	totalDec, err := total.Decimal()
	if err != nil {
		return err
	}

	sum := decimal.Zero
	for _, split := range splits {
		if err := ValidateMoney(split.Value.Amount, false); err != nil {
			return err
		}
		if split.Value.Currency != total.Currency {
			return &ErrCurrencyMismatch{Left: split.Value.Currency, Right: total.Currency}
		}
		d, err := split.Value.Decimal()
		if err != nil {
			return err
		}
		sum = sum.Add(d)
	}

	if sum.Sub(totalDec).Abs().GreaterThan(splitTolerance) {
		return &ErrSplitSumMismatch{Sum: sum.StringFixed(2), Total: totalDec.StringFixed(2)}
	}
	return nil
}
