package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Amortization engine
// ============================================================

// Method selects the amortization system for a loan.
type Method string

const (
	// MethodPrice is the fixed-installment (French) system.
	MethodPrice Method = "PRICE"
	// MethodSAC is the constant-principal (Brazilian) system.
	MethodSAC Method = "SAC"
)

// ScheduleEntry is one computed period of an amortization schedule. Every
// money figure is rounded to two places before being stored here; the
// running balance is kept at full precision internally and floored at zero.
type ScheduleEntry struct {
	Number           int       `json:"number"`
	DueDate          time.Time `json:"due_date"`
	Value            Money     `json:"value"`
	PrincipalPortion Money     `json:"principal_portion"`
	InterestPortion  Money     `json:"interest_portion"`
	BalanceAfter     Money     `json:"balance_after"`
}

// Schedule is the full output of the engine for one loan.
type Schedule struct {
	Entries       []ScheduleEntry `json:"entries"`
	Total         Money           `json:"total"`
	TotalInterest Money           `json:"total_interest"`
}

// GenerateSchedule produces the ordered installment schedule for a loan.
// It is a pure function: identical inputs yield byte-identical output.
//
// Monthly rate is annualRate/12/100. PRICE uses the fixed payment
// pmt = P*i(1+i)^n / ((1+i)^n - 1), falling back to P/n at zero interest.
// SAC amortizes a constant P/n per period.
func GenerateSchedule(principal Money, annualRate float64, termMonths int, start time.Time, method Method) (*Schedule, error) {
	if termMonths < 1 {
		return nil, &ErrInvalidInput{Field: "term_months", Message: "must be at least 1"}
	}
	if annualRate < 0 || annualRate > 100 {
		return nil, &ErrInvalidInput{Field: "annual_rate", Message: "must be between 0 and 100"}
	}
	if err := ValidateMoney(principal.Amount, false); err != nil {
		return nil, err
	}
	if !principal.IsPositive() {
		return nil, &ErrInvalidInput{Field: "principal", Message: "must be positive"}
	}

	switch method {
	case MethodPrice, MethodSAC:
	default:
		return nil, &ErrInvalidAmortizationMethod{Method: string(method)}
	}

	p, err := principal.Decimal()
	if err != nil {
		return nil, err
	}
	currency := principal.Currency

	monthlyRate := annualRate / 12.0 / 100.0
	rate := decimal.NewFromFloat(monthlyRate)
	termDec := decimal.NewFromInt(int64(termMonths))

	// Fixed figure per system: the payment for PRICE, the principal
	// portion for SAC. The power term is computed in float64, the
	// monetary arithmetic stays in decimal.
	var fixed decimal.Decimal
	if method == MethodPrice {
		if monthlyRate > 0 {
			factor := math.Pow(1+monthlyRate, float64(termMonths))
			fixed = decimal.NewFromFloat(principal.ToFloat() * monthlyRate * factor / (factor - 1))
		} else {
			fixed = p.Div(termDec)
		}
	} else {
		fixed = p.Div(termDec)
	}

	entries := make([]ScheduleEntry, 0, termMonths)
	balance := p
	totalInterest := decimal.Zero

	for k := 1; k <= termMonths; k++ {
		interest := balance.Mul(rate)

		var payment, principalPart decimal.Decimal
		if method == MethodPrice {
			payment = fixed
			principalPart = payment.Sub(interest)
		} else {
			principalPart = fixed
			payment = principalPart.Add(interest)
		}

		balance = balance.Sub(principalPart)
		totalInterest = totalInterest.Add(interest)

		stored := balance
		if stored.IsNegative() {
			stored = decimal.Zero
		}

		entries = append(entries, ScheduleEntry{
			Number:           k,
			DueDate:          start.AddDate(0, k, 0),
			Value:            MoneyFromDecimal(payment, currency),
			PrincipalPortion: MoneyFromDecimal(principalPart, currency),
			InterestPortion:  MoneyFromDecimal(interest, currency),
			BalanceAfter:     MoneyFromDecimal(stored, currency),
		})
	}

	return &Schedule{
		Entries:       entries,
		Total:         MoneyFromDecimal(p.Add(totalInterest), currency),
		TotalInterest: MoneyFromDecimal(totalInterest, currency),
	}, nil
}
