package domain

import "fmt"

// Error types for consistent error handling across the core.
// Validation failures are detected before any mutation reaches the data
// provider; provider failures propagate unchanged.

// ErrInvalidInput indicates a malformed id, empty required field or
// out-of-range value.
type ErrInvalidInput struct {
	Field   string
	Message string
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input on '%s': %s", e.Field, e.Message)
}

// ErrCurrencyMismatch indicates arithmetic across different currencies.
type ErrCurrencyMismatch struct {
	Left  string
	Right string
}

func (e *ErrCurrencyMismatch) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.Left, e.Right)
}

// ErrInvalidMoneyFormat indicates an amount that is not a decimal string
// with at most two fractional digits.
type ErrInvalidMoneyFormat struct {
	Value string
}

func (e *ErrInvalidMoneyFormat) Error() string {
	return fmt.Sprintf("invalid money format: %q", e.Value)
}

// ErrNegativeNotAllowed indicates a negative amount where only
// non-negative values are accepted.
type ErrNegativeNotAllowed struct {
	Value string
}

func (e *ErrNegativeNotAllowed) Error() string {
	return fmt.Sprintf("negative amount not allowed: %s", e.Value)
}

// ErrNotFound indicates a referenced entity is absent.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrAlreadyInState indicates a state transition to the state the entity
// is already in (paying a paid installment, canceling a canceled transaction).
type ErrAlreadyInState struct {
	Resource string
	State    string
}

func (e *ErrAlreadyInState) Error() string {
	return fmt.Sprintf("%s is already %s", e.Resource, e.State)
}

// ErrSplitSumMismatch indicates split values that do not add up to the
// transaction total within one cent.
type ErrSplitSumMismatch struct {
	Sum   string
	Total string
}

func (e *ErrSplitSumMismatch) Error() string {
	return fmt.Sprintf("split sum %s does not match transaction total %s", e.Sum, e.Total)
}

// ErrInvalidAmortizationMethod indicates an unsupported amortization method.
type ErrInvalidAmortizationMethod struct {
	Method string
}

func (e *ErrInvalidAmortizationMethod) Error() string {
	return fmt.Sprintf("unsupported amortization method: %q", e.Method)
}

// ErrInvalidPeriod indicates an unknown budget period kind.
type ErrInvalidPeriod struct {
	Period string
}

func (e *ErrInvalidPeriod) Error() string {
	return fmt.Sprintf("unknown period kind: %q", e.Period)
}

// ErrUnsupportedOperation indicates a filter operator or batch operation the
// data provider does not recognize. It is surfaced to callers unchanged.
type ErrUnsupportedOperation struct {
	Operation string
}

func (e *ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("unsupported operation: %q", e.Operation)
}

// ErrConflict indicates a uniqueness or lifecycle conflict (duplicate budget
// for a category, removing a loan that still has installments).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrExternalService indicates a failure in the data provider or another
// external collaborator.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open for the provider.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
