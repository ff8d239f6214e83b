package domain

import "time"

// ============================================================
// Loans and installments
// ============================================================

// InstallmentStatus is the lifecycle state of a single installment.
type InstallmentStatus string

const (
	InstallmentOpen     InstallmentStatus = "open"
	InstallmentPaid     InstallmentStatus = "paid"
	InstallmentOverdue  InstallmentStatus = "overdue"
	InstallmentCanceled InstallmentStatus = "canceled"
)

// Installment is one row of a loan's amortization schedule. The invariant
// PrincipalPortion + InterestPortion == Value holds within rounding.
type Installment struct {
	ID                  string            `json:"id"`
	LoanID              string            `json:"loan_id"`
	Number              int               `json:"number"`
	DueDate             time.Time         `json:"due_date"`
	Value               Money             `json:"value"`
	PrincipalPortion    Money             `json:"principal_portion"`
	InterestPortion     Money             `json:"interest_portion"`
	BalanceAfter        Money             `json:"balance_after"`
	Status              InstallmentStatus `json:"status"`
	PaymentDate         *time.Time        `json:"payment_date,omitempty"`
	PaidAmount          *Money            `json:"paid_amount,omitempty"`
	SettlementTxID      string            `json:"settlement_tx_id,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Loan is created once with a generated schedule. Its outstanding balance
// changes only through installment payment or an explicit recompute, and the
// loan is soft-deactivated rather than deleted while installments exist.
type Loan struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id"`
	Name               string        `json:"name"`
	Principal          Money         `json:"principal"`
	AnnualRate         float64       `json:"annual_rate"`
	Method             Method        `json:"method"`
	StartDate          time.Time     `json:"start_date"`
	TermMonths         int           `json:"term_months"`
	Total              Money         `json:"total"`
	OutstandingBalance Money         `json:"outstanding_balance"`
	Installments       []Installment `json:"installments,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	Active             bool          `json:"active"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// CreateLoanInput carries the fields needed to contract a loan.
type CreateLoanInput struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Principal  Money     `json:"principal"`
	AnnualRate float64   `json:"annual_rate"`
	Method     Method    `json:"method"`
	StartDate  time.Time `json:"start_date"`
	TermMonths int       `json:"term_months"`
	Notes      string    `json:"notes,omitempty"`
}

// UpdateLoanInput carries a partial loan update; schedule fields are
// immutable after creation.
type UpdateLoanInput struct {
	Name   *string `json:"name,omitempty"`
	Notes  *string `json:"notes,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// PayInstallmentInput settles one installment from an account.
type PayInstallmentInput struct {
	InstallmentID string    `json:"installment_id"`
	AccountID     string    `json:"account_id"`
	PaidAmount    Money     `json:"paid_amount"`
	PaymentDate   time.Time `json:"payment_date"`
}

// PayInstallmentResult reports the settled installment and the ledger
// transaction that paid it.
type PayInstallmentResult struct {
	Installment   *Installment `json:"installment"`
	TransactionID string       `json:"transaction_id"`
}
