package domain

import "time"

// ============================================================
// Accounts
// ============================================================

// AccountType classifies a bank account.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"
)

// Account owns a running balance that is a materialized view: the source of
// truth is the set of confirmed transactions against the account, and the
// cached balance can always be re-derived from them.
type Account struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	BankName       string      `json:"bank_name,omitempty"`
	Balance        Money       `json:"balance"`
	OpeningBalance Money       `json:"opening_balance"`
	Active         bool        `json:"active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// CreateAccountInput carries the fields needed to open an account.
type CreateAccountInput struct {
	UserID         string      `json:"user_id"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	BankName       string      `json:"bank_name,omitempty"`
	OpeningBalance Money       `json:"opening_balance"`
}
