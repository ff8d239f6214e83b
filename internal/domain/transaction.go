package domain

import "time"

// ============================================================
// Transactions (the ledger's source of truth)
// ============================================================

// TransactionType classifies the signed effect of a transaction.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// TransactionStatus is the lifecycle state of a transaction. Only confirmed
// and reconciled transactions count toward an account balance.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusConfirmed  TransactionStatus = "confirmed"
	StatusReconciled TransactionStatus = "reconciled"
	StatusCanceled   TransactionStatus = "canceled"
)

// CountsTowardBalance reports whether a transaction in this status
// contributes to the materialized account balance.
func (s TransactionStatus) CountsTowardBalance() bool {
	return s == StatusConfirmed || s == StatusReconciled
}

// Split is a sub-allocation of a transaction's value across categories.
// When present, split values must add up to the transaction value within
// one cent.
type Split struct {
	ID         string `json:"id,omitempty"`
	CategoryID string `json:"category_id"`
	Value      Money  `json:"value"`
	Note       string `json:"note,omitempty"`
}

// Transaction belongs to exactly one account. A transfer is modeled as two
// linked single-account transactions referencing each other via
// LinkedTransactionID, created and removed together.
type Transaction struct {
	ID                  string            `json:"id"`
	UserID              string            `json:"user_id"`
	AccountID           string            `json:"account_id"`
	CategoryID          string            `json:"category_id,omitempty"`
	CardID              string            `json:"card_id,omitempty"`
	Type                TransactionType   `json:"type"`
	Status              TransactionStatus `json:"status"`
	Value               Money             `json:"value"`
	Date                time.Time         `json:"date"`
	Description         string            `json:"description"`
	Notes               string            `json:"notes,omitempty"`
	Tags                []string          `json:"tags,omitempty"`
	Splits              []Split           `json:"splits,omitempty"`
	LinkedTransactionID string            `json:"linked_transaction_id,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// IsTransferLeg reports whether this transaction is one side of a paired
// transfer.
func (t *Transaction) IsTransferLeg() bool {
	return t.Type == TransactionTransfer && t.LinkedTransactionID != ""
}

// CreateTransactionInput carries the fields needed to record a transaction.
type CreateTransactionInput struct {
	UserID      string            `json:"user_id"`
	AccountID   string            `json:"account_id"`
	CategoryID  string            `json:"category_id,omitempty"`
	CardID      string            `json:"card_id,omitempty"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status,omitempty"`
	Value       Money             `json:"value"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Notes       string            `json:"notes,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Splits      []Split           `json:"splits,omitempty"`
}

// UpdateTransactionInput carries a partial update. Nil fields are left
// untouched; split validation always runs against the final effective value.
type UpdateTransactionInput struct {
	Value       *Money             `json:"value,omitempty"`
	Date        *time.Time         `json:"date,omitempty"`
	Description *string            `json:"description,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
	CategoryID  *string            `json:"category_id,omitempty"`
	Status      *TransactionStatus `json:"status,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Splits      []Split            `json:"splits,omitempty"`
}

// CreateTransferInput describes a transfer between two accounts of the same
// user. The ledger turns it into two linked transactions.
type CreateTransferInput struct {
	UserID        string    `json:"user_id"`
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	Value         Money     `json:"value"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	Notes         string    `json:"notes,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
}

// TransferResult is the pair of linked transactions a transfer produces.
type TransferResult struct {
	Origin      *Transaction `json:"origin"`
	Destination *Transaction `json:"destination"`
}

// TransactionFilter narrows transaction queries.
type TransactionFilter struct {
	UserID     string
	AccountIDs []string
	Statuses   []TransactionStatus
	Types      []TransactionType
	From       *time.Time
	To         *time.Time
}
