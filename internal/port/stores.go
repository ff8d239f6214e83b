package port

import (
	"context"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
)

// Typed store ports consumed by the services. The concrete adapters wrap the
// generic DataProvider; the services never see raw records.

// AccountStore persists accounts and their materialized balances.
type AccountStore interface {
	CreateAccount(ctx context.Context, in *domain.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID string, activeOnly bool) ([]domain.Account, error)
	UpdateAccountBalance(ctx context.Context, accountID string, balance domain.Money) error
	// UpdateAccountBalances applies both balance writes of a transfer as one
	// atomic unit — both-or-neither.
	UpdateAccountBalances(ctx context.Context, updates map[string]domain.Money) error
	DeactivateAccount(ctx context.Context, accountID string) error
}

// TransactionStore persists the transaction log.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	// CreateTransactionPair persists both legs of a transfer atomically,
	// with their mutual links already set.
	CreateTransactionPair(ctx context.Context, origin, destination *domain.Transaction) (*domain.TransferResult, error)
	GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, txID string, fields map[string]any) error
	// UpdateTransactions applies the same fields to every transaction as one
	// atomic batch. Used to cancel both legs of a transfer together.
	UpdateTransactions(ctx context.Context, txIDs []string, fields map[string]any) error
	DeleteTransaction(ctx context.Context, txID string) error
	DeleteTransactions(ctx context.Context, txIDs []string) error
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	// FindDuplicates searches for transactions on the same account with a
	// value within one cent and a date within a day of the candidate.
	FindDuplicates(ctx context.Context, accountID string, value domain.Money, date time.Time) ([]domain.Transaction, error)
}

// CardStore persists credit and debit cards.
type CardStore interface {
	CreateCard(ctx context.Context, card *domain.Card) (*domain.Card, error)
	GetCard(ctx context.Context, cardID string) (*domain.Card, error)
	ListCards(ctx context.Context, userID string, activeOnly bool, cardType domain.CardType) ([]domain.Card, error)
	UpdateCard(ctx context.Context, cardID string, fields map[string]any) error
	DeactivateCard(ctx context.Context, cardID string) error
}

// LoanStore persists loans and their installment schedules.
type LoanStore interface {
	// CreateLoan persists the loan and its full schedule as one atomic batch.
	CreateLoan(ctx context.Context, loan *domain.Loan, installments []domain.Installment) (*domain.Loan, error)
	GetLoan(ctx context.Context, loanID string) (*domain.Loan, error)
	ListLoans(ctx context.Context, userID string, activeOnly bool) ([]domain.Loan, error)
	UpdateLoan(ctx context.Context, loanID string, fields map[string]any) error
	DeleteLoan(ctx context.Context, loanID string) error
	GetInstallment(ctx context.Context, installmentID string) (*domain.Installment, error)
	ListInstallments(ctx context.Context, loanID string) ([]domain.Installment, error)
	UpdateInstallment(ctx context.Context, installmentID string, fields map[string]any) error
	CountInstallments(ctx context.Context, loanID string) (int, error)
	ListOverdueInstallments(ctx context.Context, userID string, asOf time.Time) ([]domain.Installment, error)
	ListUpcomingInstallments(ctx context.Context, userID string, from time.Time, days int) ([]domain.Installment, error)
}

// BudgetStore persists budgets.
type BudgetStore interface {
	CreateBudget(ctx context.Context, in *domain.CreateBudgetInput) (*domain.Budget, error)
	GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error)
	GetBudgetByCategory(ctx context.Context, categoryID string) (*domain.Budget, error)
	ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]domain.Budget, error)
	UpdateBudget(ctx context.Context, budgetID string, fields map[string]any) error
	DeleteBudget(ctx context.Context, budgetID string) error
}

// CategoryStore resolves category references.
type CategoryStore interface {
	GetCategory(ctx context.Context, categoryID string) (*domain.Category, error)
	ListCategories(ctx context.Context, userID string, activeOnly bool) ([]domain.Category, error)
}

// UserStore persists users for the thin auth service.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}
