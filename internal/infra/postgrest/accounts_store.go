package postgrest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

const accountsCollection = "accounts"

// AccountStore adapts the generic provider to port.AccountStore.
type AccountStore struct {
	provider port.DataProvider
}

// NewAccountStore wraps a data provider.
func NewAccountStore(provider port.DataProvider) *AccountStore {
	return &AccountStore{provider: provider}
}

var _ port.AccountStore = (*AccountStore)(nil)

func (s *AccountStore) CreateAccount(ctx context.Context, in *domain.CreateAccountInput) (*domain.Account, error) {
	now := time.Now()
	rec := port.Record{
		"id":                       uuid.New().String(),
		"user_id":                  in.UserID,
		"name":                     in.Name,
		"type":                     string(in.Type),
		"bank_name":                in.BankName,
		"balance_amount":           in.OpeningBalance.Amount,
		"balance_currency":         in.OpeningBalance.Currency,
		"opening_balance_amount":   in.OpeningBalance.Amount,
		"opening_balance_currency": in.OpeningBalance.Currency,
		"active":                   true,
		"created_at":               timeVal(now),
		"updated_at":               timeVal(now),
	}
	stored, err := s.provider.Create(ctx, accountsCollection, rec)
	if err != nil {
		return nil, err
	}
	return accountFromRecord(stored), nil
}

func (s *AccountStore) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	rec, err := s.provider.GetByID(ctx, accountsCollection, accountID)
	if err != nil {
		return nil, err
	}
	return accountFromRecord(rec), nil
}

func (s *AccountStore) ListAccounts(ctx context.Context, userID string, activeOnly bool) ([]domain.Account, error) {
	filters := []port.Filter{{Field: "user_id", Op: port.OpEq, Value: userID}}
	if activeOnly {
		filters = append(filters, port.Filter{Field: "active", Op: port.OpEq, Value: true})
	}
	recs, err := s.provider.Query(ctx, accountsCollection, filters,
		[]port.Sort{{Field: "created_at"}}, port.Page{})
	if err != nil {
		return nil, err
	}
	accounts := make([]domain.Account, 0, len(recs))
	for _, rec := range recs {
		accounts = append(accounts, *accountFromRecord(rec))
	}
	return accounts, nil
}

func (s *AccountStore) UpdateAccountBalance(ctx context.Context, accountID string, balance domain.Money) error {
	return s.provider.UpdateFields(ctx, accountsCollection, accountID, port.Record{
		"balance_amount":   balance.Amount,
		"balance_currency": balance.Currency,
		"updated_at":       timeVal(time.Now()),
	})
}

// UpdateAccountBalances writes every balance in one atomic batch. Used for
// the two legs of a transfer: both-or-neither.
func (s *AccountStore) UpdateAccountBalances(ctx context.Context, updates map[string]domain.Money) error {
	ops := make([]port.BatchOp, 0, len(updates))
	now := timeVal(time.Now())
	for accountID, balance := range updates {
		ops = append(ops, port.BatchOp{
			Kind:       port.BatchUpdate,
			Collection: accountsCollection,
			ID:         accountID,
			Entity: port.Record{
				"balance_amount":   balance.Amount,
				"balance_currency": balance.Currency,
				"updated_at":       now,
			},
		})
	}
	return s.provider.ExecBatch(ctx, ops)
}

func (s *AccountStore) DeactivateAccount(ctx context.Context, accountID string) error {
	return s.provider.UpdateFields(ctx, accountsCollection, accountID, port.Record{
		"active":     false,
		"updated_at": timeVal(time.Now()),
	})
}

func accountFromRecord(rec port.Record) *domain.Account {
	return &domain.Account{
		ID:             recString(rec, "id"),
		UserID:         recString(rec, "user_id"),
		Name:           recString(rec, "name"),
		Type:           domain.AccountType(recString(rec, "type")),
		BankName:       recString(rec, "bank_name"),
		Balance:        recMoney(rec, "balance_amount", "balance_currency"),
		OpeningBalance: recMoney(rec, "opening_balance_amount", "opening_balance_currency"),
		Active:         recBool(rec, "active"),
		CreatedAt:      recTime(rec, "created_at"),
		UpdatedAt:      recTime(rec, "updated_at"),
	}
}
