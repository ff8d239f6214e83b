package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/cache"
	"github.com/zegrana/finance-core-go/internal/service"

	"go.uber.org/zap"
)

type accountFixture struct {
	*ledgerFixture
	svc *service.AccountService
}

func newAccountFixture() *accountFixture {
	ledger := newLedgerFixture()
	svc := service.NewAccountService(
		ledger.accounts,
		ledger.ledger,
		cache.New[*domain.Account](time.Minute),
		ledger.metrics,
		zap.NewNop(),
	)
	return &accountFixture{ledgerFixture: ledger, svc: svc}
}

func TestCreateAccount(t *testing.T) {
	f := newAccountFixture()

	account, err := f.svc.CreateAccount(context.Background(), &domain.CreateAccountInput{
		UserID:         "user-1",
		Name:           "Conta Corrente",
		Type:           domain.AccountChecking,
		OpeningBalance: mustMoney(t, "250.00"),
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if account.Balance.Amount != "250.00" {
		t.Errorf("balance should start at the opening balance, got %s", account.Balance.Amount)
	}
	if !account.Active {
		t.Errorf("a new account must be active")
	}
}

func TestCreateAccount_NegativeOpeningBalanceAllowed(t *testing.T) {
	f := newAccountFixture()

	account, err := f.svc.CreateAccount(context.Background(), &domain.CreateAccountInput{
		UserID:         "user-1",
		Name:           "Conta no vermelho",
		Type:           domain.AccountChecking,
		OpeningBalance: mustMoney(t, "-120.00"),
	})
	if err != nil {
		t.Fatalf("an overdrawn opening balance must be accepted: %v", err)
	}
	if account.Balance.Amount != "-120.00" {
		t.Errorf("expected balance -120.00, got %s", account.Balance.Amount)
	}
}

func TestCreateAccount_UnknownTypeRejected(t *testing.T) {
	f := newAccountFixture()

	_, err := f.svc.CreateAccount(context.Background(), &domain.CreateAccountInput{
		UserID:         "user-1",
		Name:           "Cofre",
		Type:           domain.AccountType("vault"),
		OpeningBalance: mustMoney(t, "10.00"),
	})

	var invalid *domain.ErrInvalidInput
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetAccount_SecondReadHitsCache(t *testing.T) {
	f := newAccountFixture()
	account := f.accounts.addAccount("200.00")

	if _, err := f.svc.GetAccount(context.Background(), account.ID); err != nil {
		t.Fatalf("first GetAccount failed: %v", err)
	}

	// Remove it behind the cache; a cache hit still serves it.
	f.accounts.mu.Lock()
	delete(f.accounts.accounts, account.ID)
	f.accounts.mu.Unlock()

	cached, err := f.svc.GetAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("cached GetAccount failed: %v", err)
	}
	if cached.ID != account.ID {
		t.Errorf("expected the cached account back")
	}
}

func TestAccountRecomputeBalance_InvalidatesCache(t *testing.T) {
	f := newAccountFixture()
	account := f.accounts.addAccount("200.00")

	if _, err := f.svc.GetAccount(context.Background(), account.ID); err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}

	if _, err := f.ledger.CreateTransaction(context.Background(), &domain.CreateTransactionInput{
		UserID:      "user-1",
		AccountID:   account.ID,
		Type:        domain.TransactionExpense,
		Value:       mustMoney(t, "50.00"),
		Date:        time.Now(),
		Description: "Mercado",
	}); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	balance, err := f.svc.RecomputeBalance(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("RecomputeBalance failed: %v", err)
	}
	if balance.Amount != "150.00" {
		t.Errorf("expected recomputed balance 150.00, got %s", balance.Amount)
	}

	fresh, err := f.svc.GetAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if fresh.Balance.Amount != "150.00" {
		t.Errorf("the recompute must evict the stale cache entry, got %s", fresh.Balance.Amount)
	}
}

func TestDeactivateAccount(t *testing.T) {
	f := newAccountFixture()
	account := f.accounts.addAccount("200.00")

	if err := f.svc.DeactivateAccount(context.Background(), account.ID); err != nil {
		t.Fatalf("DeactivateAccount failed: %v", err)
	}

	err := f.svc.DeactivateAccount(context.Background(), account.ID)
	var already *domain.ErrAlreadyInState
	if !errors.As(err, &already) {
		t.Fatalf("deactivating twice should return ErrAlreadyInState, got %v", err)
	}
}
