package service

import (
	"context"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accountTracer = otel.Tracer("service/accounts")

// AccountService manages accounts. Reads go through a short-TTL cache; every
// balance mutation flows through the ledger, which writes the store directly,
// so the cache only ever serves a balance a few seconds old.
type AccountService struct {
	accounts port.AccountStore
	ledger   *LedgerService
	cache    port.Cache[*domain.Account]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(accounts port.AccountStore, ledger *LedgerService, cache port.Cache[*domain.Account], metrics *observability.Metrics, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		ledger:   ledger,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, in *domain.CreateAccountInput) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.type", string(in.Type)))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_account", time.Since(start)) }()

	if !domain.IsNotEmpty(in.Name) {
		return nil, &domain.ErrInvalidInput{Field: "name", Message: "required"}
	}
	switch in.Type {
	case domain.AccountChecking, domain.AccountSavings, domain.AccountInvestment, domain.AccountCash:
	default:
		return nil, &domain.ErrInvalidInput{Field: "type", Message: "unknown account type"}
	}
	// Opening balance may be negative: an overdrawn checking account is a
	// valid starting point.
	if err := domain.ValidateMoney(in.OpeningBalance.Amount, true); err != nil {
		return nil, err
	}

	created, err := s.accounts.CreateAccount(ctx, in)
	if err != nil {
		s.logger.Error("failed to create account",
			zap.String("user_id", in.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("account opened",
		zap.String("account_id", created.ID),
		zap.String("type", string(created.Type)),
		zap.String("opening_balance", created.OpeningBalance.Amount),
	)

	return created, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.GetAccount")
	defer span.End()

	if cached, ok := s.cache.Get(accountID); ok {
		s.metrics.IncrCacheHit("accounts")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("accounts")

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(accountID, account)
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, userID string, activeOnly bool) ([]domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.ListAccounts")
	defer span.End()

	return s.accounts.ListAccounts(ctx, userID, activeOnly)
}

// RecomputeBalance forces a full rebuild of the cached balance from the
// transaction log. Exposed as the manual reconciliation entry point.
func (s *AccountService) RecomputeBalance(ctx context.Context, accountID string) (domain.Money, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.RecomputeBalance")
	defer span.End()

	balance, err := s.ledger.RecomputeBalance(ctx, accountID, "manual")
	if err != nil {
		return domain.Money{}, err
	}
	s.cache.Delete(accountID)
	return balance, nil
}

func (s *AccountService) DeactivateAccount(ctx context.Context, accountID string) error {
	ctx, span := accountTracer.Start(ctx, "AccountService.DeactivateAccount")
	defer span.End()

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.Active {
		return &domain.ErrAlreadyInState{Resource: "account", State: "inactive"}
	}
	if err := s.accounts.DeactivateAccount(ctx, accountID); err != nil {
		return err
	}
	s.cache.Delete(accountID)
	return nil
}
