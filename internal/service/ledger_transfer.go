package service

import (
	"context"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Transfers — two linked transactions, moved together
// ============================================================

// CreateTransfer records a transfer as two linked transactions: a negative
// leg on the origin account and a positive leg on the destination. The pair
// is persisted in one atomic batch, and so are the two balance writes —
// both-or-neither on each side.
func (s *LedgerService) CreateTransfer(ctx context.Context, in *domain.CreateTransferInput) (*domain.TransferResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateTransfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("from.account_id", in.FromAccountID),
		attribute.String("to.account_id", in.ToAccountID),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_transfer", time.Since(start)) }()

	if err := validateCreateTransfer(in); err != nil {
		s.metrics.IncrTransfer("failed")
		return nil, err
	}

	origin, destination, err := s.fetchTransferAccounts(ctx, in.FromAccountID, in.ToAccountID)
	if err != nil {
		s.metrics.IncrTransfer("failed")
		return nil, err
	}
	if origin.Balance.Currency != in.Value.Currency || destination.Balance.Currency != in.Value.Currency {
		s.metrics.IncrTransfer("failed")
		return nil, &domain.ErrCurrencyMismatch{Left: origin.Balance.Currency, Right: in.Value.Currency}
	}

	negValue, err := in.Value.Neg()
	if err != nil {
		s.metrics.IncrTransfer("failed")
		return nil, err
	}

	now := time.Now()
	originID := uuid.New().String()
	destinationID := uuid.New().String()

	originTx := &domain.Transaction{
		ID:                  originID,
		UserID:              in.UserID,
		AccountID:           in.FromAccountID,
		Type:                domain.TransactionTransfer,
		Status:              domain.StatusConfirmed,
		Value:               negValue,
		Date:                in.Date,
		Description:         in.Description,
		Notes:               in.Notes,
		Tags:                in.Tags,
		LinkedTransactionID: destinationID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	destinationTx := &domain.Transaction{
		ID:                  destinationID,
		UserID:              in.UserID,
		AccountID:           in.ToAccountID,
		Type:                domain.TransactionTransfer,
		Status:              domain.StatusConfirmed,
		Value:               in.Value,
		Date:                in.Date,
		Description:         in.Description,
		Notes:               in.Notes,
		Tags:                in.Tags,
		LinkedTransactionID: originID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	result, err := s.txs.CreateTransactionPair(ctx, originTx, destinationTx)
	if err != nil {
		s.metrics.IncrTransfer("failed")
		s.logger.Error("failed to persist transfer pair",
			zap.String("from_account_id", in.FromAccountID),
			zap.String("to_account_id", in.ToAccountID),
			zap.Error(err))
		return nil, err
	}

	newOriginBalance, err := origin.Balance.Sub(in.Value)
	if err != nil {
		return nil, s.compensateTransfer(ctx, originID, destinationID, err)
	}
	newDestinationBalance, err := destination.Balance.Add(in.Value)
	if err != nil {
		return nil, s.compensateTransfer(ctx, originID, destinationID, err)
	}

	updates := map[string]domain.Money{
		origin.ID:      newOriginBalance,
		destination.ID: newDestinationBalance,
	}
	if err := s.accounts.UpdateAccountBalances(ctx, updates); err != nil {
		return nil, s.compensateTransfer(ctx, originID, destinationID, err)
	}

	s.metrics.IncrTransfer("ok")
	s.logger.Info("transfer completed",
		zap.String("from_account_id", in.FromAccountID),
		zap.String("to_account_id", in.ToAccountID),
		zap.String("value", in.Value.Amount),
	)

	return result, nil
}

// fetchTransferAccounts loads both accounts concurrently; either miss fails
// the transfer before anything is written.
func (s *LedgerService) fetchTransferAccounts(ctx context.Context, fromID, toID string) (*domain.Account, *domain.Account, error) {
	var origin, destination *domain.Account
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		origin, err = s.accounts.GetAccount(gctx, fromID)
		return err
	})
	g.Go(func() error {
		var err error
		destination, err = s.accounts.GetAccount(gctx, toID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return origin, destination, nil
}

// compensateTransfer undoes an already persisted pair after a downstream
// failure, so a transfer never ends half applied.
func (s *LedgerService) compensateTransfer(ctx context.Context, originID, destinationID string, cause error) error {
	s.metrics.IncrTransfer("failed")
	if delErr := s.txs.DeleteTransactions(ctx, []string{originID, destinationID}); delErr != nil {
		s.logger.Error("failed to roll back transfer pair after balance write failure",
			zap.String("origin_id", originID),
			zap.String("destination_id", destinationID),
			zap.Error(delErr))
	}
	return cause
}

func validateCreateTransfer(in *domain.CreateTransferInput) error {
	if !domain.IsValidUUID(in.FromAccountID) {
		return &domain.ErrInvalidInput{Field: "from_account_id", Message: "must be a valid uuid"}
	}
	if !domain.IsValidUUID(in.ToAccountID) {
		return &domain.ErrInvalidInput{Field: "to_account_id", Message: "must be a valid uuid"}
	}
	if in.FromAccountID == in.ToAccountID {
		return &domain.ErrInvalidInput{Field: "to_account_id", Message: "must differ from origin account"}
	}
	if !domain.IsNotEmpty(in.Description) {
		return &domain.ErrInvalidInput{Field: "description", Message: "required"}
	}
	if !domain.IsValidDate(in.Date) {
		return &domain.ErrInvalidInput{Field: "date", Message: "required"}
	}
	if err := domain.ValidateMoney(in.Value.Amount, false); err != nil {
		return err
	}
	if !in.Value.IsPositive() {
		return &domain.ErrInvalidInput{Field: "value", Message: "must be positive"}
	}
	return nil
}
