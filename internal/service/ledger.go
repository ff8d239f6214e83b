// Package service provides the business logic layer (use cases).
// LedgerService is the consistency engine: the transaction log is the source
// of truth and every account balance is a materialized view derived from it.
package service

import (
	"context"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService records transactions and keeps account balances consistent
// with them. Mutations that can drift the cached balance trigger a full
// recompute; plain creates apply an incremental delta.
type LedgerService struct {
	txs        port.TransactionStore
	accounts   port.AccountStore
	categories *CategoryService
	warnings   port.WarningSink
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(txs port.TransactionStore, accounts port.AccountStore, categories *CategoryService, warnings port.WarningSink, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		txs:        txs,
		accounts:   accounts,
		categories: categories,
		warnings:   warnings,
		metrics:    metrics,
		logger:     logger,
	}
}

// ============================================================
// Transactions — create, get, list, update, cancel, remove
// ============================================================

func (s *LedgerService) CreateTransaction(ctx context.Context, in *domain.CreateTransactionInput) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateTransaction")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", in.AccountID),
		attribute.String("transaction.type", string(in.Type)),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_transaction", time.Since(start)) }()

	if err := validateCreateTransaction(in); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetAccount(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	// Fail fast: a foreign-currency transaction would only surface at the
	// balance write, leaving an orphan in the log that poisons every later
	// recompute of this account.
	if in.Value.Currency != account.Balance.Currency {
		return nil, &domain.ErrCurrencyMismatch{Left: account.Balance.Currency, Right: in.Value.Currency}
	}

	if in.CategoryID != "" {
		if _, err := s.categories.GetCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	if len(in.Splits) > 0 {
		if err := domain.ValidateSplits(in.Splits, in.Value); err != nil {
			return nil, err
		}
	}

	// Duplicate detection warns, it never blocks: a legitimate repeated
	// charge (two identical coffees in one day) must still be recordable.
	s.warnOnProbableDuplicate(ctx, in.AccountID, in.Value, in.Date)

	status := in.Status
	if status == "" {
		status = domain.StatusConfirmed
	}

	now := time.Now()
	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		UserID:      in.UserID,
		AccountID:   in.AccountID,
		CategoryID:  in.CategoryID,
		CardID:      in.CardID,
		Type:        in.Type,
		Status:      status,
		Value:       in.Value,
		Date:        in.Date,
		Description: in.Description,
		Notes:       in.Notes,
		Tags:        in.Tags,
		Splits:      in.Splits,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.txs.CreateTransaction(ctx, tx)
	if err != nil {
		s.logger.Error("failed to create transaction",
			zap.String("account_id", in.AccountID), zap.Error(err))
		return nil, err
	}

	// Creates are the only balance write that can be incremental: the prior
	// balance is consistent and the new transaction is the only change.
	if created.Status.CountsTowardBalance() {
		if err := s.applyDelta(ctx, account, created); err != nil {
			return nil, err
		}
	}

	s.logger.Info("transaction recorded",
		zap.String("transaction_id", created.ID),
		zap.String("account_id", created.AccountID),
		zap.String("type", string(created.Type)),
		zap.String("value", created.Value.Amount),
	)

	return created, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetTransaction")
	defer span.End()

	return s.txs.GetTransaction(ctx, txID)
}

func (s *LedgerService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()

	return s.txs.ListTransactions(ctx, filter)
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, txID string, in *domain.UpdateTransactionInput) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", txID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("update_transaction", time.Since(start)) }()

	tx, err := s.txs.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	if tx.IsTransferLeg() && (in.Value != nil || in.Status != nil) {
		return nil, &domain.ErrConflict{Message: "transfer legs cannot change value or status individually; cancel and recreate the transfer"}
	}

	fields, affectsBalance, err := buildTransactionUpdate(tx, in)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return tx, nil
	}

	if err := s.txs.UpdateTransaction(ctx, txID, fields); err != nil {
		s.logger.Error("failed to update transaction",
			zap.String("transaction_id", txID), zap.Error(err))
		return nil, err
	}

	// An update can move the value, the status or the date of an already
	// counted transaction. The incremental path cannot express that, so the
	// balance is rebuilt from the log.
	if affectsBalance {
		if _, err := s.RecomputeBalance(ctx, tx.AccountID, "update"); err != nil {
			return nil, err
		}
	}

	return s.txs.GetTransaction(ctx, txID)
}

// CancelTransaction flips the transaction to canceled, removing its effect
// from the balance without erasing it from history. Canceling one leg of a
// transfer cancels both.
func (s *LedgerService) CancelTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CancelTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", txID))

	tx, err := s.txs.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status == domain.StatusCanceled {
		return nil, &domain.ErrAlreadyInState{Resource: "transaction", State: string(domain.StatusCanceled)}
	}

	touched := []string{tx.AccountID}
	ids := []string{tx.ID}
	if tx.IsTransferLeg() {
		linked, linkErr := s.txs.GetTransaction(ctx, tx.LinkedTransactionID)
		if linkErr != nil {
			s.logger.Error("transfer leg missing its pair on cancel",
				zap.String("transaction_id", txID),
				zap.String("linked_id", tx.LinkedTransactionID),
				zap.Error(linkErr))
		} else if linked.Status != domain.StatusCanceled {
			ids = append(ids, linked.ID)
			touched = append(touched, linked.AccountID)
		}
	}

	// Both legs flip in one atomic batch, like creation and removal: a
	// half-canceled transfer would leave the two accounts inconsistent.
	cancelFields := map[string]any{"status": string(domain.StatusCanceled)}
	if err := s.txs.UpdateTransactions(ctx, ids, cancelFields); err != nil {
		s.logger.Error("failed to cancel transaction",
			zap.String("transaction_id", txID), zap.Error(err))
		return nil, err
	}

	for _, accountID := range touched {
		if _, err := s.RecomputeBalance(ctx, accountID, "cancel"); err != nil {
			return nil, err
		}
	}

	return s.txs.GetTransaction(ctx, txID)
}

// RemoveTransaction deletes the transaction from the log. Removing one leg
// of a transfer removes both atomically.
func (s *LedgerService) RemoveTransaction(ctx context.Context, txID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.RemoveTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", txID))

	tx, err := s.txs.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}

	touched := []string{tx.AccountID}
	ids := []string{tx.ID}
	if tx.IsTransferLeg() {
		linked, linkErr := s.txs.GetTransaction(ctx, tx.LinkedTransactionID)
		if linkErr != nil {
			s.logger.Error("transfer leg missing its pair on remove",
				zap.String("transaction_id", txID),
				zap.String("linked_id", tx.LinkedTransactionID),
				zap.Error(linkErr))
		} else {
			ids = append(ids, linked.ID)
			touched = append(touched, linked.AccountID)
		}
	}

	if err := s.txs.DeleteTransactions(ctx, ids); err != nil {
		s.logger.Error("failed to remove transaction",
			zap.String("transaction_id", txID), zap.Error(err))
		return err
	}

	for _, accountID := range touched {
		if _, err := s.RecomputeBalance(ctx, accountID, "remove"); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================
// Private helpers
// ============================================================

func validateCreateTransaction(in *domain.CreateTransactionInput) error {
	if !domain.IsValidUUID(in.AccountID) {
		return &domain.ErrInvalidInput{Field: "account_id", Message: "must be a valid uuid"}
	}
	if !domain.IsNotEmpty(in.Description) {
		return &domain.ErrInvalidInput{Field: "description", Message: "required"}
	}
	if !domain.IsValidDate(in.Date) {
		return &domain.ErrInvalidInput{Field: "date", Message: "required"}
	}
	if in.CardID != "" && !domain.IsValidUUID(in.CardID) {
		return &domain.ErrInvalidInput{Field: "card_id", Message: "must be a valid uuid"}
	}
	switch in.Type {
	case domain.TransactionIncome, domain.TransactionExpense:
	case domain.TransactionTransfer:
		return &domain.ErrInvalidInput{Field: "type", Message: "transfers are created through the transfer operation"}
	default:
		return &domain.ErrInvalidInput{Field: "type", Message: "unknown transaction type"}
	}
	if err := domain.ValidateMoney(in.Value.Amount, false); err != nil {
		return err
	}
	if !in.Value.IsPositive() {
		return &domain.ErrInvalidInput{Field: "value", Message: "must be positive"}
	}
	switch in.Status {
	case "", domain.StatusPending, domain.StatusConfirmed, domain.StatusReconciled:
	default:
		return &domain.ErrInvalidInput{Field: "status", Message: "unknown status"}
	}
	return nil
}

func (s *LedgerService) warnOnProbableDuplicate(ctx context.Context, accountID string, value domain.Money, date time.Time) {
	dupes, err := s.txs.FindDuplicates(ctx, accountID, value, date)
	if err != nil {
		// Detection is best-effort; a provider hiccup must not block the write.
		s.logger.Warn("duplicate detection failed", zap.Error(err))
		return
	}
	if len(dupes) == 0 {
		return
	}
	s.metrics.IncrDuplicateWarning("transactions")
	s.warnings.Warn(ctx, "probable_duplicate", map[string]any{
		"account_id": accountID,
		"value":      value.Amount,
		"currency":   value.Currency,
		"date":       date.Format(time.RFC3339),
		"matches":    len(dupes),
	})
}

// buildTransactionUpdate turns a partial input into provider fields and
// reports whether the change can move the materialized balance. Splits are
// always validated against the final effective value, not the stored one.
func buildTransactionUpdate(tx *domain.Transaction, in *domain.UpdateTransactionInput) (map[string]any, bool, error) {
	fields := map[string]any{}
	affectsBalance := false

	effectiveValue := tx.Value
	if in.Value != nil {
		if err := domain.ValidateMoney(in.Value.Amount, false); err != nil {
			return nil, false, err
		}
		if !in.Value.IsPositive() {
			return nil, false, &domain.ErrInvalidInput{Field: "value", Message: "must be positive"}
		}
		effectiveValue = *in.Value
		fields["value_amount"] = in.Value.Amount
		fields["value_currency"] = in.Value.Currency
		affectsBalance = true
	}
	if in.Status != nil {
		switch *in.Status {
		case domain.StatusPending, domain.StatusConfirmed, domain.StatusReconciled, domain.StatusCanceled:
		default:
			return nil, false, &domain.ErrInvalidInput{Field: "status", Message: "unknown status"}
		}
		fields["status"] = string(*in.Status)
		if tx.Status.CountsTowardBalance() != in.Status.CountsTowardBalance() {
			affectsBalance = true
		}
	}
	if in.Date != nil {
		if !domain.IsValidDate(*in.Date) {
			return nil, false, &domain.ErrInvalidInput{Field: "date", Message: "required"}
		}
		fields["date"] = in.Date.Format(time.RFC3339)
	}
	if in.Description != nil {
		if !domain.IsNotEmpty(*in.Description) {
			return nil, false, &domain.ErrInvalidInput{Field: "description", Message: "required"}
		}
		fields["description"] = *in.Description
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if in.CategoryID != nil {
		fields["category_id"] = *in.CategoryID
	}
	if in.Tags != nil {
		fields["tags"] = in.Tags
	}

	splits := tx.Splits
	if in.Splits != nil {
		splits = in.Splits
		fields["splits"] = in.Splits
	}
	if len(splits) > 0 {
		if err := domain.ValidateSplits(splits, effectiveValue); err != nil {
			return nil, false, err
		}
	}

	return fields, affectsBalance, nil
}
