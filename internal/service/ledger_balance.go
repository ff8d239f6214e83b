package service

import (
	"context"

	"github.com/zegrana/finance-core-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Balance materialization
// ============================================================

// RecomputeBalance rebuilds an account's balance from the transaction log:
// opening balance plus the signed effect of every confirmed and reconciled
// transaction. The result replaces the cached balance unconditionally, which
// makes the operation idempotent and self-healing after any drift.
func (s *LedgerService) RecomputeBalance(ctx context.Context, accountID, trigger string) (domain.Money, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.RecomputeBalance")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.String("trigger", trigger),
	)

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Money{}, err
	}

	txs, err := s.txs.ListTransactions(ctx, domain.TransactionFilter{
		AccountIDs: []string{accountID},
		Statuses:   []domain.TransactionStatus{domain.StatusConfirmed, domain.StatusReconciled},
	})
	if err != nil {
		return domain.Money{}, err
	}

	balance := account.OpeningBalance
	for i := range txs {
		delta, err := signedDelta(&txs[i])
		if err != nil {
			return domain.Money{}, err
		}
		balance, err = balance.Add(delta)
		if err != nil {
			return domain.Money{}, err
		}
	}

	if err := s.accounts.UpdateAccountBalance(ctx, accountID, balance); err != nil {
		s.logger.Error("failed to store recomputed balance",
			zap.String("account_id", accountID), zap.Error(err))
		return domain.Money{}, err
	}

	s.metrics.IncrRecompute(trigger)
	s.logger.Info("balance recomputed",
		zap.String("account_id", accountID),
		zap.String("trigger", trigger),
		zap.String("balance", balance.Amount),
		zap.Int("transactions", len(txs)),
	)

	return balance, nil
}

// applyDelta shifts the cached balance by one freshly created transaction.
func (s *LedgerService) applyDelta(ctx context.Context, account *domain.Account, tx *domain.Transaction) error {
	delta, err := signedDelta(tx)
	if err != nil {
		return err
	}
	newBalance, err := account.Balance.Add(delta)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
		s.logger.Error("failed to apply balance delta",
			zap.String("account_id", account.ID),
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// signedDelta is the effect of one transaction on its account's balance.
// Income adds, expense subtracts, and transfer legs carry their sign in the
// stored value (negative on the origin leg, positive on the destination).
func signedDelta(tx *domain.Transaction) (domain.Money, error) {
	switch tx.Type {
	case domain.TransactionIncome, domain.TransactionTransfer:
		return tx.Value, nil
	case domain.TransactionExpense:
		return tx.Value.Neg()
	default:
		return domain.Money{}, &domain.ErrInvalidInput{Field: "type", Message: "unknown transaction type"}
	}
}
