package postgrest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

const transactionsCollection = "transactions"

// TransactionStore adapts the generic provider to port.TransactionStore.
type TransactionStore struct {
	provider port.DataProvider
}

// NewTransactionStore wraps a data provider.
func NewTransactionStore(provider port.DataProvider) *TransactionStore {
	return &TransactionStore{provider: provider}
}

var _ port.TransactionStore = (*TransactionStore)(nil)

func (s *TransactionStore) CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	stored, err := s.provider.Create(ctx, transactionsCollection, transactionToRecord(tx))
	if err != nil {
		return nil, err
	}
	return transactionFromRecord(stored), nil
}

// CreateTransactionPair persists both legs of a transfer in one atomic
// batch; the mutual links are already set by the ledger.
func (s *TransactionStore) CreateTransactionPair(ctx context.Context, origin, destination *domain.Transaction) (*domain.TransferResult, error) {
	ops := []port.BatchOp{
		{Kind: port.BatchInsert, Collection: transactionsCollection, ID: origin.ID, Entity: transactionToRecord(origin)},
		{Kind: port.BatchInsert, Collection: transactionsCollection, ID: destination.ID, Entity: transactionToRecord(destination)},
	}
	if err := s.provider.ExecBatch(ctx, ops); err != nil {
		return nil, err
	}
	return &domain.TransferResult{Origin: origin, Destination: destination}, nil
}

func (s *TransactionStore) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	rec, err := s.provider.GetByID(ctx, transactionsCollection, txID)
	if err != nil {
		return nil, err
	}
	return transactionFromRecord(rec), nil
}

func (s *TransactionStore) UpdateTransaction(ctx context.Context, txID string, fields map[string]any) error {
	fields["updated_at"] = timeVal(time.Now())
	return s.provider.UpdateFields(ctx, transactionsCollection, txID, fields)
}

// UpdateTransactions applies the same fields to every transaction in one
// atomic batch, so paired transfer legs never end up half flipped.
func (s *TransactionStore) UpdateTransactions(ctx context.Context, txIDs []string, fields map[string]any) error {
	entity := port.Record{"updated_at": timeVal(time.Now())}
	for key, value := range fields {
		entity[key] = value
	}
	ops := make([]port.BatchOp, 0, len(txIDs))
	for _, id := range txIDs {
		ops = append(ops, port.BatchOp{
			Kind:       port.BatchUpdate,
			Collection: transactionsCollection,
			ID:         id,
			Entity:     entity,
		})
	}
	return s.provider.ExecBatch(ctx, ops)
}

func (s *TransactionStore) DeleteTransaction(ctx context.Context, txID string) error {
	return s.provider.Delete(ctx, transactionsCollection, txID)
}

// DeleteTransactions removes both legs of a transfer as one atomic batch.
func (s *TransactionStore) DeleteTransactions(ctx context.Context, txIDs []string) error {
	ops := make([]port.BatchOp, 0, len(txIDs))
	for _, id := range txIDs {
		ops = append(ops, port.BatchOp{
			Kind:       port.BatchDelete,
			Collection: transactionsCollection,
			ID:         id,
		})
	}
	return s.provider.ExecBatch(ctx, ops)
}

func (s *TransactionStore) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var filters []port.Filter
	if filter.UserID != "" {
		filters = append(filters, port.Filter{Field: "user_id", Op: port.OpEq, Value: filter.UserID})
	}
	if len(filter.AccountIDs) > 0 {
		filters = append(filters, port.Filter{Field: "account_id", Op: port.OpIn, Value: filter.AccountIDs})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		filters = append(filters, port.Filter{Field: "status", Op: port.OpIn, Value: statuses})
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, tp := range filter.Types {
			types[i] = string(tp)
		}
		filters = append(filters, port.Filter{Field: "type", Op: port.OpIn, Value: types})
	}
	if filter.From != nil && filter.To != nil {
		filters = append(filters, port.Filter{Field: "date", Op: port.OpBetween, Value: timeVal(*filter.From), ValueEnd: timeVal(*filter.To)})
	} else if filter.From != nil {
		filters = append(filters, port.Filter{Field: "date", Op: port.OpGte, Value: timeVal(*filter.From)})
	} else if filter.To != nil {
		filters = append(filters, port.Filter{Field: "date", Op: port.OpLte, Value: timeVal(*filter.To)})
	}

	recs, err := s.provider.Query(ctx, transactionsCollection, filters,
		[]port.Sort{{Field: "date", Descending: true}}, port.Page{})
	if err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, len(recs))
	for _, rec := range recs {
		txs = append(txs, *transactionFromRecord(rec))
	}
	return txs, nil
}

// FindDuplicates queries the account's transactions in a one-day window
// around the candidate date, then compares values in decimal space. Amounts
// stay decimal strings in storage, so the value comparison happens here
// rather than in the filter grammar.
func (s *TransactionStore) FindDuplicates(ctx context.Context, accountID string, value domain.Money, date time.Time) ([]domain.Transaction, error) {
	from := date.Add(-24 * time.Hour)
	to := date.Add(24 * time.Hour)
	filters := []port.Filter{
		{Field: "account_id", Op: port.OpEq, Value: accountID},
		{Field: "date", Op: port.OpBetween, Value: timeVal(from), ValueEnd: timeVal(to)},
	}
	recs, err := s.provider.Query(ctx, transactionsCollection, filters, nil, port.Page{})
	if err != nil {
		return nil, err
	}

	target, err := value.Decimal()
	if err != nil {
		return nil, err
	}
	tolerance := decimal.NewFromFloat(0.01)

	var dupes []domain.Transaction
	for _, rec := range recs {
		tx := transactionFromRecord(rec)
		if tx.Value.Currency != value.Currency {
			continue
		}
		d, err := tx.Value.Decimal()
		if err != nil {
			continue
		}
		if d.Sub(target).Abs().LessThanOrEqual(tolerance) {
			dupes = append(dupes, *tx)
		}
	}
	return dupes, nil
}

func transactionToRecord(tx *domain.Transaction) port.Record {
	rec := port.Record{
		"id":             tx.ID,
		"user_id":        tx.UserID,
		"account_id":     tx.AccountID,
		"type":           string(tx.Type),
		"status":         string(tx.Status),
		"value_amount":   tx.Value.Amount,
		"value_currency": tx.Value.Currency,
		"date":           timeVal(tx.Date),
		"description":    tx.Description,
		"created_at":     timeVal(tx.CreatedAt),
		"updated_at":     timeVal(tx.UpdatedAt),
	}
	if tx.CategoryID != "" {
		rec["category_id"] = tx.CategoryID
	}
	if tx.CardID != "" {
		rec["card_id"] = tx.CardID
	}
	if tx.Notes != "" {
		rec["notes"] = tx.Notes
	}
	if len(tx.Tags) > 0 {
		rec["tags"] = tx.Tags
	}
	if len(tx.Splits) > 0 {
		rec["splits"] = tx.Splits
	}
	if tx.LinkedTransactionID != "" {
		rec["linked_transaction_id"] = tx.LinkedTransactionID
	}
	return rec
}

func transactionFromRecord(rec port.Record) *domain.Transaction {
	return &domain.Transaction{
		ID:                  recString(rec, "id"),
		UserID:              recString(rec, "user_id"),
		AccountID:           recString(rec, "account_id"),
		CategoryID:          recString(rec, "category_id"),
		CardID:              recString(rec, "card_id"),
		Type:                domain.TransactionType(recString(rec, "type")),
		Status:              domain.TransactionStatus(recString(rec, "status")),
		Value:               recMoney(rec, "value_amount", "value_currency"),
		Date:                recTime(rec, "date"),
		Description:         recString(rec, "description"),
		Notes:               recString(rec, "notes"),
		Tags:                recStrings(rec, "tags"),
		Splits:              recSplits(rec, "splits"),
		LinkedTransactionID: recString(rec, "linked_transaction_id"),
		CreatedAt:           recTime(rec, "created_at"),
		UpdatedAt:           recTime(rec, "updated_at"),
	}
}
