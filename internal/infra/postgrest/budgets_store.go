package postgrest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

const budgetsCollection = "budgets"

// BudgetStore adapts the generic provider to port.BudgetStore.
type BudgetStore struct {
	provider port.DataProvider
}

// NewBudgetStore wraps a data provider.
func NewBudgetStore(provider port.DataProvider) *BudgetStore {
	return &BudgetStore{provider: provider}
}

var _ port.BudgetStore = (*BudgetStore)(nil)

func (s *BudgetStore) CreateBudget(ctx context.Context, in *domain.CreateBudgetInput) (*domain.Budget, error) {
	now := time.Now()
	rec := port.Record{
		"id":               uuid.New().String(),
		"user_id":          in.UserID,
		"category_id":      in.CategoryID,
		"name":             in.Name,
		"planned_amount":   in.Planned.Amount,
		"planned_currency": in.Planned.Currency,
		"spent_amount":     "0.00",
		"spent_currency":   in.Planned.Currency,
		"period_kind":      string(in.PeriodKind),
		"period_start":     timeVal(in.PeriodStart),
		"alert_enabled":    in.AlertEnabled,
		"active":           true,
		"created_at":       timeVal(now),
		"updated_at":       timeVal(now),
	}
	if in.AlertThresholdPercent != nil {
		rec["alert_threshold_percent"] = *in.AlertThresholdPercent
	}
	stored, err := s.provider.Create(ctx, budgetsCollection, rec)
	if err != nil {
		return nil, err
	}
	return budgetFromRecord(stored), nil
}

func (s *BudgetStore) GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error) {
	rec, err := s.provider.GetByID(ctx, budgetsCollection, budgetID)
	if err != nil {
		return nil, err
	}
	return budgetFromRecord(rec), nil
}

// GetBudgetByCategory returns nil when no budget exists for the category.
func (s *BudgetStore) GetBudgetByCategory(ctx context.Context, categoryID string) (*domain.Budget, error) {
	recs, err := s.provider.Query(ctx, budgetsCollection,
		[]port.Filter{{Field: "category_id", Op: port.OpEq, Value: categoryID}},
		nil, port.Page{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return budgetFromRecord(recs[0]), nil
}

func (s *BudgetStore) ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]domain.Budget, error) {
	filters := []port.Filter{{Field: "user_id", Op: port.OpEq, Value: userID}}
	if activeOnly {
		filters = append(filters, port.Filter{Field: "active", Op: port.OpEq, Value: true})
	}
	recs, err := s.provider.Query(ctx, budgetsCollection, filters,
		[]port.Sort{{Field: "created_at"}}, port.Page{})
	if err != nil {
		return nil, err
	}
	budgets := make([]domain.Budget, 0, len(recs))
	for _, rec := range recs {
		budgets = append(budgets, *budgetFromRecord(rec))
	}
	return budgets, nil
}

func (s *BudgetStore) UpdateBudget(ctx context.Context, budgetID string, fields map[string]any) error {
	fields["updated_at"] = timeVal(time.Now())
	return s.provider.UpdateFields(ctx, budgetsCollection, budgetID, fields)
}

func (s *BudgetStore) DeleteBudget(ctx context.Context, budgetID string) error {
	return s.provider.Delete(ctx, budgetsCollection, budgetID)
}

func budgetFromRecord(rec port.Record) *domain.Budget {
	b := &domain.Budget{
		ID:           recString(rec, "id"),
		UserID:       recString(rec, "user_id"),
		CategoryID:   recString(rec, "category_id"),
		Name:         recString(rec, "name"),
		Planned:      recMoney(rec, "planned_amount", "planned_currency"),
		Spent:        recMoney(rec, "spent_amount", "spent_currency"),
		PeriodKind:   domain.PeriodKind(recString(rec, "period_kind")),
		PeriodStart:  recTime(rec, "period_start"),
		AlertEnabled: recBool(rec, "alert_enabled"),
		Active:       recBool(rec, "active"),
		CreatedAt:    recTime(rec, "created_at"),
		UpdatedAt:    recTime(rec, "updated_at"),
	}
	if _, ok := rec["alert_threshold_percent"]; ok {
		threshold := recFloat(rec, "alert_threshold_percent")
		b.AlertThresholdPercent = &threshold
	}
	return b
}
