package service

import (
	"context"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var budgetTracer = otel.Tracer("service/budgets")

// BudgetService tracks planned vs. spent money per category. Spent figures
// are derived from the confirmed expense transactions of the current period
// window, so a budget read is always consistent with the ledger.
type BudgetService struct {
	budgets    port.BudgetStore
	categories *CategoryService
	txs        port.TransactionStore
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewBudgetService creates a new budget service.
func NewBudgetService(budgets port.BudgetStore, categories *CategoryService, txs port.TransactionStore, metrics *observability.Metrics, logger *zap.Logger) *BudgetService {
	return &BudgetService{
		budgets:    budgets,
		categories: categories,
		txs:        txs,
		metrics:    metrics,
		logger:     logger,
	}
}

// ============================================================
// Budgets — create, get, list, update, delete
// ============================================================

func (s *BudgetService) CreateBudget(ctx context.Context, in *domain.CreateBudgetInput) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.CreateBudget")
	defer span.End()
	span.SetAttributes(attribute.String("category.id", in.CategoryID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_budget", time.Since(start)) }()

	if err := validateCreateBudget(in); err != nil {
		return nil, err
	}

	if _, err := s.categories.GetCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	// One budget per category: a second one would make "spent" ambiguous.
	existing, err := s.budgets.GetBudgetByCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "category already has a budget"}
	}

	created, err := s.budgets.CreateBudget(ctx, in)
	if err != nil {
		s.logger.Error("failed to create budget",
			zap.String("category_id", in.CategoryID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("budget created",
		zap.String("budget_id", created.ID),
		zap.String("category_id", created.CategoryID),
		zap.String("planned", created.Planned.Amount),
		zap.String("period_kind", string(created.PeriodKind)),
	)

	return created, nil
}

// GetBudget returns the budget with its spent figure refreshed from the
// ledger and its period window rolled forward if it elapsed.
func (s *BudgetService) GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.GetBudget")
	defer span.End()

	budget, err := s.budgets.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, budget)
}

func (s *BudgetService) ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.ListBudgets")
	defer span.End()

	budgets, err := s.budgets.ListBudgets(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Budget, 0, len(budgets))
	for i := range budgets {
		refreshed, err := s.refresh(ctx, &budgets[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *refreshed)
	}
	return out, nil
}

// ListBudgetsInAlert returns the active budgets whose spending crossed their
// alert threshold.
func (s *BudgetService) ListBudgetsInAlert(ctx context.Context, userID string) ([]domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.ListBudgetsInAlert")
	defer span.End()

	budgets, err := s.ListBudgets(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	var alerts []domain.Budget
	for i := range budgets {
		if budgets[i].IsInAlert() {
			alerts = append(alerts, budgets[i])
		}
	}
	return alerts, nil
}

func (s *BudgetService) UpdateBudget(ctx context.Context, budgetID string, in *domain.UpdateBudgetInput) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.UpdateBudget")
	defer span.End()

	if _, err := s.budgets.GetBudget(ctx, budgetID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Name != nil {
		if !domain.IsNotEmpty(*in.Name) {
			return nil, &domain.ErrInvalidInput{Field: "name", Message: "required"}
		}
		fields["name"] = *in.Name
	}
	if in.Planned != nil {
		if err := domain.ValidateMoney(in.Planned.Amount, false); err != nil {
			return nil, err
		}
		if !in.Planned.IsPositive() {
			return nil, &domain.ErrInvalidInput{Field: "planned", Message: "must be positive"}
		}
		fields["planned_amount"] = in.Planned.Amount
		fields["planned_currency"] = in.Planned.Currency
	}
	if in.AlertEnabled != nil {
		fields["alert_enabled"] = *in.AlertEnabled
	}
	if in.AlertThresholdPercent != nil {
		if !domain.InRange(*in.AlertThresholdPercent, 1, 100) {
			return nil, &domain.ErrInvalidInput{Field: "alert_threshold_percent", Message: "must be between 1 and 100"}
		}
		fields["alert_threshold_percent"] = *in.AlertThresholdPercent
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}

	if len(fields) > 0 {
		if err := s.budgets.UpdateBudget(ctx, budgetID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetBudget(ctx, budgetID)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, budgetID string) error {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.DeleteBudget")
	defer span.End()

	if _, err := s.budgets.GetBudget(ctx, budgetID); err != nil {
		return err
	}
	return s.budgets.DeleteBudget(ctx, budgetID)
}

// ============================================================
// Private helpers — period rollover and spent recomputation
// ============================================================

// refresh rolls the period window forward past any elapsed windows, then
// recomputes the spent figure from the ledger for the current window. Both
// results are persisted so stale reads converge.
func (s *BudgetService) refresh(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	now := time.Now()

	window, err := currentWindow(budget.PeriodStart, budget.PeriodKind)
	if err != nil {
		return nil, err
	}
	rolled := false
	for now.After(window.End) {
		next, err := domain.NextPeriod(window.Start, budget.PeriodKind)
		if err != nil {
			return nil, err
		}
		window = next
		rolled = true
	}
	if rolled {
		if err := s.budgets.UpdateBudget(ctx, budget.ID, map[string]any{
			"period_start": window.Start.Format(time.RFC3339),
		}); err != nil {
			return nil, err
		}
		budget.PeriodStart = window.Start
		s.logger.Info("budget period rolled over",
			zap.String("budget_id", budget.ID),
			zap.Time("period_start", window.Start))
	}

	spent, err := s.computeSpent(ctx, budget, window)
	if err != nil {
		return nil, err
	}
	if spent.Amount != budget.Spent.Amount || spent.Currency != budget.Spent.Currency {
		if err := s.budgets.UpdateBudget(ctx, budget.ID, map[string]any{
			"spent_amount":   spent.Amount,
			"spent_currency": spent.Currency,
		}); err != nil {
			return nil, err
		}
		budget.Spent = spent
	}

	return budget, nil
}

// computeSpent sums the confirmed and reconciled expenses of the budget's
// category inside the window. A split transaction contributes only the split
// values allocated to the category.
func (s *BudgetService) computeSpent(ctx context.Context, budget *domain.Budget, window domain.Period) (domain.Money, error) {
	txs, err := s.txs.ListTransactions(ctx, domain.TransactionFilter{
		UserID:   budget.UserID,
		Statuses: []domain.TransactionStatus{domain.StatusConfirmed, domain.StatusReconciled},
		Types:    []domain.TransactionType{domain.TransactionExpense},
		From:     &window.Start,
		To:       &window.End,
	})
	if err != nil {
		return domain.Money{}, err
	}

	sum := decimal.Zero
	for i := range txs {
		tx := &txs[i]
		if len(tx.Splits) > 0 {
			for _, split := range tx.Splits {
				if split.CategoryID != budget.CategoryID {
					continue
				}
				d, err := split.Value.Decimal()
				if err != nil {
					return domain.Money{}, err
				}
				sum = sum.Add(d)
			}
			continue
		}
		if tx.CategoryID != budget.CategoryID {
			continue
		}
		d, err := tx.Value.Decimal()
		if err != nil {
			return domain.Money{}, err
		}
		sum = sum.Add(d)
	}

	return domain.MoneyFromDecimal(sum, budget.Planned.Currency), nil
}

// currentWindow derives the end of the window that starts at start.
func currentWindow(start time.Time, kind domain.PeriodKind) (domain.Period, error) {
	switch kind {
	case domain.PeriodWeekly:
		return domain.Period{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case domain.PeriodMonthly:
		return domain.Period{Start: start, End: start.AddDate(0, 1, 0).AddDate(0, 0, -1)}, nil
	case domain.PeriodQuarterly:
		return domain.Period{Start: start, End: start.AddDate(0, 3, 0).AddDate(0, 0, -1)}, nil
	case domain.PeriodSemiannual:
		return domain.Period{Start: start, End: start.AddDate(0, 6, 0).AddDate(0, 0, -1)}, nil
	case domain.PeriodAnnual:
		return domain.Period{Start: start, End: start.AddDate(0, 12, 0).AddDate(0, 0, -1)}, nil
	default:
		return domain.Period{}, &domain.ErrInvalidPeriod{Period: string(kind)}
	}
}

func validateCreateBudget(in *domain.CreateBudgetInput) error {
	if !domain.IsValidUUID(in.CategoryID) {
		return &domain.ErrInvalidInput{Field: "category_id", Message: "must be a valid uuid"}
	}
	if !domain.IsNotEmpty(in.Name) {
		return &domain.ErrInvalidInput{Field: "name", Message: "required"}
	}
	if err := domain.ValidateMoney(in.Planned.Amount, false); err != nil {
		return err
	}
	if !in.Planned.IsPositive() {
		return &domain.ErrInvalidInput{Field: "planned", Message: "must be positive"}
	}
	if !domain.IsValidDate(in.PeriodStart) {
		return &domain.ErrInvalidInput{Field: "period_start", Message: "required"}
	}
	if _, err := currentWindow(in.PeriodStart, in.PeriodKind); err != nil {
		return err
	}
	if in.AlertThresholdPercent != nil && !domain.InRange(*in.AlertThresholdPercent, 1, 100) {
		return &domain.ErrInvalidInput{Field: "alert_threshold_percent", Message: "must be between 1 and 100"}
	}
	return nil
}
