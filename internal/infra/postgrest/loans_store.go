package postgrest

import (
	"context"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

const (
	loansCollection        = "loans"
	installmentsCollection = "installments"
)

// LoanStore adapts the generic provider to port.LoanStore.
type LoanStore struct {
	provider port.DataProvider
}

// NewLoanStore wraps a data provider.
func NewLoanStore(provider port.DataProvider) *LoanStore {
	return &LoanStore{provider: provider}
}

var _ port.LoanStore = (*LoanStore)(nil)

// CreateLoan persists the loan and its full installment schedule as one
// atomic batch.
func (s *LoanStore) CreateLoan(ctx context.Context, loan *domain.Loan, installments []domain.Installment) (*domain.Loan, error) {
	ops := make([]port.BatchOp, 0, len(installments)+1)
	ops = append(ops, port.BatchOp{
		Kind:       port.BatchInsert,
		Collection: loansCollection,
		ID:         loan.ID,
		Entity:     loanToRecord(loan),
	})
	for i := range installments {
		ops = append(ops, port.BatchOp{
			Kind:       port.BatchInsert,
			Collection: installmentsCollection,
			ID:         installments[i].ID,
			Entity:     installmentToRecord(&installments[i]),
		})
	}
	if err := s.provider.ExecBatch(ctx, ops); err != nil {
		return nil, err
	}
	loan.Installments = installments
	return loan, nil
}

func (s *LoanStore) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	rec, err := s.provider.GetByID(ctx, loansCollection, loanID)
	if err != nil {
		return nil, err
	}
	loan := loanFromRecord(rec)
	installments, err := s.ListInstallments(ctx, loanID)
	if err != nil {
		return nil, err
	}
	loan.Installments = installments
	return loan, nil
}

func (s *LoanStore) ListLoans(ctx context.Context, userID string, activeOnly bool) ([]domain.Loan, error) {
	filters := []port.Filter{{Field: "user_id", Op: port.OpEq, Value: userID}}
	if activeOnly {
		filters = append(filters, port.Filter{Field: "active", Op: port.OpEq, Value: true})
	}
	recs, err := s.provider.Query(ctx, loansCollection, filters,
		[]port.Sort{{Field: "created_at"}}, port.Page{})
	if err != nil {
		return nil, err
	}
	loans := make([]domain.Loan, 0, len(recs))
	for _, rec := range recs {
		loans = append(loans, *loanFromRecord(rec))
	}
	return loans, nil
}

func (s *LoanStore) UpdateLoan(ctx context.Context, loanID string, fields map[string]any) error {
	fields["updated_at"] = timeVal(time.Now())
	return s.provider.UpdateFields(ctx, loansCollection, loanID, fields)
}

func (s *LoanStore) DeleteLoan(ctx context.Context, loanID string) error {
	return s.provider.Delete(ctx, loansCollection, loanID)
}

func (s *LoanStore) GetInstallment(ctx context.Context, installmentID string) (*domain.Installment, error) {
	rec, err := s.provider.GetByID(ctx, installmentsCollection, installmentID)
	if err != nil {
		return nil, err
	}
	return installmentFromRecord(rec), nil
}

func (s *LoanStore) ListInstallments(ctx context.Context, loanID string) ([]domain.Installment, error) {
	recs, err := s.provider.Query(ctx, installmentsCollection,
		[]port.Filter{{Field: "loan_id", Op: port.OpEq, Value: loanID}},
		[]port.Sort{{Field: "number"}}, port.Page{})
	if err != nil {
		return nil, err
	}
	installments := make([]domain.Installment, 0, len(recs))
	for _, rec := range recs {
		installments = append(installments, *installmentFromRecord(rec))
	}
	return installments, nil
}

func (s *LoanStore) UpdateInstallment(ctx context.Context, installmentID string, fields map[string]any) error {
	fields["updated_at"] = timeVal(time.Now())
	return s.provider.UpdateFields(ctx, installmentsCollection, installmentID, fields)
}

func (s *LoanStore) CountInstallments(ctx context.Context, loanID string) (int, error) {
	return s.provider.Count(ctx, installmentsCollection,
		[]port.Filter{{Field: "loan_id", Op: port.OpEq, Value: loanID}})
}

// ListOverdueInstallments returns open installments whose due date passed.
func (s *LoanStore) ListOverdueInstallments(ctx context.Context, userID string, asOf time.Time) ([]domain.Installment, error) {
	loans, err := s.ListLoans(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	var overdue []domain.Installment
	for _, loan := range loans {
		recs, err := s.provider.Query(ctx, installmentsCollection,
			[]port.Filter{
				{Field: "loan_id", Op: port.OpEq, Value: loan.ID},
				{Field: "status", Op: port.OpEq, Value: string(domain.InstallmentOpen)},
				{Field: "due_date", Op: port.OpLt, Value: timeVal(asOf)},
			},
			[]port.Sort{{Field: "due_date"}}, port.Page{})
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			overdue = append(overdue, *installmentFromRecord(rec))
		}
	}
	return overdue, nil
}

// ListUpcomingInstallments returns open installments due within the next
// `days` days.
func (s *LoanStore) ListUpcomingInstallments(ctx context.Context, userID string, from time.Time, days int) ([]domain.Installment, error) {
	loans, err := s.ListLoans(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	to := from.AddDate(0, 0, days)
	var upcoming []domain.Installment
	for _, loan := range loans {
		recs, err := s.provider.Query(ctx, installmentsCollection,
			[]port.Filter{
				{Field: "loan_id", Op: port.OpEq, Value: loan.ID},
				{Field: "status", Op: port.OpEq, Value: string(domain.InstallmentOpen)},
				{Field: "due_date", Op: port.OpBetween, Value: timeVal(from), ValueEnd: timeVal(to)},
			},
			[]port.Sort{{Field: "due_date"}}, port.Page{})
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			upcoming = append(upcoming, *installmentFromRecord(rec))
		}
	}
	return upcoming, nil
}

func loanToRecord(loan *domain.Loan) port.Record {
	return port.Record{
		"id":                   loan.ID,
		"user_id":              loan.UserID,
		"name":                 loan.Name,
		"principal_amount":     loan.Principal.Amount,
		"principal_currency":   loan.Principal.Currency,
		"annual_rate":          loan.AnnualRate,
		"method":               string(loan.Method),
		"start_date":           timeVal(loan.StartDate),
		"term_months":          loan.TermMonths,
		"total_amount":         loan.Total.Amount,
		"total_currency":       loan.Total.Currency,
		"outstanding_amount":   loan.OutstandingBalance.Amount,
		"outstanding_currency": loan.OutstandingBalance.Currency,
		"notes":                loan.Notes,
		"active":               loan.Active,
		"created_at":           timeVal(loan.CreatedAt),
		"updated_at":           timeVal(loan.UpdatedAt),
	}
}

func loanFromRecord(rec port.Record) *domain.Loan {
	return &domain.Loan{
		ID:                 recString(rec, "id"),
		UserID:             recString(rec, "user_id"),
		Name:               recString(rec, "name"),
		Principal:          recMoney(rec, "principal_amount", "principal_currency"),
		AnnualRate:         recFloat(rec, "annual_rate"),
		Method:             domain.Method(recString(rec, "method")),
		StartDate:          recTime(rec, "start_date"),
		TermMonths:         recInt(rec, "term_months"),
		Total:              recMoney(rec, "total_amount", "total_currency"),
		OutstandingBalance: recMoney(rec, "outstanding_amount", "outstanding_currency"),
		Notes:              recString(rec, "notes"),
		Active:             recBool(rec, "active"),
		CreatedAt:          recTime(rec, "created_at"),
		UpdatedAt:          recTime(rec, "updated_at"),
	}
}

func installmentToRecord(inst *domain.Installment) port.Record {
	rec := port.Record{
		"id":                 inst.ID,
		"loan_id":            inst.LoanID,
		"number":             inst.Number,
		"due_date":           timeVal(inst.DueDate),
		"value_amount":       inst.Value.Amount,
		"value_currency":     inst.Value.Currency,
		"principal_amount":   inst.PrincipalPortion.Amount,
		"principal_currency": inst.PrincipalPortion.Currency,
		"interest_amount":    inst.InterestPortion.Amount,
		"interest_currency":  inst.InterestPortion.Currency,
		"balance_amount":     inst.BalanceAfter.Amount,
		"balance_currency":   inst.BalanceAfter.Currency,
		"status":             string(inst.Status),
		"created_at":         timeVal(inst.CreatedAt),
		"updated_at":         timeVal(inst.UpdatedAt),
	}
	if inst.PaymentDate != nil {
		rec["payment_date"] = timeVal(*inst.PaymentDate)
	}
	if inst.PaidAmount != nil {
		rec["paid_amount"] = inst.PaidAmount.Amount
		rec["paid_currency"] = inst.PaidAmount.Currency
	}
	if inst.SettlementTxID != "" {
		rec["settlement_tx_id"] = inst.SettlementTxID
	}
	return rec
}

func installmentFromRecord(rec port.Record) *domain.Installment {
	inst := &domain.Installment{
		ID:               recString(rec, "id"),
		LoanID:           recString(rec, "loan_id"),
		Number:           recInt(rec, "number"),
		DueDate:          recTime(rec, "due_date"),
		Value:            recMoney(rec, "value_amount", "value_currency"),
		PrincipalPortion: recMoney(rec, "principal_amount", "principal_currency"),
		InterestPortion:  recMoney(rec, "interest_amount", "interest_currency"),
		BalanceAfter:     recMoney(rec, "balance_amount", "balance_currency"),
		Status:           domain.InstallmentStatus(recString(rec, "status")),
		PaymentDate:      recTimePtr(rec, "payment_date"),
		SettlementTxID:   recString(rec, "settlement_tx_id"),
		CreatedAt:        recTime(rec, "created_at"),
		UpdatedAt:        recTime(rec, "updated_at"),
	}
	if recString(rec, "paid_amount") != "" {
		paid := recMoney(rec, "paid_amount", "paid_currency")
		inst.PaidAmount = &paid
	}
	return inst
}
