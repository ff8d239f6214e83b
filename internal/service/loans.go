package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var loanTracer = otel.Tracer("service/loans")

// LoanService manages loan contracts and their amortization schedules. The
// schedule is generated once at creation and persisted with the loan in one
// atomic batch; paying an installment settles it through the ledger so the
// payment shows up as a regular expense on the paying account.
type LoanService struct {
	loans   port.LoanStore
	ledger  *LedgerService
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLoanService creates a new loan service.
func NewLoanService(loans port.LoanStore, ledger *LedgerService, metrics *observability.Metrics, logger *zap.Logger) *LoanService {
	return &LoanService{loans: loans, ledger: ledger, metrics: metrics, logger: logger}
}

// ============================================================
// Loans — create, simulate, get, list, update, close, remove
// ============================================================

func (s *LoanService) CreateLoan(ctx context.Context, in *domain.CreateLoanInput) (*domain.Loan, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.CreateLoan")
	defer span.End()
	span.SetAttributes(
		attribute.String("loan.method", string(in.Method)),
		attribute.Int("loan.term_months", in.TermMonths),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_loan", time.Since(start)) }()

	if !domain.IsNotEmpty(in.Name) {
		return nil, &domain.ErrInvalidInput{Field: "name", Message: "required"}
	}
	if !domain.IsValidDate(in.StartDate) {
		return nil, &domain.ErrInvalidInput{Field: "start_date", Message: "required"}
	}

	schedule, err := domain.GenerateSchedule(in.Principal, in.AnnualRate, in.TermMonths, in.StartDate, in.Method)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	loan := &domain.Loan{
		ID:                 uuid.New().String(),
		UserID:             in.UserID,
		Name:               in.Name,
		Principal:          in.Principal,
		AnnualRate:         in.AnnualRate,
		Method:             in.Method,
		StartDate:          in.StartDate,
		TermMonths:         in.TermMonths,
		Total:              schedule.Total,
		OutstandingBalance: in.Principal,
		Notes:              in.Notes,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	installments := make([]domain.Installment, 0, len(schedule.Entries))
	for _, entry := range schedule.Entries {
		installments = append(installments, domain.Installment{
			ID:               uuid.New().String(),
			LoanID:           loan.ID,
			Number:           entry.Number,
			DueDate:          entry.DueDate,
			Value:            entry.Value,
			PrincipalPortion: entry.PrincipalPortion,
			InterestPortion:  entry.InterestPortion,
			BalanceAfter:     entry.BalanceAfter,
			Status:           domain.InstallmentOpen,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	created, err := s.loans.CreateLoan(ctx, loan, installments)
	if err != nil {
		s.logger.Error("failed to create loan",
			zap.String("user_id", in.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("loan contracted",
		zap.String("loan_id", created.ID),
		zap.String("method", string(created.Method)),
		zap.String("principal", created.Principal.Amount),
		zap.Int("term_months", created.TermMonths),
	)

	return created, nil
}

// SimulateLoan runs the amortization engine without persisting anything.
func (s *LoanService) SimulateLoan(ctx context.Context, in *domain.CreateLoanInput) (*domain.Schedule, error) {
	_, span := loanTracer.Start(ctx, "LoanService.SimulateLoan")
	defer span.End()

	return domain.GenerateSchedule(in.Principal, in.AnnualRate, in.TermMonths, in.StartDate, in.Method)
}

func (s *LoanService) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.GetLoan")
	defer span.End()

	return s.loans.GetLoan(ctx, loanID)
}

func (s *LoanService) ListLoans(ctx context.Context, userID string, activeOnly bool) ([]domain.Loan, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.ListLoans")
	defer span.End()

	return s.loans.ListLoans(ctx, userID, activeOnly)
}

func (s *LoanService) UpdateLoan(ctx context.Context, loanID string, in *domain.UpdateLoanInput) (*domain.Loan, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.UpdateLoan")
	defer span.End()

	if _, err := s.loans.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Name != nil {
		if !domain.IsNotEmpty(*in.Name) {
			return nil, &domain.ErrInvalidInput{Field: "name", Message: "required"}
		}
		fields["name"] = *in.Name
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) > 0 {
		if err := s.loans.UpdateLoan(ctx, loanID, fields); err != nil {
			return nil, err
		}
	}
	return s.loans.GetLoan(ctx, loanID)
}

// CloseLoan deactivates the contract without touching its history.
func (s *LoanService) CloseLoan(ctx context.Context, loanID string) error {
	ctx, span := loanTracer.Start(ctx, "LoanService.CloseLoan")
	defer span.End()

	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return err
	}
	if !loan.Active {
		return &domain.ErrAlreadyInState{Resource: "loan", State: "closed"}
	}
	return s.loans.UpdateLoan(ctx, loanID, map[string]any{"active": false})
}

// RemoveLoan deletes a loan outright. A loan that still carries installments
// is refused: closing it is the supported path, removal is only for contracts
// created by mistake before any schedule row existed.
func (s *LoanService) RemoveLoan(ctx context.Context, loanID string) error {
	ctx, span := loanTracer.Start(ctx, "LoanService.RemoveLoan")
	defer span.End()

	if _, err := s.loans.GetLoan(ctx, loanID); err != nil {
		return err
	}
	count, err := s.loans.CountInstallments(ctx, loanID)
	if err != nil {
		return err
	}
	if count > 0 {
		return &domain.ErrConflict{Message: "loan still has installments; close it instead of removing it"}
	}
	return s.loans.DeleteLoan(ctx, loanID)
}

// ============================================================
// Installments — pay, overdue, upcoming
// ============================================================

// PayInstallment settles one installment: a confirmed expense is recorded on
// the paying account through the ledger, the installment is marked paid with
// a reference to that transaction, and the loan's outstanding balance drops
// by the installment's principal portion.
func (s *LoanService) PayInstallment(ctx context.Context, userID string, in *domain.PayInstallmentInput) (*domain.PayInstallmentResult, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.PayInstallment")
	defer span.End()
	span.SetAttributes(attribute.String("installment.id", in.InstallmentID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("pay_installment", time.Since(start)) }()

	installment, err := s.loans.GetInstallment(ctx, in.InstallmentID)
	if err != nil {
		return nil, err
	}
	if installment.Status == domain.InstallmentPaid {
		return nil, &domain.ErrAlreadyInState{Resource: "installment", State: string(domain.InstallmentPaid)}
	}
	if installment.Status == domain.InstallmentCanceled {
		return nil, &domain.ErrAlreadyInState{Resource: "installment", State: string(domain.InstallmentCanceled)}
	}

	loan, err := s.loans.GetLoan(ctx, installment.LoanID)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateMoney(in.PaidAmount.Amount, false); err != nil {
		return nil, err
	}
	if !in.PaidAmount.IsPositive() {
		return nil, &domain.ErrInvalidInput{Field: "paid_amount", Message: "must be positive"}
	}
	paymentDate := in.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	tx, err := s.ledger.CreateTransaction(ctx, &domain.CreateTransactionInput{
		UserID:      userID,
		AccountID:   in.AccountID,
		Type:        domain.TransactionExpense,
		Status:      domain.StatusConfirmed,
		Value:       in.PaidAmount,
		Date:        paymentDate,
		Description: fmt.Sprintf("Pagamento parcela %d/%d - %s", installment.Number, loan.TermMonths, loan.Name),
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"status":           string(domain.InstallmentPaid),
		"payment_date":     paymentDate.Format(time.RFC3339),
		"paid_amount":      in.PaidAmount.Amount,
		"paid_currency":    in.PaidAmount.Currency,
		"settlement_tx_id": tx.ID,
	}
	if err := s.loans.UpdateInstallment(ctx, in.InstallmentID, fields); err != nil {
		s.logger.Error("installment payment recorded in ledger but not marked paid",
			zap.String("installment_id", in.InstallmentID),
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		return nil, err
	}

	if err := s.settleOutstanding(ctx, loan, installment); err != nil {
		return nil, err
	}

	paid, err := s.loans.GetInstallment(ctx, in.InstallmentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("installment paid",
		zap.String("loan_id", loan.ID),
		zap.Int("number", installment.Number),
		zap.String("paid_amount", in.PaidAmount.Amount),
		zap.String("transaction_id", tx.ID),
	)

	return &domain.PayInstallmentResult{Installment: paid, TransactionID: tx.ID}, nil
}

func (s *LoanService) ListOverdueInstallments(ctx context.Context, userID string) ([]domain.Installment, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.ListOverdueInstallments")
	defer span.End()

	return s.loans.ListOverdueInstallments(ctx, userID, time.Now())
}

func (s *LoanService) ListUpcomingInstallments(ctx context.Context, userID string, days int) ([]domain.Installment, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.ListUpcomingInstallments")
	defer span.End()

	if days <= 0 {
		days = 30
	}
	return s.loans.ListUpcomingInstallments(ctx, userID, time.Now(), days)
}

// MarkOverdueInstallments sweeps open installments past their due date into
// the overdue status. Intended to run periodically.
func (s *LoanService) MarkOverdueInstallments(ctx context.Context, userID string) (int, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.MarkOverdueInstallments")
	defer span.End()

	overdue, err := s.loans.ListOverdueInstallments(ctx, userID, time.Now())
	if err != nil {
		return 0, err
	}
	marked := 0
	for i := range overdue {
		if overdue[i].Status != domain.InstallmentOpen {
			continue
		}
		if err := s.loans.UpdateInstallment(ctx, overdue[i].ID, map[string]any{
			"status": string(domain.InstallmentOverdue),
		}); err != nil {
			s.logger.Error("failed to mark installment overdue",
				zap.String("installment_id", overdue[i].ID), zap.Error(err))
			continue
		}
		marked++
	}
	return marked, nil
}

// ============================================================
// Private helpers
// ============================================================

// settleOutstanding drops the loan's outstanding balance by the paid
// installment's principal portion, floored at zero, and deactivates the loan
// once nothing is left open.
func (s *LoanService) settleOutstanding(ctx context.Context, loan *domain.Loan, installment *domain.Installment) error {
	outstanding, err := loan.OutstandingBalance.Sub(installment.PrincipalPortion)
	if err != nil {
		return err
	}
	if outstanding.IsNegative() {
		outstanding = domain.ZeroMoney(outstanding.Currency)
	}

	fields := map[string]any{
		"outstanding_amount":   outstanding.Amount,
		"outstanding_currency": outstanding.Currency,
	}

	installments, err := s.loans.ListInstallments(ctx, loan.ID)
	if err != nil {
		return err
	}
	settled := true
	for i := range installments {
		if installments[i].ID == installment.ID {
			continue
		}
		if installments[i].Status == domain.InstallmentOpen || installments[i].Status == domain.InstallmentOverdue {
			settled = false
			break
		}
	}
	if settled {
		fields["active"] = false
	}

	return s.loans.UpdateLoan(ctx, loan.ID, fields)
}
