package handler

import (
	"encoding/json"
	"net/http"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Loans & installments
// ============================================================

func createLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans")
		defer span.End()

		var in domain.CreateLoanInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in.UserID = UserIDFromContext(ctx)

		loan, err := svc.CreateLoan(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, loan)
	}
}

func simulateLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans/simulate")
		defer span.End()

		var in domain.CreateLoanInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		schedule, err := svc.SimulateLoan(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, schedule)
	}
}

func listLoansHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans")
		defer span.End()

		loans, err := svc.ListLoans(ctx, UserIDFromContext(ctx), queryBool(r, "active_only"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loans)
	}
}

func getLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/{loanID}")
		defer span.End()

		loanID := chi.URLParam(r, "loanID")
		span.SetAttributes(attribute.String("loan.id", loanID))

		loan, err := svc.GetLoan(ctx, loanID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loan)
	}
}

func updateLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/loans/{loanID}")
		defer span.End()

		var in domain.UpdateLoanInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		loan, err := svc.UpdateLoan(ctx, chi.URLParam(r, "loanID"), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loan)
	}
}

func closeLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans/{loanID}/close")
		defer span.End()

		if err := svc.CloseLoan(ctx, chi.URLParam(r, "loanID")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/loans/{loanID}")
		defer span.End()

		if err := svc.RemoveLoan(ctx, chi.URLParam(r, "loanID")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func payInstallmentHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/installments/{installmentID}/pay")
		defer span.End()

		var in domain.PayInstallmentInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in.InstallmentID = chi.URLParam(r, "installmentID")
		span.SetAttributes(attribute.String("installment.id", in.InstallmentID))

		result, err := svc.PayInstallment(ctx, UserIDFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func listOverdueInstallmentsHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/installments/overdue")
		defer span.End()

		installments, err := svc.ListOverdueInstallments(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, installments)
	}
}

func listUpcomingInstallmentsHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/installments/upcoming")
		defer span.End()

		installments, err := svc.ListUpcomingInstallments(ctx, UserIDFromContext(ctx), queryInt(r, "days", 30))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, installments)
	}
}
