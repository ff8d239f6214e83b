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
// Budgets
// ============================================================

func createBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budgets")
		defer span.End()

		var in domain.CreateBudgetInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in.UserID = UserIDFromContext(ctx)

		budget, err := svc.CreateBudget(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, budget)
	}
}

func listBudgetsHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets")
		defer span.End()

		budgets, err := svc.ListBudgets(ctx, UserIDFromContext(ctx), queryBool(r, "active_only"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budgets)
	}
}

func listBudgetAlertsHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets/alerts")
		defer span.End()

		budgets, err := svc.ListBudgetsInAlert(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budgets)
	}
}

func getBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets/{budgetID}")
		defer span.End()

		budgetID := chi.URLParam(r, "budgetID")
		span.SetAttributes(attribute.String("budget.id", budgetID))

		budget, err := svc.GetBudget(ctx, budgetID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budget)
	}
}

func updateBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/budgets/{budgetID}")
		defer span.End()

		var in domain.UpdateBudgetInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		budget, err := svc.UpdateBudget(ctx, chi.URLParam(r, "budgetID"), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budget)
	}
}

func deleteBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/budgets/{budgetID}")
		defer span.End()

		if err := svc.DeleteBudget(ctx, chi.URLParam(r, "budgetID")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
