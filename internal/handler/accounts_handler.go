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
// Accounts
// ============================================================

func createAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts")
		defer span.End()

		var in domain.CreateAccountInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in.UserID = UserIDFromContext(ctx)

		account, err := svc.CreateAccount(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	}
}

func listAccountsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()

		accounts, err := svc.ListAccounts(ctx, UserIDFromContext(ctx), queryBool(r, "active_only"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

func getAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountID}")
		defer span.End()

		accountID := chi.URLParam(r, "accountID")
		span.SetAttributes(attribute.String("account.id", accountID))

		account, err := svc.GetAccount(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func recomputeBalanceHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountID}/recompute")
		defer span.End()

		accountID := chi.URLParam(r, "accountID")
		span.SetAttributes(attribute.String("account.id", accountID))

		balance, err := svc.RecomputeBalance(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]domain.Money{"balance": balance})
	}
}

func deactivateAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/accounts/{accountID}")
		defer span.End()

		if err := svc.DeactivateAccount(ctx, chi.URLParam(r, "accountID")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
