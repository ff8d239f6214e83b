package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions & transfers
// ============================================================

func createTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var in domain.CreateTransactionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in.UserID = UserIDFromContext(ctx)

		tx, err := svc.CreateTransaction(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func listTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		filter := domain.TransactionFilter{
			UserID: UserIDFromContext(ctx),
			From:   queryDate(r, "from"),
			To:     queryDate(r, "to"),
		}
		if v := r.URL.Query().Get("account_id"); v != "" {
			filter.AccountIDs = strings.Split(v, ",")
		}
		if v := r.URL.Query().Get("status"); v != "" {
			for _, st := range strings.Split(v, ",") {
				filter.Statuses = append(filter.Statuses, domain.TransactionStatus(st))
			}
		}
		if v := r.URL.Query().Get("type"); v != "" {
			for _, tp := range strings.Split(v, ",") {
				filter.Types = append(filter.Types, domain.TransactionType(tp))
			}
		}

		txs, err := svc.ListTransactions(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func getTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{txID}")
		defer span.End()

		txID := chi.URLParam(r, "txID")
		span.SetAttributes(attribute.String("transaction.id", txID))

		tx, err := svc.GetTransaction(ctx, txID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func updateTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/transactions/{txID}")
		defer span.End()

		var in domain.UpdateTransactionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tx, err := svc.UpdateTransaction(ctx, chi.URLParam(r, "txID"), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func cancelTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{txID}/cancel")
		defer span.End()

		tx, err := svc.CancelTransaction(ctx, chi.URLParam(r, "txID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func removeTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{txID}")
		defer span.End()

		if err := svc.RemoveTransaction(ctx, chi.URLParam(r, "txID")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createTransferHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transfers")
		defer span.End()

		var in domain.CreateTransferInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in.UserID = UserIDFromContext(ctx)

		result, err := svc.CreateTransfer(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}
