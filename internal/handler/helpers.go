package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func queryBool(r *http.Request, key string) bool {
	return r.URL.Query().Get(key) == "true"
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// queryDate parses a date query param, accepting both date-only and RFC3339.
func queryDate(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var invalidInput *domain.ErrInvalidInput
	var invalidMoney *domain.ErrInvalidMoneyFormat
	var negative *domain.ErrNegativeNotAllowed
	var currencyMismatch *domain.ErrCurrencyMismatch
	var splitMismatch *domain.ErrSplitSumMismatch
	var invalidMethod *domain.ErrInvalidAmortizationMethod
	var invalidPeriod *domain.ErrInvalidPeriod
	var alreadyInState *domain.ErrAlreadyInState
	var conflict *domain.ErrConflict
	var unauthorized *domain.ErrUnauthorized
	var unsupported *domain.ErrUnsupportedOperation
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalidInput),
		errors.As(err, &invalidMoney),
		errors.As(err, &negative),
		errors.As(err, &currencyMismatch),
		errors.As(err, &splitMismatch),
		errors.As(err, &invalidMethod),
		errors.As(err, &invalidPeriod):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &alreadyInState), errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &unsupported):
		logger.Warn("unsupported operation", zap.String("error", err.Error()))
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
