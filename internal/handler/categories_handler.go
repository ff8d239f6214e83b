package handler

import (
	"net/http"

	"github.com/zegrana/finance-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Categories
// ============================================================

func listCategoriesHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories")
		defer span.End()

		categories, err := svc.ListCategories(ctx, UserIDFromContext(ctx), queryBool(r, "active_only"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	}
}

func getCategoryHandler(svc *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories/{categoryID}")
		defer span.End()

		category, err := svc.GetCategory(ctx, chi.URLParam(r, "categoryID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, category)
	}
}
