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
// Cards
// ============================================================

func createCardHandler(svc *service.CardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cards")
		defer span.End()

		var in domain.CreateCardInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in.UserID = UserIDFromContext(ctx)

		card, err := svc.CreateCard(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, card)
	}
}

func listCardsHandler(svc *service.CardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cards")
		defer span.End()

		cardType := domain.CardType(r.URL.Query().Get("type"))
		cards, err := svc.ListCards(ctx, UserIDFromContext(ctx), queryBool(r, "active_only"), cardType)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cards)
	}
}

func getCardHandler(svc *service.CardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cards/{cardID}")
		defer span.End()

		cardID := chi.URLParam(r, "cardID")
		span.SetAttributes(attribute.String("card.id", cardID))

		card, err := svc.GetCard(ctx, cardID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func updateCardHandler(svc *service.CardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/cards/{cardID}")
		defer span.End()

		var in domain.UpdateCardInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		card, err := svc.UpdateCard(ctx, chi.URLParam(r, "cardID"), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func deactivateCardHandler(svc *service.CardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/cards/{cardID}")
		defer span.End()

		if err := svc.DeactivateCard(ctx, chi.URLParam(r, "cardID")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
