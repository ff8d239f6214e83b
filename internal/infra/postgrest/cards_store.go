package postgrest

import (
	"context"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

const cardsCollection = "cards"

// CardStore adapts the generic provider to port.CardStore.
type CardStore struct {
	provider port.DataProvider
}

// NewCardStore wraps a data provider.
func NewCardStore(provider port.DataProvider) *CardStore {
	return &CardStore{provider: provider}
}

var _ port.CardStore = (*CardStore)(nil)

func (s *CardStore) CreateCard(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	stored, err := s.provider.Create(ctx, cardsCollection, cardToRecord(card))
	if err != nil {
		return nil, err
	}
	return cardFromRecord(stored), nil
}

func (s *CardStore) GetCard(ctx context.Context, cardID string) (*domain.Card, error) {
	rec, err := s.provider.GetByID(ctx, cardsCollection, cardID)
	if err != nil {
		return nil, err
	}
	return cardFromRecord(rec), nil
}

func (s *CardStore) ListCards(ctx context.Context, userID string, activeOnly bool, cardType domain.CardType) ([]domain.Card, error) {
	filters := []port.Filter{{Field: "user_id", Op: port.OpEq, Value: userID}}
	if activeOnly {
		filters = append(filters, port.Filter{Field: "active", Op: port.OpEq, Value: true})
	}
	if cardType != "" {
		filters = append(filters, port.Filter{Field: "type", Op: port.OpEq, Value: string(cardType)})
	}
	recs, err := s.provider.Query(ctx, cardsCollection, filters,
		[]port.Sort{{Field: "created_at"}}, port.Page{})
	if err != nil {
		return nil, err
	}
	cards := make([]domain.Card, 0, len(recs))
	for _, rec := range recs {
		cards = append(cards, *cardFromRecord(rec))
	}
	return cards, nil
}

func (s *CardStore) UpdateCard(ctx context.Context, cardID string, fields map[string]any) error {
	fields["updated_at"] = timeVal(time.Now())
	return s.provider.UpdateFields(ctx, cardsCollection, cardID, fields)
}

func (s *CardStore) DeactivateCard(ctx context.Context, cardID string) error {
	return s.provider.UpdateFields(ctx, cardsCollection, cardID, port.Record{
		"active":     false,
		"updated_at": timeVal(time.Now()),
	})
}

func cardToRecord(card *domain.Card) port.Record {
	rec := port.Record{
		"id":         card.ID,
		"user_id":    card.UserID,
		"name":       card.Name,
		"type":       string(card.Type),
		"brand":      string(card.Brand),
		"active":     card.Active,
		"created_at": timeVal(card.CreatedAt),
		"updated_at": timeVal(card.UpdatedAt),
	}
	if card.AccountID != "" {
		rec["account_id"] = card.AccountID
	}
	if card.LastFourDigits != "" {
		rec["last_four_digits"] = card.LastFourDigits
	}
	if card.CreditLimit != nil {
		rec["credit_limit_amount"] = card.CreditLimit.Amount
		rec["credit_limit_currency"] = card.CreditLimit.Currency
	}
	if card.DueDay != 0 {
		rec["due_day"] = card.DueDay
	}
	if card.ClosingDay != 0 {
		rec["closing_day"] = card.ClosingDay
	}
	if card.BestPurchaseDay != 0 {
		rec["best_purchase_day"] = card.BestPurchaseDay
	}
	if card.Color != "" {
		rec["color"] = card.Color
	}
	if card.Notes != "" {
		rec["notes"] = card.Notes
	}
	return rec
}

func cardFromRecord(rec port.Record) *domain.Card {
	return &domain.Card{
		ID:              recString(rec, "id"),
		UserID:          recString(rec, "user_id"),
		AccountID:       recString(rec, "account_id"),
		Name:            recString(rec, "name"),
		Type:            domain.CardType(recString(rec, "type")),
		Brand:           domain.CardBrand(recString(rec, "brand")),
		LastFourDigits:  recString(rec, "last_four_digits"),
		CreditLimit:     recMoneyPtr(rec, "credit_limit_amount", "credit_limit_currency"),
		DueDay:          recInt(rec, "due_day"),
		ClosingDay:      recInt(rec, "closing_day"),
		BestPurchaseDay: recInt(rec, "best_purchase_day"),
		Color:           recString(rec, "color"),
		Notes:           recString(rec, "notes"),
		Active:          recBool(rec, "active"),
		CreatedAt:       recTime(rec, "created_at"),
		UpdatedAt:       recTime(rec, "updated_at"),
	}
}
