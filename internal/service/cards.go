package service

import (
	"context"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var cardTracer = otel.Tracer("service/cards")

// CardService manages payment cards. Credit cards carry a limit and the
// statement cycle (closing day, due day); debit cards link to the account
// they draw from.
type CardService struct {
	cards    port.CardStore
	accounts port.AccountStore
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewCardService creates a new card service.
func NewCardService(cards port.CardStore, accounts port.AccountStore, metrics *observability.Metrics, logger *zap.Logger) *CardService {
	return &CardService{
		cards:    cards,
		accounts: accounts,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *CardService) CreateCard(ctx context.Context, in *domain.CreateCardInput) (*domain.Card, error) {
	ctx, span := cardTracer.Start(ctx, "CardService.CreateCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.type", string(in.Type)))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_card", time.Since(start)) }()

	if err := validateCreateCard(in); err != nil {
		return nil, err
	}
	if in.AccountID != "" {
		if _, err := s.accounts.GetAccount(ctx, in.AccountID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	card := &domain.Card{
		ID:             uuid.New().String(),
		UserID:         in.UserID,
		AccountID:      in.AccountID,
		Name:           in.Name,
		Type:           in.Type,
		Brand:          in.Brand,
		LastFourDigits: in.LastFourDigits,
		CreditLimit:    in.CreditLimit,
		DueDay:         in.DueDay,
		ClosingDay:     in.ClosingDay,
		Color:          in.Color,
		Notes:          in.Notes,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.ClosingDay != 0 {
		card.BestPurchaseDay = domain.BestPurchaseDay(in.ClosingDay)
	}

	created, err := s.cards.CreateCard(ctx, card)
	if err != nil {
		s.logger.Error("failed to create card",
			zap.String("user_id", in.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("card registered",
		zap.String("card_id", created.ID),
		zap.String("type", string(created.Type)),
		zap.String("brand", string(created.Brand)),
	)

	return created, nil
}

func (s *CardService) GetCard(ctx context.Context, cardID string) (*domain.Card, error) {
	ctx, span := cardTracer.Start(ctx, "CardService.GetCard")
	defer span.End()

	if !domain.IsValidUUID(cardID) {
		return nil, &domain.ErrInvalidInput{Field: "card_id", Message: "must be a valid uuid"}
	}
	return s.cards.GetCard(ctx, cardID)
}

func (s *CardService) ListCards(ctx context.Context, userID string, activeOnly bool, cardType domain.CardType) ([]domain.Card, error) {
	ctx, span := cardTracer.Start(ctx, "CardService.ListCards")
	defer span.End()

	return s.cards.ListCards(ctx, userID, activeOnly, cardType)
}

func (s *CardService) UpdateCard(ctx context.Context, cardID string, in *domain.UpdateCardInput) (*domain.Card, error) {
	ctx, span := cardTracer.Start(ctx, "CardService.UpdateCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	card, err := s.cards.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	fields, err := buildCardUpdate(in)
	if err != nil {
		return nil, err
	}
	if in.AccountID != nil && *in.AccountID != "" {
		if _, err := s.accounts.GetAccount(ctx, *in.AccountID); err != nil {
			return nil, err
		}
	}
	if len(fields) == 0 {
		return card, nil
	}

	if err := s.cards.UpdateCard(ctx, cardID, fields); err != nil {
		s.logger.Error("failed to update card",
			zap.String("card_id", cardID), zap.Error(err))
		return nil, err
	}
	return s.cards.GetCard(ctx, cardID)
}

func (s *CardService) DeactivateCard(ctx context.Context, cardID string) error {
	ctx, span := cardTracer.Start(ctx, "CardService.DeactivateCard")
	defer span.End()

	card, err := s.cards.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if !card.Active {
		return &domain.ErrAlreadyInState{Resource: "card", State: "inactive"}
	}
	return s.cards.DeactivateCard(ctx, cardID)
}

// ============================================================
// Private helpers
// ============================================================

func validateCreateCard(in *domain.CreateCardInput) error {
	if !domain.IsNotEmpty(in.Name) {
		return &domain.ErrInvalidInput{Field: "name", Message: "required"}
	}
	switch in.Type {
	case domain.CardCredit, domain.CardDebit, domain.CardMultiple:
	default:
		return &domain.ErrInvalidInput{Field: "type", Message: "unknown card type"}
	}
	if in.AccountID != "" && !domain.IsValidUUID(in.AccountID) {
		return &domain.ErrInvalidInput{Field: "account_id", Message: "must be a valid uuid"}
	}
	if in.Type.IsCredit() {
		if in.CreditLimit == nil {
			return &domain.ErrInvalidInput{Field: "credit_limit", Message: "required for credit cards"}
		}
		if err := domain.ValidateMoney(in.CreditLimit.Amount, false); err != nil {
			return err
		}
		if !in.CreditLimit.IsPositive() {
			return &domain.ErrInvalidInput{Field: "credit_limit", Message: "must be positive"}
		}
	}
	if in.DueDay != 0 && !domain.InRange(float64(in.DueDay), 1, 31) {
		return &domain.ErrInvalidInput{Field: "due_day", Message: "must be between 1 and 31"}
	}
	if in.ClosingDay != 0 && !domain.InRange(float64(in.ClosingDay), 1, 31) {
		return &domain.ErrInvalidInput{Field: "closing_day", Message: "must be between 1 and 31"}
	}
	return nil
}

func buildCardUpdate(in *domain.UpdateCardInput) (map[string]any, error) {
	fields := map[string]any{}

	if in.Name != nil {
		if !domain.IsNotEmpty(*in.Name) {
			return nil, &domain.ErrInvalidInput{Field: "name", Message: "required"}
		}
		fields["name"] = *in.Name
	}
	if in.AccountID != nil {
		if *in.AccountID != "" && !domain.IsValidUUID(*in.AccountID) {
			return nil, &domain.ErrInvalidInput{Field: "account_id", Message: "must be a valid uuid"}
		}
		fields["account_id"] = *in.AccountID
	}
	if in.CreditLimit != nil {
		if err := domain.ValidateMoney(in.CreditLimit.Amount, false); err != nil {
			return nil, err
		}
		if !in.CreditLimit.IsPositive() {
			return nil, &domain.ErrInvalidInput{Field: "credit_limit", Message: "must be positive"}
		}
		fields["credit_limit_amount"] = in.CreditLimit.Amount
		fields["credit_limit_currency"] = in.CreditLimit.Currency
	}
	if in.DueDay != nil {
		if !domain.InRange(float64(*in.DueDay), 1, 31) {
			return nil, &domain.ErrInvalidInput{Field: "due_day", Message: "must be between 1 and 31"}
		}
		fields["due_day"] = *in.DueDay
	}
	if in.ClosingDay != nil {
		if !domain.InRange(float64(*in.ClosingDay), 1, 31) {
			return nil, &domain.ErrInvalidInput{Field: "closing_day", Message: "must be between 1 and 31"}
		}
		fields["closing_day"] = *in.ClosingDay
		fields["best_purchase_day"] = domain.BestPurchaseDay(*in.ClosingDay)
	}
	if in.Color != nil {
		fields["color"] = *in.Color
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}

	return fields, nil
}
