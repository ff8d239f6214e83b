package domain

import "time"

// ============================================================
// Cards
// ============================================================

// CardType distinguishes credit, debit and combined cards.
type CardType string

const (
	CardCredit   CardType = "credit"
	CardDebit    CardType = "debit"
	CardMultiple CardType = "multiple"
)

// IsCredit reports whether the card carries a credit limit.
func (t CardType) IsCredit() bool {
	return t == CardCredit || t == CardMultiple
}

// CardBrand is the card network.
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandElo        CardBrand = "elo"
	BrandAmex       CardBrand = "amex"
	BrandHipercard  CardBrand = "hipercard"
	BrandOther      CardBrand = "other"
)

// Card is a payment card attached to a user. Only the last four digits are
// ever stored; the full PAN never reaches this system. Debit cards may link
// to the account they draw from.
type Card struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	AccountID       string    `json:"account_id,omitempty"`
	Name            string    `json:"name"`
	Type            CardType  `json:"type"`
	Brand           CardBrand `json:"brand"`
	LastFourDigits  string    `json:"last_four_digits,omitempty"`
	CreditLimit     *Money    `json:"credit_limit,omitempty"`
	DueDay          int       `json:"due_day,omitempty"`
	ClosingDay      int       `json:"closing_day,omitempty"`
	BestPurchaseDay int       `json:"best_purchase_day,omitempty"`
	Color           string    `json:"color,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateCardInput carries the fields needed to register a card.
type CreateCardInput struct {
	UserID         string    `json:"user_id"`
	AccountID      string    `json:"account_id,omitempty"`
	Name           string    `json:"name"`
	Type           CardType  `json:"type"`
	Brand          CardBrand `json:"brand"`
	LastFourDigits string    `json:"last_four_digits,omitempty"`
	CreditLimit    *Money    `json:"credit_limit,omitempty"`
	DueDay         int       `json:"due_day,omitempty"`
	ClosingDay     int       `json:"closing_day,omitempty"`
	Color          string    `json:"color,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

// UpdateCardInput carries a partial card update. Nil fields stay untouched.
type UpdateCardInput struct {
	Name        *string `json:"name,omitempty"`
	AccountID   *string `json:"account_id,omitempty"`
	CreditLimit *Money  `json:"credit_limit,omitempty"`
	DueDay      *int    `json:"due_day,omitempty"`
	ClosingDay  *int    `json:"closing_day,omitempty"`
	Color       *string `json:"color,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// BestPurchaseDay is the day right after the statement closes, which gives a
// purchase the longest float until its due date.
func BestPurchaseDay(closingDay int) int {
	if closingDay < 31 {
		return closingDay + 1
	}
	return 1
}
