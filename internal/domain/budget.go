package domain

import "time"

// ============================================================
// Budgets
// ============================================================

// PeriodKind is the calendar rule by which a budget window advances.
type PeriodKind string

const (
	PeriodWeekly     PeriodKind = "weekly"
	PeriodMonthly    PeriodKind = "monthly"
	PeriodQuarterly  PeriodKind = "quarterly"
	PeriodSemiannual PeriodKind = "semiannual"
	PeriodAnnual     PeriodKind = "annual"
)

// Period is a single budget window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Budget tracks planned vs. spent money for one category over a rolling
// period window.
type Budget struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	CategoryID            string     `json:"category_id"`
	Name                  string     `json:"name"`
	Planned               Money      `json:"planned"`
	Spent                 Money      `json:"spent"`
	PeriodKind            PeriodKind `json:"period_kind"`
	PeriodStart           time.Time  `json:"period_start"`
	AlertEnabled          bool       `json:"alert_enabled"`
	AlertThresholdPercent *float64   `json:"alert_threshold_percent,omitempty"`
	Active                bool       `json:"active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// SpentPercent is spent/planned as a percentage. A zero planned value yields
// 0 rather than a division blow-up.
func (b *Budget) SpentPercent() float64 {
	planned := b.Planned.ToFloat()
	if planned <= 0 {
		return 0
	}
	return b.Spent.ToFloat() / planned * 100
}

// IsInAlert reports whether spending crossed the configured alert threshold.
func (b *Budget) IsInAlert() bool {
	return b.AlertEnabled && b.AlertThresholdPercent != nil && b.SpentPercent() >= *b.AlertThresholdPercent
}

// IsOverBudget reports whether spending exceeded the planned amount.
func (b *Budget) IsOverBudget() bool {
	return b.SpentPercent() > 100
}

// NextPeriod advances a period window deterministically per kind: weekly
// windows span seven days; month-based windows run from the start to the
// last calendar day of the final month in the window.
func NextPeriod(currentStart time.Time, kind PeriodKind) (Period, error) {
	months := 0
	switch kind {
	case PeriodWeekly:
		start := currentStart.AddDate(0, 0, 7)
		return Period{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case PeriodMonthly:
		months = 1
	case PeriodQuarterly:
		months = 3
	case PeriodSemiannual:
		months = 6
	case PeriodAnnual:
		months = 12
	default:
		return Period{}, &ErrInvalidPeriod{Period: string(kind)}
	}

	start := currentStart.AddDate(0, months, 0)
	end := start.AddDate(0, months, 0).AddDate(0, 0, -1)
	return Period{Start: start, End: end}, nil
}

// CreateBudgetInput carries the fields needed to open a budget.
type CreateBudgetInput struct {
	UserID                string     `json:"user_id"`
	CategoryID            string     `json:"category_id"`
	Name                  string     `json:"name"`
	Planned               Money      `json:"planned"`
	PeriodKind            PeriodKind `json:"period_kind"`
	PeriodStart           time.Time  `json:"period_start"`
	AlertEnabled          bool       `json:"alert_enabled"`
	AlertThresholdPercent *float64   `json:"alert_threshold_percent,omitempty"`
}

// UpdateBudgetInput carries a partial budget update.
type UpdateBudgetInput struct {
	Name                  *string  `json:"name,omitempty"`
	Planned               *Money   `json:"planned,omitempty"`
	AlertEnabled          *bool    `json:"alert_enabled,omitempty"`
	AlertThresholdPercent *float64 `json:"alert_threshold_percent,omitempty"`
	Active                *bool    `json:"active,omitempty"`
}
