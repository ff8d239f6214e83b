package domain_test

import (
	"testing"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPeriod_Monthly(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p, err := domain.NextPeriod(start, domain.PeriodMonthly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), p.End)
}

func TestNextPeriod_Weekly(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

	p, err := domain.NextPeriod(start, domain.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 7), p.Start)
	assert.Equal(t, start.AddDate(0, 0, 13), p.End)
}

func TestNextPeriod_LongerKinds(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	quarterly, err := domain.NextPeriod(start, domain.PeriodQuarterly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), quarterly.Start)
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), quarterly.End)

	annual, err := domain.NextPeriod(start, domain.PeriodAnnual)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), annual.Start)
	assert.Equal(t, time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC), annual.End)
}

func TestNextPeriod_UnknownKind(t *testing.T) {
	var invalid *domain.ErrInvalidPeriod
	_, err := domain.NextPeriod(time.Now(), domain.PeriodKind("fortnightly"))
	assert.ErrorAs(t, err, &invalid)
}

func TestBudgetSpentPercent(t *testing.T) {
	planned, _ := domain.NewMoney("200.00", "BRL")
	spent, _ := domain.NewMoney("150.00", "BRL")

	b := &domain.Budget{Planned: planned, Spent: spent}
	assert.InDelta(t, 75.0, b.SpentPercent(), 0.001)

	b.Planned = domain.ZeroMoney("BRL")
	assert.Equal(t, 0.0, b.SpentPercent())
}

func TestBudgetAlerts(t *testing.T) {
	planned, _ := domain.NewMoney("100.00", "BRL")
	spent, _ := domain.NewMoney("85.00", "BRL")
	threshold := 80.0

	b := &domain.Budget{
		Planned:               planned,
		Spent:                 spent,
		AlertEnabled:          true,
		AlertThresholdPercent: &threshold,
	}
	assert.True(t, b.IsInAlert())
	assert.False(t, b.IsOverBudget())

	b.AlertEnabled = false
	assert.False(t, b.IsInAlert())

	over, _ := domain.NewMoney("120.00", "BRL")
	b.Spent = over
	assert.True(t, b.IsOverBudget())
}
