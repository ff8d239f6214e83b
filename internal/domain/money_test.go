package domain_test

import (
	"testing"

	"github.com/zegrana/finance-core-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := domain.NewMoney("1234.5", "BRL")
	require.NoError(t, err)
	assert.Equal(t, "1234.50", m.Amount)
	assert.Equal(t, "BRL", m.Currency)

	m, err = domain.NewMoney("10", "")
	require.NoError(t, err)
	assert.Equal(t, "10.00", m.Amount)
	assert.Equal(t, domain.DefaultCurrency, m.Currency)

	m, err = domain.NewMoney("-3.25", "USD")
	require.NoError(t, err)
	assert.Equal(t, "-3.25", m.Amount)
}

func TestNewMoney_RejectsMalformedAmounts(t *testing.T) {
	for _, amount := range []string{"", "abc", "10.123", "1,50", "1.2.3", "10.", "1e3"} {
		_, err := domain.NewMoney(amount, "BRL")
		var formatErr *domain.ErrInvalidMoneyFormat
		assert.ErrorAs(t, err, &formatErr, "amount %q should be rejected", amount)
	}
}

func TestMoneyAddSub(t *testing.T) {
	a, _ := domain.NewMoney("100.00", "BRL")
	b, _ := domain.NewMoney("50.25", "BRL")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "150.25", sum.Amount)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "49.75", diff.Amount)
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	a, _ := domain.NewMoney("10.00", "BRL")
	b, _ := domain.NewMoney("10.00", "USD")

	_, err := a.Add(b)
	var mismatch *domain.ErrCurrencyMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "BRL", mismatch.Left)
	assert.Equal(t, "USD", mismatch.Right)

	_, err = a.Sub(b)
	assert.ErrorAs(t, err, &mismatch)
}

func TestMoneyMulRoundsHalfUp(t *testing.T) {
	m, _ := domain.NewMoney("10.00", "BRL")

	scaled, err := m.Mul(0.333)
	require.NoError(t, err)
	assert.Equal(t, "3.33", scaled.Amount)

	scaled, err = m.Mul(0.005)
	require.NoError(t, err)
	assert.Equal(t, "0.05", scaled.Amount)
}

func TestMoneyNegAndSign(t *testing.T) {
	m, _ := domain.NewMoney("42.10", "BRL")
	assert.True(t, m.IsPositive())
	assert.False(t, m.IsNegative())

	neg, err := m.Neg()
	require.NoError(t, err)
	assert.Equal(t, "-42.10", neg.Amount)
	assert.True(t, neg.IsNegative())

	zero := domain.ZeroMoney("BRL")
	assert.False(t, zero.IsPositive())
	assert.False(t, zero.IsNegative())
}

func TestMoneyArithmeticStaysExact(t *testing.T) {
	// 0.1+0.2 drifts in binary floats; the decimal path must not.
	a, _ := domain.NewMoney("0.10", "BRL")
	b, _ := domain.NewMoney("0.20", "BRL")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "0.30", sum.Amount)
}
