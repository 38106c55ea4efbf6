package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineza/schoolpay/pkg/currency"
	"github.com/ineza/schoolpay/pkg/domain/common"
	"github.com/ineza/schoolpay/pkg/domain/money"
)

func TestNewMoney_Precision(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency currency.Code
		expected int64
		wantErr  bool
	}{
		{"RWF whole francs", 300.0, "RWF", 300, false},
		{"RWF defaults when empty", 1000.0, "", 1000, false},
		{"USD with cents", 12.50, "USD", 1250, false},
		{"KES with cents", 99.99, "KES", 9999, false},
		{"Fractional francs rejected", 300.5, "RWF", 0, true},
		{"Too many decimals for USD", 12.509, "USD", 0, true},
		{"Invalid currency", 100.0, "INVALID", 0, true},
		{"Unsupported currency", 100.0, "ZZZ", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := money.New(tt.amount, tt.currency)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Amount())
			assert.InDelta(t, tt.amount, m.AmountFloat(), 0.001)
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	rwf1000, err := money.New(1000, "RWF")
	require.NoError(t, err)
	rwf300, err := money.New(300, "RWF")
	require.NoError(t, err)
	usd10, err := money.New(10, "USD")
	require.NoError(t, err)

	t.Run("Add same currency", func(t *testing.T) {
		result, err := rwf1000.Add(rwf300)
		require.NoError(t, err)
		assert.Equal(t, int64(1300), result.Amount())
		assert.Equal(t, "RWF", string(result.Currency()))
	})

	t.Run("Add different currency", func(t *testing.T) {
		_, err := rwf1000.Add(usd10)
		assert.ErrorIs(t, err, common.ErrCurrencyMismatch)
	})

	t.Run("Subtract same currency", func(t *testing.T) {
		result, err := rwf1000.Subtract(rwf300)
		require.NoError(t, err)
		assert.Equal(t, int64(700), result.Amount())
	})

	t.Run("Negate", func(t *testing.T) {
		result := rwf300.Negate()
		assert.Equal(t, int64(-300), result.Amount())
		assert.True(t, result.IsNegative())
	})

	t.Run("Add negative should subtract", func(t *testing.T) {
		result, err := rwf1000.Add(rwf300.Negate())
		require.NoError(t, err)
		assert.Equal(t, int64(700), result.Amount())
	})
}

func TestMoney_Comparison(t *testing.T) {
	rwf1000, err := money.New(1000, "RWF")
	require.NoError(t, err)
	rwf300, err := money.New(300, "RWF")
	require.NoError(t, err)
	usd10, err := money.New(10, "USD")
	require.NoError(t, err)

	t.Run("Equals", func(t *testing.T) {
		other, err := money.New(1000, "RWF")
		require.NoError(t, err)
		assert.True(t, rwf1000.Equals(other))
		assert.False(t, rwf1000.Equals(rwf300))
		assert.False(t, rwf1000.Equals(usd10))
	})

	t.Run("GreaterThan same currency", func(t *testing.T) {
		result, err := rwf1000.GreaterThan(rwf300)
		require.NoError(t, err)
		assert.True(t, result)

		result, err = rwf300.GreaterThan(rwf1000)
		require.NoError(t, err)
		assert.False(t, result)
	})

	t.Run("LessThan same currency", func(t *testing.T) {
		result, err := rwf300.LessThan(rwf1000)
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("Comparison across currencies", func(t *testing.T) {
		_, err := rwf1000.GreaterThan(usd10)
		assert.ErrorIs(t, err, common.ErrCurrencyMismatch)
		_, err = rwf1000.LessThan(usd10)
		assert.ErrorIs(t, err, common.ErrCurrencyMismatch)
	})
}

func TestMoney_String(t *testing.T) {
	rwf300, err := money.New(300, "RWF")
	require.NoError(t, err)
	assert.Equal(t, "300 FRw", rwf300.String())

	usd, err := money.New(12.5, "USD")
	require.NoError(t, err)
	assert.Equal(t, "12.50 $", usd.String())
}

func TestMoney_SignPredicates(t *testing.T) {
	zero := money.Zero("RWF")
	assert.True(t, zero.IsZero())
	assert.False(t, zero.IsPositive())
	assert.False(t, zero.IsNegative())

	rwf300, err := money.New(300, "RWF")
	require.NoError(t, err)
	assert.True(t, rwf300.IsPositive())
	assert.True(t, rwf300.Negate().IsNegative())
}

func TestNewFromSmallestUnit(t *testing.T) {
	m, err := money.NewFromSmallestUnit(500, "RWF")
	require.NoError(t, err)
	assert.Equal(t, int64(500), m.Amount())
	assert.InDelta(t, 500.0, m.AmountFloat(), 0.001)

	cents, err := money.NewFromSmallestUnit(1250, "USD")
	require.NoError(t, err)
	assert.InDelta(t, 12.50, cents.AmountFloat(), 0.001)
}
