package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
)

func TestProfitAmountRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		balance string
		rate    string
		want    string
	}{
		{"250", "4", "10.00"},
		{"100", "4.5", "4.50"},
		{"111.11", "4.5", "5.00"},
		{"33.33", "4.5", "1.50"},
		{"10.10", "4.5", "0.45"},
		{"0.11", "4.5", "0.00"},
		{"0.12", "4.5", "0.01"},
		{"0.10", "5", "0.01"},
		{"1000", "6", "60.00"},
	}
	for _, tc := range cases {
		got := ProfitAmount(decimal.RequireFromString(tc.balance), decimal.RequireFromString(tc.rate))
		require.Equal(t, tc.want, got.StringFixed(2), "%s at %s%%", tc.balance, tc.rate)
	}
}

func TestValidateRatePercent(t *testing.T) {
	require.NoError(t, ValidateRatePercent(decimal.RequireFromString("0.01")))
	require.NoError(t, ValidateRatePercent(decimal.NewFromInt(100)))
	require.ErrorIs(t, ValidateRatePercent(decimal.Zero), domainerrors.ErrInvalidRate)
	require.ErrorIs(t, ValidateRatePercent(decimal.NewFromInt(-1)), domainerrors.ErrInvalidRate)
	require.ErrorIs(t, ValidateRatePercent(decimal.RequireFromString("100.01")), domainerrors.ErrInvalidRate)

	require.NoError(t, ValidateRatePercent(decimal.RequireFromString("4.1234")))
	require.NoError(t, ValidateRatePercent(decimal.RequireFromString("4.50000")))
	require.ErrorIs(t, ValidateRatePercent(decimal.RequireFromString("0.00005")), domainerrors.ErrInvalidRate)
	require.ErrorIs(t, ValidateRatePercent(decimal.RequireFromString("4.12345")), domainerrors.ErrInvalidRate)
}

func TestIsMoneyAmount(t *testing.T) {
	require.True(t, IsMoneyAmount(decimal.NewFromInt(5)))
	require.True(t, IsMoneyAmount(decimal.RequireFromString("5.55")))
	require.True(t, IsMoneyAmount(decimal.RequireFromString("5.550")))
	require.False(t, IsMoneyAmount(decimal.RequireFromString("5.555")))
	require.False(t, IsMoneyAmount(decimal.RequireFromString("0.001")))
}
