package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
)

func profitTier(id string, minAmount, maxAmount, rate string) entities.ProfitTier {
	return entities.ProfitTier{
		ID:               id,
		Name:             id,
		MinAmount:        decimal.RequireFromString(minAmount),
		MaxAmount:        decimal.RequireFromString(maxAmount),
		DailyRatePercent: decimal.RequireFromString(rate),
	}
}

func standardTiers() []entities.ProfitTier {
	return []entities.ProfitTier{
		profitTier("T1", "0", "100", "3"),
		profitTier("T2", "100", "500", "4"),
		profitTier("T3", "500", "5000", "6"),
	}
}

func TestProfitTierTableResolvesInclusiveBounds(t *testing.T) {
	table := NewProfitTierTable(standardTiers())

	cases := []struct {
		balance string
		tierID  string
	}{
		{"0", "T1"},
		{"50", "T1"},
		{"100", "T1"},
		{"100.01", "T2"},
		{"250", "T2"},
		{"500", "T2"},
		{"5000", "T3"},
	}
	for _, tc := range cases {
		tier, err := table.Resolve(decimal.RequireFromString(tc.balance))
		require.NoError(t, err, tc.balance)
		require.Equal(t, tc.tierID, tier.ID, tc.balance)
	}
}

func TestProfitTierTableOrdersByMinimumRegardlessOfDefinitionOrder(t *testing.T) {
	tiers := standardTiers()
	reversed := []entities.ProfitTier{tiers[2], tiers[1], tiers[0]}
	table := NewProfitTierTable(reversed)

	tier, err := table.Resolve(decimal.NewFromInt(100))
	require.NoError(t, err)
	require.Equal(t, "T1", tier.ID)

	ordered := table.Tiers()
	require.Equal(t, []string{"T1", "T2", "T3"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestProfitTierTableNoMatchOutsideRanges(t *testing.T) {
	table := NewProfitTierTable([]entities.ProfitTier{
		profitTier("T1", "50", "100", "3"),
	})

	_, err := table.Resolve(decimal.RequireFromString("49.99"))
	require.ErrorIs(t, err, domainerrors.ErrNoTierMatch)
	_, err = table.Resolve(decimal.RequireFromString("100.01"))
	require.ErrorIs(t, err, domainerrors.ErrNoTierMatch)

	_, err = NewProfitTierTable(nil).Resolve(decimal.NewFromInt(10))
	require.ErrorIs(t, err, domainerrors.ErrNoTierMatch)
}

func TestProfitTierTableEqualMinimumsKeepDefinitionOrder(t *testing.T) {
	table := NewProfitTierTable([]entities.ProfitTier{
		profitTier("first", "0", "1000", "2"),
		profitTier("second", "0", "1000", "9"),
	})

	tier, err := table.Resolve(decimal.NewFromInt(10))
	require.NoError(t, err)
	require.Equal(t, "first", tier.ID)
}

func TestReferralTierTableResolvesCounts(t *testing.T) {
	table := NewReferralTierTable([]entities.ReferralTier{
		{MinReferrals: 10, MaxReferrals: 19, RewardAmount: decimal.NewFromInt(8)},
		{MinReferrals: 0, MaxReferrals: 9, RewardAmount: decimal.NewFromInt(5)},
	})

	tier, err := table.Resolve(0)
	require.NoError(t, err)
	require.True(t, tier.RewardAmount.Equal(decimal.NewFromInt(5)))
	require.Equal(t, "REFERRAL_0_9", tier.Label())

	tier, err = table.Resolve(10)
	require.NoError(t, err)
	require.True(t, tier.RewardAmount.Equal(decimal.NewFromInt(8)))

	_, err = table.Resolve(20)
	require.ErrorIs(t, err, domainerrors.ErrNoTierMatch)
}

func TestValidateProfitTiers(t *testing.T) {
	require.NoError(t, ValidateProfitTiers(standardTiers()))

	require.ErrorIs(t, ValidateProfitTiers(nil), domainerrors.ErrInvalidTierTable)
	require.ErrorIs(t, ValidateProfitTiers([]entities.ProfitTier{
		profitTier("T1", "100", "50", "3"),
	}), domainerrors.ErrInvalidTierTable)
	require.ErrorIs(t, ValidateProfitTiers([]entities.ProfitTier{
		profitTier("T1", "0", "50", "3"),
		profitTier("T1", "50", "100", "4"),
	}), domainerrors.ErrInvalidTierTable)
	require.ErrorIs(t, ValidateProfitTiers([]entities.ProfitTier{
		profitTier("T1", "0", "50", "0"),
	}), domainerrors.ErrInvalidRate)
	require.ErrorIs(t, ValidateProfitTiers([]entities.ProfitTier{
		profitTier("T1", "0", "50", "100.5"),
	}), domainerrors.ErrInvalidRate)
	require.ErrorIs(t, ValidateProfitTiers([]entities.ProfitTier{
		profitTier("T1", "0", "50", "3.00001"),
	}), domainerrors.ErrInvalidRate)
	require.ErrorIs(t, ValidateProfitTiers([]entities.ProfitTier{
		profitTier("T1", "0.001", "50", "3"),
	}), domainerrors.ErrInvalidTierTable)
	require.ErrorIs(t, ValidateProfitTiers([]entities.ProfitTier{
		profitTier("T1", "0", "99.999", "3"),
	}), domainerrors.ErrInvalidTierTable)
}

func TestValidateReferralTiers(t *testing.T) {
	require.NoError(t, ValidateReferralTiers([]entities.ReferralTier{
		{MinReferrals: 0, MaxReferrals: 9, RewardAmount: decimal.NewFromInt(5)},
	}))
	require.ErrorIs(t, ValidateReferralTiers(nil), domainerrors.ErrInvalidTierTable)
	require.ErrorIs(t, ValidateReferralTiers([]entities.ReferralTier{
		{MinReferrals: 5, MaxReferrals: 1, RewardAmount: decimal.NewFromInt(5)},
	}), domainerrors.ErrInvalidTierTable)
	require.ErrorIs(t, ValidateReferralTiers([]entities.ReferralTier{
		{MinReferrals: 0, MaxReferrals: 9, RewardAmount: decimal.Zero},
	}), domainerrors.ErrInvalidTierTable)
	require.ErrorIs(t, ValidateReferralTiers([]entities.ReferralTier{
		{MinReferrals: 0, MaxReferrals: 9, RewardAmount: decimal.RequireFromString("5.555")},
	}), domainerrors.ErrInvalidTierTable)
	require.NoError(t, ValidateReferralTiers([]entities.ReferralTier{
		{MinReferrals: 0, MaxReferrals: 9, RewardAmount: decimal.RequireFromString("5.50")},
	}))
}
