package entities

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// ProfitTier maps a deposit-balance range to a daily rate in percent.
// Both bounds are inclusive.
type ProfitTier struct {
	ID               string          `validate:"required,max=64"`
	Name             string          `validate:"required,max=128"`
	MinAmount        decimal.Decimal `validate:"gte=0"`
	MaxAmount        decimal.Decimal `validate:"gte=0"`
	DailyRatePercent decimal.Decimal `validate:"gt=0,lte=100"`
}

func (t ProfitTier) Contains(balance decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(t.MinAmount) && balance.LessThanOrEqual(t.MaxAmount)
}

// ReferralTier maps a referral-count range to a fixed reward amount.
type ReferralTier struct {
	MinReferrals int64           `validate:"gte=0"`
	MaxReferrals int64           `validate:"gte=0"`
	RewardAmount decimal.Decimal `validate:"gt=0"`
}

func (t ReferralTier) Contains(count int64) bool {
	return count >= t.MinReferrals && count <= t.MaxReferrals
}

// Label identifies the tier the way ledger rows record it.
func (t ReferralTier) Label() string {
	return "REFERRAL_" + strconv.FormatInt(t.MinReferrals, 10) + "_" + strconv.FormatInt(t.MaxReferrals, 10)
}
