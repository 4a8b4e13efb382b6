package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
)

// ProfitTierTable resolves deposit balances to profit tiers. Tiers are scanned
// ascending by MinAmount and the first inclusive match wins, so overlapping
// ranges resolve to the lowest minimum. Equal minimums keep definition order.
type ProfitTierTable struct {
	tiers []entities.ProfitTier
}

func NewProfitTierTable(tiers []entities.ProfitTier) ProfitTierTable {
	ordered := append([]entities.ProfitTier(nil), tiers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinAmount.LessThan(ordered[j].MinAmount)
	})
	return ProfitTierTable{tiers: ordered}
}

func (t ProfitTierTable) Resolve(balance decimal.Decimal) (entities.ProfitTier, error) {
	for _, tier := range t.tiers {
		if tier.Contains(balance) {
			return tier, nil
		}
	}
	return entities.ProfitTier{}, domainerrors.ErrNoTierMatch
}

func (t ProfitTierTable) Tiers() []entities.ProfitTier {
	return append([]entities.ProfitTier(nil), t.tiers...)
}

// ReferralTierTable resolves referral counts to reward tiers with the same
// ordering rules as ProfitTierTable.
type ReferralTierTable struct {
	tiers []entities.ReferralTier
}

func NewReferralTierTable(tiers []entities.ReferralTier) ReferralTierTable {
	ordered := append([]entities.ReferralTier(nil), tiers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinReferrals < ordered[j].MinReferrals
	})
	return ReferralTierTable{tiers: ordered}
}

func (t ReferralTierTable) Resolve(count int64) (entities.ReferralTier, error) {
	for _, tier := range t.tiers {
		if tier.Contains(count) {
			return tier, nil
		}
	}
	return entities.ReferralTier{}, domainerrors.ErrNoTierMatch
}

// ValidateProfitTiers checks structural rules that field validation cannot
// express. Overlaps are allowed.
func ValidateProfitTiers(tiers []entities.ProfitTier) error {
	if len(tiers) == 0 {
		return domainerrors.ErrInvalidTierTable
	}
	seen := make(map[string]struct{}, len(tiers))
	for _, tier := range tiers {
		if tier.MinAmount.IsNegative() || tier.MaxAmount.LessThan(tier.MinAmount) {
			return domainerrors.ErrInvalidTierTable
		}
		if !IsMoneyAmount(tier.MinAmount) || !IsMoneyAmount(tier.MaxAmount) {
			return domainerrors.ErrInvalidTierTable
		}
		if err := ValidateRatePercent(tier.DailyRatePercent); err != nil {
			return err
		}
		if _, ok := seen[tier.ID]; ok {
			return domainerrors.ErrInvalidTierTable
		}
		seen[tier.ID] = struct{}{}
	}
	return nil
}

func ValidateReferralTiers(tiers []entities.ReferralTier) error {
	if len(tiers) == 0 {
		return domainerrors.ErrInvalidTierTable
	}
	for _, tier := range tiers {
		if tier.MinReferrals < 0 || tier.MaxReferrals < tier.MinReferrals {
			return domainerrors.ErrInvalidTierTable
		}
		if !tier.RewardAmount.IsPositive() || !IsMoneyAmount(tier.RewardAmount) {
			return domainerrors.ErrInvalidTierTable
		}
	}
	return nil
}
