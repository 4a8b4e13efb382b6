package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlatformToggles struct {
	ProfitSharingEnabled bool
}

// Settings is the versioned configuration a distribution reads once per run.
// Values handed out by stores are detached copies and never change underneath a caller.
type Settings struct {
	ProfitTiers    []ProfitTier
	ReferralTiers  []ReferralTier
	Toggles        PlatformToggles
	Version        int64
	LastModifiedBy string
	UpdatedAt      time.Time
}

func (s Settings) Clone() Settings {
	clone := s
	clone.ProfitTiers = append([]ProfitTier(nil), s.ProfitTiers...)
	clone.ReferralTiers = append([]ReferralTier(nil), s.ReferralTiers...)
	return clone
}

// DefaultSettings returns the tier tables used when no settings were ever saved.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		ProfitTiers: []ProfitTier{
			{ID: "TIER_1", Name: "Starter", MinAmount: decimal.NewFromInt(50), MaxAmount: decimal.NewFromInt(100), DailyRatePercent: decimal.NewFromInt(3)},
			{ID: "TIER_2", Name: "Growth", MinAmount: decimal.NewFromInt(100), MaxAmount: decimal.NewFromInt(500), DailyRatePercent: decimal.NewFromInt(4)},
			{ID: "TIER_3", Name: "Premium", MinAmount: decimal.NewFromInt(500), MaxAmount: decimal.NewFromInt(5000), DailyRatePercent: decimal.NewFromInt(6)},
			{ID: "TIER_4", Name: "Elite", MinAmount: decimal.NewFromInt(5000), MaxAmount: decimal.NewFromInt(100000), DailyRatePercent: decimal.NewFromInt(8)},
		},
		ReferralTiers: []ReferralTier{
			{MinReferrals: 0, MaxReferrals: 9, RewardAmount: decimal.NewFromInt(5)},
			{MinReferrals: 10, MaxReferrals: 19, RewardAmount: decimal.NewFromInt(8)},
			{MinReferrals: 20, MaxReferrals: 29, RewardAmount: decimal.NewFromInt(9)},
			{MinReferrals: 30, MaxReferrals: 999999999, RewardAmount: decimal.NewFromInt(10)},
		},
		Toggles:        PlatformToggles{ProfitSharingEnabled: true},
		Version:        1,
		LastModifiedBy: "system",
		UpdatedAt:      now.UTC(),
	}
}

type FieldChange struct {
	Field         string
	PreviousValue any
	NewValue      any
}

// SettingsSection is one typed settings update. The set of sections is closed.
type SettingsSection interface {
	SectionName() string
	apply(current Settings) (Settings, []FieldChange)
}

const (
	SectionProfitTiers     = "profit-tiers"
	SectionReferralTiers   = "referral-tiers"
	SectionPlatformToggles = "platform-toggles"
)

type ProfitTiersSection struct {
	Tiers []ProfitTier `validate:"required,min=1,max=32,dive"`
}

func (ProfitTiersSection) SectionName() string { return SectionProfitTiers }

func (s ProfitTiersSection) apply(current Settings) (Settings, []FieldChange) {
	next := current.Clone()
	next.ProfitTiers = append([]ProfitTier(nil), s.Tiers...)
	return next, []FieldChange{{
		Field:         "profitTiers",
		PreviousValue: current.ProfitTiers,
		NewValue:      next.ProfitTiers,
	}}
}

type ReferralTiersSection struct {
	Tiers []ReferralTier `validate:"required,min=1,max=32,dive"`
}

func (ReferralTiersSection) SectionName() string { return SectionReferralTiers }

func (s ReferralTiersSection) apply(current Settings) (Settings, []FieldChange) {
	next := current.Clone()
	next.ReferralTiers = append([]ReferralTier(nil), s.Tiers...)
	return next, []FieldChange{{
		Field:         "referralTiers",
		PreviousValue: current.ReferralTiers,
		NewValue:      next.ReferralTiers,
	}}
}

type PlatformTogglesSection struct {
	ProfitSharingEnabled *bool `validate:"required"`
}

func (PlatformTogglesSection) SectionName() string { return SectionPlatformToggles }

func (s PlatformTogglesSection) apply(current Settings) (Settings, []FieldChange) {
	next := current.Clone()
	var changes []FieldChange
	if s.ProfitSharingEnabled != nil && *s.ProfitSharingEnabled != current.Toggles.ProfitSharingEnabled {
		next.Toggles.ProfitSharingEnabled = *s.ProfitSharingEnabled
		changes = append(changes, FieldChange{
			Field:         "profitSharingEnabled",
			PreviousValue: current.Toggles.ProfitSharingEnabled,
			NewValue:      next.Toggles.ProfitSharingEnabled,
		})
	}
	return next, changes
}

// Apply returns the next settings version with section applied.
// Version is bumped even when the section changes nothing.
func (s Settings) Apply(section SettingsSection, actorID string, at time.Time) (Settings, []FieldChange) {
	next, changes := section.apply(s)
	next.Version = s.Version + 1
	next.LastModifiedBy = actorID
	next.UpdatedAt = at.UTC()
	return next, changes
}
