package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is the optional initial state for an empty settings store. Amounts
// stay strings here and are parsed as decimals by the caller.
type Seed struct {
	ProfitSharingEnabled *bool              `yaml:"profit_sharing_enabled"`
	ProfitTiers          []SeedProfitTier   `yaml:"profit_tiers"`
	ReferralTiers        []SeedReferralTier `yaml:"referral_tiers"`
	Accounts             []SeedAccount      `yaml:"accounts"`
}

type SeedProfitTier struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	MinAmount        string `yaml:"min_amount"`
	MaxAmount        string `yaml:"max_amount"`
	DailyRatePercent string `yaml:"daily_rate_percent"`
}

type SeedReferralTier struct {
	MinReferrals int64  `yaml:"min_referrals"`
	MaxReferrals int64  `yaml:"max_referrals"`
	RewardAmount string `yaml:"reward_amount"`
}

// SeedAccount is only honoured by local databases; production account views
// are owned by the wallet service.
type SeedAccount struct {
	SubjectID      string `yaml:"subject_id"`
	Balance        string `yaml:"balance"`
	DepositBalance string `yaml:"deposit_balance"`
	Status         string `yaml:"status"`
}

// LoadSeed reads the YAML seed file from disk.
func LoadSeed(path string) (Seed, error) {
	if strings.TrimSpace(path) == "" {
		return Seed{}, fmt.Errorf("seed path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seed: %w", err)
	}
	defer file.Close()

	var seed Seed
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, account := range seed.Accounts {
		if strings.TrimSpace(account.SubjectID) == "" {
			return Seed{}, fmt.Errorf("accounts[%d]: subject_id required", i)
		}
	}
	return seed, nil
}
