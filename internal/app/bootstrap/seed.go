package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/internal/platform/config"
)

// applySeed writes the seed's settings sections when nothing was stored yet.
// Seed accounts are only loaded into local SQLite databases.
func (e *Engine) applySeed(ctx context.Context, path string) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}

	if _, err := e.Repository.GetSettings(ctx); err == nil {
		e.Logger.Info("settings already stored, seed sections skipped",
			"event", "bootstrap_seed_settings_skipped",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	} else if errors.Is(err, domainerrors.ErrSettingsNotFound) {
		sections, err := seedSections(seed)
		if err != nil {
			return err
		}
		for _, section := range sections {
			if _, err := e.Module.Commands.UpdateSettings.Execute(ctx, commands.UpdateSettingsCommand{
				Section: section,
				ActorID: entities.SystemActor,
			}); err != nil {
				return fmt.Errorf("seed %s: %w", section.SectionName(), err)
			}
		}
	} else {
		return err
	}

	if len(seed.Accounts) == 0 {
		return nil
	}
	if e.Database.Driver != config.DriverSQLite {
		e.Logger.Warn("seed accounts ignored outside sqlite",
			"event", "bootstrap_seed_accounts_ignored",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"driver", e.Database.Driver,
			"accounts", len(seed.Accounts),
		)
		return nil
	}
	accounts, err := seedAccounts(seed.Accounts)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if err := e.Repository.UpsertAccount(ctx, account); err != nil {
			return fmt.Errorf("seed account %s: %w", account.SubjectID, err)
		}
	}
	e.Logger.Info("seed accounts loaded",
		"event", "bootstrap_seed_accounts_loaded",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"accounts", len(accounts),
	)
	return nil
}

func seedSections(seed config.Seed) ([]entities.SettingsSection, error) {
	var sections []entities.SettingsSection
	if len(seed.ProfitTiers) > 0 {
		tiers := make([]entities.ProfitTier, 0, len(seed.ProfitTiers))
		for i, item := range seed.ProfitTiers {
			minAmount, err := seedDecimal(fmt.Sprintf("profit_tiers[%d].min_amount", i), item.MinAmount)
			if err != nil {
				return nil, err
			}
			maxAmount, err := seedDecimal(fmt.Sprintf("profit_tiers[%d].max_amount", i), item.MaxAmount)
			if err != nil {
				return nil, err
			}
			rate, err := seedDecimal(fmt.Sprintf("profit_tiers[%d].daily_rate_percent", i), item.DailyRatePercent)
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, entities.ProfitTier{
				ID:               strings.TrimSpace(item.ID),
				Name:             strings.TrimSpace(item.Name),
				MinAmount:        minAmount,
				MaxAmount:        maxAmount,
				DailyRatePercent: rate,
			})
		}
		sections = append(sections, entities.ProfitTiersSection{Tiers: tiers})
	}
	if len(seed.ReferralTiers) > 0 {
		tiers := make([]entities.ReferralTier, 0, len(seed.ReferralTiers))
		for i, item := range seed.ReferralTiers {
			reward, err := seedDecimal(fmt.Sprintf("referral_tiers[%d].reward_amount", i), item.RewardAmount)
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, entities.ReferralTier{
				MinReferrals: item.MinReferrals,
				MaxReferrals: item.MaxReferrals,
				RewardAmount: reward,
			})
		}
		sections = append(sections, entities.ReferralTiersSection{Tiers: tiers})
	}
	if seed.ProfitSharingEnabled != nil {
		enabled := *seed.ProfitSharingEnabled
		sections = append(sections, entities.PlatformTogglesSection{ProfitSharingEnabled: &enabled})
	}
	return sections, nil
}

func seedAccounts(items []config.SeedAccount) ([]entities.Account, error) {
	accounts := make([]entities.Account, 0, len(items))
	for i, item := range items {
		balance, err := seedDecimal(fmt.Sprintf("accounts[%d].balance", i), item.Balance)
		if err != nil {
			return nil, err
		}
		deposit, err := seedDecimal(fmt.Sprintf("accounts[%d].deposit_balance", i), item.DepositBalance)
		if err != nil {
			return nil, err
		}
		status := entities.AccountStatus(strings.ToUpper(strings.TrimSpace(item.Status)))
		switch status {
		case "":
			status = entities.AccountStatusActive
		case entities.AccountStatusActive, entities.AccountStatusSuspended, entities.AccountStatusLocked:
		default:
			return nil, fmt.Errorf("accounts[%d].status: unknown status %q", i, item.Status)
		}
		accounts = append(accounts, entities.Account{
			SubjectID:      strings.TrimSpace(item.SubjectID),
			Balance:        balance,
			DepositBalance: deposit,
			Status:         status,
		})
	}
	return accounts, nil
}

func seedDecimal(field string, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", field, err)
	}
	return value, nil
}
