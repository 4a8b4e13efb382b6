package queries

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/services"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

type DistributionStats struct {
	TotalDistributed     decimal.Decimal
	TotalRecords         int64
	TotalRecipients      int64
	AverageShare         decimal.Decimal
	LastRunAt            *time.Time
	IsEnabled            bool
	SettingsVersion      int64
	TodayEstimatedProfit decimal.Decimal
	EligibleUserCount    int64
}

// DistributionStatsUseCase reports ledger totals and what a run would credit
// right now with the current settings.
type DistributionStatsUseCase struct {
	Ledger   ports.LedgerReader
	Accounts ports.AccountStore
	Settings ports.SettingsStore
	Clock    ports.Clock
	PageSize int
	Logger   *slog.Logger
}

func (u DistributionStatsUseCase) Execute(ctx context.Context) (DistributionStats, error) {
	logger := application.ResolveLogger(u.Logger)
	totals, err := u.Ledger.LedgerTotals(ctx)
	if err != nil {
		logger.Error("ledger totals failed",
			"event", "distribution_stats_totals_failed",
			"module", application.ModuleName,
			"layer", "application",
			"error", err.Error(),
		)
		return DistributionStats{}, err
	}
	settings, err := application.LoadSettings(ctx, u.Settings, u.Clock)
	if err != nil {
		return DistributionStats{}, err
	}

	stats := DistributionStats{
		TotalDistributed:     totals.TotalDistributed,
		TotalRecords:         totals.TotalRecords,
		TotalRecipients:      totals.TotalRecipients,
		AverageShare:         decimal.Zero,
		LastRunAt:            totals.LastCreditedAt,
		IsEnabled:            settings.Toggles.ProfitSharingEnabled,
		SettingsVersion:      settings.Version,
		TodayEstimatedProfit: decimal.Zero,
	}
	if totals.TotalRecords > 0 {
		stats.AverageShare = totals.TotalDistributed.Div(decimal.NewFromInt(totals.TotalRecords)).Round(2)
	}

	table := services.NewProfitTierTable(settings.ProfitTiers)
	limit := u.PageSize
	if limit <= 0 {
		limit = 500
	}
	after := ""
	for {
		accounts, err := u.Accounts.ListEligibleAccounts(ctx, after, limit)
		if err != nil {
			return DistributionStats{}, err
		}
		for _, account := range accounts {
			tier, err := table.Resolve(account.DepositBalance)
			if err != nil {
				continue
			}
			stats.TodayEstimatedProfit = stats.TodayEstimatedProfit.Add(
				services.ProfitAmount(account.DepositBalance, tier.DailyRatePercent),
			)
			stats.EligibleUserCount++
		}
		if len(accounts) < limit {
			break
		}
		after = accounts[len(accounts)-1].SubjectID
	}
	stats.TodayEstimatedProfit = stats.TodayEstimatedProfit.Round(2)
	return stats, nil
}
