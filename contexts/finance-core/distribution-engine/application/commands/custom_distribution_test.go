package commands_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
)

func TestCustomDistributionRejectedAfterDailyRun(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))
	ctx := context.Background()

	_, err := f.run.Execute(ctx, commands.RunDistributionCommand{})
	require.NoError(t, err)
	require.Equal(t, "10.00", f.balance(t, "user-1"))

	_, err = f.custom.Execute(ctx, commands.CustomDistributionCommand{
		SubjectID:   "user-1",
		RatePercent: decimal.NewFromInt(5),
		ActorID:     "admin-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyCredited)
	require.Equal(t, "10.00", f.balance(t, "user-1"))
	require.Len(t, f.store.Transactions(), 1)
}

func TestCustomDistributionCreditsAndBlocksDailyRun(t *testing.T) {
	f := newFixture(t, account("user-1", "111.11"))
	ctx := context.Background()

	result, err := f.custom.Execute(ctx, commands.CustomDistributionCommand{
		SubjectID:   "user-1",
		RatePercent: decimal.RequireFromString("4.5"),
		ActorID:     "admin-1",
	})
	require.NoError(t, err)
	require.Equal(t, "5.00", result.Entry.Amount.StringFixed(2))
	require.True(t, result.Entry.IsCustom)
	require.Equal(t, entities.CustomTierName, result.Entry.TierName)
	require.Equal(t, "2026-03-14", result.Entry.PeriodKey)
	require.Equal(t, "admin-1", result.Entry.CreatedBy)
	require.Equal(t, "0.00", result.PreviousBalance.StringFixed(2))
	require.Equal(t, "5.00", result.NewBalance.StringFixed(2))

	run, err := f.run.Execute(ctx, commands.RunDistributionCommand{})
	require.NoError(t, err)
	require.Equal(t, 0, run.UsersProcessed)
	require.Equal(t, 1, run.UsersAlreadyCredited)
	require.Equal(t, "5.00", f.balance(t, "user-1"))

	custom := f.auditActions(t, entities.AuditCustomProfitShare)
	require.Len(t, custom, 1)
	require.Equal(t, "admin-1", custom[0].ActorID)
	require.Equal(t, "4.5", custom[0].Details["ratePercent"])
}

func TestCustomDistributionIgnoresTierTableAndToggle(t *testing.T) {
	f := newFixture(t, account("user-1", "9000"))
	disabled := false
	_, err := f.settings.Execute(context.Background(), commands.UpdateSettingsCommand{
		Section: entities.PlatformTogglesSection{ProfitSharingEnabled: &disabled},
		ActorID: "admin-1",
	})
	require.NoError(t, err)

	result, err := f.custom.Execute(context.Background(), commands.CustomDistributionCommand{
		SubjectID:   "user-1",
		RatePercent: decimal.RequireFromString("0.5"),
		ActorID:     "admin-1",
	})
	require.NoError(t, err)
	require.Equal(t, "45.00", result.Entry.Amount.StringFixed(2))
}

func TestCustomDistributionValidatesRate(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))

	for _, rate := range []string{"0", "-1", "100.01", "250", "0.00005", "4.12345"} {
		_, err := f.custom.Execute(context.Background(), commands.CustomDistributionCommand{
			SubjectID:   "user-1",
			RatePercent: decimal.RequireFromString(rate),
			ActorID:     "admin-1",
		})
		require.ErrorIs(t, err, domainerrors.ErrInvalidRate, rate)
	}
	require.Equal(t, "0.00", f.balance(t, "user-1"))
	require.Empty(t, f.store.Transactions())
}

func TestCustomDistributionRequiresDepositAndAccount(t *testing.T) {
	f := newFixture(t, account("user-empty", "0"))
	ctx := context.Background()

	_, err := f.custom.Execute(ctx, commands.CustomDistributionCommand{
		SubjectID:   "user-missing",
		RatePercent: decimal.NewFromInt(5),
		ActorID:     "admin-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrAccountNotFound)

	_, err = f.custom.Execute(ctx, commands.CustomDistributionCommand{
		SubjectID:   "user-empty",
		RatePercent: decimal.NewFromInt(5),
		ActorID:     "admin-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrNoDepositBalance)

	_, err = f.custom.Execute(ctx, commands.CustomDistributionCommand{
		SubjectID:   "user-empty",
		RatePercent: decimal.NewFromInt(5),
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidRequest)
}
