package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

func TestRunDistributionCreditsEachSubjectOncePerPeriod(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))
	ctx := context.Background()

	first, err := f.run.Execute(ctx, commands.RunDistributionCommand{PeriodKey: "2026-03-14", ActorID: "admin-1"})
	require.NoError(t, err)
	require.True(t, first.Enabled)
	require.NotEmpty(t, first.RunID)
	require.Equal(t, 1, first.UsersProcessed)
	require.Equal(t, "10.00", first.TotalAmountCredited.StringFixed(2))
	require.Len(t, first.Credits, 1)
	require.Equal(t, "T2", first.Credits[0].TierID)
	require.Equal(t, "10.00", f.balance(t, "user-1"))

	second, err := f.run.Execute(ctx, commands.RunDistributionCommand{PeriodKey: "2026-03-14", ActorID: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, 0, second.UsersProcessed)
	require.Equal(t, 1, second.UsersAlreadyCredited)
	require.Empty(t, second.Errors)
	require.Equal(t, "0.00", second.TotalAmountCredited.StringFixed(2))
	require.Equal(t, "10.00", f.balance(t, "user-1"))

	entries, total, err := f.store.ListLedgerEntries(ctx, ports.LedgerFilter{SubjectID: "user-1", Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "2026-03-14", entries[0].PeriodKey)
	require.Equal(t, "250.00", entries[0].BalanceSnapshot.StringFixed(2))
	require.Equal(t, "4", entries[0].RatePercent.String())
	require.False(t, entries[0].IsCustom)

	transactions := f.store.Transactions()
	require.Len(t, transactions, 1)
	require.Equal(t, entities.TransactionProfitShare, transactions[0].Type)
	require.Equal(t, "0.00", transactions[0].PreviousBalance.StringFixed(2))
	require.Equal(t, "10.00", transactions[0].NewBalance.StringFixed(2))
	require.Equal(t, entries[0].EntryID, transactions[0].ReferenceID)

	require.Len(t, f.store.OutboxEvents(), 1)
	require.Len(t, f.auditActions(t, entities.AuditProfitShareCredited), 1)
	require.Len(t, f.auditActions(t, entities.AuditCreditAlreadyApplied), 1)
}

func TestRunDistributionNextPeriodCreditsAgain(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))
	ctx := context.Background()

	_, err := f.run.Execute(ctx, commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	result, err := f.run.Execute(ctx, commands.RunDistributionCommand{PeriodKey: "2026-03-15"})
	require.NoError(t, err)
	require.Equal(t, 1, result.UsersProcessed)
	require.Equal(t, "20.00", f.balance(t, "user-1"))
}

func TestRunDistributionDefaultsToTodayInUTC(t *testing.T) {
	f := newFixture(t, account("user-1", "50"))

	result, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{})
	require.NoError(t, err)
	require.Equal(t, "2026-03-14", result.PeriodKey)
	require.Equal(t, "1.50", result.TotalAmountCredited.StringFixed(2))
}

func TestRunDistributionSkipsSubjectsWithoutMatchingTier(t *testing.T) {
	suspended := account("user-suspended", "250")
	suspended.Status = entities.AccountStatusSuspended
	f := newFixture(t,
		account("user-1", "250"),
		account("user-2", "6000"),
		account("user-3", "0"),
		suspended,
	)

	result, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.Equal(t, 1, result.UsersProcessed)
	require.Equal(t, 1, result.UsersSkipped)
	require.Empty(t, result.Errors)
	require.Equal(t, "0.00", f.balance(t, "user-2"))
	require.Equal(t, "0.00", f.balance(t, "user-suspended"))
}

func TestRunDistributionIsolatesSubjectFailures(t *testing.T) {
	f := newFixture(t,
		account("user-1", "250"),
		account("user-2", "250"),
		account("user-3", "600"),
	)
	f.run.Ledger = failingLedger{
		next:     f.store,
		failures: map[string]error{"user-2": errors.New("connection reset")},
	}

	result, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.Equal(t, 2, result.UsersProcessed)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "user-2", result.Errors[0].SubjectID)
	require.Contains(t, result.Errors[0].Reason, domainerrors.ErrPersistence.Error())
	require.Equal(t, "46.00", result.TotalAmountCredited.StringFixed(2))

	require.Equal(t, "10.00", f.balance(t, "user-1"))
	require.Equal(t, "0.00", f.balance(t, "user-2"))
	require.Equal(t, "36.00", f.balance(t, "user-3"))

	failed := f.auditActions(t, entities.AuditCreditFailed)
	require.Len(t, failed, 1)
	require.Equal(t, "user-2", failed[0].TargetID)

	// The failed subject is picked up by a repeat of the same period.
	f.run.Ledger = f.store
	retry, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.Equal(t, 1, retry.UsersProcessed)
	require.Equal(t, 2, retry.UsersAlreadyCredited)
	require.Equal(t, "10.00", f.balance(t, "user-2"))
}

func TestRunDistributionHeldSubjectReportsInconsistentState(t *testing.T) {
	f := newFixture(t, account("user-1", "250"), account("user-2", "250"))
	placed, err := f.store.PlaceHold(context.Background(), entities.CreditHold{
		SubjectID: "user-1",
		Reason:    "ledger row without balance transaction",
		PlacedAt:  fixtureNow,
	}, entities.AuditRecord{AuditID: "hold-1", Action: entities.AuditCreditHoldPlaced})
	require.NoError(t, err)
	require.True(t, placed)

	result, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.Equal(t, 1, result.UsersProcessed)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "user-1", result.Errors[0].SubjectID)
	require.Contains(t, result.Errors[0].Reason, domainerrors.ErrInconsistentState.Error())
	require.Equal(t, "0.00", f.balance(t, "user-1"))
}

func TestRunDistributionPagesThroughAllAccounts(t *testing.T) {
	f := newFixture(t,
		account("user-1", "100"),
		account("user-2", "100"),
		account("user-3", "100"),
		account("user-4", "100"),
		account("user-5", "100"),
	)

	result, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.Equal(t, 5, result.UsersProcessed)
	require.Equal(t, "15.00", result.TotalAmountCredited.StringFixed(2))
	for i, credit := range result.Credits {
		require.Equal(t, []string{"user-1", "user-2", "user-3", "user-4", "user-5"}[i], credit.SubjectID)
	}
}

func TestRunDistributionCancellationStopsNewSubjects(t *testing.T) {
	f := newFixture(t,
		account("user-1", "250"),
		account("user-2", "250"),
		account("user-3", "250"),
		account("user-4", "250"),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.run.Accounts = &cancellingAccounts{AccountStore: f.store, cancel: cancel}

	result, err := f.run.Execute(ctx, commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.True(t, result.Cancelled)
	require.Equal(t, 2, result.UsersProcessed)
	require.Equal(t, "10.00", f.balance(t, "user-1"))
	require.Equal(t, "10.00", f.balance(t, "user-2"))
	require.Equal(t, "0.00", f.balance(t, "user-3"))
	require.Equal(t, "0.00", f.balance(t, "user-4"))

	runs := f.auditActions(t, entities.AuditProfitShareRun)
	require.Len(t, runs, 1)
	require.Equal(t, true, runs[0].Details["cancelled"])
}

func TestRunDistributionCancelledBeforeStartCreditsNothing(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.run.Execute(ctx, commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.True(t, result.Cancelled)
	require.Zero(t, result.UsersProcessed)
	require.Equal(t, "0.00", f.balance(t, "user-1"))
}

func TestRunDistributionDisabledToggleSkipsRun(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))
	disabled := false
	_, err := f.settings.Execute(context.Background(), commands.UpdateSettingsCommand{
		Section: entities.PlatformTogglesSection{ProfitSharingEnabled: &disabled},
		ActorID: "admin-1",
	})
	require.NoError(t, err)

	result, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.False(t, result.Enabled)
	require.Empty(t, result.RunID)
	require.Equal(t, "0.00", f.balance(t, "user-1"))
}

func TestRunDistributionRejectsMalformedPeriodKey(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))

	_, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "14/03/2026"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidPeriodKey)
}

func TestRunDistributionAuditsRunAndReportsMetrics(t *testing.T) {
	f := newFixture(t, account("user-1", "250"), account("user-2", "9000"))
	metrics := &recordingMetrics{}
	f.run.Metrics = metrics

	result, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "2026-03-14", ActorID: "admin-7"})
	require.NoError(t, err)

	runs := f.auditActions(t, entities.AuditProfitShareRun)
	require.Len(t, runs, 1)
	require.Equal(t, "admin-7", runs[0].ActorID)
	require.Equal(t, result.RunID, runs[0].EntityID)
	require.Equal(t, "10.00", runs[0].Details["totalAmountCredited"])

	require.Equal(t, 1, metrics.credits[ports.OutcomeCredited])
	require.Equal(t, 1, metrics.credits[ports.OutcomeSkipped])
	require.Len(t, metrics.runs, 1)
	require.Equal(t, 1, metrics.runs[0].Processed)
	require.Equal(t, 1, metrics.runs[0].Skipped)
}

func TestRunDistributionScheduledRunUsesSystemActor(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))

	_, err := f.run.Execute(context.Background(), commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)

	entries, _, err := f.store.ListLedgerEntries(context.Background(), ports.LedgerFilter{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, entities.SystemActor, entries[0].CreatedBy)
}
