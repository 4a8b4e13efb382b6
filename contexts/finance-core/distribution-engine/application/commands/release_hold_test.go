package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
)

func TestReleaseHoldRequiresActiveHold(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))
	ctx := context.Background()

	err := f.release.Execute(ctx, commands.ReleaseHoldCommand{SubjectID: "user-1", ActorID: "admin-1"})
	require.ErrorIs(t, err, domainerrors.ErrHoldNotFound)

	err = f.release.Execute(ctx, commands.ReleaseHoldCommand{SubjectID: "user-1"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidRequest)
}

func TestReleaseHoldReenablesDailyCredit(t *testing.T) {
	f := newFixture(t, account("user-1", "250"))
	ctx := context.Background()
	_, err := f.store.PlaceHold(ctx, entities.CreditHold{SubjectID: "user-1", PlacedAt: fixtureNow},
		entities.AuditRecord{AuditID: "hold-1", Action: entities.AuditCreditHoldPlaced})
	require.NoError(t, err)

	require.NoError(t, f.release.Execute(ctx, commands.ReleaseHoldCommand{SubjectID: "user-1", ActorID: "admin-1", Note: "balance reconciled"}))

	_, active, err := f.store.GetActiveHold(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, active)

	released := f.auditActions(t, entities.AuditCreditHoldReleased)
	require.Len(t, released, 1)
	require.Equal(t, "balance reconciled", released[0].Details["note"])

	result, err := f.run.Execute(ctx, commands.RunDistributionCommand{PeriodKey: "2026-03-14"})
	require.NoError(t, err)
	require.Equal(t, 1, result.UsersProcessed)
}
