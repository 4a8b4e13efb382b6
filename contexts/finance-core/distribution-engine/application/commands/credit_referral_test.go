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

func TestCreditReferralPaysOncePerReferredUser(t *testing.T) {
	f := newFixture(t, account("referrer-1", "0"))
	ctx := context.Background()
	cmd := commands.CreditReferralCommand{
		ReferrerID:   "referrer-1",
		ReferredID:   "new-user-1",
		TriggerEvent: "first_deposit",
	}

	first, err := f.referral.Execute(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, commands.ReferralCredited, first.Outcome)
	require.Equal(t, "5.00", first.Credit.Amount.StringFixed(2))
	require.Equal(t, "REFERRAL_0_9", first.Credit.TierAtTime)
	require.Equal(t, entities.ReferralCreditCredited, first.Credit.Status)
	require.Equal(t, "5.00", first.NewBalance.StringFixed(2))

	second, err := f.referral.Execute(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, commands.ReferralAlreadyCredited, second.Outcome)
	require.Equal(t, "5.00", f.balance(t, "referrer-1"))

	referrer, err := f.store.GetAccount(ctx, "referrer-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, referrer.ReferralCount)

	transactions := f.store.Transactions()
	require.Len(t, transactions, 1)
	require.Equal(t, entities.TransactionReferralReward, transactions[0].Type)
}

func TestCreditReferralFirstQualifyingTriggerWins(t *testing.T) {
	f := newFixture(t, account("referrer-1", "0"))
	f.referral.QualifyingEvents = []entities.TriggerEvent{
		entities.TriggerEmailVerified,
		entities.TriggerFirstDeposit,
	}
	ctx := context.Background()

	first, err := f.referral.Execute(ctx, commands.CreditReferralCommand{
		ReferrerID: "referrer-1", ReferredID: "new-user-1", TriggerEvent: "email_verified",
	})
	require.NoError(t, err)
	require.Equal(t, commands.ReferralCredited, first.Outcome)

	second, err := f.referral.Execute(ctx, commands.CreditReferralCommand{
		ReferrerID: "referrer-1", ReferredID: "new-user-1", TriggerEvent: "first_deposit",
	})
	require.NoError(t, err)
	require.Equal(t, commands.ReferralAlreadyCredited, second.Outcome)
	require.Equal(t, "5.00", f.balance(t, "referrer-1"))
}

func TestCreditReferralIgnoresNonQualifyingTrigger(t *testing.T) {
	f := newFixture(t, account("referrer-1", "0"))

	result, err := f.referral.Execute(context.Background(), commands.CreditReferralCommand{
		ReferrerID: "referrer-1", ReferredID: "new-user-1", TriggerEvent: "signup",
	})
	require.NoError(t, err)
	require.Equal(t, commands.ReferralIgnored, result.Outcome)
	require.Equal(t, "0.00", f.balance(t, "referrer-1"))
}

func TestCreditReferralRewardFollowsReferralCountTier(t *testing.T) {
	referrer := account("referrer-1", "0")
	referrer.ReferralCount = 10
	f := newFixture(t, referrer)

	result, err := f.referral.Execute(context.Background(), commands.CreditReferralCommand{
		ReferrerID: "referrer-1", ReferredID: "new-user-11", TriggerEvent: "first_deposit",
	})
	require.NoError(t, err)
	require.Equal(t, "8.00", result.Credit.Amount.StringFixed(2))
	require.Equal(t, "REFERRAL_10_19", result.Credit.TierAtTime)
}

func TestCreditReferralRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, account("referrer-1", "0"))
	ctx := context.Background()

	_, err := f.referral.Execute(ctx, commands.CreditReferralCommand{
		ReferrerID: "referrer-1", ReferredID: "referrer-1", TriggerEvent: "first_deposit",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidReferral)

	_, err = f.referral.Execute(ctx, commands.CreditReferralCommand{
		ReferrerID: "referrer-1", ReferredID: "new-user-1", TriggerEvent: "purchase",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidTriggerEvent)

	_, err = f.referral.Execute(ctx, commands.CreditReferralCommand{
		ReferrerID: "referrer-unknown", ReferredID: "new-user-1", TriggerEvent: "first_deposit",
	})
	require.ErrorIs(t, err, domainerrors.ErrAccountNotFound)

	_, err = f.referral.Execute(ctx, commands.CreditReferralCommand{ReferredID: "new-user-1", TriggerEvent: "first_deposit"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidRequest)
}

func TestCreditReferralBlockedByHoldUntilReleased(t *testing.T) {
	f := newFixture(t, account("referrer-1", "0"))
	ctx := context.Background()
	_, err := f.store.PlaceHold(ctx, entities.CreditHold{SubjectID: "referrer-1", PlacedAt: fixtureNow},
		entities.AuditRecord{AuditID: "hold-1", Action: entities.AuditCreditHoldPlaced})
	require.NoError(t, err)

	cmd := commands.CreditReferralCommand{ReferrerID: "referrer-1", ReferredID: "new-user-1", TriggerEvent: "first_deposit"}
	_, err = f.referral.Execute(ctx, cmd)
	require.ErrorIs(t, err, domainerrors.ErrInconsistentState)
	require.Equal(t, "0.00", f.balance(t, "referrer-1"))

	require.NoError(t, f.release.Execute(ctx, commands.ReleaseHoldCommand{SubjectID: "referrer-1", ActorID: "admin-1", Note: "reconciled"}))

	result, err := f.referral.Execute(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, commands.ReferralCredited, result.Outcome)
	require.Equal(t, "5.00", f.balance(t, "referrer-1"))
}

func TestCreditReferralRewardsStayInCents(t *testing.T) {
	f := newFixture(t, account("referrer-1", "0"))
	ctx := context.Background()

	_, err := f.settings.Execute(ctx, commands.UpdateSettingsCommand{
		Section: entities.ReferralTiersSection{Tiers: []entities.ReferralTier{
			{MinReferrals: 0, MaxReferrals: 9, RewardAmount: decimal.RequireFromString("5.555")},
		}},
		ActorID: "admin-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidTierTable)

	result, err := f.referral.Execute(ctx, commands.CreditReferralCommand{
		ReferrerID: "referrer-1", ReferredID: "new-user-1", TriggerEvent: "first_deposit",
	})
	require.NoError(t, err)
	require.Equal(t, commands.ReferralCredited, result.Outcome)

	referrer, err := f.store.GetAccount(ctx, "referrer-1")
	require.NoError(t, err)
	require.True(t, referrer.Balance.Equal(decimal.RequireFromString("5.00")), referrer.Balance.String())
}
