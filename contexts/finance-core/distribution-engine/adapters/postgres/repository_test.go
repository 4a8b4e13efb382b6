package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
	contractsv1 "profitshare/contracts/gen/events/v1"
)

var repoNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, AutoMigrate(db))
	return NewRepository(db, nil)
}

func seedAccount(t *testing.T, repo *Repository, subjectID string, deposit int64, status entities.AccountStatus) {
	t.Helper()
	require.NoError(t, repo.UpsertAccount(context.Background(), entities.Account{
		SubjectID:      subjectID,
		Balance:        decimal.Zero,
		DepositBalance: decimal.NewFromInt(deposit),
		Status:         status,
		UpdatedAt:      repoNow,
	}))
}

func profitCredit(id string, subjectID string, periodKey string, amount int64) ports.CreditWrite {
	value := decimal.NewFromInt(amount)
	entryID := "entry-" + id
	return ports.CreditWrite{
		Kind:      ports.CreditKindProfit,
		SubjectID: subjectID,
		Amount:    value,
		ProfitEntry: &entities.LedgerEntry{
			EntryID:     entryID,
			SubjectID:   subjectID,
			PeriodKey:   periodKey,
			TierID:      "T2",
			TierName:    "Growth",
			RatePercent: decimal.NewFromInt(4),
			Amount:      value,
			CreatedBy:   entities.SystemActor,
			CreatedAt:   repoNow,
		},
		Transaction: entities.BalanceTransaction{
			TransactionID: "tx-" + id,
			SubjectID:     subjectID,
			Type:          entities.TransactionProfitShare,
			Amount:        value,
			Status:        entities.TransactionStatusCompleted,
			ReferenceID:   entryID,
			CreatedAt:     repoNow,
		},
		Audit: entities.AuditRecord{
			AuditID:    "audit-" + id,
			Action:     entities.AuditProfitShareCredited,
			ActorID:    entities.SystemActor,
			TargetID:   subjectID,
			EntityType: "profit_share_ledger",
			EntityID:   entryID,
			Details:    map[string]any{"amount": value.StringFixed(2)},
			CreatedAt:  repoNow,
		},
		Event: ports.CreditedEvent{
			EventID:      "event-" + id,
			EventType:    contractsv1.EventTypeProfitShareCredited,
			SubjectID:    subjectID,
			Kind:         ports.CreditKindProfit,
			Amount:       value,
			PeriodKey:    periodKey,
			ReferenceID:  entryID,
			PartitionKey: subjectID,
			OccurredAt:   repoNow,
		},
	}
}

func referralCredit(id string, referrerID string, referredID string, amount int64) ports.CreditWrite {
	write := profitCredit(id, referrerID, "", amount)
	write.Kind = ports.CreditKindReferral
	write.ProfitEntry = nil
	write.ReferralCredit = &entities.ReferralCredit{
		CreditID:     "credit-" + id,
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		Amount:       decimal.NewFromInt(amount),
		Status:       entities.ReferralCreditCredited,
		TriggerEvent: entities.TriggerFirstDeposit,
		TierAtTime:   "REFERRAL_0_9",
		CreatedAt:    repoNow,
	}
	write.Transaction.Type = entities.TransactionReferralReward
	write.Transaction.ReferenceID = "credit-" + id
	write.Audit.Action = entities.AuditReferralCredited
	write.Event.EventType = contractsv1.EventTypeReferralCredited
	write.Event.Kind = ports.CreditKindReferral
	write.Event.ReferredID = referredID
	return write
}

func TestRepositorySettingsVersioning(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetSettings(ctx)
	require.ErrorIs(t, err, domainerrors.ErrSettingsNotFound)

	settings := entities.DefaultSettings(repoNow)
	require.NoError(t, repo.SaveSettings(ctx, settings, 0, entities.AuditRecord{AuditID: "s1", Action: entities.AuditSettingsUpdated, CreatedAt: repoNow}))
	require.ErrorIs(t, repo.SaveSettings(ctx, settings, 0, entities.AuditRecord{AuditID: "s2", CreatedAt: repoNow}), domainerrors.ErrSettingsConflict)

	next, _ := settings.Apply(entities.ReferralTiersSection{Tiers: []entities.ReferralTier{
		{MinReferrals: 0, MaxReferrals: 1000, RewardAmount: decimal.RequireFromString("7.5")},
	}}, "admin-1", repoNow)
	require.NoError(t, repo.SaveSettings(ctx, next, settings.Version, entities.AuditRecord{AuditID: "s3", CreatedAt: repoNow}))
	require.ErrorIs(t, repo.SaveSettings(ctx, next, settings.Version, entities.AuditRecord{AuditID: "s4", CreatedAt: repoNow}), domainerrors.ErrSettingsConflict)

	stored, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, next.Version, stored.Version)
	require.Equal(t, "admin-1", stored.LastModifiedBy)
	require.Len(t, stored.ProfitTiers, len(settings.ProfitTiers))
	require.Len(t, stored.ReferralTiers, 1)
	require.Equal(t, "7.50", stored.ReferralTiers[0].RewardAmount.StringFixed(2))

	audits, total, err := repo.ListAuditRecords(ctx, ports.AuditFilter{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, audits, 2)
}

func TestRepositoryApplyCreditOncePerPeriod(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccount(t, repo, "user-1", 250, entities.AccountStatusActive)

	receipt, err := repo.ApplyCredit(ctx, profitCredit("1", "user-1", "2026-03-14", 10))
	require.NoError(t, err)
	require.Equal(t, "0.00", receipt.PreviousBalance.StringFixed(2))
	require.Equal(t, "10.00", receipt.NewBalance.StringFixed(2))

	_, err = repo.ApplyCredit(ctx, profitCredit("2", "user-1", "2026-03-14", 10))
	require.ErrorIs(t, err, domainerrors.ErrAlreadyCredited)

	_, err = repo.ApplyCredit(ctx, profitCredit("3", "user-1", "2026-03-15", 10))
	require.NoError(t, err)

	account, err := repo.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "20.00", account.Balance.StringFixed(2))
	require.NotNil(t, account.LastProfitShareAt)

	entries, total, err := repo.ListLedgerEntries(ctx, ports.LedgerFilter{SubjectID: "user-1", Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, entries, 2)

	totals, err := repo.LedgerTotals(ctx)
	require.NoError(t, err)
	require.Equal(t, "20.00", totals.TotalDistributed.StringFixed(2))
	require.EqualValues(t, 2, totals.TotalRecords)
	require.EqualValues(t, 1, totals.TotalRecipients)
	require.NotNil(t, totals.LastCreditedAt)

	pending, err := repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "user-1", pending[0].PartitionKey)
}

func TestRepositoryApplyCreditConcurrentSameKey(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccount(t, repo, "user-1", 250, entities.AccountStatusActive)

	var wg sync.WaitGroup
	var mu sync.Mutex
	credited := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.ApplyCredit(ctx, profitCredit(fmt.Sprint(i), "user-1", "2026-03-14", 10))
			if err == nil {
				mu.Lock()
				credited++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domainerrors.ErrAlreadyCredited) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, credited)
	account, err := repo.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "10.00", account.Balance.StringFixed(2))
}

func TestRepositoryApplyCreditRollsBackOnFailure(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.ApplyCredit(ctx, profitCredit("1", "user-missing", "2026-03-14", 10))
	require.ErrorIs(t, err, domainerrors.ErrAccountNotFound)

	_, total, err := repo.ListLedgerEntries(ctx, ports.LedgerFilter{Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)
	pending, err := repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRepositoryReferralCredits(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccount(t, repo, "referrer-1", 0, entities.AccountStatusActive)

	_, err := repo.ApplyCredit(ctx, referralCredit("1", "referrer-1", "referred-a", 5))
	require.NoError(t, err)
	_, err = repo.ApplyCredit(ctx, referralCredit("2", "referrer-1", "referred-a", 5))
	require.ErrorIs(t, err, domainerrors.ErrAlreadyCredited)
	_, err = repo.ApplyCredit(ctx, referralCredit("3", "referrer-1", "referred-b", 5))
	require.NoError(t, err)

	account, err := repo.GetAccount(ctx, "referrer-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, account.ReferralCount)
	require.Equal(t, "10.00", account.Balance.StringFixed(2))

	credits, total, err := repo.ListReferralCredits(ctx, "referrer-1", 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, credits, 2)
	require.Equal(t, entities.TriggerFirstDeposit, credits[0].TriggerEvent)

	totals, err := repo.ReferralTotals(ctx, "referrer-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, totals.TotalReferrals)
	require.EqualValues(t, 2, totals.ActiveReferrals)
	require.Equal(t, "10.00", totals.TotalEarned.StringFixed(2))
}

func TestRepositoryListEligibleAccounts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccount(t, repo, "user-3", 100, entities.AccountStatusActive)
	seedAccount(t, repo, "user-1", 100, entities.AccountStatusActive)
	seedAccount(t, repo, "user-2", 0, entities.AccountStatusActive)
	seedAccount(t, repo, "user-4", 100, entities.AccountStatusSuspended)
	seedAccount(t, repo, "user-5", 100, entities.AccountStatusActive)

	page, err := repo.ListEligibleAccounts(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "user-1", page[0].SubjectID)
	require.Equal(t, "user-3", page[1].SubjectID)

	page, err = repo.ListEligibleAccounts(ctx, "user-3", 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "user-5", page[0].SubjectID)
}

func TestRepositoryHoldsBlockCredits(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccount(t, repo, "user-1", 250, entities.AccountStatusActive)

	require.ErrorIs(t, repo.ReleaseHold(ctx, "user-1", "admin-1", repoNow, entities.AuditRecord{AuditID: "r0", CreatedAt: repoNow}), domainerrors.ErrHoldNotFound)

	hold := entities.CreditHold{SubjectID: "user-1", Reason: "ledger row without transaction", PlacedAt: repoNow}
	placed, err := repo.PlaceHold(ctx, hold, entities.AuditRecord{AuditID: "h1", Action: entities.AuditCreditHoldPlaced, CreatedAt: repoNow})
	require.NoError(t, err)
	require.True(t, placed)
	placed, err = repo.PlaceHold(ctx, hold, entities.AuditRecord{AuditID: "h2", CreatedAt: repoNow})
	require.NoError(t, err)
	require.False(t, placed)

	active, ok, err := repo.GetActiveHold(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ledger row without transaction", active.Reason)

	_, err = repo.ApplyCredit(ctx, profitCredit("1", "user-1", "2026-03-14", 10))
	require.ErrorIs(t, err, domainerrors.ErrInconsistentState)

	require.NoError(t, repo.ReleaseHold(ctx, "user-1", "admin-1", repoNow, entities.AuditRecord{AuditID: "r1", Action: entities.AuditCreditHoldReleased, CreatedAt: repoNow}))
	_, ok, err = repo.GetActiveHold(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = repo.ApplyCredit(ctx, profitCredit("2", "user-1", "2026-03-14", 10))
	require.NoError(t, err)

	placed, err = repo.PlaceHold(ctx, hold, entities.AuditRecord{AuditID: "h3", CreatedAt: repoNow})
	require.NoError(t, err)
	require.True(t, placed)
}

func TestRepositoryListUnbackedCredits(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccount(t, repo, "user-1", 250, entities.AccountStatusActive)
	seedAccount(t, repo, "user-2", 250, entities.AccountStatusActive)

	_, err := repo.ApplyCredit(ctx, profitCredit("1", "user-1", "2026-03-14", 10))
	require.NoError(t, err)

	orphan := ledgerModelFromEntity(entities.LedgerEntry{
		EntryID:   "orphan-1",
		SubjectID: "user-2",
		PeriodKey: "2026-03-14",
		Amount:    decimal.NewFromInt(10),
		CreatedAt: repoNow,
	})
	require.NoError(t, repo.db.Create(&orphan).Error)

	unbacked, err := repo.ListUnbackedCredits(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unbacked, 1)
	require.Equal(t, "orphan-1", unbacked[0].ReferenceID)
	require.Equal(t, ports.CreditKindProfit, unbacked[0].Kind)

	_, err = repo.PlaceHold(ctx, entities.CreditHold{SubjectID: "user-2", PlacedAt: repoNow}, entities.AuditRecord{AuditID: "h1", CreatedAt: repoNow})
	require.NoError(t, err)
	unbacked, err = repo.ListUnbackedCredits(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, unbacked)
}

func TestRepositoryOutboxAndDedup(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccount(t, repo, "user-1", 250, entities.AccountStatusActive)

	_, err := repo.ApplyCredit(ctx, profitCredit("1", "user-1", "2026-03-14", 10))
	require.NoError(t, err)
	pending, err := repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, repo.MarkOutboxSent(ctx, pending[0].OutboxID, repoNow))
	require.ErrorIs(t, repo.MarkOutboxSent(ctx, "missing", repoNow), errOutboxInvariantBroke)
	pending, err = repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	duplicate, err := repo.ReserveEvent(ctx, "evt-1", "hash-a", repoNow.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, duplicate)
	duplicate, err = repo.ReserveEvent(ctx, "evt-1", "hash-a", repoNow.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, duplicate)
	_, err = repo.ReserveEvent(ctx, "evt-1", "hash-b", repoNow.Add(time.Hour))
	require.ErrorIs(t, err, domainerrors.ErrInvalidRequest)

	require.NoError(t, repo.ReleaseEvent(ctx, "evt-1"))
	duplicate, err = repo.ReserveEvent(ctx, "evt-1", "hash-b", repoNow.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, duplicate)
}
