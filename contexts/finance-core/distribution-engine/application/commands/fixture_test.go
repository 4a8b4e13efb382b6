package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"profitshare/contexts/finance-core/distribution-engine/adapters/memory"
	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

var fixtureNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

type fixture struct {
	store    *memory.Store
	clock    fixedClock
	run      commands.RunDistributionUseCase
	custom   commands.CustomDistributionUseCase
	referral commands.CreditReferralUseCase
	settings commands.UpdateSettingsUseCase
	release  commands.ReleaseHoldUseCase
}

func account(subjectID string, deposit string) entities.Account {
	return entities.Account{
		SubjectID:      subjectID,
		Balance:        decimal.Zero,
		DepositBalance: decimal.RequireFromString(deposit),
		Status:         entities.AccountStatusActive,
	}
}

func tier(id string, minAmount, maxAmount, rate string) entities.ProfitTier {
	return entities.ProfitTier{
		ID:               id,
		Name:             id,
		MinAmount:        decimal.RequireFromString(minAmount),
		MaxAmount:        decimal.RequireFromString(maxAmount),
		DailyRatePercent: decimal.RequireFromString(rate),
	}
}

// newFixture stores the three-tier table used across these tests:
// 0..100 at 3%, 100..500 at 4%, 500..5000 at 6%.
func newFixture(t *testing.T, accounts ...entities.Account) *fixture {
	t.Helper()
	store := memory.NewStore(accounts, nil)
	clock := fixedClock{at: fixtureNow}

	settings := entities.DefaultSettings(fixtureNow)
	settings.ProfitTiers = []entities.ProfitTier{
		tier("T1", "0", "100", "3"),
		tier("T2", "100", "500", "4"),
		tier("T3", "500", "5000", "6"),
	}
	require.NoError(t, store.SaveSettings(context.Background(), settings, 0, entities.AuditRecord{
		AuditID: "seed-settings",
		Action:  entities.AuditSettingsUpdated,
		ActorID: entities.SystemActor,
	}))

	return &fixture{
		store: store,
		clock: clock,
		run: commands.RunDistributionUseCase{
			Settings:    store,
			Accounts:    store,
			Ledger:      store,
			Audit:       store,
			Clock:       clock,
			IDGenerator: store,
			Concurrency: 4,
			PageSize:    2,
		},
		custom: commands.CustomDistributionUseCase{
			Accounts:    store,
			Ledger:      store,
			Audit:       store,
			Clock:       clock,
			IDGenerator: store,
		},
		referral: commands.CreditReferralUseCase{
			Settings:    store,
			Accounts:    store,
			Ledger:      store,
			Audit:       store,
			Clock:       clock,
			IDGenerator: store,
			QualifyingEvents: []entities.TriggerEvent{
				entities.TriggerFirstDeposit,
			},
		},
		settings: commands.UpdateSettingsUseCase{
			Settings:    store,
			Clock:       clock,
			IDGenerator: store,
		},
		release: commands.ReleaseHoldUseCase{
			Holds:       store,
			Clock:       clock,
			IDGenerator: store,
		},
	}
}

func (f *fixture) balance(t *testing.T, subjectID string) string {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), subjectID)
	require.NoError(t, err)
	return acc.Balance.StringFixed(2)
}

func (f *fixture) auditActions(t *testing.T, action entities.AuditAction) []entities.AuditRecord {
	t.Helper()
	records, _, err := f.store.ListAuditRecords(context.Background(), ports.AuditFilter{Action: action, Limit: 1000})
	require.NoError(t, err)
	return records
}

// failingLedger fails credits for the listed subjects and delegates the rest.
type failingLedger struct {
	next     ports.CreditLedger
	failures map[string]error
}

func (l failingLedger) ApplyCredit(ctx context.Context, write ports.CreditWrite) (ports.CreditReceipt, error) {
	if err, ok := l.failures[write.SubjectID]; ok {
		return ports.CreditReceipt{}, err
	}
	return l.next.ApplyCredit(ctx, write)
}

// cancellingAccounts cancels the run context when the page after the first is requested.
type cancellingAccounts struct {
	ports.AccountStore
	cancel context.CancelFunc

	mu    sync.Mutex
	calls int
}

func (a *cancellingAccounts) ListEligibleAccounts(ctx context.Context, after string, limit int) ([]entities.Account, error) {
	a.mu.Lock()
	a.calls++
	calls := a.calls
	a.mu.Unlock()
	if calls == 2 {
		a.cancel()
	}
	return a.AccountStore.ListEligibleAccounts(ctx, after, limit)
}

type recordingMetrics struct {
	mu      sync.Mutex
	credits map[ports.CreditOutcome]int
	runs    []ports.RunSummary
}

func (m *recordingMetrics) ObserveCredit(_ ports.CreditKind, outcome ports.CreditOutcome, _ decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credits == nil {
		m.credits = make(map[ports.CreditOutcome]int)
	}
	m.credits[outcome]++
}

func (m *recordingMetrics) ObserveRun(_ time.Duration, summary ports.RunSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, summary)
}
