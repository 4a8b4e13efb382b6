package distributionengine

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	httpadapter "profitshare/contexts/finance-core/distribution-engine/adapters/http"
	"profitshare/contexts/finance-core/distribution-engine/adapters/memory"
	notificationadapter "profitshare/contexts/finance-core/distribution-engine/adapters/notification"
	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	"profitshare/contexts/finance-core/distribution-engine/application/queries"
	"profitshare/contexts/finance-core/distribution-engine/application/workers"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

// Module is the composition surface for the distribution engine.
// Runtime wiring consumes Handler and Workers; Store is exposed for tests.
type Module struct {
	Handler  httpadapter.Handler
	Commands Commands
	Workers  Workers
	Store    *memory.Store
}

type Commands struct {
	RunDistribution    commands.RunDistributionUseCase
	CustomDistribution commands.CustomDistributionUseCase
	CreditReferral     commands.CreditReferralUseCase
	UpdateSettings     commands.UpdateSettingsUseCase
	ReleaseHold        commands.ReleaseHoldUseCase
	GetSettings        queries.GetSettingsUseCase
}

type Workers struct {
	Scheduler              *workers.DistributionScheduler
	OutboxRelay            workers.OutboxRelay
	ReferralConsumer       workers.ReferralTriggerConsumer
	NotificationDispatcher workers.NotificationDispatcher
	LedgerAuditor          workers.LedgerAuditor
}

type Dependencies struct {
	Settings    ports.SettingsStore
	Accounts    ports.AccountStore
	Ledger      ports.CreditLedger
	Reader      ports.LedgerReader
	Audit       ports.AuditSink
	Holds       ports.HoldStore
	Consistency ports.ConsistencyChecker
	Outbox      ports.OutboxRepository
	Dedup       ports.EventDedupStore
	Publisher   ports.EventPublisher
	Subscriber  ports.EventSubscriber
	Notifier    ports.Notifier
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics

	Concurrency      int
	PageSize         int
	CreditsPerSecond float64
	QualifyingEvents []entities.TriggerEvent
	OutboxBatchSize  int
	DedupTTL         time.Duration
	Logger           *slog.Logger
}

// NewModule wires the distribution use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	var limiter *rate.Limiter
	if deps.CreditsPerSecond > 0 {
		burst := int(deps.CreditsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(deps.CreditsPerSecond), burst)
	}

	runDistribution := commands.RunDistributionUseCase{
		Settings:    deps.Settings,
		Accounts:    deps.Accounts,
		Ledger:      deps.Ledger,
		Audit:       deps.Audit,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Metrics:     deps.Metrics,
		Limiter:     limiter,
		Concurrency: deps.Concurrency,
		PageSize:    deps.PageSize,
		Logger:      deps.Logger,
	}
	customDistribution := commands.CustomDistributionUseCase{
		Accounts:    deps.Accounts,
		Ledger:      deps.Ledger,
		Audit:       deps.Audit,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	creditReferral := commands.CreditReferralUseCase{
		Settings:         deps.Settings,
		Accounts:         deps.Accounts,
		Ledger:           deps.Ledger,
		Audit:            deps.Audit,
		Clock:            deps.Clock,
		IDGenerator:      deps.IDGenerator,
		Metrics:          deps.Metrics,
		QualifyingEvents: deps.QualifyingEvents,
		Logger:           deps.Logger,
	}
	updateSettings := commands.UpdateSettingsUseCase{
		Settings:    deps.Settings,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	releaseHold := commands.ReleaseHoldUseCase{
		Holds:       deps.Holds,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	getSettings := queries.GetSettingsUseCase{
		Settings: deps.Settings,
		Clock:    deps.Clock,
	}

	handler := httpadapter.Handler{
		RunDistribution:    runDistribution,
		CustomDistribution: customDistribution,
		CreditReferral:     creditReferral,
		UpdateSettings:     updateSettings,
		ReleaseHold:        releaseHold,
		ListLedger: queries.ListLedgerUseCase{
			Ledger: deps.Reader,
			Logger: deps.Logger,
		},
		Stats: queries.DistributionStatsUseCase{
			Ledger:   deps.Reader,
			Accounts: deps.Accounts,
			Settings: deps.Settings,
			Clock:    deps.Clock,
			PageSize: deps.PageSize,
			Logger:   deps.Logger,
		},
		ListReferrals: queries.ListReferralsUseCase{
			Ledger: deps.Reader,
			Logger: deps.Logger,
		},
		ListAudit: queries.ListAuditUseCase{
			Audit:  deps.Audit,
			Logger: deps.Logger,
		},
		GetSettings: getSettings,
		Logger:      deps.Logger,
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notificationadapter.LogNotifier{Logger: deps.Logger}
	}

	return Module{
		Handler: handler,
		Commands: Commands{
			RunDistribution:    runDistribution,
			CustomDistribution: customDistribution,
			CreditReferral:     creditReferral,
			UpdateSettings:     updateSettings,
			ReleaseHold:        releaseHold,
			GetSettings:        getSettings,
		},
		Workers: Workers{
			Scheduler: &workers.DistributionScheduler{
				Run:    runDistribution,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			OutboxRelay: workers.OutboxRelay{
				Outbox:    deps.Outbox,
				Publisher: deps.Publisher,
				Clock:     deps.Clock,
				BatchSize: deps.OutboxBatchSize,
				Logger:    deps.Logger,
			},
			ReferralConsumer: workers.ReferralTriggerConsumer{
				Subscriber: deps.Subscriber,
				Dedup:      deps.Dedup,
				Referrals:  creditReferral,
				Clock:      deps.Clock,
				DedupTTL:   deps.DedupTTL,
				Logger:     deps.Logger,
			},
			NotificationDispatcher: workers.NotificationDispatcher{
				Subscriber: deps.Subscriber,
				Dedup:      deps.Dedup,
				Notifier:   notifier,
				Clock:      deps.Clock,
				DedupTTL:   deps.DedupTTL,
				Logger:     deps.Logger,
			},
			LedgerAuditor: workers.LedgerAuditor{
				Checker:     deps.Consistency,
				Holds:       deps.Holds,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGenerator,
				Logger:      deps.Logger,
			},
		},
	}
}

// NewInMemoryModule wires the use cases against the in-memory store. Event
// transport and metrics are left to the caller.
func NewInMemoryModule(seedAccounts []entities.Account, logger *slog.Logger) Module {
	store := memory.NewStore(seedAccounts, logger)
	module := NewModule(Dependencies{
		Settings:    store,
		Accounts:    store,
		Ledger:      store,
		Reader:      store,
		Audit:       store,
		Holds:       store,
		Consistency: store,
		Outbox:      store,
		Dedup:       store,
		Clock:       store,
		IDGenerator: store,
		DedupTTL:    7 * 24 * time.Hour,
		Logger:      logger,
	})
	module.Store = store
	return module
}
