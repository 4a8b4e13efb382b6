package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	contractsv1 "profitshare/contracts/gen/events/v1"
)

// SettingsStore owns the singleton settings document.
type SettingsStore interface {
	// GetSettings returns a detached copy or ErrSettingsNotFound.
	GetSettings(ctx context.Context) (entities.Settings, error)
	// SaveSettings stores next when the persisted version equals expectedVersion
	// (0 when nothing is stored yet) and appends audit in the same transaction.
	SaveSettings(ctx context.Context, next entities.Settings, expectedVersion int64, audit entities.AuditRecord) error
}

// AccountStore reads the balances the engine credits. Writes go through CreditLedger.
type AccountStore interface {
	GetAccount(ctx context.Context, subjectID string) (entities.Account, error)
	// ListEligibleAccounts pages ACTIVE accounts with a positive deposit
	// balance ordered by subject id, starting after afterSubjectID.
	ListEligibleAccounts(ctx context.Context, afterSubjectID string, limit int) ([]entities.Account, error)
}

type CreditKind string

const (
	CreditKindProfit   CreditKind = "profit_share"
	CreditKindCustom   CreditKind = "custom_profit_share"
	CreditKindReferral CreditKind = "referral"
)

// CreditedEvent is the notification payload persisted to the outbox with a credit.
type CreditedEvent struct {
	EventID      string
	EventType    string
	SubjectID    string
	Kind         CreditKind
	Amount       decimal.Decimal
	PeriodKey    string
	ReferredID   string
	ReferenceID  string
	PartitionKey string
	OccurredAt   time.Time
}

// CreditWrite is everything one credit persists. Exactly one of ProfitEntry
// and ReferralCredit is set.
type CreditWrite struct {
	Kind           CreditKind
	SubjectID      string
	Amount         decimal.Decimal
	ProfitEntry    *entities.LedgerEntry
	ReferralCredit *entities.ReferralCredit
	Transaction    entities.BalanceTransaction
	Audit          entities.AuditRecord
	Event          CreditedEvent
}

type CreditReceipt struct {
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Transaction     entities.BalanceTransaction
}

// CreditLedger is the only writer of account balances.
type CreditLedger interface {
	// ApplyCredit inserts the ledger row if its unique key is absent, adds the
	// amount to the account balance and writes the balance transaction, audit
	// record and outbox event, all in one transaction. An existing key yields
	// ErrAlreadyCredited with nothing written. An active hold yields
	// ErrInconsistentState.
	ApplyCredit(ctx context.Context, write CreditWrite) (CreditReceipt, error)
}

type LedgerFilter struct {
	SubjectID string
	PeriodKey string
	Offset    int
	Limit     int
}

type LedgerTotals struct {
	TotalDistributed decimal.Decimal
	TotalRecords     int64
	TotalRecipients  int64
	LastCreditedAt   *time.Time
}

type ReferralTotals struct {
	TotalReferrals  int64
	ActiveReferrals int64
	TotalEarned     decimal.Decimal
}

type LedgerReader interface {
	ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]entities.LedgerEntry, int64, error)
	LedgerTotals(ctx context.Context) (LedgerTotals, error)
	ListReferralCredits(ctx context.Context, referrerID string, offset int, limit int) ([]entities.ReferralCredit, int64, error)
	ReferralTotals(ctx context.Context, referrerID string) (ReferralTotals, error)
}

type AuditFilter struct {
	Action entities.AuditAction
	Offset int
	Limit  int
}

// AuditSink appends and lists audit records.
type AuditSink interface {
	AppendAudit(ctx context.Context, record entities.AuditRecord) error
	ListAuditRecords(ctx context.Context, filter AuditFilter) ([]entities.AuditRecord, int64, error)
}

type HoldStore interface {
	GetActiveHold(ctx context.Context, subjectID string) (entities.CreditHold, bool, error)
	// PlaceHold returns false when the subject already has an active hold.
	PlaceHold(ctx context.Context, hold entities.CreditHold, audit entities.AuditRecord) (bool, error)
	ReleaseHold(ctx context.Context, subjectID string, actorID string, releasedAt time.Time, audit entities.AuditRecord) error
}

// UnbackedCredit is a ledger row that has no balance transaction.
type UnbackedCredit struct {
	Kind        CreditKind
	SubjectID   string
	ReferenceID string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

type ConsistencyChecker interface {
	ListUnbackedCredits(ctx context.Context, limit int) ([]UnbackedCredit, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventDedupStore records consumed event ids. ReserveEvent reports true for an
// event seen before with the same payload hash. A handler that fails with a
// retryable error releases its reservation so redelivery is processed again.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// Notification is handed to the delivery collaborator. Delivery is never awaited
// by a credit.
type Notification struct {
	EventID   string
	EventType string
	SubjectID string
	Amount    string
	Reference string
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type CreditOutcome string

const (
	OutcomeCredited        CreditOutcome = "credited"
	OutcomeAlreadyCredited CreditOutcome = "already_credited"
	OutcomeSkipped         CreditOutcome = "skipped"
	OutcomeFailed          CreditOutcome = "failed"
)

type RunSummary struct {
	Processed       int
	Skipped         int
	AlreadyCredited int
	Failed          int
	Cancelled       bool
}

// Metrics receives engine measurements.
type Metrics interface {
	ObserveCredit(kind CreditKind, outcome CreditOutcome, amount decimal.Decimal)
	ObserveRun(duration time.Duration, summary RunSummary)
}

type NoopMetrics struct{}

func (NoopMetrics) ObserveCredit(CreditKind, CreditOutcome, decimal.Decimal) {}

func (NoopMetrics) ObserveRun(time.Duration, RunSummary) {}

// Envelope renders the event in the canonical contract shape.
func (e CreditedEvent) Envelope(sourceService string) (EventEnvelope, error) {
	data, err := json.Marshal(contractsv1.CreditedData{
		SubjectID:   e.SubjectID,
		Kind:        string(e.Kind),
		Amount:      e.Amount.StringFixed(2),
		PeriodKey:   e.PeriodKey,
		ReferredID:  e.ReferredID,
		ReferenceID: e.ReferenceID,
	})
	if err != nil {
		return EventEnvelope{}, err
	}
	return EventEnvelope{
		EventID:          e.EventID,
		EventType:        e.EventType,
		OccurredAt:       e.OccurredAt.UTC(),
		SourceService:    sourceService,
		SchemaVersion:    1,
		PartitionKeyPath: "subject_id",
		PartitionKey:     e.PartitionKey,
		Data:             data,
	}, nil
}
