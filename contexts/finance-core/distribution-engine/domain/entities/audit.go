package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuditAction string

const (
	AuditProfitShareCredited  AuditAction = "PROFIT_SHARE_CREDITED"
	AuditCustomProfitShare    AuditAction = "CUSTOM_PROFIT_SHARE"
	AuditReferralCredited     AuditAction = "REFERRAL_CREDITED"
	AuditCreditAlreadyApplied AuditAction = "CREDIT_ALREADY_APPLIED"
	AuditCreditFailed         AuditAction = "CREDIT_FAILED"
	AuditProfitShareRun       AuditAction = "PROFIT_SHARE_RUN"
	AuditSettingsUpdated      AuditAction = "SETTINGS_UPDATED"
	AuditCreditHoldPlaced     AuditAction = "CREDIT_HOLD_PLACED"
	AuditCreditHoldReleased   AuditAction = "CREDIT_HOLD_RELEASED"
)

const SystemActor = "system"

// AuditRecord is an append-only trace of an administrative or system action.
type AuditRecord struct {
	AuditID    string
	Action     AuditAction
	ActorID    string
	TargetID   string
	EntityType string
	EntityID   string
	Details    map[string]any
	CreatedAt  time.Time
}

type TransactionType string

const (
	TransactionProfitShare    TransactionType = "PROFIT_SHARE"
	TransactionReferralReward TransactionType = "REFERRAL_REWARD"
)

const TransactionStatusCompleted = "COMPLETED"

// BalanceTransaction is the account history row written with every credit.
// A ledger row without its transaction means the balance was never moved.
type BalanceTransaction struct {
	TransactionID   string
	SubjectID       string
	Type            TransactionType
	Amount          decimal.Decimal
	Status          string
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Description     string
	ReferenceID     string
	CreatedAt       time.Time
}

// CreditHold blocks further credits to a subject until an administrator releases it.
type CreditHold struct {
	SubjectID  string
	Reason     string
	PlacedAt   time.Time
	ReleasedAt *time.Time
	ReleasedBy string
}

func (h CreditHold) Active() bool {
	return h.ReleasedAt == nil
}
