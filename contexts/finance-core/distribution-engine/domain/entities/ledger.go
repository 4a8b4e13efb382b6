package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
)

const (
	CustomTierName  = "CUSTOM"
	PeriodKeyLayout = "2006-01-02"
)

// LedgerEntry records one profit-share credit. At most one exists per
// (SubjectID, PeriodKey) and rows are never updated.
type LedgerEntry struct {
	EntryID         string
	SubjectID       string
	PeriodKey       string
	BalanceSnapshot decimal.Decimal
	TierID          string
	TierName        string
	RatePercent     decimal.Decimal
	Amount          decimal.Decimal
	IsCustom        bool
	CreatedBy       string
	CreatedAt       time.Time
}

type ReferralCreditStatus string

const (
	ReferralCreditPending  ReferralCreditStatus = "PENDING"
	ReferralCreditCredited ReferralCreditStatus = "CREDITED"
	ReferralCreditExpired  ReferralCreditStatus = "EXPIRED"
)

type TriggerEvent string

const (
	TriggerSignup        TriggerEvent = "signup"
	TriggerEmailVerified TriggerEvent = "email_verified"
	TriggerFirstDeposit  TriggerEvent = "first_deposit"
	TriggerKYCApproved   TriggerEvent = "kyc_approved"
)

func ParseTriggerEvent(raw string) (TriggerEvent, error) {
	switch TriggerEvent(strings.ToLower(strings.TrimSpace(raw))) {
	case TriggerSignup:
		return TriggerSignup, nil
	case TriggerEmailVerified:
		return TriggerEmailVerified, nil
	case TriggerFirstDeposit:
		return TriggerFirstDeposit, nil
	case TriggerKYCApproved:
		return TriggerKYCApproved, nil
	default:
		return "", domainerrors.ErrInvalidTriggerEvent
	}
}

// ReferralCredit records one referral reward. At most one exists per
// (ReferrerID, ReferredID).
type ReferralCredit struct {
	CreditID     string
	ReferrerID   string
	ReferredID   string
	Amount       decimal.Decimal
	Status       ReferralCreditStatus
	TriggerEvent TriggerEvent
	TierAtTime   string
	CreatedAt    time.Time
}

// PeriodKeyFor returns the UTC calendar date bucket for t.
func PeriodKeyFor(t time.Time) string {
	return t.UTC().Format(PeriodKeyLayout)
}

// ParsePeriodKey validates raw and returns its canonical form.
func ParsePeriodKey(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	parsed, err := time.Parse(PeriodKeyLayout, value)
	if err != nil {
		return "", domainerrors.ErrInvalidPeriodKey
	}
	return parsed.Format(PeriodKeyLayout), nil
}
