package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusLocked    AccountStatus = "LOCKED"
)

// Account is the balance view the engine credits. Balance only moves through
// the credit primitive.
type Account struct {
	SubjectID         string
	Balance           decimal.Decimal
	DepositBalance    decimal.Decimal
	Status            AccountStatus
	ReferralCount     int64
	LastProfitShareAt *time.Time
	UpdatedAt         time.Time
}

// EligibleForDistribution reports whether the automatic run should consider the account.
func (a Account) EligibleForDistribution() bool {
	return a.Status == AccountStatusActive && a.DepositBalance.IsPositive()
}
