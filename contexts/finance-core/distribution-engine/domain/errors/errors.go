package errors

import "errors"

var (
	ErrNoTierMatch          = errors.New("no tier matches value")
	ErrAlreadyCredited      = errors.New("credit already applied for key")
	ErrInvalidRate          = errors.New("rate percent must be greater than 0, at most 100 and have at most 4 decimal places")
	ErrInconsistentState    = errors.New("subject has an inconsistent ledger state")
	ErrPersistence          = errors.New("persistence failure")
	ErrAccountNotFound      = errors.New("account not found")
	ErrNoDepositBalance     = errors.New("account has no deposit balance")
	ErrInvalidPeriodKey     = errors.New("period key must be a UTC date formatted YYYY-MM-DD")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidReferral      = errors.New("invalid referral relationship")
	ErrInvalidTriggerEvent  = errors.New("unknown referral trigger event")
	ErrInvalidTierTable     = errors.New("invalid tier table")
	ErrSettingsNotFound     = errors.New("settings not found")
	ErrSettingsConflict     = errors.New("settings version conflict")
	ErrUnknownSection       = errors.New("unknown settings section")
	ErrHoldNotFound         = errors.New("credit hold not found")
	ErrDistributionDisabled = errors.New("profit sharing is currently disabled")
)
