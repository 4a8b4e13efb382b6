package v1

const (
	EventTypeProfitShareCredited = "profit_share.credited"
	EventTypeReferralCredited    = "referral.credited"
	EventTypeReferralTriggered   = "referral.triggered"
)

// CreditedData is the payload of profit_share.credited and referral.credited.
// Amount is a decimal string with two fractional digits.
type CreditedData struct {
	SubjectID   string `json:"subject_id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	PeriodKey   string `json:"period_key,omitempty"`
	ReferredID  string `json:"referred_id,omitempty"`
	ReferenceID string `json:"reference_id"`
}

// ReferralTriggeredData is published by account lifecycle services when a
// referred user reaches a milestone.
type ReferralTriggeredData struct {
	ReferrerID   string `json:"referrer_id"`
	ReferredID   string `json:"referred_id"`
	TriggerEvent string `json:"trigger_event"`
}
