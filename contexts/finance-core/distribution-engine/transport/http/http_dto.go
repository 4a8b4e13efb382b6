package httptransport

// Money and rate values travel as decimal strings with two fractional digits.

type RunDistributionRequest struct {
	PeriodKey string `json:"period_key,omitempty"`
}

type SubjectErrorDTO struct {
	SubjectID string `json:"subject_id"`
	Reason    string `json:"reason"`
}

type RunDistributionResponse struct {
	RunID                string            `json:"run_id"`
	PeriodKey            string            `json:"period_key"`
	SettingsVersion      int64             `json:"settings_version"`
	Enabled              bool              `json:"enabled"`
	UsersProcessed       int               `json:"users_processed"`
	UsersSkipped         int               `json:"users_skipped"`
	UsersAlreadyCredited int               `json:"users_already_credited"`
	TotalAmountCredited  string            `json:"total_amount_credited"`
	Errors               []SubjectErrorDTO `json:"errors"`
	Cancelled            bool              `json:"cancelled,omitempty"`
	StartedAt            string            `json:"started_at"`
	FinishedAt           string            `json:"finished_at"`
}

type CustomDistributionRequest struct {
	SubjectID   string `json:"subject_id"`
	RatePercent string `json:"rate_percent"`
}

type CustomDistributionResponse struct {
	Entry           LedgerEntryDTO `json:"entry"`
	PreviousBalance string         `json:"previous_balance"`
	NewBalance      string         `json:"new_balance"`
}

type LedgerEntryDTO struct {
	EntryID         string `json:"entry_id"`
	SubjectID       string `json:"subject_id"`
	PeriodKey       string `json:"period_key"`
	BalanceSnapshot string `json:"balance_snapshot"`
	TierID          string `json:"tier_id"`
	TierName        string `json:"tier_name"`
	RatePercent     string `json:"rate_percent"`
	Amount          string `json:"amount"`
	IsCustom        bool   `json:"is_custom"`
	CreatedBy       string `json:"created_by"`
	CreatedAt       string `json:"created_at"`
}

type PageDTO struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type ListLedgerResponse struct {
	Items []LedgerEntryDTO `json:"items"`
	Page  PageDTO          `json:"page"`
}

type DistributionStatsResponse struct {
	TotalDistributed     string `json:"total_distributed"`
	TotalRecords         int64  `json:"total_records"`
	TotalRecipients      int64  `json:"total_recipients"`
	AverageShare         string `json:"average_share"`
	LastRunAt            string `json:"last_run_at,omitempty"`
	IsEnabled            bool   `json:"is_enabled"`
	SettingsVersion      int64  `json:"settings_version"`
	TodayEstimatedProfit string `json:"today_estimated_profit"`
	EligibleUserCount    int64  `json:"eligible_user_count"`
}

type ReferralEventRequest struct {
	ReferrerID   string `json:"referrer_id"`
	ReferredID   string `json:"referred_id"`
	TriggerEvent string `json:"trigger_event"`
}

type ReferralEventResponse struct {
	Outcome    string             `json:"outcome"`
	Credit     *ReferralCreditDTO `json:"credit,omitempty"`
	NewBalance string             `json:"new_balance,omitempty"`
}

type ReferralCreditDTO struct {
	CreditID     string `json:"credit_id"`
	ReferrerID   string `json:"referrer_id"`
	ReferredID   string `json:"referred_id"`
	Amount       string `json:"amount"`
	Status       string `json:"status"`
	TriggerEvent string `json:"trigger_event"`
	TierAtTime   string `json:"tier_at_time"`
	CreatedAt    string `json:"created_at"`
}

type ReferralStatsDTO struct {
	TotalReferrals  int64  `json:"total_referrals"`
	ActiveReferrals int64  `json:"active_referrals"`
	TotalEarned     string `json:"total_earned"`
}

type ListReferralsResponse struct {
	Items []ReferralCreditDTO `json:"items"`
	Stats ReferralStatsDTO    `json:"stats"`
	Page  PageDTO             `json:"page"`
}

type AuditRecordDTO struct {
	AuditID    string         `json:"audit_id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id"`
	TargetID   string         `json:"target_id,omitempty"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  string         `json:"created_at"`
}

type ListAuditResponse struct {
	Items []AuditRecordDTO `json:"items"`
	Page  PageDTO          `json:"page"`
}

type ProfitTierDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	MinAmount        string `json:"min_amount"`
	MaxAmount        string `json:"max_amount"`
	DailyRatePercent string `json:"daily_rate_percent"`
}

type ReferralTierDTO struct {
	MinReferrals int64  `json:"min_referrals"`
	MaxReferrals int64  `json:"max_referrals"`
	RewardAmount string `json:"reward_amount"`
}

type SettingsResponse struct {
	ProfitTiers          []ProfitTierDTO   `json:"profit_tiers"`
	ReferralTiers        []ReferralTierDTO `json:"referral_tiers"`
	ProfitSharingEnabled bool              `json:"profit_sharing_enabled"`
	Version              int64             `json:"version"`
	LastModifiedBy       string            `json:"last_modified_by"`
	UpdatedAt            string            `json:"updated_at"`
}

// UpdateSettingsRequest carries exactly the fields of the addressed section.
type UpdateSettingsRequest struct {
	ExpectedVersion      *int64            `json:"expected_version,omitempty"`
	ProfitTiers          []ProfitTierDTO   `json:"profit_tiers,omitempty"`
	ReferralTiers        []ReferralTierDTO `json:"referral_tiers,omitempty"`
	ProfitSharingEnabled *bool             `json:"profit_sharing_enabled,omitempty"`
}

type FieldChangeDTO struct {
	Field         string `json:"field"`
	PreviousValue any    `json:"previous_value"`
	NewValue      any    `json:"new_value"`
}

type UpdateSettingsResponse struct {
	Settings SettingsResponse `json:"settings"`
	Changes  []FieldChangeDTO `json:"changes"`
}

type ReleaseHoldRequest struct {
	Note string `json:"note,omitempty"`
}

type ReleaseHoldResponse struct {
	SubjectID string `json:"subject_id"`
	Released  bool   `json:"released"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
