package postgresadapter

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

const settingsRowID = "global"

// AutoMigrate creates or updates every table the engine owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&settingsModel{},
		&accountModel{},
		&ledgerModel{},
		&referralCreditModel{},
		&transactionModel{},
		&auditModel{},
		&holdModel{},
		&outboxModel{},
		&eventDedupModel{},
	)
}

type settingsModel struct {
	ID                   string    `gorm:"column:id;primaryKey;size:32"`
	ProfitTiers          string    `gorm:"column:profit_tiers;type:text"`
	ReferralTiers        string    `gorm:"column:referral_tiers;type:text"`
	ProfitSharingEnabled bool      `gorm:"column:profit_sharing_enabled"`
	Version              int64     `gorm:"column:version"`
	LastModifiedBy       string    `gorm:"column:last_modified_by"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}

func (settingsModel) TableName() string {
	return "distribution_settings"
}

type profitTierDocument struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	MinAmount        decimal.Decimal `json:"min_amount"`
	MaxAmount        decimal.Decimal `json:"max_amount"`
	DailyRatePercent decimal.Decimal `json:"daily_rate_percent"`
}

type referralTierDocument struct {
	MinReferrals int64           `json:"min_referrals"`
	MaxReferrals int64           `json:"max_referrals"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
}

func settingsModelFromEntity(settings entities.Settings) (settingsModel, error) {
	profit := make([]profitTierDocument, 0, len(settings.ProfitTiers))
	for _, tier := range settings.ProfitTiers {
		profit = append(profit, profitTierDocument(tier))
	}
	referral := make([]referralTierDocument, 0, len(settings.ReferralTiers))
	for _, tier := range settings.ReferralTiers {
		referral = append(referral, referralTierDocument(tier))
	}
	profitJSON, err := json.Marshal(profit)
	if err != nil {
		return settingsModel{}, err
	}
	referralJSON, err := json.Marshal(referral)
	if err != nil {
		return settingsModel{}, err
	}
	return settingsModel{
		ID:                   settingsRowID,
		ProfitTiers:          string(profitJSON),
		ReferralTiers:        string(referralJSON),
		ProfitSharingEnabled: settings.Toggles.ProfitSharingEnabled,
		Version:              settings.Version,
		LastModifiedBy:       settings.LastModifiedBy,
		UpdatedAt:            settings.UpdatedAt.UTC(),
	}, nil
}

func (m settingsModel) toEntity() (entities.Settings, error) {
	var profit []profitTierDocument
	if err := json.Unmarshal([]byte(m.ProfitTiers), &profit); err != nil {
		return entities.Settings{}, err
	}
	var referral []referralTierDocument
	if err := json.Unmarshal([]byte(m.ReferralTiers), &referral); err != nil {
		return entities.Settings{}, err
	}
	settings := entities.Settings{
		ProfitTiers:    make([]entities.ProfitTier, 0, len(profit)),
		ReferralTiers:  make([]entities.ReferralTier, 0, len(referral)),
		Toggles:        entities.PlatformToggles{ProfitSharingEnabled: m.ProfitSharingEnabled},
		Version:        m.Version,
		LastModifiedBy: m.LastModifiedBy,
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
	for _, tier := range profit {
		settings.ProfitTiers = append(settings.ProfitTiers, entities.ProfitTier(tier))
	}
	for _, tier := range referral {
		settings.ReferralTiers = append(settings.ReferralTiers, entities.ReferralTier(tier))
	}
	return settings, nil
}

type accountModel struct {
	SubjectID         string          `gorm:"column:subject_id;primaryKey;size:64"`
	Balance           decimal.Decimal `gorm:"column:balance;type:numeric(20,2)"`
	DepositBalance    decimal.Decimal `gorm:"column:deposit_balance;type:numeric(20,2)"`
	Status            string          `gorm:"column:status;size:16;index"`
	ReferralCount     int64           `gorm:"column:referral_count"`
	LastProfitShareAt *time.Time      `gorm:"column:last_profit_share_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

func (accountModel) TableName() string {
	return "distribution_accounts"
}

func accountModelFromEntity(account entities.Account) accountModel {
	return accountModel{
		SubjectID:         account.SubjectID,
		Balance:           account.Balance,
		DepositBalance:    account.DepositBalance,
		Status:            string(account.Status),
		ReferralCount:     account.ReferralCount,
		LastProfitShareAt: utcPtr(account.LastProfitShareAt),
		UpdatedAt:         account.UpdatedAt.UTC(),
	}
}

func (m accountModel) toEntity() entities.Account {
	return entities.Account{
		SubjectID:         m.SubjectID,
		Balance:           money(m.Balance),
		DepositBalance:    money(m.DepositBalance),
		Status:            entities.AccountStatus(m.Status),
		ReferralCount:     m.ReferralCount,
		LastProfitShareAt: utcPtr(m.LastProfitShareAt),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

type ledgerModel struct {
	EntryID         string          `gorm:"column:entry_id;primaryKey;size:64"`
	SubjectID       string          `gorm:"column:subject_id;size:64;uniqueIndex:profit_share_ledger_period,priority:1"`
	PeriodKey       string          `gorm:"column:period_key;size:10;uniqueIndex:profit_share_ledger_period,priority:2;index"`
	BalanceSnapshot decimal.Decimal `gorm:"column:balance_snapshot;type:numeric(20,2)"`
	TierID          string          `gorm:"column:tier_id;size:64"`
	TierName        string          `gorm:"column:tier_name;size:128"`
	RatePercent     decimal.Decimal `gorm:"column:rate_percent;type:numeric(7,4)"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(20,2)"`
	IsCustom        bool            `gorm:"column:is_custom"`
	CreatedBy       string          `gorm:"column:created_by;size:64"`
	CreatedAt       time.Time       `gorm:"column:created_at;index"`
}

func (ledgerModel) TableName() string {
	return "profit_share_ledger"
}

func ledgerModelFromEntity(entry entities.LedgerEntry) ledgerModel {
	return ledgerModel{
		EntryID:         entry.EntryID,
		SubjectID:       entry.SubjectID,
		PeriodKey:       entry.PeriodKey,
		BalanceSnapshot: entry.BalanceSnapshot,
		TierID:          entry.TierID,
		TierName:        entry.TierName,
		RatePercent:     entry.RatePercent,
		Amount:          entry.Amount,
		IsCustom:        entry.IsCustom,
		CreatedBy:       entry.CreatedBy,
		CreatedAt:       entry.CreatedAt.UTC(),
	}
}

func (m ledgerModel) toEntity() entities.LedgerEntry {
	return entities.LedgerEntry{
		EntryID:         m.EntryID,
		SubjectID:       m.SubjectID,
		PeriodKey:       m.PeriodKey,
		BalanceSnapshot: money(m.BalanceSnapshot),
		TierID:          m.TierID,
		TierName:        m.TierName,
		RatePercent:     m.RatePercent,
		Amount:          money(m.Amount),
		IsCustom:        m.IsCustom,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt.UTC(),
	}
}

type referralCreditModel struct {
	CreditID     string          `gorm:"column:credit_id;primaryKey;size:64"`
	ReferrerID   string          `gorm:"column:referrer_id;size:64;uniqueIndex:referral_credits_pair,priority:1"`
	ReferredID   string          `gorm:"column:referred_id;size:64;uniqueIndex:referral_credits_pair,priority:2"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(20,2)"`
	Status       string          `gorm:"column:status;size:16"`
	TriggerEvent string          `gorm:"column:trigger_event;size:32"`
	TierAtTime   string          `gorm:"column:tier_at_time;size:64"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (referralCreditModel) TableName() string {
	return "referral_credits"
}

func referralCreditModelFromEntity(credit entities.ReferralCredit) referralCreditModel {
	return referralCreditModel{
		CreditID:     credit.CreditID,
		ReferrerID:   credit.ReferrerID,
		ReferredID:   credit.ReferredID,
		Amount:       credit.Amount,
		Status:       string(credit.Status),
		TriggerEvent: string(credit.TriggerEvent),
		TierAtTime:   credit.TierAtTime,
		CreatedAt:    credit.CreatedAt.UTC(),
	}
}

func (m referralCreditModel) toEntity() entities.ReferralCredit {
	return entities.ReferralCredit{
		CreditID:     m.CreditID,
		ReferrerID:   m.ReferrerID,
		ReferredID:   m.ReferredID,
		Amount:       money(m.Amount),
		Status:       entities.ReferralCreditStatus(m.Status),
		TriggerEvent: entities.TriggerEvent(m.TriggerEvent),
		TierAtTime:   m.TierAtTime,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type transactionModel struct {
	TransactionID   string          `gorm:"column:transaction_id;primaryKey;size:64"`
	SubjectID       string          `gorm:"column:subject_id;size:64;index"`
	Type            string          `gorm:"column:type;size:32"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(20,2)"`
	Status          string          `gorm:"column:status;size:16"`
	PreviousBalance decimal.Decimal `gorm:"column:previous_balance;type:numeric(20,2)"`
	NewBalance      decimal.Decimal `gorm:"column:new_balance;type:numeric(20,2)"`
	Description     string          `gorm:"column:description"`
	ReferenceID     string          `gorm:"column:reference_id;size:64;index"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
}

func (transactionModel) TableName() string {
	return "balance_transactions"
}

func transactionModelFromEntity(transaction entities.BalanceTransaction) transactionModel {
	return transactionModel{
		TransactionID:   transaction.TransactionID,
		SubjectID:       transaction.SubjectID,
		Type:            string(transaction.Type),
		Amount:          transaction.Amount,
		Status:          transaction.Status,
		PreviousBalance: transaction.PreviousBalance,
		NewBalance:      transaction.NewBalance,
		Description:     transaction.Description,
		ReferenceID:     transaction.ReferenceID,
		CreatedAt:       transaction.CreatedAt.UTC(),
	}
}

func (m transactionModel) toEntity() entities.BalanceTransaction {
	return entities.BalanceTransaction{
		TransactionID:   m.TransactionID,
		SubjectID:       m.SubjectID,
		Type:            entities.TransactionType(m.Type),
		Amount:          money(m.Amount),
		Status:          m.Status,
		PreviousBalance: money(m.PreviousBalance),
		NewBalance:      money(m.NewBalance),
		Description:     m.Description,
		ReferenceID:     m.ReferenceID,
		CreatedAt:       m.CreatedAt.UTC(),
	}
}

type auditModel struct {
	AuditID    string    `gorm:"column:audit_id;primaryKey;size:64"`
	Action     string    `gorm:"column:action;size:48;index"`
	ActorID    string    `gorm:"column:actor_id;size:64"`
	TargetID   string    `gorm:"column:target_id;size:64"`
	EntityType string    `gorm:"column:entity_type;size:48"`
	EntityID   string    `gorm:"column:entity_id;size:160"`
	Details    string    `gorm:"column:details;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (auditModel) TableName() string {
	return "distribution_audit_logs"
}

func auditModelFromEntity(record entities.AuditRecord) (auditModel, error) {
	details := record.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return auditModel{}, err
	}
	return auditModel{
		AuditID:    record.AuditID,
		Action:     string(record.Action),
		ActorID:    record.ActorID,
		TargetID:   record.TargetID,
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		Details:    string(raw),
		CreatedAt:  record.CreatedAt.UTC(),
	}, nil
}

func (m auditModel) toEntity() entities.AuditRecord {
	details := map[string]any{}
	if m.Details != "" {
		_ = json.Unmarshal([]byte(m.Details), &details)
	}
	return entities.AuditRecord{
		AuditID:    m.AuditID,
		Action:     entities.AuditAction(m.Action),
		ActorID:    m.ActorID,
		TargetID:   m.TargetID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Details:    details,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type holdModel struct {
	SubjectID  string     `gorm:"column:subject_id;primaryKey;size:64"`
	Reason     string     `gorm:"column:reason"`
	PlacedAt   time.Time  `gorm:"column:placed_at"`
	ReleasedAt *time.Time `gorm:"column:released_at"`
	ReleasedBy string     `gorm:"column:released_by;size:64"`
}

func (holdModel) TableName() string {
	return "credit_holds"
}

func (m holdModel) toEntity() entities.CreditHold {
	return entities.CreditHold{
		SubjectID:  m.SubjectID,
		Reason:     m.Reason,
		PlacedAt:   m.PlacedAt.UTC(),
		ReleasedAt: utcPtr(m.ReleasedAt),
		ReleasedBy: m.ReleasedBy,
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey;size:64"`
	EventType    string     `gorm:"column:event_type;size:64"`
	PartitionKey string     `gorm:"column:partition_key;size:64"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;size:16;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "distribution_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey;size:160"`
	PayloadHash string    `gorm:"column:payload_hash;size:64"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "distribution_event_dedup"
}

// money normalizes numeric columns that some drivers scan back as floats.
func money(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
