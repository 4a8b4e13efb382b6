package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	sourceService       = "distribution-engine"
)

var errOutboxInvariantBroke = errors.New("distribution outbox invariant broken")

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetSettings(ctx context.Context) (entities.Settings, error) {
	var row settingsModel
	err := r.db.WithContext(ctx).
		Where("id = ?", settingsRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Settings{}, domainerrors.ErrSettingsNotFound
		}
		return entities.Settings{}, err
	}
	return row.toEntity()
}

func (r *Repository) SaveSettings(
	ctx context.Context,
	next entities.Settings,
	expectedVersion int64,
	audit entities.AuditRecord,
) error {
	row, err := settingsModelFromEntity(next)
	if err != nil {
		return err
	}
	auditRow, err := auditModelFromEntity(audit)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if expectedVersion == 0 {
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&row)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domainerrors.ErrSettingsConflict
			}
		} else {
			result := tx.Model(&settingsModel{}).
				Where("id = ? AND version = ?", settingsRowID, expectedVersion).
				Updates(map[string]any{
					"profit_tiers":           row.ProfitTiers,
					"referral_tiers":         row.ReferralTiers,
					"profit_sharing_enabled": row.ProfitSharingEnabled,
					"version":                row.Version,
					"last_modified_by":       row.LastModifiedBy,
					"updated_at":             row.UpdatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domainerrors.ErrSettingsConflict
			}
		}
		return tx.Create(&auditRow).Error
	})
}

func (r *Repository) GetAccount(ctx context.Context, subjectID string) (entities.Account, error) {
	var row accountModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, domainerrors.ErrAccountNotFound
		}
		return entities.Account{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListEligibleAccounts(ctx context.Context, afterSubjectID string, limit int) ([]entities.Account, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []accountModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND deposit_balance > 0 AND subject_id > ?", string(entities.AccountStatusActive), afterSubjectID).
		Order("subject_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Account, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// UpsertAccount writes the account view as given. It bypasses the ledger and
// exists for seeding local databases.
func (r *Repository) UpsertAccount(ctx context.Context, account entities.Account) error {
	row := accountModelFromEntity(account)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "deposit_balance", "status", "updated_at"}),
		}).
		Create(&row).
		Error
}

func (r *Repository) ApplyCredit(ctx context.Context, write ports.CreditWrite) (ports.CreditReceipt, error) {
	envelope, err := write.Event.Envelope(sourceService)
	if err != nil {
		return ports.CreditReceipt{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return ports.CreditReceipt{}, err
	}
	auditRow, err := auditModelFromEntity(write.Audit)
	if err != nil {
		return ports.CreditReceipt{}, err
	}

	var receipt ports.CreditReceipt
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var holds int64
		if err := tx.Model(&holdModel{}).
			Where("subject_id = ? AND released_at IS NULL", write.SubjectID).
			Count(&holds).
			Error; err != nil {
			return err
		}
		if holds > 0 {
			return domainerrors.ErrInconsistentState
		}

		accountUpdates := map[string]any{
			"balance":    gorm.Expr("balance + ?", write.Amount),
			"updated_at": write.Transaction.CreatedAt.UTC(),
		}
		switch {
		case write.ProfitEntry != nil:
			entryRow := ledgerModelFromEntity(*write.ProfitEntry)
			inserted, err := insertIfAbsent(tx, &entryRow, "subject_id", "period_key")
			if err != nil {
				return err
			}
			if !inserted {
				return domainerrors.ErrAlreadyCredited
			}
			accountUpdates["last_profit_share_at"] = entryRow.CreatedAt
		case write.ReferralCredit != nil:
			creditRow := referralCreditModelFromEntity(*write.ReferralCredit)
			inserted, err := insertIfAbsent(tx, &creditRow, "referrer_id", "referred_id")
			if err != nil {
				return err
			}
			if !inserted {
				return domainerrors.ErrAlreadyCredited
			}
			accountUpdates["referral_count"] = gorm.Expr("referral_count + 1")
		default:
			return domainerrors.ErrInvalidRequest
		}

		result := tx.Model(&accountModel{}).
			Where("subject_id = ?", write.SubjectID).
			Updates(accountUpdates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrAccountNotFound
		}

		var account accountModel
		if err := tx.Select("balance").
			Where("subject_id = ?", write.SubjectID).
			First(&account).
			Error; err != nil {
			return err
		}
		newBalance := money(account.Balance)

		transaction := write.Transaction
		transaction.NewBalance = newBalance
		transaction.PreviousBalance = newBalance.Sub(write.Amount)
		transactionRow := transactionModelFromEntity(transaction)
		if err := tx.Create(&transactionRow).Error; err != nil {
			return err
		}
		if err := tx.Create(&auditRow).Error; err != nil {
			return err
		}

		outboxRow := outboxModel{
			OutboxID:     write.Event.EventID,
			EventType:    write.Event.EventType,
			PartitionKey: write.Event.PartitionKey,
			Payload:      payload,
			Status:       outboxStatusPending,
			CreatedAt:    write.Event.OccurredAt.UTC(),
		}
		if err := tx.Create(&outboxRow).Error; err != nil {
			if isUniqueViolation(err) {
				return errOutboxInvariantBroke
			}
			return err
		}

		receipt = ports.CreditReceipt{
			PreviousBalance: transaction.PreviousBalance,
			NewBalance:      newBalance,
			Transaction:     transaction,
		}
		return nil
	})
	if err != nil {
		return ports.CreditReceipt{}, err
	}
	return receipt, nil
}

func (r *Repository) ListLedgerEntries(ctx context.Context, filter ports.LedgerFilter) ([]entities.LedgerEntry, int64, error) {
	tx := r.db.WithContext(ctx).Model(&ledgerModel{})
	if filter.SubjectID != "" {
		tx = tx.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.PeriodKey != "" {
		tx = tx.Where("period_key = ?", filter.PeriodKey)
	}

	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []ledgerModel
	if err := tx.Order("created_at DESC").
		Order("entry_id DESC").
		Offset(filter.Offset).
		Limit(limitOrDefault(filter.Limit)).
		Find(&rows).
		Error; err != nil {
		return nil, 0, err
	}
	items := make([]entities.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, total, nil
}

func (r *Repository) LedgerTotals(ctx context.Context) (ports.LedgerTotals, error) {
	var aggregate struct {
		Total      decimal.NullDecimal
		Records    int64
		Recipients int64
	}
	if err := r.db.WithContext(ctx).
		Model(&ledgerModel{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS records, COUNT(DISTINCT subject_id) AS recipients").
		Scan(&aggregate).
		Error; err != nil {
		return ports.LedgerTotals{}, err
	}
	totals := ports.LedgerTotals{
		TotalDistributed: decimal.Zero,
		TotalRecords:     aggregate.Records,
		TotalRecipients:  aggregate.Recipients,
	}
	if aggregate.Total.Valid {
		totals.TotalDistributed = money(aggregate.Total.Decimal)
	}

	var latest []ledgerModel
	if err := r.db.WithContext(ctx).
		Select("created_at").
		Order("created_at DESC").
		Limit(1).
		Find(&latest).
		Error; err != nil {
		return ports.LedgerTotals{}, err
	}
	if len(latest) == 1 {
		createdAt := latest[0].CreatedAt.UTC()
		totals.LastCreditedAt = &createdAt
	}
	return totals, nil
}

func (r *Repository) ListReferralCredits(
	ctx context.Context,
	referrerID string,
	offset int,
	limit int,
) ([]entities.ReferralCredit, int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&referralCreditModel{}).
		Where("referrer_id = ?", referrerID).
		Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []referralCreditModel
	if err := tx.Order("created_at DESC").
		Order("credit_id DESC").
		Offset(offset).
		Limit(limitOrDefault(limit)).
		Find(&rows).
		Error; err != nil {
		return nil, 0, err
	}
	items := make([]entities.ReferralCredit, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, total, nil
}

func (r *Repository) ReferralTotals(ctx context.Context, referrerID string) (ports.ReferralTotals, error) {
	var aggregate struct {
		Referrals int64
		Active    int64
		Earned    decimal.NullDecimal
	}
	credited := string(entities.ReferralCreditCredited)
	if err := r.db.WithContext(ctx).
		Model(&referralCreditModel{}).
		Select(
			"COUNT(*) AS referrals, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS earned",
			credited, credited,
		).
		Where("referrer_id = ?", referrerID).
		Scan(&aggregate).
		Error; err != nil {
		return ports.ReferralTotals{}, err
	}
	totals := ports.ReferralTotals{
		TotalReferrals:  aggregate.Referrals,
		ActiveReferrals: aggregate.Active,
		TotalEarned:     decimal.Zero,
	}
	if aggregate.Earned.Valid {
		totals.TotalEarned = money(aggregate.Earned.Decimal)
	}
	return totals, nil
}

func (r *Repository) AppendAudit(ctx context.Context, record entities.AuditRecord) error {
	row, err := auditModelFromEntity(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) ListAuditRecords(ctx context.Context, filter ports.AuditFilter) ([]entities.AuditRecord, int64, error) {
	tx := r.db.WithContext(ctx).Model(&auditModel{})
	if filter.Action != "" {
		tx = tx.Where("action = ?", string(filter.Action))
	}

	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []auditModel
	if err := tx.Order("created_at DESC").
		Order("audit_id DESC").
		Offset(filter.Offset).
		Limit(limitOrDefault(filter.Limit)).
		Find(&rows).
		Error; err != nil {
		return nil, 0, err
	}
	items := make([]entities.AuditRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, total, nil
}

func (r *Repository) GetActiveHold(ctx context.Context, subjectID string) (entities.CreditHold, bool, error) {
	var row holdModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND released_at IS NULL", subjectID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CreditHold{}, false, nil
		}
		return entities.CreditHold{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) PlaceHold(ctx context.Context, hold entities.CreditHold, audit entities.AuditRecord) (bool, error) {
	auditRow, err := auditModelFromEntity(audit)
	if err != nil {
		return false, err
	}

	placed := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A released hold is re-armed in place; the audit log keeps the history.
		result := tx.Model(&holdModel{}).
			Where("subject_id = ? AND released_at IS NOT NULL", hold.SubjectID).
			Updates(map[string]any{
				"reason":      hold.Reason,
				"placed_at":   hold.PlacedAt.UTC(),
				"released_at": nil,
				"released_by": "",
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			row := holdModel{
				SubjectID: hold.SubjectID,
				Reason:    hold.Reason,
				PlacedAt:  hold.PlacedAt.UTC(),
			}
			inserted, err := insertIfAbsent(tx, &row, "subject_id")
			if err != nil {
				return err
			}
			if !inserted {
				return nil
			}
		}
		placed = true
		return tx.Create(&auditRow).Error
	})
	if err != nil {
		return false, err
	}
	return placed, nil
}

func (r *Repository) ReleaseHold(
	ctx context.Context,
	subjectID string,
	actorID string,
	releasedAt time.Time,
	audit entities.AuditRecord,
) error {
	auditRow, err := auditModelFromEntity(audit)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&holdModel{}).
			Where("subject_id = ? AND released_at IS NULL", subjectID).
			Updates(map[string]any{
				"released_at": releasedAt.UTC(),
				"released_by": actorID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrHoldNotFound
		}
		return tx.Create(&auditRow).Error
	})
}

func (r *Repository) ListUnbackedCredits(ctx context.Context, limit int) ([]ports.UnbackedCredit, error) {
	limit = limitOrDefault(limit)

	var ledgerRows []ledgerModel
	if err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM balance_transactions t WHERE t.reference_id = profit_share_ledger.entry_id)").
		Where("NOT EXISTS (SELECT 1 FROM credit_holds h WHERE h.subject_id = profit_share_ledger.subject_id AND h.released_at IS NULL)").
		Order("created_at ASC").
		Limit(limit).
		Find(&ledgerRows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.UnbackedCredit, 0, len(ledgerRows))
	for _, row := range ledgerRows {
		kind := ports.CreditKindProfit
		if row.IsCustom {
			kind = ports.CreditKindCustom
		}
		items = append(items, ports.UnbackedCredit{
			Kind:        kind,
			SubjectID:   row.SubjectID,
			ReferenceID: row.EntryID,
			Amount:      money(row.Amount),
			CreatedAt:   row.CreatedAt.UTC(),
		})
	}
	if len(items) >= limit {
		return items, nil
	}

	var referralRows []referralCreditModel
	if err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM balance_transactions t WHERE t.reference_id = referral_credits.credit_id)").
		Where("NOT EXISTS (SELECT 1 FROM credit_holds h WHERE h.subject_id = referral_credits.referrer_id AND h.released_at IS NULL)").
		Order("created_at ASC").
		Limit(limit - len(items)).
		Find(&referralRows).
		Error; err != nil {
		return nil, err
	}
	for _, row := range referralRows {
		items = append(items, ports.UnbackedCredit{
			Kind:        ports.CreditKindReferral,
			SubjectID:   row.ReferrerID,
			ReferenceID: row.CreditID,
			Amount:      money(row.Amount),
			CreatedAt:   row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errOutboxInvariantBroke
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     eventID,
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	inserted, err := insertIfAbsent(r.db.WithContext(ctx), &row, "event_id")
	if err != nil {
		return false, err
	}
	if inserted {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", eventID).
		First(&existing).
		Error; err != nil {
		return false, err
	}
	if existing.PayloadHash != payloadHash {
		return false, domainerrors.ErrInvalidRequest
	}
	return true, nil
}

func (r *Repository) ReleaseEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&eventDedupModel{}).
		Error
}

// insertIfAbsent creates row unless another row already holds the same
// values for the conflict columns.
func insertIfAbsent(tx *gorm.DB, row any, conflictColumns ...string) (bool, error) {
	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, name := range conflictColumns {
		columns = append(columns, clause.Column{Name: name})
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   columns,
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
