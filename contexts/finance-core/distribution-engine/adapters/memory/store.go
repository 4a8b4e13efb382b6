package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

const sourceService = "distribution-engine"

// Store is an in-memory adapter implementing every distribution-engine port
// for local runtime and tests. A single mutex makes each credit atomic.
type Store struct {
	mu            sync.RWMutex
	settings      *entities.Settings
	accounts      map[string]entities.Account
	ledger        map[string]entities.LedgerEntry
	ledgerKeys    map[string]string
	ledgerOrder   []string
	referrals     map[string]entities.ReferralCredit
	referralKeys  map[string]string
	referralOrder []string
	transactions  []entities.BalanceTransaction
	txByReference map[string]string
	audits        []entities.AuditRecord
	holds         map[string]entities.CreditHold
	outbox        map[string]ports.OutboxMessage
	outboxOrder   []string
	outboxSent    map[string]time.Time
	eventDedup    map[string]string
	sequence      uint64
	logger        *slog.Logger
}

func NewStore(seedAccounts []entities.Account, logger *slog.Logger) *Store {
	accounts := make(map[string]entities.Account, len(seedAccounts))
	for _, account := range seedAccounts {
		accounts[account.SubjectID] = account
	}
	return &Store{
		accounts:      accounts,
		ledger:        make(map[string]entities.LedgerEntry),
		ledgerKeys:    make(map[string]string),
		referrals:     make(map[string]entities.ReferralCredit),
		referralKeys:  make(map[string]string),
		txByReference: make(map[string]string),
		holds:         make(map[string]entities.CreditHold),
		outbox:        make(map[string]ports.OutboxMessage),
		outboxSent:    make(map[string]time.Time),
		eventDedup:    make(map[string]string),
		logger:        application.ResolveLogger(logger),
	}
}

func (s *Store) GetSettings(_ context.Context) (entities.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return entities.Settings{}, domainerrors.ErrSettingsNotFound
	}
	return s.settings.Clone(), nil
}

func (s *Store) SaveSettings(_ context.Context, next entities.Settings, expectedVersion int64, audit entities.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := int64(0)
	if s.settings != nil {
		current = s.settings.Version
	}
	if current != expectedVersion {
		return domainerrors.ErrSettingsConflict
	}
	stored := next.Clone()
	s.settings = &stored
	s.audits = append(s.audits, audit)
	return nil
}

func (s *Store) GetAccount(_ context.Context, subjectID string) (entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[subjectID]
	if !ok {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	return account, nil
}

func (s *Store) ListEligibleAccounts(_ context.Context, afterSubjectID string, limit int) ([]entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Account, 0)
	for _, account := range s.accounts {
		if account.SubjectID <= afterSubjectID || !account.EligibleForDistribution() {
			continue
		}
		items = append(items, account)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].SubjectID < items[j].SubjectID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// UpsertAccount replaces an account view. Balance changes made here bypass
// the ledger and are meant for seeding.
func (s *Store) UpsertAccount(account entities.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.SubjectID] = account
}

func (s *Store) ApplyCredit(_ context.Context, write ports.CreditWrite) (ports.CreditReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hold, ok := s.holds[write.SubjectID]; ok && hold.Active() {
		return ports.CreditReceipt{}, domainerrors.ErrInconsistentState
	}

	var referenceID string
	switch {
	case write.ProfitEntry != nil:
		key := profitKey(write.ProfitEntry.SubjectID, write.ProfitEntry.PeriodKey)
		if _, exists := s.ledgerKeys[key]; exists {
			return ports.CreditReceipt{}, domainerrors.ErrAlreadyCredited
		}
		referenceID = write.ProfitEntry.EntryID
	case write.ReferralCredit != nil:
		key := referralKey(write.ReferralCredit.ReferrerID, write.ReferralCredit.ReferredID)
		if _, exists := s.referralKeys[key]; exists {
			return ports.CreditReceipt{}, domainerrors.ErrAlreadyCredited
		}
		referenceID = write.ReferralCredit.CreditID
	default:
		return ports.CreditReceipt{}, domainerrors.ErrInvalidRequest
	}

	account, ok := s.accounts[write.SubjectID]
	if !ok {
		return ports.CreditReceipt{}, domainerrors.ErrAccountNotFound
	}
	if _, exists := s.outbox[write.Event.EventID]; exists {
		return ports.CreditReceipt{}, fmt.Errorf("outbox event %s already exists", write.Event.EventID)
	}
	envelope, err := write.Event.Envelope(sourceService)
	if err != nil {
		return ports.CreditReceipt{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return ports.CreditReceipt{}, err
	}

	// Every check has passed; nothing below can fail.
	previous := account.Balance
	account.Balance = account.Balance.Add(write.Amount)
	account.UpdatedAt = write.Transaction.CreatedAt
	if write.ProfitEntry != nil {
		entry := *write.ProfitEntry
		key := profitKey(entry.SubjectID, entry.PeriodKey)
		s.ledgerKeys[key] = entry.EntryID
		s.ledger[entry.EntryID] = entry
		s.ledgerOrder = append(s.ledgerOrder, entry.EntryID)
		creditedAt := entry.CreatedAt
		account.LastProfitShareAt = &creditedAt
	} else {
		credit := *write.ReferralCredit
		key := referralKey(credit.ReferrerID, credit.ReferredID)
		s.referralKeys[key] = credit.CreditID
		s.referrals[credit.CreditID] = credit
		s.referralOrder = append(s.referralOrder, credit.CreditID)
		account.ReferralCount++
	}
	s.accounts[account.SubjectID] = account

	transaction := write.Transaction
	transaction.PreviousBalance = previous
	transaction.NewBalance = account.Balance
	s.transactions = append(s.transactions, transaction)
	s.txByReference[referenceID] = transaction.TransactionID
	s.audits = append(s.audits, write.Audit)
	s.outbox[write.Event.EventID] = ports.OutboxMessage{
		OutboxID:     write.Event.EventID,
		EventType:    write.Event.EventType,
		PartitionKey: write.Event.PartitionKey,
		Payload:      payload,
		CreatedAt:    write.Event.OccurredAt.UTC(),
	}
	s.outboxOrder = append(s.outboxOrder, write.Event.EventID)

	return ports.CreditReceipt{
		PreviousBalance: previous,
		NewBalance:      account.Balance,
		Transaction:     transaction,
	}, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, filter ports.LedgerFilter) ([]entities.LedgerEntry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]entities.LedgerEntry, 0)
	for i := len(s.ledgerOrder) - 1; i >= 0; i-- {
		entry := s.ledger[s.ledgerOrder[i]]
		if filter.SubjectID != "" && entry.SubjectID != filter.SubjectID {
			continue
		}
		if filter.PeriodKey != "" && entry.PeriodKey != filter.PeriodKey {
			continue
		}
		matched = append(matched, entry)
	}
	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func (s *Store) LedgerTotals(_ context.Context) (ports.LedgerTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := ports.LedgerTotals{TotalDistributed: decimal.Zero}
	recipients := make(map[string]struct{})
	for _, id := range s.ledgerOrder {
		entry := s.ledger[id]
		totals.TotalDistributed = totals.TotalDistributed.Add(entry.Amount)
		totals.TotalRecords++
		recipients[entry.SubjectID] = struct{}{}
		if totals.LastCreditedAt == nil || entry.CreatedAt.After(*totals.LastCreditedAt) {
			createdAt := entry.CreatedAt
			totals.LastCreditedAt = &createdAt
		}
	}
	totals.TotalRecipients = int64(len(recipients))
	return totals, nil
}

func (s *Store) ListReferralCredits(_ context.Context, referrerID string, offset int, limit int) ([]entities.ReferralCredit, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]entities.ReferralCredit, 0)
	for i := len(s.referralOrder) - 1; i >= 0; i-- {
		credit := s.referrals[s.referralOrder[i]]
		if credit.ReferrerID == referrerID {
			matched = append(matched, credit)
		}
	}
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (s *Store) ReferralTotals(_ context.Context, referrerID string) (ports.ReferralTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := ports.ReferralTotals{TotalEarned: decimal.Zero}
	for _, credit := range s.referrals {
		if credit.ReferrerID != referrerID {
			continue
		}
		totals.TotalReferrals++
		if credit.Status == entities.ReferralCreditCredited {
			totals.ActiveReferrals++
			totals.TotalEarned = totals.TotalEarned.Add(credit.Amount)
		}
	}
	return totals, nil
}

func (s *Store) AppendAudit(_ context.Context, record entities.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, record)
	return nil
}

func (s *Store) ListAuditRecords(_ context.Context, filter ports.AuditFilter) ([]entities.AuditRecord, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]entities.AuditRecord, 0)
	for i := len(s.audits) - 1; i >= 0; i-- {
		record := s.audits[i]
		if filter.Action != "" && record.Action != filter.Action {
			continue
		}
		matched = append(matched, record)
	}
	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func (s *Store) GetActiveHold(_ context.Context, subjectID string) (entities.CreditHold, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hold, ok := s.holds[subjectID]
	if !ok || !hold.Active() {
		return entities.CreditHold{}, false, nil
	}
	return hold, true, nil
}

func (s *Store) PlaceHold(_ context.Context, hold entities.CreditHold, audit entities.AuditRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.holds[hold.SubjectID]; ok && existing.Active() {
		return false, nil
	}
	hold.ReleasedAt = nil
	hold.ReleasedBy = ""
	s.holds[hold.SubjectID] = hold
	s.audits = append(s.audits, audit)
	return true, nil
}

func (s *Store) ReleaseHold(_ context.Context, subjectID string, actorID string, releasedAt time.Time, audit entities.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[subjectID]
	if !ok || !hold.Active() {
		return domainerrors.ErrHoldNotFound
	}
	at := releasedAt.UTC()
	hold.ReleasedAt = &at
	hold.ReleasedBy = actorID
	s.holds[subjectID] = hold
	s.audits = append(s.audits, audit)
	return nil
}

func (s *Store) ListUnbackedCredits(_ context.Context, limit int) ([]ports.UnbackedCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.UnbackedCredit, 0)
	held := func(subjectID string) bool {
		hold, ok := s.holds[subjectID]
		return ok && hold.Active()
	}
	for _, id := range s.ledgerOrder {
		entry := s.ledger[id]
		if _, ok := s.txByReference[id]; ok || held(entry.SubjectID) {
			continue
		}
		kind := ports.CreditKindProfit
		if entry.IsCustom {
			kind = ports.CreditKindCustom
		}
		items = append(items, ports.UnbackedCredit{
			Kind:        kind,
			SubjectID:   entry.SubjectID,
			ReferenceID: id,
			Amount:      entry.Amount,
			CreatedAt:   entry.CreatedAt,
		})
	}
	for _, id := range s.referralOrder {
		credit := s.referrals[id]
		if _, ok := s.txByReference[id]; ok || held(credit.ReferrerID) {
			continue
		}
		items = append(items, ports.UnbackedCredit{
			Kind:        ports.CreditKindReferral,
			SubjectID:   credit.ReferrerID,
			ReferenceID: id,
			Amount:      credit.Amount,
			CreatedAt:   credit.CreatedAt,
		})
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ImportLedgerEntry stores a ledger row without moving any balance, the way a
// backfill from another system would.
func (s *Store) ImportLedgerEntry(entry entities.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := profitKey(entry.SubjectID, entry.PeriodKey)
	if _, exists := s.ledgerKeys[key]; exists {
		return domainerrors.ErrAlreadyCredited
	}
	s.ledgerKeys[key] = entry.EntryID
	s.ledger[entry.EntryID] = entry
	s.ledgerOrder = append(s.ledgerOrder, entry.EntryID)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		items = append(items, s.outbox[id])
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.outbox[outboxID]; !ok {
		return fmt.Errorf("outbox message %s not found", outboxID)
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.eventDedup[eventID]; ok {
		if existing != payloadHash {
			return false, fmt.Errorf("%w: event %s replayed with a different payload", domainerrors.ErrInvalidRequest, eventID)
		}
		return true, nil
	}
	s.eventDedup[eventID] = payloadHash
	return false, nil
}

func (s *Store) ReleaseEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.eventDedup, eventID)
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("de-%d", value), nil
}

func (s *Store) Transactions() []entities.BalanceTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.BalanceTransaction(nil), s.transactions...)
}

func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		events = append(events, s.outbox[id])
	}
	return events
}

func profitKey(subjectID string, periodKey string) string {
	return subjectID + "\x00" + periodKey
}

func referralKey(referrerID string, referredID string) string {
	return referrerID + "\x00" + referredID
}

func paginate[T any](items []T, offset int, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]T(nil), items[offset:end]...)
}
