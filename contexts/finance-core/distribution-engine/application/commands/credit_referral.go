package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/domain/services"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

type ReferralOutcome string

const (
	ReferralCredited        ReferralOutcome = "credited"
	ReferralAlreadyCredited ReferralOutcome = "already_credited"
	ReferralIgnored         ReferralOutcome = "ignored"
)

type CreditReferralCommand struct {
	ReferrerID   string
	ReferredID   string
	TriggerEvent string
	ActorID      string
}

type CreditReferralResult struct {
	Outcome    ReferralOutcome
	Credit     entities.ReferralCredit
	NewBalance decimal.Decimal
}

// CreditReferralUseCase pays the referrer once per referred user. The first
// qualifying trigger wins and later triggers for the same pair are no-ops.
type CreditReferralUseCase struct {
	Settings         ports.SettingsStore
	Accounts         ports.AccountStore
	Ledger           ports.CreditLedger
	Audit            ports.AuditSink
	Clock            ports.Clock
	IDGenerator      ports.IDGenerator
	Metrics          ports.Metrics
	QualifyingEvents []entities.TriggerEvent
	Logger           *slog.Logger
}

func (u CreditReferralUseCase) Execute(ctx context.Context, cmd CreditReferralCommand) (CreditReferralResult, error) {
	logger := application.ResolveLogger(u.Logger)
	referrerID := strings.TrimSpace(cmd.ReferrerID)
	referredID := strings.TrimSpace(cmd.ReferredID)
	if referrerID == "" || referredID == "" {
		return CreditReferralResult{}, domainerrors.ErrInvalidRequest
	}
	if referrerID == referredID {
		return CreditReferralResult{}, domainerrors.ErrInvalidReferral
	}
	trigger, err := entities.ParseTriggerEvent(cmd.TriggerEvent)
	if err != nil {
		return CreditReferralResult{}, err
	}
	if !u.qualifies(trigger) {
		logger.Debug("referral trigger does not qualify",
			"event", "referral_trigger_ignored",
			"module", application.ModuleName,
			"layer", "application",
			"referrer_id", referrerID,
			"referred_id", referredID,
			"trigger_event", trigger,
		)
		return CreditReferralResult{Outcome: ReferralIgnored}, nil
	}
	actorID := resolveActor(strings.TrimSpace(cmd.ActorID))

	settings, err := application.LoadSettings(ctx, u.Settings, u.Clock)
	if err != nil {
		return CreditReferralResult{}, err
	}
	referrer, err := u.Accounts.GetAccount(ctx, referrerID)
	if err != nil {
		return CreditReferralResult{}, err
	}
	tier, err := services.NewReferralTierTable(settings.ReferralTiers).Resolve(referrer.ReferralCount)
	if err != nil {
		logger.Warn("no referral tier matches referral count",
			"event", "referral_no_tier",
			"module", application.ModuleName,
			"layer", "application",
			"referrer_id", referrerID,
			"referral_count", referrer.ReferralCount,
		)
		return CreditReferralResult{}, err
	}

	creditID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CreditReferralResult{}, err
	}
	credit := entities.ReferralCredit{
		CreditID:     creditID,
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		Amount:       tier.RewardAmount,
		Status:       entities.ReferralCreditCredited,
		TriggerEvent: trigger,
		TierAtTime:   tier.Label(),
		CreatedAt:    application.Now(u.Clock),
	}

	res := creditor{
		ledger:      u.Ledger,
		audit:       u.Audit,
		clock:       u.Clock,
		idGenerator: u.IDGenerator,
		metrics:     u.Metrics,
		logger:      u.Logger,
	}.apply(application.Detached(ctx), creditRequest{
		kind:        ports.CreditKindReferral,
		subjectID:   referrerID,
		actorID:     actorID,
		amount:      tier.RewardAmount,
		referral:    &credit,
		referenceID: creditID,
		uniqueKey:   referrerID + ":" + referredID,
		txType:      entities.TransactionReferralReward,
		description: fmt.Sprintf("Referral reward for %s (%s)", referredID, trigger),
		auditAction: entities.AuditReferralCredited,
		auditDetails: map[string]any{
			"referredId":    referredID,
			"triggerEvent":  string(trigger),
			"tierAtTime":    credit.TierAtTime,
			"referralCount": referrer.ReferralCount,
		},
	})
	switch res.outcome {
	case ports.OutcomeCredited:
		return CreditReferralResult{
			Outcome:    ReferralCredited,
			Credit:     credit,
			NewBalance: res.receipt.NewBalance,
		}, nil
	case ports.OutcomeAlreadyCredited:
		return CreditReferralResult{Outcome: ReferralAlreadyCredited}, nil
	default:
		return CreditReferralResult{}, res.err
	}
}

func (u CreditReferralUseCase) qualifies(trigger entities.TriggerEvent) bool {
	events := u.QualifyingEvents
	if len(events) == 0 {
		events = []entities.TriggerEvent{entities.TriggerFirstDeposit}
	}
	for _, event := range events {
		if event == trigger {
			return true
		}
	}
	return false
}
