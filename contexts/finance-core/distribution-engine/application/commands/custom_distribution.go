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

type CustomDistributionCommand struct {
	SubjectID   string
	RatePercent decimal.Decimal
	ActorID     string
}

type CustomDistributionResult struct {
	Entry           entities.LedgerEntry
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

// CustomDistributionUseCase credits one account at an administrator-chosen
// rate. It shares the (subject, today) key with the daily run, so a subject
// receives at most one of the two per day.
type CustomDistributionUseCase struct {
	Accounts    ports.AccountStore
	Ledger      ports.CreditLedger
	Audit       ports.AuditSink
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (u CustomDistributionUseCase) Execute(ctx context.Context, cmd CustomDistributionCommand) (CustomDistributionResult, error) {
	logger := application.ResolveLogger(u.Logger)
	subjectID := strings.TrimSpace(cmd.SubjectID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if subjectID == "" || actorID == "" {
		return CustomDistributionResult{}, domainerrors.ErrInvalidRequest
	}
	if err := services.ValidateRatePercent(cmd.RatePercent); err != nil {
		logger.Warn("custom distribution rejected",
			"event", "custom_distribution_invalid_rate",
			"module", application.ModuleName,
			"layer", "application",
			"subject_id", subjectID,
			"actor_id", actorID,
			"rate_percent", cmd.RatePercent.String(),
		)
		return CustomDistributionResult{}, err
	}

	account, err := u.Accounts.GetAccount(ctx, subjectID)
	if err != nil {
		return CustomDistributionResult{}, err
	}
	if !account.DepositBalance.IsPositive() {
		return CustomDistributionResult{}, domainerrors.ErrNoDepositBalance
	}
	amount := services.ProfitAmount(account.DepositBalance, cmd.RatePercent)
	if !amount.IsPositive() {
		return CustomDistributionResult{}, fmt.Errorf("%w: amount rounds to zero", domainerrors.ErrInvalidRequest)
	}

	now := application.Now(u.Clock)
	entryID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CustomDistributionResult{}, err
	}
	entry := entities.LedgerEntry{
		EntryID:         entryID,
		SubjectID:       subjectID,
		PeriodKey:       entities.PeriodKeyFor(now),
		BalanceSnapshot: account.DepositBalance,
		TierName:        entities.CustomTierName,
		RatePercent:     cmd.RatePercent,
		Amount:          amount,
		IsCustom:        true,
		CreatedBy:       actorID,
		CreatedAt:       now,
	}

	logger.Info("custom distribution started",
		"event", "custom_distribution_started",
		"module", application.ModuleName,
		"layer", "application",
		"subject_id", subjectID,
		"actor_id", actorID,
		"period_key", entry.PeriodKey,
		"rate_percent", cmd.RatePercent.String(),
	)

	res := creditor{
		ledger:      u.Ledger,
		audit:       u.Audit,
		clock:       u.Clock,
		idGenerator: u.IDGenerator,
		metrics:     u.Metrics,
		logger:      u.Logger,
	}.apply(application.Detached(ctx), creditRequest{
		kind:        ports.CreditKindCustom,
		subjectID:   subjectID,
		actorID:     actorID,
		amount:      amount,
		profit:      &entry,
		referenceID: entryID,
		uniqueKey:   subjectID + ":" + entry.PeriodKey,
		txType:      entities.TransactionProfitShare,
		description: fmt.Sprintf("Custom profit share (%s%%) - Applied by admin", cmd.RatePercent.String()),
		auditAction: entities.AuditCustomProfitShare,
		auditDetails: map[string]any{
			"periodKey":       entry.PeriodKey,
			"ratePercent":     cmd.RatePercent.String(),
			"balanceSnapshot": account.DepositBalance.String(),
		},
	})
	if res.err != nil {
		return CustomDistributionResult{}, res.err
	}

	return CustomDistributionResult{
		Entry:           entry,
		PreviousBalance: res.receipt.PreviousBalance,
		NewBalance:      res.receipt.NewBalance,
	}, nil
}
