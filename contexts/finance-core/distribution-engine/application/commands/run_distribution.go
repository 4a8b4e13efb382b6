package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/domain/services"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

const listFailureSubject = "*"

type RunDistributionCommand struct {
	PeriodKey string
	ActorID   string
}

type SubjectError struct {
	SubjectID string
	Reason    string
}

type SubjectCredit struct {
	SubjectID string
	TierID    string
	Amount    decimal.Decimal
}

type RunDistributionResult struct {
	RunID                string
	PeriodKey            string
	SettingsVersion      int64
	Enabled              bool
	UsersProcessed       int
	UsersSkipped         int
	UsersAlreadyCredited int
	TotalAmountCredited  decimal.Decimal
	Errors               []SubjectError
	Credits              []SubjectCredit
	Cancelled            bool
	StartedAt            time.Time
	FinishedAt           time.Time
}

// RunDistributionUseCase credits every eligible account for one period.
// Settings are read once per run and the snapshot is used for every subject.
type RunDistributionUseCase struct {
	Settings    ports.SettingsStore
	Accounts    ports.AccountStore
	Ledger      ports.CreditLedger
	Audit       ports.AuditSink
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Limiter     *rate.Limiter
	Concurrency int
	PageSize    int
	Logger      *slog.Logger
}

// Execute never returns per-subject failures as an error. They are reported in
// the result. Cancelling ctx stops new subjects from starting while in-flight
// credits complete.
func (u RunDistributionUseCase) Execute(ctx context.Context, cmd RunDistributionCommand) (RunDistributionResult, error) {
	logger := application.ResolveLogger(u.Logger)
	startedAt := application.Now(u.Clock)

	periodKey := entities.PeriodKeyFor(startedAt)
	if strings.TrimSpace(cmd.PeriodKey) != "" {
		parsed, err := entities.ParsePeriodKey(cmd.PeriodKey)
		if err != nil {
			return RunDistributionResult{}, err
		}
		periodKey = parsed
	}
	actorID := resolveActor(strings.TrimSpace(cmd.ActorID))

	settings, err := application.LoadSettings(ctx, u.Settings, u.Clock)
	if err != nil {
		logger.Error("distribution settings load failed",
			"event", "distribution_run_settings_failed",
			"module", application.ModuleName,
			"layer", "application",
			"period_key", periodKey,
			"error", err.Error(),
		)
		return RunDistributionResult{}, err
	}

	result := RunDistributionResult{
		PeriodKey:           periodKey,
		SettingsVersion:     settings.Version,
		Enabled:             settings.Toggles.ProfitSharingEnabled,
		TotalAmountCredited: decimal.Zero,
		StartedAt:           startedAt,
	}
	if !result.Enabled {
		logger.Warn("profit sharing disabled, run skipped",
			"event", "distribution_run_disabled",
			"module", application.ModuleName,
			"layer", "application",
			"period_key", periodKey,
			"settings_version", settings.Version,
		)
		result.FinishedAt = application.Now(u.Clock)
		return result, nil
	}

	runID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return RunDistributionResult{}, err
	}
	result.RunID = runID

	ctx, span := application.Tracer().Start(ctx, "distribution.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.period_key", periodKey),
			attribute.Int64("settings.version", settings.Version),
		))
	defer span.End()

	logger.Info("distribution run started",
		"event", "distribution_run_started",
		"module", application.ModuleName,
		"layer", "application",
		"run_id", runID,
		"period_key", periodKey,
		"settings_version", settings.Version,
		"actor_id", actorID,
	)

	table := services.NewProfitTierTable(settings.ProfitTiers)
	credit := creditor{
		ledger:      u.Ledger,
		audit:       u.Audit,
		clock:       u.Clock,
		idGenerator: u.IDGenerator,
		metrics:     u.Metrics,
		logger:      u.Logger,
	}

	var mu sync.Mutex
	record := func(outcome subjectOutcome) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome.outcome {
		case ports.OutcomeCredited:
			result.UsersProcessed++
			result.TotalAmountCredited = result.TotalAmountCredited.Add(outcome.amount)
			result.Credits = append(result.Credits, SubjectCredit{
				SubjectID: outcome.subjectID,
				TierID:    outcome.tierID,
				Amount:    outcome.amount,
			})
		case ports.OutcomeAlreadyCredited:
			result.UsersAlreadyCredited++
		case ports.OutcomeSkipped:
			result.UsersSkipped++
		default:
			result.Errors = append(result.Errors, SubjectError{
				SubjectID: outcome.subjectID,
				Reason:    outcome.reason,
			})
		}
	}

	group := new(errgroup.Group)
	group.SetLimit(u.concurrency())

	after := ""
	cancelled := false
pages:
	for {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		accounts, err := u.Accounts.ListEligibleAccounts(ctx, after, u.pageSize())
		if err != nil {
			if ctx.Err() != nil {
				cancelled = true
				break
			}
			logger.Error("distribution eligible account listing failed",
				"event", "distribution_run_list_failed",
				"module", application.ModuleName,
				"layer", "application",
				"run_id", runID,
				"after_subject_id", after,
				"error", err.Error(),
			)
			record(subjectOutcome{
				subjectID: listFailureSubject,
				outcome:   ports.OutcomeFailed,
				reason:    fmt.Sprintf("%v: list eligible accounts: %v", domainerrors.ErrPersistence, err),
			})
			break
		}
		for _, account := range accounts {
			if ctx.Err() != nil {
				cancelled = true
				break pages
			}
			if u.Limiter != nil {
				if err := u.Limiter.Wait(ctx); err != nil {
					cancelled = true
					break pages
				}
			}
			account := account
			group.Go(func() error {
				record(u.creditSubject(application.Detached(ctx), credit, table, account, periodKey, actorID))
				return nil
			})
		}
		if len(accounts) < u.pageSize() {
			break
		}
		after = accounts[len(accounts)-1].SubjectID
	}
	_ = group.Wait()
	result.Cancelled = cancelled

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].SubjectID < result.Errors[j].SubjectID
	})
	sort.Slice(result.Credits, func(i, j int) bool {
		return result.Credits[i].SubjectID < result.Credits[j].SubjectID
	})
	result.FinishedAt = application.Now(u.Clock)

	span.SetAttributes(
		attribute.Int("run.processed", result.UsersProcessed),
		attribute.Int("run.skipped", result.UsersSkipped),
		attribute.Int("run.already_credited", result.UsersAlreadyCredited),
		attribute.Int("run.errors", len(result.Errors)),
		attribute.Bool("run.cancelled", result.Cancelled),
	)
	application.ResolveMetrics(u.Metrics).ObserveRun(result.FinishedAt.Sub(startedAt), ports.RunSummary{
		Processed:       result.UsersProcessed,
		Skipped:         result.UsersSkipped,
		AlreadyCredited: result.UsersAlreadyCredited,
		Failed:          len(result.Errors),
		Cancelled:       result.Cancelled,
	})
	u.auditRun(ctx, result, actorID)

	logger.Info("distribution run completed",
		"event", "distribution_run_completed",
		"module", application.ModuleName,
		"layer", "application",
		"run_id", runID,
		"period_key", periodKey,
		"users_processed", result.UsersProcessed,
		"users_skipped", result.UsersSkipped,
		"users_already_credited", result.UsersAlreadyCredited,
		"errors", len(result.Errors),
		"total_amount", result.TotalAmountCredited.StringFixed(2),
		"cancelled", result.Cancelled,
	)
	return result, nil
}

type subjectOutcome struct {
	subjectID string
	tierID    string
	outcome   ports.CreditOutcome
	amount    decimal.Decimal
	reason    string
}

func (u RunDistributionUseCase) creditSubject(
	ctx context.Context,
	credit creditor,
	table services.ProfitTierTable,
	account entities.Account,
	periodKey string,
	actorID string,
) subjectOutcome {
	logger := application.ResolveLogger(u.Logger)
	outcome := subjectOutcome{subjectID: account.SubjectID}

	tier, err := table.Resolve(account.DepositBalance)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNoTierMatch) {
			logger.Debug("no profit tier matches deposit balance",
				"event", "distribution_subject_no_tier",
				"module", application.ModuleName,
				"layer", "application",
				"subject_id", account.SubjectID,
				"deposit_balance", account.DepositBalance.String(),
			)
			application.ResolveMetrics(u.Metrics).ObserveCredit(ports.CreditKindProfit, ports.OutcomeSkipped, decimal.Zero)
			outcome.outcome = ports.OutcomeSkipped
			return outcome
		}
		outcome.outcome = ports.OutcomeFailed
		outcome.reason = err.Error()
		return outcome
	}
	outcome.tierID = tier.ID

	amount := services.ProfitAmount(account.DepositBalance, tier.DailyRatePercent)
	if !amount.IsPositive() {
		outcome.outcome = ports.OutcomeSkipped
		return outcome
	}

	entryID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		outcome.outcome = ports.OutcomeFailed
		outcome.reason = err.Error()
		return outcome
	}
	entry := entities.LedgerEntry{
		EntryID:         entryID,
		SubjectID:       account.SubjectID,
		PeriodKey:       periodKey,
		BalanceSnapshot: account.DepositBalance,
		TierID:          tier.ID,
		TierName:        tier.Name,
		RatePercent:     tier.DailyRatePercent,
		Amount:          amount,
		CreatedBy:       actorID,
		CreatedAt:       application.Now(u.Clock),
	}

	res := credit.apply(ctx, creditRequest{
		kind:        ports.CreditKindProfit,
		subjectID:   account.SubjectID,
		actorID:     actorID,
		amount:      amount,
		profit:      &entry,
		referenceID: entryID,
		uniqueKey:   account.SubjectID + ":" + periodKey,
		txType:      entities.TransactionProfitShare,
		description: fmt.Sprintf("Daily profit share - %s (%s%%)", tier.Name, tier.DailyRatePercent.String()),
		auditAction: entities.AuditProfitShareCredited,
		auditDetails: map[string]any{
			"periodKey":       periodKey,
			"tierId":          tier.ID,
			"ratePercent":     tier.DailyRatePercent.String(),
			"balanceSnapshot": account.DepositBalance.String(),
		},
	})
	outcome.outcome = res.outcome
	if res.outcome == ports.OutcomeCredited {
		outcome.amount = amount
	}
	if res.outcome == ports.OutcomeFailed && res.err != nil {
		outcome.reason = res.err.Error()
	}
	return outcome
}

func (u RunDistributionUseCase) auditRun(ctx context.Context, result RunDistributionResult, actorID string) {
	logger := application.ResolveLogger(u.Logger)
	ctx = application.Detached(ctx)
	auditID, err := u.IDGenerator.NewID(ctx)
	if err == nil {
		err = u.Audit.AppendAudit(ctx, entities.AuditRecord{
			AuditID:    auditID,
			Action:     entities.AuditProfitShareRun,
			ActorID:    actorID,
			EntityType: "DistributionRun",
			EntityID:   result.RunID,
			Details: map[string]any{
				"periodKey":            result.PeriodKey,
				"settingsVersion":      result.SettingsVersion,
				"usersProcessed":       result.UsersProcessed,
				"usersSkipped":         result.UsersSkipped,
				"usersAlreadyCredited": result.UsersAlreadyCredited,
				"errors":               len(result.Errors),
				"totalAmountCredited":  result.TotalAmountCredited.StringFixed(2),
				"cancelled":            result.Cancelled,
			},
			CreatedAt: result.FinishedAt,
		})
	}
	if err != nil {
		logger.Error("distribution run audit failed",
			"event", "distribution_run_audit_failed",
			"module", application.ModuleName,
			"layer", "application",
			"run_id", result.RunID,
			"error", err.Error(),
		)
	}
}

func (u RunDistributionUseCase) concurrency() int {
	if u.Concurrency <= 0 {
		return 8
	}
	return u.Concurrency
}

func (u RunDistributionUseCase) pageSize() int {
	if u.PageSize <= 0 {
		return 200
	}
	return u.PageSize
}
