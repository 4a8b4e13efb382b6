package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
	contractsv1 "profitshare/contracts/gen/events/v1"
)

// creditor drives one call of the credit primitive and audits attempts that
// did not credit.
type creditor struct {
	ledger      ports.CreditLedger
	audit       ports.AuditSink
	clock       ports.Clock
	idGenerator ports.IDGenerator
	metrics     ports.Metrics
	logger      *slog.Logger
}

type creditRequest struct {
	kind         ports.CreditKind
	subjectID    string
	actorID      string
	amount       decimal.Decimal
	profit       *entities.LedgerEntry
	referral     *entities.ReferralCredit
	referenceID  string
	uniqueKey    string
	txType       entities.TransactionType
	description  string
	auditAction  entities.AuditAction
	auditDetails map[string]any
}

type creditResult struct {
	outcome ports.CreditOutcome
	receipt ports.CreditReceipt
	err     error
}

func (c creditor) apply(ctx context.Context, req creditRequest) creditResult {
	logger := application.ResolveLogger(c.logger)
	metrics := application.ResolveMetrics(c.metrics)
	ctx, span := application.Tracer().Start(ctx, "distribution.credit",
		trace.WithAttributes(
			attribute.String("credit.kind", string(req.kind)),
			attribute.String("subject.id", req.subjectID),
			attribute.String("credit.reference", req.referenceID),
		))
	defer span.End()

	write, err := c.buildWrite(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveCredit(req.kind, ports.OutcomeFailed, decimal.Zero)
		return creditResult{outcome: ports.OutcomeFailed, err: err}
	}

	receipt, err := c.ledger.ApplyCredit(ctx, write)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "credited")
		metrics.ObserveCredit(req.kind, ports.OutcomeCredited, req.amount)
		logger.Info("credit applied",
			"event", "distribution_credit_applied",
			"module", application.ModuleName,
			"layer", "application",
			"kind", req.kind,
			"subject_id", req.subjectID,
			"reference_id", req.referenceID,
			"amount", req.amount.StringFixed(2),
			"new_balance", receipt.NewBalance.StringFixed(2),
		)
		return creditResult{outcome: ports.OutcomeCredited, receipt: receipt}
	case errors.Is(err, domainerrors.ErrAlreadyCredited):
		span.SetStatus(codes.Ok, "already credited")
		metrics.ObserveCredit(req.kind, ports.OutcomeAlreadyCredited, decimal.Zero)
		logger.Info("credit already applied",
			"event", "distribution_credit_already_applied",
			"module", application.ModuleName,
			"layer", "application",
			"kind", req.kind,
			"subject_id", req.subjectID,
			"reference_id", req.referenceID,
		)
		c.auditAttempt(ctx, req, entities.AuditCreditAlreadyApplied, "")
		return creditResult{outcome: ports.OutcomeAlreadyCredited, err: err}
	default:
		if !errors.Is(err, domainerrors.ErrInconsistentState) && !errors.Is(err, domainerrors.ErrAccountNotFound) {
			err = fmt.Errorf("%w: %v", domainerrors.ErrPersistence, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveCredit(req.kind, ports.OutcomeFailed, decimal.Zero)
		logger.Error("credit failed",
			"event", "distribution_credit_failed",
			"module", application.ModuleName,
			"layer", "application",
			"kind", req.kind,
			"subject_id", req.subjectID,
			"reference_id", req.referenceID,
			"error", err.Error(),
		)
		c.auditAttempt(ctx, req, entities.AuditCreditFailed, err.Error())
		return creditResult{outcome: ports.OutcomeFailed, err: err}
	}
}

func (c creditor) buildWrite(ctx context.Context, req creditRequest) (ports.CreditWrite, error) {
	now := application.Now(c.clock)
	transactionID, err := c.idGenerator.NewID(ctx)
	if err != nil {
		return ports.CreditWrite{}, err
	}
	auditID, err := c.idGenerator.NewID(ctx)
	if err != nil {
		return ports.CreditWrite{}, err
	}
	eventID, err := c.idGenerator.NewID(ctx)
	if err != nil {
		return ports.CreditWrite{}, err
	}

	eventType := contractsv1.EventTypeProfitShareCredited
	periodKey := ""
	referredID := ""
	entityType := "ProfitShareLedger"
	if req.referral != nil {
		eventType = contractsv1.EventTypeReferralCredited
		referredID = req.referral.ReferredID
		entityType = "ReferralReward"
	}
	if req.profit != nil {
		periodKey = req.profit.PeriodKey
	}

	details := map[string]any{
		"amount": req.amount.StringFixed(2),
		"kind":   string(req.kind),
	}
	for key, value := range req.auditDetails {
		details[key] = value
	}

	return ports.CreditWrite{
		Kind:           req.kind,
		SubjectID:      req.subjectID,
		Amount:         req.amount,
		ProfitEntry:    req.profit,
		ReferralCredit: req.referral,
		Transaction: entities.BalanceTransaction{
			TransactionID: transactionID,
			SubjectID:     req.subjectID,
			Type:          req.txType,
			Amount:        req.amount,
			Status:        entities.TransactionStatusCompleted,
			Description:   req.description,
			ReferenceID:   req.referenceID,
			CreatedAt:     now,
		},
		Audit: entities.AuditRecord{
			AuditID:    auditID,
			Action:     req.auditAction,
			ActorID:    req.actorID,
			TargetID:   req.subjectID,
			EntityType: entityType,
			EntityID:   req.referenceID,
			Details:    details,
			CreatedAt:  now,
		},
		Event: ports.CreditedEvent{
			EventID:      eventID,
			EventType:    eventType,
			SubjectID:    req.subjectID,
			Kind:         req.kind,
			Amount:       req.amount,
			PeriodKey:    periodKey,
			ReferredID:   referredID,
			ReferenceID:  req.referenceID,
			PartitionKey: req.subjectID,
			OccurredAt:   now,
		},
	}, nil
}

// auditAttempt records a credit attempt that reached the store without
// crediting. It never fails the caller.
func (c creditor) auditAttempt(ctx context.Context, req creditRequest, action entities.AuditAction, reason string) {
	logger := application.ResolveLogger(c.logger)
	auditID, err := c.idGenerator.NewID(ctx)
	if err != nil {
		logger.Error("credit attempt audit id failed",
			"event", "distribution_attempt_audit_id_failed",
			"module", application.ModuleName,
			"layer", "application",
			"subject_id", req.subjectID,
			"error", err.Error(),
		)
		return
	}
	details := map[string]any{
		"kind":   string(req.kind),
		"amount": req.amount.StringFixed(2),
	}
	if reason != "" {
		details["reason"] = reason
	}
	record := entities.AuditRecord{
		AuditID:    auditID,
		Action:     action,
		ActorID:    req.actorID,
		TargetID:   req.subjectID,
		EntityType: "CreditAttempt",
		EntityID:   req.uniqueKey,
		Details:    details,
		CreatedAt:  application.Now(c.clock),
	}
	if err := c.audit.AppendAudit(application.Detached(ctx), record); err != nil {
		logger.Error("credit attempt audit failed",
			"event", "distribution_attempt_audit_failed",
			"module", application.ModuleName,
			"layer", "application",
			"subject_id", req.subjectID,
			"action", action,
			"error", err.Error(),
		)
	}
}

func resolveActor(actorID string) string {
	if actorID == "" {
		return entities.SystemActor
	}
	return actorID
}
