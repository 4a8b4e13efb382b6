package workers

import (
	"context"
	"log/slog"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

// LedgerAuditor looks for ledger rows whose balance transaction is missing and
// puts the subject on hold. Holds are released by an administrator only.
type LedgerAuditor struct {
	Checker     ports.ConsistencyChecker
	Holds       ports.HoldStore
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	BatchSize   int
	Logger      *slog.Logger
}

func (a LedgerAuditor) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(a.Logger)
	limit := a.BatchSize
	if limit <= 0 {
		limit = 100
	}

	unbacked, err := a.Checker.ListUnbackedCredits(ctx, limit)
	if err != nil {
		logger.Error("ledger consistency scan failed",
			"event", "ledger_auditor_scan_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	for _, credit := range unbacked {
		now := application.Now(a.Clock)
		auditID, err := a.IDGenerator.NewID(ctx)
		if err != nil {
			return err
		}
		reason := "ledger row " + credit.ReferenceID + " has no balance transaction"
		placed, err := a.Holds.PlaceHold(ctx, entities.CreditHold{
			SubjectID: credit.SubjectID,
			Reason:    reason,
			PlacedAt:  now,
		}, entities.AuditRecord{
			AuditID:    auditID,
			Action:     entities.AuditCreditHoldPlaced,
			ActorID:    entities.SystemActor,
			TargetID:   credit.SubjectID,
			EntityType: "CreditHold",
			EntityID:   credit.SubjectID,
			Details: map[string]any{
				"kind":        string(credit.Kind),
				"referenceId": credit.ReferenceID,
				"amount":      credit.Amount.StringFixed(2),
			},
			CreatedAt: now,
		})
		if err != nil {
			logger.Error("credit hold placement failed",
				"event", "ledger_auditor_hold_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"subject_id", credit.SubjectID,
				"error", err.Error(),
			)
			return err
		}
		if placed {
			logger.Error("inconsistent ledger state detected",
				"event", "ledger_auditor_inconsistent_state",
				"module", application.ModuleName,
				"layer", "worker",
				"subject_id", credit.SubjectID,
				"reference_id", credit.ReferenceID,
				"kind", credit.Kind,
			)
		}
	}
	return nil
}
