package commands

import (
	"context"
	"log/slog"
	"strings"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

type ReleaseHoldCommand struct {
	SubjectID string
	ActorID   string
	Note      string
}

// ReleaseHoldUseCase re-enables crediting for a subject after an administrator
// reconciled its ledger by hand. Nothing is corrected automatically.
type ReleaseHoldUseCase struct {
	Holds       ports.HoldStore
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u ReleaseHoldUseCase) Execute(ctx context.Context, cmd ReleaseHoldCommand) error {
	logger := application.ResolveLogger(u.Logger)
	subjectID := strings.TrimSpace(cmd.SubjectID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if subjectID == "" || actorID == "" {
		return domainerrors.ErrInvalidRequest
	}

	now := application.Now(u.Clock)
	auditID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return err
	}
	audit := entities.AuditRecord{
		AuditID:    auditID,
		Action:     entities.AuditCreditHoldReleased,
		ActorID:    actorID,
		TargetID:   subjectID,
		EntityType: "CreditHold",
		EntityID:   subjectID,
		Details:    map[string]any{"note": cmd.Note},
		CreatedAt:  now,
	}
	if err := u.Holds.ReleaseHold(ctx, subjectID, actorID, now, audit); err != nil {
		logger.Warn("credit hold release failed",
			"event", "credit_hold_release_failed",
			"module", application.ModuleName,
			"layer", "application",
			"subject_id", subjectID,
			"actor_id", actorID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("credit hold released",
		"event", "credit_hold_released",
		"module", application.ModuleName,
		"layer", "application",
		"subject_id", subjectID,
		"actor_id", actorID,
	)
	return nil
}
