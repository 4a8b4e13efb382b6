package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
	contractsv1 "profitshare/contracts/gen/events/v1"
)

const defaultReferralConsumerGroup = "distribution-engine-referral-cg"

// ReferralTriggerConsumer turns referral.triggered events into referral credits.
type ReferralTriggerConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Referrals     commands.CreditReferralUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c ReferralTriggerConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultReferralConsumerGroup
	}
	return c.Subscriber.Subscribe(ctx, contractsv1.EventTypeReferralTriggered, group, c.Handle)
}

func (c ReferralTriggerConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	now := application.Now(c.Clock)

	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), now.Add(dedupTTL(c.DedupTTL)))
	if errors.Is(err, domainerrors.ErrInvalidRequest) {
		logger.Warn("referral event replayed with a different payload",
			"event", "referral_event_rejected",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}
	if err != nil {
		logger.Error("referral event dedupe failed",
			"event", "referral_event_dedupe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("referral event already processed",
			"event", "referral_event_replayed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload contractsv1.ReferralTriggeredData
	if err := event.DecodeData(&payload); err != nil {
		logger.Warn("referral event rejected",
			"event", "referral_event_rejected",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return nil
	}

	result, err := c.Referrals.Execute(ctx, commands.CreditReferralCommand{
		ReferrerID:   payload.ReferrerID,
		ReferredID:   payload.ReferredID,
		TriggerEvent: payload.TriggerEvent,
	})
	if err != nil {
		if isPermanentReferralFailure(err) {
			logger.Warn("referral event rejected",
				"event", "referral_event_rejected",
				"module", application.ModuleName,
				"layer", "worker",
				"event_id", event.EventID,
				"error", err.Error(),
			)
			return nil
		}
		logger.Error("referral credit failed",
			"event", "referral_event_credit_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"referrer_id", payload.ReferrerID,
			"referred_id", payload.ReferredID,
			"error", err.Error(),
		)
		return releaseOnFailure(ctx, c.Dedup, event.EventID, err)
	}

	logger.Info("referral event processed",
		"event", "referral_event_processed",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", event.EventID,
		"referrer_id", payload.ReferrerID,
		"referred_id", payload.ReferredID,
		"outcome", result.Outcome,
	)
	return nil
}

// releaseOnFailure drops the reservation so the redelivered event is handled
// again. Credits stay idempotent on their own keys.
// isPermanentReferralFailure reports errors a redelivery cannot change.
func isPermanentReferralFailure(err error) bool {
	for _, target := range []error{
		domainerrors.ErrInvalidReferral,
		domainerrors.ErrInvalidTriggerEvent,
		domainerrors.ErrInvalidRequest,
		domainerrors.ErrNoTierMatch,
		domainerrors.ErrAccountNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func releaseOnFailure(ctx context.Context, dedup ports.EventDedupStore, eventID string, cause error) error {
	if err := dedup.ReleaseEvent(ctx, eventID); err != nil {
		return errors.Join(cause, fmt.Errorf("release event %s: %w", eventID, err))
	}
	return cause
}

func dedupTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 7 * 24 * time.Hour
	}
	return ttl
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
