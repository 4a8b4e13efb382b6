package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
	contractsv1 "profitshare/contracts/gen/events/v1"
)

const defaultNotificationConsumerGroup = "distribution-engine-notification-cg"

// NotificationDispatcher hands credited events to the notification collaborator.
type NotificationDispatcher struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Notifier      ports.Notifier
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (d NotificationDispatcher) Start(ctx context.Context) error {
	group := d.ConsumerGroup
	if group == "" {
		group = defaultNotificationConsumerGroup
	}
	for _, topic := range []string{
		contractsv1.EventTypeProfitShareCredited,
		contractsv1.EventTypeReferralCredited,
	} {
		if err := d.Subscriber.Subscribe(ctx, topic, group, d.Handle); err != nil {
			return err
		}
	}
	return nil
}

func (d NotificationDispatcher) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(d.Logger)
	now := application.Now(d.Clock)

	alreadyProcessed, err := d.Dedup.ReserveEvent(ctx, "notify:"+event.EventID, hashPayload(event.Data), now.Add(dedupTTL(d.DedupTTL)))
	if errors.Is(err, domainerrors.ErrInvalidRequest) {
		logger.Warn("credited event replayed with a different payload",
			"event", "distribution_notification_rejected",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}
	if err != nil {
		return err
	}
	if alreadyProcessed {
		return nil
	}

	var payload contractsv1.CreditedData
	if err := event.DecodeData(&payload); err != nil {
		logger.Warn("credited event rejected",
			"event", "distribution_notification_rejected",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return nil
	}
	if err := d.Notifier.Notify(ctx, ports.Notification{
		EventID:   event.EventID,
		EventType: event.EventType,
		SubjectID: payload.SubjectID,
		Amount:    payload.Amount,
		Reference: payload.ReferenceID,
	}); err != nil {
		logger.Warn("credit notification failed",
			"event", "distribution_notification_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"subject_id", payload.SubjectID,
			"error", err.Error(),
		)
		return releaseOnFailure(ctx, d.Dedup, "notify:"+event.EventID, err)
	}
	return nil
}
