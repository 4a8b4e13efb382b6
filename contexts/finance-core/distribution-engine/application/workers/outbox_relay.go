package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

// OutboxRelay publishes committed credit events. Each message goes to the
// topic named by its event type. A publish error leaves the row pending for
// the next cycle, so a subscriber may see an event id more than once.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			"event", "distribution_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	sent := 0
	for _, message := range pending {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			logger.Error("outbox payload decode failed",
				"event", "distribution_outbox_decode_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}

		if err := r.Publisher.Publish(ctx, message.EventType, envelope); err != nil {
			logger.Error("outbox publish failed",
				"event", "distribution_outbox_publish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_type", message.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxSent(ctx, message.OutboxID, application.Now(r.Clock)); err != nil {
			logger.Error("outbox mark sent failed",
				"event", "distribution_outbox_mark_sent_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		sent++
	}

	if sent > 0 {
		logger.Info("outbox relay cycle completed",
			"event", "distribution_outbox_relay_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"sent_count", sent,
		)
	}
	return nil
}
