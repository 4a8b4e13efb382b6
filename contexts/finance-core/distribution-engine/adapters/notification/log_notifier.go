package notificationadapter

import (
	"context"
	"log/slog"

	"profitshare/contexts/finance-core/distribution-engine/ports"
)

// LogNotifier hands credit notifications to the structured log until a
// delivery service subscribes to the credited topics directly.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, notification ports.Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "credit notification dispatched",
		"event", "distribution_notification_dispatched",
		"module", "finance-core/distribution-engine",
		"layer", "adapter",
		"event_id", notification.EventID,
		"event_type", notification.EventType,
		"subject_id", notification.SubjectID,
		"amount", notification.Amount,
		"reference_id", notification.Reference,
	)
	return nil
}
