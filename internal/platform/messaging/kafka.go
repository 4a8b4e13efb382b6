package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	contractsv1 "profitshare/contracts/gen/events/v1"
)

const (
	maxDeliveries   = 3
	redeliveryDelay = 200 * time.Millisecond
	subscriberQueue = 128
)

// ErrSubscriberFull reports that at least one subscriber did not receive the
// event. Callers keep the event for a later publish; consumers dedup by id.
var ErrSubscriberFull = errors.New("subscriber queue full")

// Kafka is the event bus adapter used by the worker and the outbox relay.
// Current implementation is in-process publish/subscribe; KAFKA_BROKERS is
// accepted so deployments keep one configuration surface.
type Kafka struct {
	mu          sync.RWMutex
	subscribers map[string][]chan contractsv1.Envelope
	brokers     []string
	logger      *slog.Logger
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		subscribers: make(map[string][]chan contractsv1.Envelope),
		brokers:     append([]string(nil), brokers...),
		logger:      logger,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	k.mu.RLock()
	subs := append([]chan contractsv1.Envelope(nil), k.subscribers[topic]...)
	k.mu.RUnlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		k.logger.Warn("event not delivered to slow subscriber",
			"event", "kafka_publish_drop",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"dropped", dropped,
		)
		return fmt.Errorf("%w: topic %s event %s", ErrSubscriberFull, topic, event.EventID)
	}

	k.logger.Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"subscribers", len(subs),
	)
	return nil
}

// Subscribe delivers each event to handler, retrying a failed handler up to
// maxDeliveries times before the event is dropped with an error log.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	ch := make(chan contractsv1.Envelope, subscriberQueue)

	k.mu.Lock()
	k.subscribers[topic] = append(k.subscribers[topic], ch)
	k.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				k.removeSubscriber(topic, ch)
				return
			case event := <-ch:
				k.deliver(ctx, topic, consumerGroup, event, handler)
			}
		}
	}()
	return nil
}

func (k *Kafka) deliver(
	ctx context.Context,
	topic string,
	consumerGroup string,
	event contractsv1.Envelope,
	handler func(context.Context, contractsv1.Envelope) error,
) {
	var err error
	for attempt := 1; attempt <= maxDeliveries; attempt++ {
		if err = handler(ctx, event); err == nil {
			return
		}
		if attempt == maxDeliveries {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redeliveryDelay * time.Duration(attempt)):
		}
	}
	k.logger.Error("consumer handler failed",
		"event", "kafka_consume_failed",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"consumer_group", consumerGroup,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"attempts", maxDeliveries,
		"error", err.Error(),
	)
}

func (k *Kafka) removeSubscriber(topic string, target chan contractsv1.Envelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	items := k.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan contractsv1.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	k.subscribers[topic] = filtered
}
