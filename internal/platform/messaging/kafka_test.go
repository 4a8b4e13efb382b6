package messaging

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	contractsv1 "profitshare/contracts/gen/events/v1"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan contractsv1.Envelope, 1)
	require.NoError(t, bus.Subscribe(ctx, "profit_share.credited", "test", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "profit_share.credited", contractsv1.Envelope{EventID: "evt-1"}))
	select {
	case event := <-received:
		require.Equal(t, "evt-1", event.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishReportsFullSubscriber(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entered := make(chan struct{})
	release := make(chan struct{})
	var handled atomic.Int64
	require.NoError(t, bus.Subscribe(ctx, "referral.credited", "test", func(_ context.Context, _ contractsv1.Envelope) error {
		if handled.Add(1) == 1 {
			close(entered)
			<-release
		}
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "referral.credited", contractsv1.Envelope{EventID: "evt-0"}))
	<-entered
	for i := 1; i <= subscriberQueue; i++ {
		require.NoError(t, bus.Publish(ctx, "referral.credited", contractsv1.Envelope{EventID: fmt.Sprintf("evt-%d", i)}))
	}

	err = bus.Publish(ctx, "referral.credited", contractsv1.Envelope{EventID: "evt-overflow"})
	require.ErrorIs(t, err, ErrSubscriberFull)

	close(release)
	require.Eventually(t, func() bool {
		return handled.Load() == subscriberQueue+1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, bus.Publish(ctx, "referral.credited", contractsv1.Envelope{EventID: "evt-overflow"}))
}
