package harness

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/whatsapp-eventspine/internal/bus"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
)

// stubSubscriber closes its output channel when ctx is cancelled, as a
// Watermill subscriber does, so the router's handlers stop on cancellation.
type stubSubscriber struct{}

func (s *stubSubscriber) Subscribe(ctx context.Context, _ string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
func (s *stubSubscriber) Close() error { return nil }

func newTestBusWithSubscriber(t *testing.T) *bus.Bus {
	t.Helper()
	pub := newRecordingPublisher()
	b := newTestBus(t, pub)

	origSub := bus.SubscriberFactory
	t.Cleanup(func() { bus.SubscriberFactory = origSub })
	bus.SubscriberFactory = func(_ kafka.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		return &stubSubscriber{}, nil
	}
	return b
}

func TestConsumer_Run_SubscribesAllConversationTopicsAndStopsOnCancel(t *testing.T) {
	b := newTestBusWithSubscriber(t)

	var mu sync.Mutex
	var observed []string
	c := NewConsumer(b, logging.NewSlogServiceLogger(discardLogger()), func(topic string, env envelope.Envelope) {
		mu.Lock()
		observed = append(observed, topic)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, observed) // no real broker traffic; this verifies clean subscribe+shutdown
}
