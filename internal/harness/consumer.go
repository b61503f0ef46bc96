// Package harness implements the test consumer/producer of spec §4.7: the
// oracle used to exercise the properties in §8 end to end against a real
// broker.
package harness

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/drblury/whatsapp-eventspine/internal/bus"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

// ConversationTopics is the set the test consumer subscribes to: every
// primary conversation topic, not the retry/dlq/system topics, matching
// spec §4.7 ("subscribes to all conversation topics").
var ConversationTopics = []string{
	reliability.TopicMessages,
	reliability.TopicInteractions,
	reliability.TopicResponses,
	reliability.TopicFailures,
}

// Printer receives one decoded envelope observation; production code passes
// a ServiceLogger-backed printer, tests can substitute a recording one.
type Printer func(topic string, env envelope.Envelope)

// Consumer subscribes to every conversation topic under a unique consumer
// group starting from earliest, so it observes the full history on every
// run (spec §4.7).
type Consumer struct {
	bus     *bus.Bus
	logger  logging.ServiceLogger
	printer Printer
}

// NewConsumer builds a test Consumer. If printer is nil, decoded envelopes
// are logged through logger instead.
func NewConsumer(b *bus.Bus, logger logging.ServiceLogger, printer Printer) *Consumer {
	if printer == nil {
		printer = func(topic string, env envelope.Envelope) {
			logger.Info("observed envelope", logging.Fields{
				"topic":      topic,
				"event_id":   env.EventID,
				"event_type": string(env.EventType),
				"attempt":    env.AttemptCount,
			})
		}
	}
	return &Consumer{bus: b, logger: logger, printer: printer}
}

// Run subscribes to every conversation topic under a fresh unique group id
// and blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	groupID := "test-harness-" + ulid.Make().String()
	sub := bus.DefaultSubscriptionConfig(groupID)
	sub.AutoOffsetReset = bus.OffsetEarliest

	router := reliability.NewRouter(c.bus, c.logger, reliability.NewMetrics(nil))

	for _, topic := range ConversationTopics {
		topic := topic
		handlerName := fmt.Sprintf("test-harness-%s", topic)
		err := c.bus.Subscribe(handlerName, topic, sub, router, func(_ context.Context, env envelope.Envelope) reliability.ProcessingResult {
			c.printer(topic, env)
			return reliability.Success()
		})
		if err != nil {
			return fmt.Errorf("harness: subscribe to %s: %w", topic, err)
		}
	}

	return c.bus.Run(ctx)
}
