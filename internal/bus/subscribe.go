package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/ids"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

// Handler processes one decoded envelope and reports the outcome the
// Reliability Router should act on (spec §4.2).
type Handler func(ctx context.Context, env envelope.Envelope) reliability.ProcessingResult

// Subscribe joins topic under sub.ConsumerGroup and wires handler through
// the Reliability Router: the source offset is only committed once router
// has durably published whatever the outcome required (retry/dlq/failure),
// matching the delivery semantics of spec §4.2.
func (b *Bus) Subscribe(name, topic string, sub SubscriptionConfig, router *reliability.Router, handler Handler) error {
	subscriber, err := SubscriberFactory(kafka.SubscriberConfig{
		Brokers:               b.cfg.BootstrapServers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		ConsumerGroup:         sub.ConsumerGroup,
		OverwriteSaramaConfig: consumerSaramaConfig(sub),
	}, b.wmLogger)
	if err != nil {
		return fmt.Errorf("bus: build kafka subscriber for %s: %w", topic, err)
	}

	wmRouter, err := b.ensureRouter(msToDuration(sub.GracePeriodMS()))
	if err != nil {
		return err
	}
	wmRouter.AddNoPublisherHandler(name, topic, subscriber, func(msg *message.Message) error {
		return b.handleMessage(msg, topic, name, router, handler)
	})
	return nil
}

func (b *Bus) handleMessage(msg *message.Message, topic string, handlerName string, router *reliability.Router, handler Handler) error {
	ctx := msg.Context()

	env, err := envelope.Decode(msg.Payload)
	if err != nil {
		return b.deadLetterUndecodable(ctx, topic, msg, env, err)
	}

	if reliability.IsRetryTopic(topic) {
		if delay := reliability.DelayForAttempt(env.AttemptCount); delay > 0 {
			router.ObserveRetryDelay(topic, delay)
			if err := sleepOrCancel(ctx, delay); err != nil {
				return err
			}
		}
	}

	start := time.Now()
	result := handler(ctx, env)
	routeErr := router.Route(ctx, topic, env, result)
	b.Stats(handlerName).record(time.Since(start), routeErr != nil || result.Outcome != reliability.OutcomeSuccess)
	if routeErr != nil {
		return fmt.Errorf("bus: route outcome for %s: %w", env.EventID, routeErr)
	}
	return nil
}

// deadLetterUndecodable handles a record that failed to decode at all (spec
// §7 SerializationError / scenario S5): the raw bytes are shoveled verbatim
// to the topic's DLQ (they cannot be safely re-encoded), a MessageFailed is
// emitted using whatever identity survived decoding, and the offset is
// committed so the poison record does not loop.
func (b *Bus) deadLetterUndecodable(ctx context.Context, topic string, msg *message.Message, partial envelope.Envelope, decodeErr error) error {
	dlqTopic := reliability.DLQTopic(topic)
	rawMsg := message.NewMessage(ids.CreateULID(), msg.Payload)
	rawMsg.Metadata = make(message.Metadata, len(msg.Metadata))
	for k, v := range msg.Metadata {
		rawMsg.Metadata[k] = v
	}
	if err := b.publisher.Publish(dlqTopic, rawMsg); err != nil {
		return fmt.Errorf("bus: publish undecodable record to %s: %w", dlqTopic, err)
	}

	messageID := partial.EventID
	if messageID == "" {
		messageID = rawMsg.UUID
	}
	failed := envelope.MessageFailed{
		MessageID:    messageID,
		FailureType:  envelope.FailureTypeSerializationError,
		ErrorDetails: decodeErr.Error(),
		AttemptCount: 1,
		FailedAt:     time.Now().UTC(),
	}
	failedEnv, err := envelope.NewMessageFailed(failed, nil)
	if err != nil {
		return fmt.Errorf("bus: build MessageFailed for undecodable record: %w", err)
	}
	if err := b.Publish(ctx, reliability.TopicFailures, failedEnv); err != nil {
		return fmt.Errorf("bus: publish failure record for undecodable record: %w", err)
	}
	return nil
}

// sleepOrCancel waits for delay, returning early with ctx.Err() if the
// process-wide shutdown signal fires first (spec §5: "cancellation is a
// cooperative signal checked after each await").
func sleepOrCancel(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the underlying Watermill router and blocks until ctx is
// cancelled.
func (b *Bus) Run(ctx context.Context) error {
	router, err := b.ensureRouter(defaultCloseTimeout)
	if err != nil {
		return err
	}
	return router.Run(ctx)
}

// Running returns a channel closed once the router has finished starting,
// mirroring message.Router.Running for callers that need to synchronize
// startup (e.g. tests).
func (b *Bus) Running() chan struct{} {
	router, err := b.ensureRouter(defaultCloseTimeout)
	if err != nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return router.Running()
}
