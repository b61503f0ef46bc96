package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/ids"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/metadata"
)

// partitionKeyMetadataKey is the Watermill metadata field our marshaler
// reads the Kafka partition key from (set on every outgoing message by
// Publish).
const partitionKeyMetadataKey = "partition_key"

// PublisherFactory allows tests to substitute a fake Kafka publisher,
// mirroring protoflow's transport/kafka.PublisherFactory override hook.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows tests to substitute a fake Kafka subscriber.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

// AdminFactory allows tests to substitute a fake cluster admin for Health.
var AdminFactory = func(brokers []string, cfg *sarama.Config) (sarama.ClusterAdmin, error) {
	return sarama.NewClusterAdmin(brokers, cfg)
}

// Bus is the typed publish/subscribe facade described by spec §4.2. It owns
// one shared Watermill publisher, one router that handlers are registered
// against, and the Kafka connection settings needed to build per-topic
// subscribers.
type Bus struct {
	cfg       config.KafkaConfig
	logger    logging.ServiceLogger
	wmLogger  watermill.LoggerAdapter
	publisher message.Publisher

	routerMu sync.Mutex
	router   *message.Router

	statsMu      sync.Mutex
	handlerStats map[string]*HandlerStats
}

// New constructs a Bus: one producer shared by every publish call, and a
// Watermill router that Subscribe registers handlers onto (spec §9: "model
// the bus as an owned value constructed at process start").
func New(cfg config.KafkaConfig, logger logging.ServiceLogger) (*Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bus: invalid kafka config: %w", err)
	}

	wmLogger := logging.NewWatermillAdapter(logger)

	publisher, err := PublisherFactory(kafka.PublisherConfig{
		Brokers:               cfg.BootstrapServers,
		Marshaler:             kafka.NewWithPartitioningMarshaler(generatePartitionKey),
		OverwriteSaramaConfig: producerSaramaConfig(cfg),
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("bus: build kafka publisher: %w", err)
	}

	return &Bus{
		cfg:       cfg,
		logger:    logger,
		wmLogger:  wmLogger,
		publisher: publisher,
	}, nil
}

// defaultCloseTimeout is the router shutdown grace period used when Run is
// invoked before any Subscribe call has established one (spec §5).
var defaultCloseTimeout = msToDuration(DefaultSubscriptionConfig("").GracePeriodMS())

// ensureRouter lazily builds the shared Watermill router the first time it
// is needed, sizing its CloseTimeout from closeTimeout: spec §12 ties the
// grace period given to in-flight handlers before a hard cancellation to
// the subscribing consumer's own max-poll-interval, and the router
// (constructed once, shared by every Subscribe call on this Bus) can only
// carry one such value, so the first subscription to run sets it.
func (b *Bus) ensureRouter(closeTimeout time.Duration) (*message.Router, error) {
	b.routerMu.Lock()
	defer b.routerMu.Unlock()
	if b.router != nil {
		return b.router, nil
	}
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: closeTimeout}, b.wmLogger)
	if err != nil {
		return nil, fmt.Errorf("bus: build router: %w", err)
	}
	router.AddMiddleware(tracingMiddleware)
	b.router = router
	return router, nil
}

// tracingMiddleware wraps every handler invocation in an OpenTelemetry span,
// generalized from protoflow's tracerMiddleware to this bus's no-publisher
// handlers (spec §9: "cross-cutting concerns live as router middleware, not
// inside handler bodies").
func tracingMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		tracer := otel.Tracer("eventspine-bus")
		ctx, span := tracer.Start(msg.Context(), "bus.HandleMessage")
		defer span.End()
		msg.SetContext(ctx)

		span.SetAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("partition_key", msg.Metadata.Get(partitionKeyMetadataKey)),
		)
		return h(msg)
	}
}

// generatePartitionKey implements kafka.GeneratePartitionKey by reading the
// key Publish stashed on the message's metadata, so every event on a given
// topic that was published with the same phone number lands on the same
// partition (spec §3.3 partition key policy).
func generatePartitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(partitionKeyMetadataKey), nil
}

// producerSaramaConfig enables idempotent production with acks=all, per
// spec §4.2 ("awaits broker acknowledgement with acks=all and
// idempotent-producer semantics").
func producerSaramaConfig(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Producer.Retry.Max = 5
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Return.Successes = true
	return sc
}

func consumerSaramaConfig(sub SubscriptionConfig) *sarama.Config {
	sc := sarama.NewConfig()
	switch sub.AutoOffsetReset {
	case OffsetEarliest:
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	if sub.FetchMinBytes > 0 {
		sc.Consumer.Fetch.Min = sub.FetchMinBytes
	}
	if sub.FetchMaxWaitMS > 0 {
		sc.Consumer.MaxWaitTime = msToDuration(int(sub.FetchMaxWaitMS))
	}
	if sub.SessionTimeoutMS > 0 {
		sc.Consumer.Group.Session.Timeout = msToDuration(sub.SessionTimeoutMS)
	}
	if sub.MaxPollIntervalMS > 0 {
		sc.Consumer.MaxProcessingTime = msToDuration(sub.MaxPollIntervalMS)
	}
	return sc
}

// Publish encodes env and publishes it to topic, keyed by the phone number
// carried in env's payload (falling back to a broker-chosen partition when
// none is extractable, e.g. a MessageFailed with no identity). Satisfies
// reliability.Publisher so the Reliability Router can publish retry/dlq/
// failure copies through the same producer.
func (b *Bus) Publish(ctx context.Context, topic string, env envelope.Envelope) error {
	raw, err := envelope.Encode(env)
	if err != nil {
		return fmt.Errorf("bus: encode envelope: %w", err)
	}

	msg := message.NewMessage(ids.CreateULID(), raw)
	msg.Metadata = metadata.ToWatermill(env.Metadata)
	if key, ok := partitionKey(env); ok {
		msg.Metadata.Set(partitionKeyMetadataKey, key)
	}
	msg.SetContext(ctx)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("bus: publish to %s: %w", topic, err)
	}
	return nil
}

// partitionKey extracts the phone number used as the Kafka partition key
// (spec §3.3, §6.2: "raw phone number string including leading +").
func partitionKey(env envelope.Envelope) (string, bool) {
	switch env.EventType {
	case envelope.EventTypeMessageReceived:
		if d, err := env.DecodeMessageReceived(); err == nil && d.FromPhone != "" {
			return d.FromPhone, true
		}
	case envelope.EventTypeInteractionReceived:
		if d, err := env.DecodeInteractionReceived(); err == nil && d.FromPhone != "" {
			return d.FromPhone, true
		}
	case envelope.EventTypeResponseReady:
		if d, err := env.DecodeResponseReady(); err == nil && d.ToPhone != "" {
			return d.ToPhone, true
		}
	case envelope.EventTypeMessageFailed:
		if d, err := env.DecodeMessageFailed(); err == nil && d.Phone != "" {
			return d.Phone, true
		}
	}
	return "", false
}

// Close flushes the shared producer. Subscribers are closed by Run
// returning when ctx is cancelled.
func (b *Bus) Close() error {
	return b.publisher.Close()
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
