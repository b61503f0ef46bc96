package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][]*message.Message
	err      error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{messages: make(map[string][]*message.Message)}
}

func (p *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[topic] = append(p.messages[topic], messages...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) at(topic string, i int) *message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[topic][i]
}

type stubSubscriber struct{}

func (s *stubSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (s *stubSubscriber) Close() error { return nil }

func newTestBus(t *testing.T, pub message.Publisher) *Bus {
	t.Helper()

	originalPub, originalSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	})

	PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return pub, nil
	}
	SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return &stubSubscriber{}, nil
	}

	b, err := New(config.KafkaConfig{
		BootstrapServers: []string{"localhost:9092"},
		ConsumerGroupID:  "test-group",
		TimeoutMS:        10000,
		SecurityProtocol: "PLAINTEXT",
	}, logging.NewSlogServiceLogger(discardLogger()))
	require.NoError(t, err)
	return b
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_UsesFactoriesAndValidatesConfig(t *testing.T) {
	pub := newRecordingPublisher()
	b := newTestBus(t, pub)
	assert.NotNil(t, b)

	_, err := New(config.KafkaConfig{}, logging.NewSlogServiceLogger(discardLogger()))
	require.Error(t, err)
}

func TestPublish_SetsPartitionKeyFromPhone(t *testing.T) {
	pub := newRecordingPublisher()
	b := newTestBus(t, pub)

	env, err := envelope.NewMessageReceived(envelope.MessageReceived{
		MessageID:   "wamid.1",
		FromPhone:   "15551234567",
		MessageType: envelope.MessageTypeText,
		Content:     envelope.MessageContent{Text: &envelope.TextContent{Body: "hi"}},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), reliability.TopicMessages, env))

	msg := pub.at(reliability.TopicMessages, 0)
	require.NotNil(t, msg)
	assert.Equal(t, "15551234567", msg.Metadata.Get(partitionKeyMetadataKey))

	decoded, err := envelope.Decode(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)
}

func TestPublish_PropagatesPublisherError(t *testing.T) {
	pub := newRecordingPublisher()
	pub.err = errors.New("broker unavailable")
	b := newTestBus(t, pub)

	env, err := envelope.NewMessageReceived(envelope.MessageReceived{MessageID: "m", FromPhone: "p", MessageType: envelope.MessageTypeText}, nil)
	require.NoError(t, err)

	err = b.Publish(context.Background(), reliability.TopicMessages, env)
	require.Error(t, err)
}

func TestGeneratePartitionKey_ReadsMetadata(t *testing.T) {
	msg := message.NewMessage("id", []byte("{}"))
	msg.Metadata.Set(partitionKeyMetadataKey, "15551234567")

	key, err := generatePartitionKey("conversation.messages", msg)
	require.NoError(t, err)
	assert.Equal(t, "15551234567", key)
}
