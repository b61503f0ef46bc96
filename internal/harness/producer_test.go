package harness

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/whatsapp-eventspine/internal/bus"
	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][]*message.Message
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{messages: make(map[string][]*message.Message)}
}

func (r *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[topic] = append(r.messages[topic], msgs...)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) at(topic string, i int) *message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[topic][i]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBus(t *testing.T, pub *recordingPublisher) *bus.Bus {
	t.Helper()

	origPub := bus.PublisherFactory
	t.Cleanup(func() { bus.PublisherFactory = origPub })
	bus.PublisherFactory = func(_ kafka.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		return pub, nil
	}

	b, err := bus.New(config.KafkaConfig{
		BootstrapServers: []string{"localhost:9092"},
		TimeoutMS:        10000,
		SecurityProtocol: "PLAINTEXT",
	}, logging.NewSlogServiceLogger(discardLogger()))
	require.NoError(t, err)
	return b
}

func TestProducer_EmitText_PublishesKeyedByPhone(t *testing.T) {
	pub := newRecordingPublisher()
	b := newTestBus(t, pub)

	p := NewProducer(b)
	eventID, err := p.EmitText(context.Background(), SyntheticMessage{FromPhone: "+16505551234", Body: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, eventID)

	msg := pub.at(reliability.TopicMessages, 0)
	require.NotNil(t, msg)
	assert.Equal(t, "+16505551234", msg.Metadata.Get("partition_key"))

	env, err := envelope.Decode(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, eventID, env.EventID)
}
