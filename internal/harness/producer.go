package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/drblury/whatsapp-eventspine/internal/bus"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/metadata"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

// Producer injects synthetic MessageReceived events for deterministic
// end-to-end runs (spec §4.7).
type Producer struct {
	bus *bus.Bus
}

// NewProducer builds a test Producer bound to an existing Bus.
func NewProducer(b *bus.Bus) *Producer {
	return &Producer{bus: b}
}

// SyntheticMessage describes one synthetic inbound text message to inject.
type SyntheticMessage struct {
	FromPhone string
	Body      string
}

// EmitText publishes a synthetic text MessageReceived to conversation.messages,
// keyed by FromPhone, exactly as the webhook ingress would have normalized
// one.
func (p *Producer) EmitText(ctx context.Context, msg SyntheticMessage) (string, error) {
	env, err := envelope.NewMessageReceived(envelope.MessageReceived{
		MessageID:   fmt.Sprintf("harness-%d", time.Now().UnixNano()),
		FromPhone:   msg.FromPhone,
		MessageType: envelope.MessageTypeText,
		Content:     envelope.MessageContent{Text: &envelope.TextContent{Body: msg.Body}},
		ReceivedAt:  time.Now().UTC(),
	}, metadata.New("processed_by", "test-harness"))
	if err != nil {
		return "", fmt.Errorf("harness: build synthetic MessageReceived: %w", err)
	}

	if err := p.bus.Publish(ctx, reliability.TopicMessages, env); err != nil {
		return "", fmt.Errorf("harness: publish synthetic MessageReceived: %w", err)
	}
	return env.EventID, nil
}
