// Package envelope defines the versioned Event Envelope that travels on
// every topic of the bus, and the typed payloads it carries (spec §3, §4.1).
package envelope

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drblury/whatsapp-eventspine/internal/metadata"
)

// EventType names one of the four payload variants an Envelope can carry.
type EventType string

const (
	EventTypeMessageReceived     EventType = "MessageReceived"
	EventTypeInteractionReceived EventType = "InteractionReceived"
	EventTypeResponseReady       EventType = "ResponseReady"
	EventTypeMessageFailed       EventType = "MessageFailed"
)

// Valid reports whether e is one of the four known event types.
func (e EventType) Valid() bool {
	switch e {
	case EventTypeMessageReceived, EventTypeInteractionReceived, EventTypeResponseReady, EventTypeMessageFailed:
		return true
	default:
		return false
	}
}

// DefaultMaxAttempts is the ceiling applied to an Envelope that does not
// specify one explicitly; it matches the three-tier retry ladder in §4.3.
const DefaultMaxAttempts = 3

// Envelope is the versioned wrapper around every payload published to the
// bus. event_id is a UUID v4 (distinct from the ULID used for the
// underlying transport message id) per §3.1.
type Envelope struct {
	EventID      string            `json:"event_id"`
	Timestamp    time.Time         `json:"timestamp"`
	EventType    EventType         `json:"event_type"`
	Version      string            `json:"version"`
	Data         []byte            `json:"data"`
	Metadata     metadata.Metadata `json:"metadata"`
	AttemptCount uint              `json:"attempt_count"`
	MaxAttempts  uint              `json:"max_attempts"`
}

// New builds an Envelope around data, marshaling it immediately so a
// malformed payload fails at construction time rather than at publish time.
func New(eventType EventType, version string, data any, meta metadata.Metadata) (Envelope, error) {
	if !eventType.Valid() {
		return Envelope{}, fmt.Errorf("envelope: unknown event type %q", eventType)
	}
	raw, err := marshalData(data)
	if err != nil {
		return Envelope{}, &SerializationError{Err: err}
	}
	return Envelope{
		EventID:      uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Version:      version,
		Data:         raw,
		Metadata:     meta.Clone(),
		AttemptCount: 1,
		MaxAttempts:  DefaultMaxAttempts,
	}, nil
}

// NewMessageReceived builds a MessageReceived envelope (version "1.0").
func NewMessageReceived(data MessageReceived, meta metadata.Metadata) (Envelope, error) {
	return New(EventTypeMessageReceived, "1.0", data, meta)
}

// NewInteractionReceived builds an InteractionReceived envelope (version "1.0").
func NewInteractionReceived(data InteractionReceived, meta metadata.Metadata) (Envelope, error) {
	return New(EventTypeInteractionReceived, "1.0", data, meta)
}

// NewResponseReady builds a ResponseReady envelope (version "1.0").
func NewResponseReady(data ResponseReady, meta metadata.Metadata) (Envelope, error) {
	return New(EventTypeResponseReady, "1.0", data, meta)
}

// NewMessageFailed builds a MessageFailed envelope (version "1.0").
func NewMessageFailed(data MessageFailed, meta metadata.Metadata) (Envelope, error) {
	return New(EventTypeMessageFailed, "1.0", data, meta)
}

// DecodeMessageReceived unmarshals Data into a MessageReceived payload. The
// caller is expected to have checked EventType first; this is a narrowing
// accessor, not a dispatcher.
func (e Envelope) DecodeMessageReceived() (MessageReceived, error) {
	var v MessageReceived
	err := unmarshalData(e.Data, &v)
	return v, err
}

// DecodeInteractionReceived unmarshals Data into an InteractionReceived payload.
func (e Envelope) DecodeInteractionReceived() (InteractionReceived, error) {
	var v InteractionReceived
	err := unmarshalData(e.Data, &v)
	return v, err
}

// DecodeResponseReady unmarshals Data into a ResponseReady payload.
func (e Envelope) DecodeResponseReady() (ResponseReady, error) {
	var v ResponseReady
	err := unmarshalData(e.Data, &v)
	return v, err
}

// DecodeMessageFailed unmarshals Data into a MessageFailed payload.
func (e Envelope) DecodeMessageFailed() (MessageFailed, error) {
	var v MessageFailed
	err := unmarshalData(e.Data, &v)
	return v, err
}

// Payload decodes Data into whichever of the four variant types matches
// EventType, returning it as any. Callers that already know the event type
// should prefer the narrow Decode* accessor instead.
func (e Envelope) Payload() (any, error) {
	switch e.EventType {
	case EventTypeMessageReceived:
		return e.DecodeMessageReceived()
	case EventTypeInteractionReceived:
		return e.DecodeInteractionReceived()
	case EventTypeResponseReady:
		return e.DecodeResponseReady()
	case EventTypeMessageFailed:
		return e.DecodeMessageFailed()
	default:
		return nil, &SerializationError{Err: fmt.Errorf("envelope: unknown event type %q", e.EventType)}
	}
}

// Validate checks the structural invariants every Envelope must hold
// regardless of which topic it travels on (§3.1).
func (e Envelope) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("envelope: event_id is required")
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("envelope: unknown event type %q", e.EventType)
	}
	if e.Version == "" {
		return fmt.Errorf("envelope: version is required")
	}
	if e.AttemptCount < 1 {
		return fmt.Errorf("envelope: attempt_count must be >= 1, got %d", e.AttemptCount)
	}
	if e.MaxAttempts < 1 {
		return fmt.Errorf("envelope: max_attempts must be >= 1, got %d", e.MaxAttempts)
	}
	return nil
}

// WithAttempt returns a copy of e with AttemptCount set to attempt,
// preserving EventID so the envelope's identity survives a retry republish
// (§4.3: the event_id does not change across retries).
func (e Envelope) WithAttempt(attempt uint) Envelope {
	next := e
	next.AttemptCount = attempt
	next.Metadata = e.Metadata.Clone()
	return next
}

// Exhausted reports whether e has used up its retry budget.
func (e Envelope) Exhausted() bool {
	return e.AttemptCount >= e.MaxAttempts
}
