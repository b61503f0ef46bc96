package envelope

import (
	"fmt"

	"github.com/drblury/whatsapp-eventspine/internal/errors"
	"github.com/drblury/whatsapp-eventspine/internal/jsoncodec"
)

// SerializationError wraps a decode or encode failure together with the raw
// bytes that caused it, so the caller can route the message to the dead
// letter topic (§7: SerializationError is classified Dead, never retried)
// without re-parsing anything.
type SerializationError struct {
	Raw []byte
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("envelope: serialization error: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return errors.ErrSerialization
}

func marshalData(v any) ([]byte, error) {
	return jsoncodec.Marshal(v)
}

func unmarshalData(raw []byte, out any) error {
	if err := jsoncodec.Unmarshal(raw, out); err != nil {
		return &SerializationError{Raw: raw, Err: err}
	}
	return nil
}

// Encode serializes an Envelope to its canonical wire form.
func Encode(e Envelope) ([]byte, error) {
	raw, err := jsoncodec.Marshal(e)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return raw, nil
}

// Decode parses the canonical wire form back into an Envelope, rejecting
// payloads with a malformed structure or an unrecognized event_type before
// the caller ever touches Data.
func Decode(raw []byte) (Envelope, error) {
	var e Envelope
	if err := jsoncodec.Unmarshal(raw, &e); err != nil {
		return Envelope{}, &SerializationError{Raw: raw, Err: err}
	}
	if !e.EventType.Valid() {
		// The wrapper decoded fine (event_id, timestamp, etc. are usable);
		// only the discriminator is unrecognized. Return e alongside the
		// error so callers can still dead-letter it under its own identity
		// instead of an opaque blob.
		return e, &SerializationError{
			Raw: raw,
			Err: fmt.Errorf("%w: %s", errors.ErrUnknownEventType, e.EventType),
		}
	}
	return e, nil
}
