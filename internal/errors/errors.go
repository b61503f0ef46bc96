// Package errors holds sentinel errors shared across eventspine components.
package errors

import sterrors "errors"

var (
	ErrBusRequired          = sterrors.New("eventspine: bus is required")
	ErrHandlerRequired      = sterrors.New("eventspine: handler function is required")
	ErrTopicRequired        = sterrors.New("eventspine: topic is required")
	ErrConsumerGroupMissing = sterrors.New("eventspine: consumer_group is required")

	// ErrSerialization marks an envelope that could not be decoded or whose
	// data shape did not match its event_type. Never retried: a decode
	// failure is deterministic and will re-fail identically (spec §7).
	ErrSerialization = sterrors.New("eventspine: serialization error")

	// ErrUnknownEventType marks an envelope whose event_type discriminator
	// is not one of the four known variants.
	ErrUnknownEventType = sterrors.New("eventspine: unknown event_type")
)
