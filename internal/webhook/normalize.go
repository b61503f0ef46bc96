package webhook

import (
	"fmt"
	"strconv"
	"time"

	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/metadata"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

// NormalizedEvent pairs a domain envelope with the topic it belongs on, so
// the server can publish each one without re-deriving routing from
// event_type.
type NormalizedEvent struct {
	Topic    string
	Envelope envelope.Envelope
}

// Validate checks the structural requirements spec §4.4 places on an
// inbound POST before any normalization is attempted.
func Validate(p Payload) error {
	if p.Object != "whatsapp_business_account" {
		return fmt.Errorf("webhook: unexpected object %q", p.Object)
	}
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) > 0 || len(change.Value.Statuses) > 0 {
				return nil
			}
		}
	}
	return fmt.Errorf("webhook: payload has no messages or statuses")
}

// Normalize walks the payload in order and builds one NormalizedEvent per
// messages[] entry (spec §4.4, §8 property 7: exactly one domain event per
// entry). Status receipts are not converted; they carry no domain event.
func Normalize(p Payload, svcMeta metadata.Metadata) ([]NormalizedEvent, error) {
	var out []NormalizedEvent
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				ev, err := normalizeMessage(msg, svcMeta)
				if err != nil {
					return nil, fmt.Errorf("webhook: normalize message %s: %w", msg.ID, err)
				}
				out = append(out, ev)
			}
		}
	}
	return out, nil
}

func normalizeMessage(msg Message, meta metadata.Metadata) (NormalizedEvent, error) {
	receivedAt := parseTimestamp(msg.Timestamp)

	switch msg.Type {
	case "text":
		return messageReceived(msg, envelope.MessageTypeText, envelope.MessageContent{
			Text: &envelope.TextContent{Body: textBody(msg.Text)},
		}, receivedAt, meta)

	case "image":
		return mediaMessage(msg, envelope.MessageTypeImage, msg.Image, receivedAt, meta)
	case "audio":
		return mediaMessage(msg, envelope.MessageTypeAudio, msg.Audio, receivedAt, meta)
	case "video":
		return mediaMessage(msg, envelope.MessageTypeVideo, msg.Video, receivedAt, meta)
	case "document":
		return mediaMessage(msg, envelope.MessageTypeDocument, msg.Document, receivedAt, meta)
	case "sticker":
		return mediaMessage(msg, envelope.MessageTypeSticker, msg.Sticker, receivedAt, meta)

	case "location":
		return locationMessage(msg, receivedAt, meta)

	case "contact":
		return contactMessage(msg, receivedAt, meta)

	case "reaction":
		// Explicit policy decision (spec §4.4): a reaction becomes a Text
		// MessageReceived whose body is the emoji, not a distinct variant.
		return reactionMessage(msg, receivedAt, meta)

	case "interactive":
		return interactiveMessage(msg, receivedAt, meta)

	case "button":
		return buttonClickMessage(msg, receivedAt, meta)

	default:
		return unknownMessage(msg, fmt.Sprintf("unrecognized message type %q", msg.Type), meta)
	}
}

func messageReceived(msg Message, mt envelope.MessageType, content envelope.MessageContent, receivedAt time.Time, meta metadata.Metadata) (NormalizedEvent, error) {
	env, err := envelope.NewMessageReceived(envelope.MessageReceived{
		MessageID:   msg.ID,
		FromPhone:   msg.From,
		MessageType: mt,
		Content:     content,
		ReceivedAt:  receivedAt,
		Metadata:    contextMeta(msg.Context),
	}, meta)
	if err != nil {
		return NormalizedEvent{}, err
	}
	return NormalizedEvent{Topic: reliability.TopicMessages, Envelope: env}, nil
}

func mediaMessage(msg Message, mt envelope.MessageType, media *WireMedia, receivedAt time.Time, meta metadata.Metadata) (NormalizedEvent, error) {
	if media == nil {
		return unknownMessage(msg, fmt.Sprintf("message declared type %q with no matching content", mt), meta)
	}
	content := envelope.MediaContent{MediaID: media.ID, MimeType: media.MimeType}
	if media.Caption != "" {
		content.Caption = ptr(media.Caption)
	}
	if media.Filename != "" {
		content.Filename = ptr(media.Filename)
	}

	mc := envelope.MessageContent{}
	switch mt {
	case envelope.MessageTypeImage:
		mc.Image = &content
	case envelope.MessageTypeAudio:
		mc.Audio = &content
	case envelope.MessageTypeVideo:
		mc.Video = &content
	case envelope.MessageTypeDocument:
		mc.Document = &content
	case envelope.MessageTypeSticker:
		mc.Sticker = &content
	}
	return messageReceived(msg, mt, mc, receivedAt, meta)
}

func locationMessage(msg Message, receivedAt time.Time, meta metadata.Metadata) (NormalizedEvent, error) {
	if msg.Location == nil {
		return unknownMessage(msg, "message declared type location with no location content", meta)
	}
	loc := envelope.LocationContent{Latitude: msg.Location.Latitude, Longitude: msg.Location.Longitude}
	if msg.Location.Name != "" {
		loc.Name = ptr(msg.Location.Name)
	}
	if msg.Location.Address != "" {
		loc.Address = ptr(msg.Location.Address)
	}
	return messageReceived(msg, envelope.MessageTypeLocation, envelope.MessageContent{Location: &loc}, receivedAt, meta)
}

func contactMessage(msg Message, receivedAt time.Time, meta metadata.Metadata) (NormalizedEvent, error) {
	if len(msg.Contacts) == 0 {
		return unknownMessage(msg, "message declared type contact with no contact content", meta)
	}
	wc := msg.Contacts[0]
	cc := envelope.ContactContent{Name: wc.Name.FormattedName}
	if len(wc.Phones) > 0 {
		cc.PhoneNumber = wc.Phones[0].Phone
	}
	return messageReceived(msg, envelope.MessageTypeContact, envelope.MessageContent{Contact: &cc}, receivedAt, meta)
}

func reactionMessage(msg Message, receivedAt time.Time, meta metadata.Metadata) (NormalizedEvent, error) {
	if msg.Reaction == nil {
		return unknownMessage(msg, "message declared type reaction with no reaction content", meta)
	}
	return messageReceived(msg, envelope.MessageTypeText, envelope.MessageContent{
		Text: &envelope.TextContent{Body: msg.Reaction.Emoji},
	}, receivedAt, meta)
}

func interactiveMessage(msg Message, receivedAt time.Time, meta metadata.Metadata) (NormalizedEvent, error) {
	if msg.Interactive == nil {
		return unknownMessage(msg, "message declared type interactive with no interactive content", meta)
	}

	switch {
	case msg.Interactive.ButtonReply != nil:
		return interactionReceived(msg, envelope.InteractionTypeButtonReply, envelope.InteractionSelection{
			Button: &envelope.ButtonSelection{ID: msg.Interactive.ButtonReply.ID, Title: msg.Interactive.ButtonReply.Title},
		}, receivedAt, meta)

	case msg.Interactive.ListReply != nil:
		selection := envelope.ListSelection{ID: msg.Interactive.ListReply.ID, Title: msg.Interactive.ListReply.Title}
		if msg.Interactive.ListReply.Description != "" {
			selection.Description = ptr(msg.Interactive.ListReply.Description)
		}
		return interactionReceived(msg, envelope.InteractionTypeListReply, envelope.InteractionSelection{List: &selection}, receivedAt, meta)

	default:
		return unknownMessage(msg, fmt.Sprintf("unrecognized interactive subtype %q", msg.Interactive.Type), meta)
	}
}

func buttonClickMessage(msg Message, receivedAt time.Time, meta metadata.Metadata) (NormalizedEvent, error) {
	if msg.Button == nil {
		return unknownMessage(msg, "message declared type button with no button content", meta)
	}
	return interactionReceived(msg, envelope.InteractionTypeButtonReply, envelope.InteractionSelection{
		Button: &envelope.ButtonSelection{ID: msg.Button.Payload, Title: msg.Button.Text},
	}, receivedAt, meta)
}

func interactionReceived(msg Message, it envelope.InteractionType, selection envelope.InteractionSelection, receivedAt time.Time, meta metadata.Metadata) (NormalizedEvent, error) {
	env, err := envelope.NewInteractionReceived(envelope.InteractionReceived{
		OriginalMessageID: contextID(msg.Context),
		FromPhone:         msg.From,
		InteractionType:   it,
		Selection:         selection,
		ReceivedAt:        receivedAt,
	}, meta)
	if err != nil {
		return NormalizedEvent{}, err
	}
	return NormalizedEvent{Topic: reliability.TopicInteractions, Envelope: env}, nil
}

// unknownMessage implements spec §4.4/S6: an unrecognized message type
// (or a declared type missing its content) produces a MessageFailed
// straight onto conversation.failures rather than being discarded.
func unknownMessage(msg Message, detail string, meta metadata.Metadata) (NormalizedEvent, error) {
	env, err := envelope.NewMessageFailed(envelope.MessageFailed{
		MessageID:    msg.ID,
		Phone:        msg.From,
		FailureType:  envelope.FailureTypeValidationError,
		ErrorDetails: detail,
		AttemptCount: 1,
		FailedAt:     time.Now().UTC(),
	}, meta)
	if err != nil {
		return NormalizedEvent{}, err
	}
	return NormalizedEvent{Topic: reliability.TopicFailures, Envelope: env}, nil
}

func contextID(ctx *WireContext) string {
	if ctx == nil {
		return ""
	}
	return ctx.ID
}

func contextMeta(ctx *WireContext) envelope.MessageReceivedMeta {
	if ctx == nil {
		return envelope.MessageReceivedMeta{}
	}
	return envelope.MessageReceivedMeta{ContextMessageID: ctx.ID}
}

func textBody(t *WireText) string {
	if t == nil {
		return ""
	}
	return t.Body
}

func parseTimestamp(raw string) time.Time {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}

func ptr[T any](v T) *T {
	return &v
}
