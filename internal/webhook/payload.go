// Package webhook implements the platform-facing HTTP surface: the
// verification handshake, payload ingestion, and normalization of the
// WhatsApp Cloud API's nested wire payload into typed domain events
// (spec §4.4, §6.1).
package webhook

// Payload is the root object POSTed by the platform on every webhook
// delivery.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry corresponds to one WhatsApp Business Account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries one notification for a phone number under Entry.
type Change struct {
	Value ChangeValue `json:"value"`
	Field string      `json:"field"`
}

// ChangeValue is the payload described in spec §6.1.
type ChangeValue struct {
	MessagingProduct string        `json:"messaging_product"`
	Metadata         ValueMetadata `json:"metadata"`
	Contacts         []WireContact `json:"contacts,omitempty"`
	Messages         []Message     `json:"messages,omitempty"`
	Statuses         []Status      `json:"statuses,omitempty"`
}

// ValueMetadata identifies which of our numbers this notification is for.
type ValueMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Status is a delivery/read receipt; the spec does not define a domain
// event for these so the normalizer skips them (they are not messages or
// interactions to process, only telemetry).
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// Message is one entry of value.messages[]. Only the sub-object matching
// Type is populated by the platform.
type Message struct {
	From        string           `json:"from"`
	ID          string           `json:"id"`
	Timestamp   string           `json:"timestamp"`
	Type        string           `json:"type"`
	Context     *WireContext     `json:"context,omitempty"`
	Text        *WireText        `json:"text,omitempty"`
	Image       *WireMedia       `json:"image,omitempty"`
	Audio       *WireMedia       `json:"audio,omitempty"`
	Video       *WireMedia       `json:"video,omitempty"`
	Document    *WireMedia       `json:"document,omitempty"`
	Sticker     *WireMedia       `json:"sticker,omitempty"`
	Location    *WireLocation    `json:"location,omitempty"`
	Contacts    []WireContact    `json:"contacts,omitempty"`
	Reaction    *WireReaction    `json:"reaction,omitempty"`
	Interactive *WireInteractive `json:"interactive,omitempty"`
	Button      *WireButtonClick `json:"button,omitempty"`
}

// WireContext identifies the message this one is a reply to.
type WireContext struct {
	ID string `json:"id"`
}

// WireText is the content shape for type=text.
type WireText struct {
	Body string `json:"body"`
}

// WireMedia is the content shape shared by image/audio/video/document/sticker.
type WireMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// WireLocation is the content shape for type=location.
type WireLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// WireContact is the content shape for type=contact (the platform's JSON
// field is plural "contacts" even for a single-element array).
type WireContact struct {
	Name    WireContactName     `json:"name"`
	Phones  []WireContactPhone  `json:"phones,omitempty"`
	WaID    string              `json:"wa_id,omitempty"`
	Profile *WireContactProfile `json:"profile,omitempty"`
}

// WireContactProfile appears on value.contacts[], distinct from the
// message-level shared-contact card.
type WireContactProfile struct {
	Name string `json:"name"`
}

// WireContactName is the display name of a shared contact card.
type WireContactName struct {
	FormattedName string `json:"formatted_name"`
}

// WireContactPhone is one phone number entry on a shared contact card.
type WireContactPhone struct {
	Phone string `json:"phone"`
}

// WireReaction is the content shape for type=reaction.
type WireReaction struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// WireInteractive is the content shape for type=interactive.
type WireInteractive struct {
	Type       string           `json:"type"`
	ButtonReply *WireButtonReply `json:"button_reply,omitempty"`
	ListReply   *WireListReply   `json:"list_reply,omitempty"`
}

// WireButtonReply is the selection made on an interactive button message.
type WireButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// WireListReply is the selection made on an interactive list message.
type WireListReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// WireButtonClick is the content shape for type=button: a template
// quick-reply click, distinct from an interactive message's button_reply.
type WireButtonClick struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}
