package envelope

import "time"

// MessageType discriminates the content union carried by a MessageReceived
// payload (spec §3.2).
type MessageType string

const (
	MessageTypeText     MessageType = "Text"
	MessageTypeImage    MessageType = "Image"
	MessageTypeAudio    MessageType = "Audio"
	MessageTypeVideo    MessageType = "Video"
	MessageTypeDocument MessageType = "Document"
	MessageTypeLocation MessageType = "Location"
	MessageTypeContact  MessageType = "Contact"
	MessageTypeSticker  MessageType = "Sticker"
)

// TextContent is the content shape for MessageTypeText.
type TextContent struct {
	Body string `json:"body"`
}

// MediaContent is the shared content shape for image/audio/video/document/
// sticker messages; only an identifier and metadata traverse the bus, per
// the spec's media pass-through decision (§9 Open Question).
type MediaContent struct {
	MediaID  string  `json:"media_id"`
	Caption  *string `json:"caption,omitempty"`
	MimeType string  `json:"mime_type"`
	Filename *string `json:"filename,omitempty"`
}

// LocationContent is the content shape for MessageTypeLocation.
type LocationContent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      *string `json:"name,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// ContactContent is the content shape for MessageTypeContact.
type ContactContent struct {
	Name        string  `json:"name"`
	PhoneNumber string  `json:"phone_number"`
	Email       *string `json:"email,omitempty"`
}

// MessageContent is a tagged union over MessageType: exactly one field is
// populated, matching the field named by the sibling MessageType.
type MessageContent struct {
	Text     *TextContent     `json:"Text,omitempty"`
	Image    *MediaContent    `json:"Image,omitempty"`
	Audio    *MediaContent    `json:"Audio,omitempty"`
	Video    *MediaContent    `json:"Video,omitempty"`
	Document *MediaContent    `json:"Document,omitempty"`
	Location *LocationContent `json:"Location,omitempty"`
	Contact  *ContactContent  `json:"Contact,omitempty"`
	Sticker  *MediaContent    `json:"Sticker,omitempty"`
}

// MessageReceivedMeta holds the optional provenance fields of a
// MessageReceived payload (e.g. the message this one replies to).
type MessageReceivedMeta struct {
	ContextMessageID string `json:"context_message_id,omitempty"`
}

// MessageReceived is the data payload for event_type=MessageReceived (§3.2).
type MessageReceived struct {
	MessageID   string              `json:"message_id"`
	FromPhone   string              `json:"from_phone"`
	MessageType MessageType         `json:"message_type"`
	Content     MessageContent      `json:"content"`
	ReceivedAt  time.Time           `json:"received_at"`
	Metadata    MessageReceivedMeta `json:"metadata"`
}

// InteractionType discriminates the selection union of an
// InteractionReceived payload.
type InteractionType string

const (
	InteractionTypeButtonReply InteractionType = "ButtonReply"
	InteractionTypeListReply   InteractionType = "ListReply"
)

// ButtonSelection is the selection shape for InteractionTypeButtonReply.
type ButtonSelection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListSelection is the selection shape for InteractionTypeListReply.
type ListSelection struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// InteractionSelection is a tagged union over InteractionType.
type InteractionSelection struct {
	Button *ButtonSelection `json:"Button,omitempty"`
	List   *ListSelection   `json:"List,omitempty"`
}

// InteractionReceived is the data payload for event_type=InteractionReceived.
type InteractionReceived struct {
	OriginalMessageID string               `json:"original_message_id"`
	FromPhone         string               `json:"from_phone"`
	InteractionType   InteractionType      `json:"interaction_type"`
	Selection         InteractionSelection `json:"selection"`
	ReceivedAt        time.Time            `json:"received_at"`
}

// ResponseType discriminates the content union of a ResponseReady payload.
type ResponseType string

const (
	ResponseTypeText        ResponseType = "Text"
	ResponseTypeInteractive ResponseType = "Interactive"
	ResponseTypeMedia       ResponseType = "Media"
	ResponseTypeTemplate    ResponseType = "Template"
)

// ResponsePriority is advisory; see spec §9 Open Question.
type ResponsePriority string

const (
	PriorityLow    ResponsePriority = "Low"
	PriorityNormal ResponsePriority = "Normal"
	PriorityUrgent ResponsePriority = "Urgent"
)

// TextResponseContent is the content shape for ResponseTypeText.
type TextResponseContent struct {
	Message    string `json:"message"`
	PreviewURL *bool  `json:"preview_url,omitempty"`
}

// MediaKind selects the Graph API sub-object (image/audio/video/document)
// used when dispatching a Media response.
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindAudio    MediaKind = "audio"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)

// MediaResponseContent is the content shape for ResponseTypeMedia.
type MediaResponseContent struct {
	Kind     MediaKind `json:"kind"`
	MediaID  *string   `json:"media_id,omitempty"`
	Link     *string   `json:"link,omitempty"`
	Caption  *string   `json:"caption,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Filename *string   `json:"filename,omitempty"`
}

// InteractiveButton is one quick-reply button of an interactive "button" message.
type InteractiveButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InteractiveListRow is one selectable row of an interactive "list" message.
type InteractiveListRow struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// InteractiveListSection groups rows under a header in an interactive list.
type InteractiveListSection struct {
	Title string               `json:"title"`
	Rows  []InteractiveListRow `json:"rows"`
}

// InteractiveAction carries the action payload for whichever interactive
// kind is selected (button, list, cta_url, location_request_message).
type InteractiveAction struct {
	Buttons        []InteractiveButton      `json:"buttons,omitempty"`
	ButtonText     *string                  `json:"button_text,omitempty"`
	Sections       []InteractiveListSection `json:"sections,omitempty"`
	CTAURL         *string                  `json:"url,omitempty"`
	CTADisplayText *string                  `json:"display_text,omitempty"`
}

// InteractiveResponseContent is the content shape for ResponseTypeInteractive.
type InteractiveResponseContent struct {
	Kind   string            `json:"kind"`
	Header *string           `json:"header,omitempty"`
	Body   string            `json:"body"`
	Footer *string           `json:"footer,omitempty"`
	Action InteractiveAction `json:"action"`
}

// TemplateParameter is one substitution value for a template component.
type TemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TemplateComponent is one section (header/body/button) of a template.
type TemplateComponent struct {
	Type       string              `json:"type"`
	Parameters []TemplateParameter `json:"parameters,omitempty"`
}

// TemplateResponseContent is the content shape for ResponseTypeTemplate.
type TemplateResponseContent struct {
	Name       string              `json:"name"`
	Language   string              `json:"language"`
	Components []TemplateComponent `json:"components,omitempty"`
}

// ResponseContent is a tagged union over ResponseType.
type ResponseContent struct {
	Text        *TextResponseContent        `json:"Text,omitempty"`
	Media       *MediaResponseContent       `json:"Media,omitempty"`
	Interactive *InteractiveResponseContent `json:"Interactive,omitempty"`
	Template    *TemplateResponseContent    `json:"Template,omitempty"`
}

// ResponseReady is the data payload for event_type=ResponseReady (§3.2).
type ResponseReady struct {
	OriginalMessageID string           `json:"original_message_id"`
	ToPhone           string           `json:"to_phone"`
	ResponseType      ResponseType     `json:"response_type"`
	Content           ResponseContent  `json:"content"`
	GeneratedAt       time.Time        `json:"generated_at"`
	Priority          ResponsePriority `json:"priority"`
}

// FailureType classifies why a message could not be processed to
// completion; identical to the error taxonomy in spec §7.
type FailureType string

const (
	FailureTypeSerializationError   FailureType = "SerializationError"
	FailureTypeProcessingTimeout    FailureType = "ProcessingTimeout"
	FailureTypeExternalServiceError FailureType = "ExternalServiceError"
	FailureTypeValidationError      FailureType = "ValidationError"
	FailureTypeUnknownError         FailureType = "UnknownError"
)

// MessageFailed is the data payload for event_type=MessageFailed (§3.2); the
// single observable end-state for a terminally failed message (spec §7).
type MessageFailed struct {
	MessageID    string      `json:"message_id"`
	Phone        string      `json:"phone"`
	FailureType  FailureType `json:"failure_type"`
	ErrorDetails string      `json:"error_details"`
	AttemptCount uint        `json:"attempt_count"`
	FailedAt     time.Time   `json:"failed_at"`
}
