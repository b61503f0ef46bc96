package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/whatsapp-eventspine/internal/metadata"
)

func TestNewMessageReceived_RoundTrips(t *testing.T) {
	msg := MessageReceived{
		MessageID:   "wamid.123",
		FromPhone:   "15551234567",
		MessageType: MessageTypeText,
		Content:     MessageContent{Text: &TextContent{Body: "hi"}},
	}

	env, err := NewMessageReceived(msg, metadata.New("source", "webhook"))
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventTypeMessageReceived, env.EventType)
	assert.EqualValues(t, 1, env.AttemptCount)
	assert.EqualValues(t, DefaultMaxAttempts, env.MaxAttempts)
	require.NoError(t, env.Validate())

	decoded, err := env.DecodeMessageReceived()
	require.NoError(t, err)
	assert.Equal(t, msg.MessageID, decoded.MessageID)
	assert.Equal(t, msg.FromPhone, decoded.FromPhone)
	require.NotNil(t, decoded.Content.Text)
	assert.Equal(t, "hi", decoded.Content.Text.Body)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	env, err := NewResponseReady(ResponseReady{
		OriginalMessageID: "wamid.123",
		ToPhone:           "15551234567",
		ResponseType:      ResponseTypeText,
		Content:           ResponseContent{Text: &TextResponseContent{Message: "thanks"}},
	}, nil)
	require.NoError(t, err)

	raw, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, env.EventID, decoded.EventID)
	assert.Equal(t, env.EventType, decoded.EventType)
	assert.Equal(t, env.AttemptCount, decoded.AttemptCount)

	payload, err := decoded.DecodeResponseReady()
	require.NoError(t, err)
	require.NotNil(t, payload.Content.Text)
	assert.Equal(t, "thanks", payload.Content.Text.Message)
}

func TestDecode_UnknownEventType(t *testing.T) {
	_, err := Decode([]byte(`{"event_id":"x","event_type":"NotAType","version":"1.0"}`))
	require.Error(t, err)

	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	require.Error(t, err)

	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
}

func TestWithAttempt_PreservesEventID(t *testing.T) {
	env, err := NewMessageFailed(MessageFailed{
		MessageID:    "wamid.1",
		Phone:        "15551234567",
		FailureType:  FailureTypeExternalServiceError,
		ErrorDetails: "timeout",
		AttemptCount: 1,
	}, nil)
	require.NoError(t, err)

	next := env.WithAttempt(2)
	assert.Equal(t, env.EventID, next.EventID)
	assert.EqualValues(t, 2, next.AttemptCount)
	assert.False(t, env.Exhausted())
}

func TestExhausted(t *testing.T) {
	env, err := NewMessageReceived(MessageReceived{MessageID: "m", FromPhone: "p", MessageType: MessageTypeText}, nil)
	require.NoError(t, err)

	env = env.WithAttempt(env.MaxAttempts)
	assert.True(t, env.Exhausted())
}

func TestNew_RejectsUnknownEventType(t *testing.T) {
	_, err := New("NotAType", "1.0", struct{}{}, nil)
	require.Error(t, err)
}

func TestValidate_RejectsMissingFields(t *testing.T) {
	env := Envelope{}
	require.Error(t, env.Validate())
}
