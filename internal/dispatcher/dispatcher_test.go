package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

type fakeSender struct {
	result callResult
}

func (f *fakeSender) Send(_ context.Context, _ graphMessageBody) callResult {
	return f.result
}

func newResponseReadyEnvelope(t *testing.T) envelope.Envelope {
	t.Helper()
	env, err := envelope.NewResponseReady(envelope.ResponseReady{
		OriginalMessageID: "wamid.1",
		ToPhone:           "+16505551234",
		ResponseType:      envelope.ResponseTypeText,
		Content:           envelope.ResponseContent{Text: &envelope.TextResponseContent{Message: "Hi"}},
		GeneratedAt:       time.Now().UTC(),
		Priority:          envelope.PriorityNormal,
	}, nil)
	require.NoError(t, err)
	return env
}

func TestHandle_Success_S3(t *testing.T) {
	d := &Dispatcher{client: &fakeSender{result: callResult{Outcome: callSuccess, StatusCode: 200}}, limiter: NewRateLimiter(1000, 10)}

	result := d.Handle(context.Background(), newResponseReadyEnvelope(t))
	assert.Equal(t, reliability.OutcomeSuccess, result.Outcome)
}

func TestHandle_4xx_BecomesDeadValidationError(t *testing.T) {
	d := &Dispatcher{client: &fakeSender{result: callResult{Outcome: callDead, StatusCode: 400}}, limiter: NewRateLimiter(1000, 10)}

	result := d.Handle(context.Background(), newResponseReadyEnvelope(t))
	assert.Equal(t, reliability.OutcomeDead, result.Outcome)
	assert.Equal(t, reliability.ReasonValidation, result.Reason)
}

func TestHandle_429_BecomesRetryAndDefersLimiter(t *testing.T) {
	limiter := NewRateLimiter(1000, 10)
	d := &Dispatcher{
		client:  &fakeSender{result: callResult{Outcome: callRetry, StatusCode: 429, RetryAfter: 50 * time.Millisecond}},
		limiter: limiter,
	}

	result := d.Handle(context.Background(), newResponseReadyEnvelope(t))
	assert.Equal(t, reliability.OutcomeRetry, result.Outcome)
	assert.Equal(t, reliability.ReasonExternalService, result.Reason)
	assert.True(t, limiter.deferUntil.After(time.Now()))
}

func TestHandle_5xx_BecomesRetry(t *testing.T) {
	d := &Dispatcher{client: &fakeSender{result: callResult{Outcome: callRetry, StatusCode: 500}}, limiter: NewRateLimiter(1000, 10)}

	result := d.Handle(context.Background(), newResponseReadyEnvelope(t))
	assert.Equal(t, reliability.OutcomeRetry, result.Outcome)
}

func TestHandle_MalformedEnvelope_BecomesDeadDecodeError(t *testing.T) {
	d := &Dispatcher{client: &fakeSender{}, limiter: NewRateLimiter(1000, 10)}

	env := envelope.Envelope{
		EventID:      "x",
		EventType:    envelope.EventTypeResponseReady,
		Version:      "1.0",
		AttemptCount: 1,
		MaxAttempts:  3,
		Data:         []byte("not json"),
	}

	result := d.Handle(context.Background(), env)
	assert.Equal(t, reliability.OutcomeDead, result.Outcome)
	assert.Equal(t, reliability.ReasonDecodeError, result.Reason)
}

func TestHandle_RateLimiterCancelled_BecomesRetry(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	require.NoError(t, limiter.Wait(context.Background())) // drain

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Dispatcher{client: &fakeSender{}, limiter: limiter}
	result := d.Handle(ctx, newResponseReadyEnvelope(t))
	assert.Equal(t, reliability.OutcomeRetry, result.Outcome)
}
