package dispatcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
)

func testDispatcherConfig() *config.DispatcherConfig {
	return &config.DispatcherConfig{
		AccessToken:        "token",
		APIVersion:         "v23.0",
		PhoneNumberID:      "106540352242922",
		RateLimitPerSecond: 80,
		RateLimitBurst:     20,
		Parallelism:        4,
	}
}

func testClientAgainst(srv *httptest.Server) *GraphClient {
	c := NewGraphClient(testDispatcherConfig())
	c.baseURL = srv.URL
	return c
}

func testTextBody(t *testing.T) graphMessageBody {
	t.Helper()
	body, err := buildBody(envelope.ResponseReady{
		ToPhone:      "+16505551234",
		ResponseType: envelope.ResponseTypeText,
		Content:      envelope.ResponseContent{Text: &envelope.TextResponseContent{Message: "Hi"}},
	})
	require.NoError(t, err)
	return body
}

func TestGraphClient_2xx_IsSuccess_S3(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "/v23.0/106540352242922/messages", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.out"}]}`))
	}))
	defer srv.Close()

	c := testClientAgainst(srv)
	result := c.Send(context.Background(), testTextBody(t))
	require.Equal(t, callSuccess, result.Outcome)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestGraphClient_429_ReturnsRetryWithRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClientAgainst(srv)
	result := c.Send(context.Background(), testTextBody(t))
	require.Equal(t, callRetry, result.Outcome)
	assert.Equal(t, int64(2), result.RetryAfter.Milliseconds()/1000)
}

func TestGraphClient_400_ReturnsDead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClientAgainst(srv)
	result := c.Send(context.Background(), testTextBody(t))
	require.Equal(t, callDead, result.Outcome)
}

func TestGraphClient_500_ReturnsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClientAgainst(srv)
	result := c.Send(context.Background(), testTextBody(t))
	require.Equal(t, callRetry, result.Outcome)
}

func TestParseRetryAfter_NumericSeconds(t *testing.T) {
	assert.Equal(t, 5.0, parseRetryAfter("5").Seconds())
}

func TestParseRetryAfter_Empty(t *testing.T) {
	assert.Equal(t, 0.0, parseRetryAfter("").Seconds())
}
