package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/whatsapp-eventspine/internal/bus"
	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
)

type fakePublisher struct {
	mu        sync.Mutex
	topics    []string
	err       error
	reachable bool
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ envelope.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePublisher) Health() bus.BrokerStatus {
	return bus.BrokerStatus{Reachable: f.reachable, Brokers: 1}
}

func testConfig() *config.WebhookConfig {
	return &config.WebhookConfig{
		Host:          "0.0.0.0",
		Port:          8080,
		VerifyToken:   "secret-token",
		APIVersion:    "v23.0",
		PhoneNumberID: "106540352242922",
		MaxFileSizeMB: 16,
	}
}

func testLogger() logging.ServiceLogger {
	return logging.NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleVerify_CorrectToken_S5(t *testing.T) {
	srv := NewServer(testConfig(), &fakePublisher{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=1234", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1234", rec.Body.String())
}

func TestHandleVerify_WrongToken(t *testing.T) {
	srv := NewServer(testConfig(), &fakePublisher{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1234", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleIngest_ValidPayload(t *testing.T) {
	pub := &fakePublisher{}
	srv := NewServer(testConfig(), pub, testLogger())

	body := `{"object":"whatsapp_business_account","entry":[{"id":"t","changes":[{"value":{"messaging_product":"whatsapp","messages":[{"from":"1234567890","id":"test123","timestamp":"1640995200","text":{"body":"Hello!"},"type":"text"}]},"field":"messages"}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, pub.topics, 1)
}

func TestHandleIngest_MalformedJSON(t *testing.T) {
	srv := NewServer(testConfig(), &fakePublisher{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIngest_WrongObject(t *testing.T) {
	srv := NewServer(testConfig(), &fakePublisher{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":"page","entry":[]}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIngest_OversizedBody_Boundary(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFileSizeMB = 0 // force a tiny byte-level cap so the test stays fast
	pub := &fakePublisher{}
	srv := NewServer(cfg, pub, testLogger())
	srv.maxBodyBytes = 10

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(strings.Repeat("a", 11)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthz_ReportsBrokerReachability(t *testing.T) {
	srv := NewServer(testConfig(), &fakePublisher{reachable: true}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleHealthz_ReportsUnreachableAs503(t *testing.T) {
	srv := NewServer(testConfig(), &fakePublisher{reachable: false}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleIngest_PublishFailure_Returns5xx(t *testing.T) {
	pub := &fakePublisher{err: assert.AnError}
	srv := NewServer(testConfig(), pub, testLogger())

	body := `{"object":"whatsapp_business_account","entry":[{"id":"t","changes":[{"value":{"messages":[{"from":"1","id":"m","timestamp":"1","text":{"body":"hi"},"type":"text"}]},"field":"messages"}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
