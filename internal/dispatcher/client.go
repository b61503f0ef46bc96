package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/jsoncodec"
)

// callOutcome classifies one platform call's HTTP result for the router.
type callOutcome int

const (
	callSuccess callOutcome = iota
	callDead                // 4xx except 429
	callRetry               // 429, 5xx, network error
)

// callResult is what GraphClient.Send returns after an HTTP round trip.
type callResult struct {
	Outcome    callOutcome
	StatusCode int
	RetryAfter time.Duration
	Body       []byte
	Err        error
}

// GraphClient issues outbound message calls to the WhatsApp Graph API,
// guarded by a circuit breaker that opens on sustained 5xx/network failure
// so the dispatcher stops hammering a downed platform and lets Retry
// outcomes accumulate in .retry instead of burning connections.
type GraphClient struct {
	cfg     *config.DispatcherConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// NewGraphClient builds a GraphClient bound to cfg's access token and phone
// number id.
func NewGraphClient(cfg *config.DispatcherConfig) *GraphClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "whatsapp-graph-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.ConsecutiveFailures >= 5
		},
	})
	return &GraphClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		breaker: breaker,
		baseURL: "https://graph.facebook.com",
	}
}

// endpoint returns the fully qualified Graph API messages URL (spec §6.1).
func (c *GraphClient) endpoint() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.cfg.APIVersion, c.cfg.PhoneNumberID)
}

// Send POSTs body to the platform's /messages endpoint and classifies the
// result per spec §4.5's per-call handling table.
func (c *GraphClient) Send(ctx context.Context, body graphMessageBody) callResult {
	raw, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, body)
	})
	if raw == nil {
		// Breaker refused the call outright (open or half-open probe
		// exhausted): no HTTP round trip happened at all.
		return callResult{Outcome: callRetry, Err: err}
	}
	result := raw.(callResult)
	result.Err = err
	return result
}

func (c *GraphClient) doRequest(ctx context.Context, body graphMessageBody) (callResult, error) {
	payload, err := jsoncodec.Marshal(body)
	if err != nil {
		return callResult{}, fmt.Errorf("dispatcher: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return callResult{}, fmt.Errorf("dispatcher: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Network failure: Retry, but don't trip the breaker's error return
		// path into a permanent failure classification — it already counts
		// toward ConsecutiveFailures via the non-nil error below.
		return callResult{Outcome: callRetry, Err: err}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return callResult{Outcome: callSuccess, StatusCode: resp.StatusCode, Body: respBody}, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return callResult{Outcome: callRetry, StatusCode: resp.StatusCode, RetryAfter: retryAfter, Body: respBody}, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return callResult{Outcome: callDead, StatusCode: resp.StatusCode, Body: respBody}, nil

	default:
		// 5xx: Retry, and report an error so the breaker's failure count
		// advances toward ReadyToTrip.
		return callResult{Outcome: callRetry, StatusCode: resp.StatusCode, Body: respBody}, fmt.Errorf("dispatcher: platform returned %d", resp.StatusCode)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		return time.Until(when)
	}
	return 0
}
