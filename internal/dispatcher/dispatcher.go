package dispatcher

import (
	"context"

	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

// ConsumerGroup is the consumer group dispatcher instances share (spec §4.5).
const ConsumerGroup = "whatsapp-client"

// sender is the narrow slice of GraphClient the Dispatcher needs, so tests
// can substitute a fake without standing up an HTTP server.
type sender interface {
	Send(ctx context.Context, body graphMessageBody) callResult
}

// Dispatcher consumes conversation.responses and turns each ResponseReady
// into a Graph API call, gated by a token bucket and reporting the outcome
// to the Reliability Router (spec §4.5).
type Dispatcher struct {
	client  sender
	limiter *RateLimiter
	logger  logging.ServiceLogger
}

// New builds a Dispatcher from a DispatcherConfig.
func New(cfg *config.DispatcherConfig, logger logging.ServiceLogger) *Dispatcher {
	return &Dispatcher{
		client:  NewGraphClient(cfg),
		limiter: NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		logger:  logger,
	}
}

// Handle implements bus.Handler: decode ResponseReady, wait for a rate
// limit token, call the platform, and classify the result (spec §4.5's
// per-call handling table).
func (d *Dispatcher) Handle(ctx context.Context, env envelope.Envelope) reliability.ProcessingResult {
	resp, err := env.DecodeResponseReady()
	if err != nil {
		return reliability.Dead(reliability.ReasonDecodeError)
	}

	body, err := buildBody(resp)
	if err != nil {
		return reliability.Dead(reliability.ReasonValidation)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return reliability.Retry(reliability.ReasonExternalService)
	}

	result := d.client.Send(ctx, body)

	switch result.Outcome {
	case callSuccess:
		d.logf("dispatched response", logging.Fields{
			"event_id": env.EventID,
			"to_phone": resp.ToPhone,
			"type":     string(resp.ResponseType),
			"status":   result.StatusCode,
		})
		return reliability.Success()

	case callDead:
		d.logf("platform rejected response", logging.Fields{
			"event_id": env.EventID,
			"to_phone": resp.ToPhone,
			"status":   result.StatusCode,
			"body":     string(result.Body),
		})
		return reliability.Dead(reliability.ReasonValidation)

	default: // callRetry
		if result.RetryAfter > 0 {
			d.limiter.DeferRefill(result.RetryAfter)
		}
		d.logf("platform call will be retried", logging.Fields{
			"event_id": env.EventID,
			"to_phone": resp.ToPhone,
			"status":   result.StatusCode,
		})
		return reliability.Retry(reliability.ReasonExternalService)
	}
}

func (d *Dispatcher) logf(msg string, fields logging.Fields) {
	if d.logger == nil {
		return
	}
	d.logger.Info(msg, fields)
}
