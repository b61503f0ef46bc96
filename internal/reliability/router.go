package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/drblury/whatsapp-eventspine/internal/envelope"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
)

// RetryBackoff is the attempt-indexed minimum delay a retry topic consumer
// applies before invoking the handler again (spec §9): 5s, 30s, then 300s
// for every attempt beyond that.
var RetryBackoff = []time.Duration{5 * time.Second, 30 * time.Second, 300 * time.Second}

// DelayForAttempt returns the minimum delay to apply before handling a
// record whose envelope carries the given attempt count.
func DelayForAttempt(attempt uint) time.Duration {
	if attempt == 0 {
		return 0
	}
	idx := int(attempt) - 1
	if idx >= len(RetryBackoff) {
		idx = len(RetryBackoff) - 1
	}
	return RetryBackoff[idx]
}

// Publisher is the narrow slice of the bus client the router needs: the
// ability to publish an already-built envelope to a named topic. Defined
// here (rather than imported from the bus package) so reliability has no
// dependency on the broker transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, env envelope.Envelope) error
}

// Router implements the retry/DLQ state machine of spec §4.3.
type Router struct {
	publisher Publisher
	logger    logging.ServiceLogger
	metrics   *Metrics
}

// NewRouter builds a Router. logger and metrics may be nil.
func NewRouter(publisher Publisher, logger logging.ServiceLogger, metrics *Metrics) *Router {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Router{publisher: publisher, logger: logger, metrics: metrics}
}

// Route applies the outcome of processing env (read from sourceTopic) and
// returns once the router's own publishes (retry/dlq/failure) are durable.
// The caller commits the source offset only after Route returns nil.
func (r *Router) Route(ctx context.Context, sourceTopic string, env envelope.Envelope, result ProcessingResult) error {
	switch result.Outcome {
	case OutcomeSuccess:
		r.metrics.ObserveSuccess(sourceTopic)
		return nil

	case OutcomeRetry:
		if env.AttemptCount < env.MaxAttempts {
			return r.routeRetry(ctx, sourceTopic, env)
		}
		return r.routeDead(ctx, sourceTopic, env, result.Reason)

	case OutcomeDead:
		return r.routeDead(ctx, sourceTopic, env, result.Reason)

	default:
		return fmt.Errorf("reliability: unknown outcome %v", result.Outcome)
	}
}

func (r *Router) routeRetry(ctx context.Context, sourceTopic string, env envelope.Envelope) error {
	next := env.WithAttempt(env.AttemptCount + 1)
	retryTopic := RetryTopic(BaseTopic(sourceTopic))

	if err := r.publisher.Publish(ctx, retryTopic, next); err != nil {
		return fmt.Errorf("reliability: publish retry to %s: %w", retryTopic, err)
	}
	r.metrics.ObserveRetry(sourceTopic)
	r.logf("retrying envelope", logging.Fields{
		"event_id":      env.EventID,
		"source_topic":  sourceTopic,
		"retry_topic":   retryTopic,
		"attempt_count": next.AttemptCount,
	})
	return nil
}

func (r *Router) routeDead(ctx context.Context, sourceTopic string, env envelope.Envelope, reason Reason) error {
	dlqTopic := DLQTopic(BaseTopic(sourceTopic))

	if err := r.publisher.Publish(ctx, dlqTopic, env); err != nil {
		return fmt.Errorf("reliability: publish dead-letter to %s: %w", dlqTopic, err)
	}
	r.metrics.ObserveDead(sourceTopic)
	r.logf("dead-lettering envelope", logging.Fields{
		"event_id":      env.EventID,
		"source_topic":  sourceTopic,
		"dlq_topic":     dlqTopic,
		"attempt_count": env.AttemptCount,
		"reason":        string(reason),
	})

	messageID, phone, ok := identity(env)
	if !ok {
		return nil
	}

	failed := envelope.MessageFailed{
		MessageID:    messageID,
		Phone:        phone,
		FailureType:  reason.FailureType(),
		ErrorDetails: fmt.Sprintf("routed to dead letter from %s: %s", sourceTopic, reason),
		AttemptCount: env.AttemptCount,
		FailedAt:     time.Now().UTC(),
	}
	failedEnv, err := envelope.NewMessageFailed(failed, env.Metadata)
	if err != nil {
		return fmt.Errorf("reliability: build MessageFailed: %w", err)
	}
	if err := r.publisher.Publish(ctx, TopicFailures, failedEnv); err != nil {
		return fmt.Errorf("reliability: publish failure record: %w", err)
	}
	return nil
}

// ObserveRetryDelay records the delay a retry-topic consumer applied before
// invoking the handler again (spec §9: backoff schedule observability).
func (r *Router) ObserveRetryDelay(sourceTopic string, delay time.Duration) {
	r.metrics.ObserveRetryDelaySeconds(sourceTopic, delay.Seconds())
}

func (r *Router) logf(msg string, fields logging.Fields) {
	if r.logger == nil {
		return
	}
	r.logger.Info(msg, fields)
}

// identity extracts the (message_id, phone) pair used to key a MessageFailed
// record, per spec §4.3 ("if event has message_id+phone: also publish
// MessageFailed"). Returns ok=false for variants that carry neither (there
// are none among the four today, but MessageFailed itself is not re-wrapped).
func identity(env envelope.Envelope) (messageID, phone string, ok bool) {
	switch env.EventType {
	case envelope.EventTypeMessageReceived:
		d, err := env.DecodeMessageReceived()
		if err != nil {
			return "", "", false
		}
		return d.MessageID, d.FromPhone, true

	case envelope.EventTypeInteractionReceived:
		d, err := env.DecodeInteractionReceived()
		if err != nil {
			return "", "", false
		}
		return d.OriginalMessageID, d.FromPhone, true

	case envelope.EventTypeResponseReady:
		d, err := env.DecodeResponseReady()
		if err != nil {
			return "", "", false
		}
		return d.OriginalMessageID, d.ToPhone, true

	default:
		return "", "", false
	}
}
