// Package bus implements the typed publish/subscribe facade over Kafka:
// partition key selection by phone number, consumer-group subscription,
// manual offset commit gated on the Reliability Router's decision, and a
// broker health check (spec §4.2).
package bus

// AutoOffsetReset selects where a new consumer group starts reading a
// partition it has no committed offset for.
type AutoOffsetReset string

const (
	OffsetEarliest AutoOffsetReset = "earliest"
	OffsetLatest   AutoOffsetReset = "latest"
)

// SubscriptionConfig enumerates the knobs a subscribe call exposes (spec
// §4.2's subscription config table).
type SubscriptionConfig struct {
	ConsumerGroup     string
	AutoOffsetReset   AutoOffsetReset
	SessionTimeoutMS  int
	MaxPollIntervalMS int
	FetchMinBytes     int32
	FetchMaxWaitMS    int32
}

// DefaultSubscriptionConfig returns sane defaults for a conversation topic
// consumer, overridden by callers that need a different consumer group or
// offset reset policy (e.g. the test harness subscribes from earliest with
// a unique group id).
func DefaultSubscriptionConfig(consumerGroup string) SubscriptionConfig {
	return SubscriptionConfig{
		ConsumerGroup:     consumerGroup,
		AutoOffsetReset:   OffsetLatest,
		SessionTimeoutMS:  10_000,
		MaxPollIntervalMS: 300_000,
		FetchMinBytes:     1,
		FetchMaxWaitMS:    500,
	}
}

// GracePeriodMS is half of MaxPollIntervalMS, the shutdown grace period
// handlers are given to finish in-flight work (spec §5).
func (c SubscriptionConfig) GracePeriodMS() int {
	return c.MaxPollIntervalMS / 2
}
