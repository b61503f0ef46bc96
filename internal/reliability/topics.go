// Package reliability implements the retry/dead-letter routing state
// machine that sits between a handler's processing outcome and the offset
// commit (spec §4.3).
package reliability

import (
	"strings"
	"time"
)

// Canonical topic names (spec §3.3). conversation.responses.retry and
// conversation.responses.dlq are not listed in the spec's topic table but
// are required by scenario S4 (dispatcher retry exhaustion transits
// conversation.responses → .retry → .dlq); we provision them the same way
// as the messages/interactions pair rather than leave S4 unsatisfiable.
const (
	TopicMessages          = "conversation.messages"
	TopicInteractions      = "conversation.interactions"
	TopicResponses         = "conversation.responses"
	TopicFailures          = "conversation.failures"
	TopicMessagesRetry     = "conversation.messages.retry"
	TopicInteractionsRetry = "conversation.interactions.retry"
	TopicResponsesRetry    = "conversation.responses.retry"
	TopicMessagesDLQ       = "conversation.messages.dlq"
	TopicInteractionsDLQ   = "conversation.interactions.dlq"
	TopicResponsesDLQ      = "conversation.responses.dlq"
	TopicSystemMetrics     = "system.metrics"
	TopicSystemHealth      = "system.health"

	retrySuffix = ".retry"
	dlqSuffix   = ".dlq"
)

// Topic describes one entry of the canonical topic set the bootstrap
// provisioner ensures exists (spec §3.3, §4.6).
type Topic struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	RetentionMS       int64
}

func days(n int) int64 {
	return int64(n) * 24 * time.Hour.Milliseconds()
}

// CanonicalTopics is the full topic set provisioned at bootstrap.
var CanonicalTopics = []Topic{
	{TopicMessages, 3, 1, days(7)},
	{TopicInteractions, 2, 1, days(7)},
	{TopicResponses, 2, 1, days(7)},
	{TopicFailures, 1, 1, days(30)},
	{TopicMessagesRetry, 2, 1, days(1)},
	{TopicInteractionsRetry, 1, 1, days(1)},
	{TopicResponsesRetry, 1, 1, days(1)},
	{TopicMessagesDLQ, 1, 1, days(90)},
	{TopicInteractionsDLQ, 1, 1, days(90)},
	{TopicResponsesDLQ, 1, 1, days(90)},
	{TopicSystemMetrics, 1, 1, days(7)},
	{TopicSystemHealth, 1, 1, days(1)},
}

// BaseTopic strips a .retry suffix, so a retry topic's own dead-letter
// destination resolves back to the original topic's .dlq, not a
// double-suffixed one.
func BaseTopic(topic string) string {
	return strings.TrimSuffix(topic, retrySuffix)
}

// RetryTopic returns the retry topic name for a base conversation topic.
func RetryTopic(base string) string {
	return BaseTopic(base) + retrySuffix
}

// DLQTopic returns the dead-letter topic name for a base conversation topic.
func DLQTopic(base string) string {
	return BaseTopic(base) + dlqSuffix
}

// IsRetryTopic reports whether topic is a .retry topic, i.e. whether a
// consumer reading it must apply the minimum delay of spec §9 before
// invoking the handler.
func IsRetryTopic(topic string) bool {
	return strings.HasSuffix(topic, retrySuffix)
}
