// Package bootstrap implements the one-shot topic provisioner of spec §4.6:
// poll broker readiness, then create every canonical topic that is missing
// with its prescribed partitions, replication factor, and retention.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/drblury/whatsapp-eventspine/internal/config"
	"github.com/drblury/whatsapp-eventspine/internal/logging"
	"github.com/drblury/whatsapp-eventspine/internal/reliability"
)

// AdminFactory allows tests to substitute a fake cluster admin, mirroring
// the override hook in internal/bus.
var AdminFactory = func(brokers []string, cfg *sarama.Config) (sarama.ClusterAdmin, error) {
	return sarama.NewClusterAdmin(brokers, cfg)
}

// Provisioner creates the canonical topic set against a broker, waiting out
// a bounded readiness window before giving up.
type Provisioner struct {
	cfg    *config.BootstrapConfig
	logger logging.ServiceLogger
}

// New builds a Provisioner from a BootstrapConfig.
func New(cfg *config.BootstrapConfig, logger logging.ServiceLogger) *Provisioner {
	return &Provisioner{cfg: cfg, logger: logger}
}

// Run polls broker readiness up to cfg.ReadyTimeout, then creates every
// topic in reliability.CanonicalTopics that does not already exist. It
// leaves any topic that is already present untouched (spec §4.6).
func (p *Provisioner) Run(ctx context.Context) error {
	admin, err := p.waitForBroker(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: broker did not become ready: %w", err)
	}
	defer admin.Close()

	existing, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("bootstrap: list topics: %w", err)
	}

	for _, topic := range reliability.CanonicalTopics {
		if _, ok := existing[topic.Name]; ok {
			p.logf("topic already present, leaving untouched", logging.Fields{"topic": topic.Name})
			continue
		}

		retentionMS := fmt.Sprintf("%d", topic.RetentionMS)
		detail := sarama.TopicDetail{
			NumPartitions:     int32(topic.Partitions),
			ReplicationFactor: int16(topic.ReplicationFactor),
			ConfigEntries: map[string]*string{
				"retention.ms": &retentionMS,
			},
		}
		if err := admin.CreateTopic(topic.Name, &detail, false); err != nil {
			return fmt.Errorf("bootstrap: create topic %s: %w", topic.Name, err)
		}
		p.logf("created topic", logging.Fields{
			"topic":              topic.Name,
			"partitions":         topic.Partitions,
			"replication_factor": topic.ReplicationFactor,
		})
	}

	return nil
}

// waitForBroker retries DescribeCluster on a bounded backoff until the
// broker responds or cfg.ReadyTimeout elapses (spec §4.6: "polls broker
// readiness ... exits non-zero on broker unavailability after a bounded
// retry window").
func (p *Provisioner) waitForBroker(ctx context.Context) (sarama.ClusterAdmin, error) {
	deadline := time.Now().Add(p.cfg.ReadyTimeout)
	sc := sarama.NewConfig()
	sc.Admin.Timeout = 5 * time.Second

	var lastErr error
	for {
		admin, err := AdminFactory(p.cfg.Kafka.BootstrapServers, sc)
		if err == nil {
			if _, _, describeErr := admin.DescribeCluster(); describeErr == nil {
				return admin, nil
			} else {
				lastErr = describeErr
				_ = admin.Close()
			}
		} else {
			lastErr = err
		}

		if time.Now().After(deadline) {
			return nil, lastErr
		}

		timer := time.NewTimer(p.cfg.RetryBackoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func (p *Provisioner) logf(msg string, fields logging.Fields) {
	if p.logger == nil {
		return
	}
	p.logger.Info(msg, fields)
}
