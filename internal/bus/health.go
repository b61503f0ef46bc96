package bus

import (
	"time"

	"github.com/IBM/sarama"
)

// BrokerStatus is the health signal polled by a service's outer process
// health endpoint (spec §4.2, §6.4).
type BrokerStatus struct {
	Reachable bool      `json:"broker_reachable"`
	Brokers   int       `json:"broker_count"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Health reports whether the configured brokers are reachable by listing
// them through a short-lived cluster admin connection.
func (b *Bus) Health() BrokerStatus {
	status := BrokerStatus{CheckedAt: time.Now().UTC()}

	adminCfg := sarama.NewConfig()
	adminCfg.Net.DialTimeout = 3 * time.Second

	admin, err := AdminFactory(b.cfg.BootstrapServers, adminCfg)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer admin.Close()

	brokers, _, err := admin.DescribeCluster()
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Reachable = true
	status.Brokers = len(brokers)
	return status
}
