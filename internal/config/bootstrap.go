package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// BootstrapConfig configures the one-shot topic provisioner (§4.6).
type BootstrapConfig struct {
	Kafka KafkaConfig

	ReadyTimeout time.Duration `env:"BOOTSTRAP_READY_TIMEOUT" envDefault:"60s"`
	RetryBackoff time.Duration `env:"BOOTSTRAP_RETRY_BACKOFF" envDefault:"2s"`
}

// LoadBootstrapConfig parses BootstrapConfig from the process environment.
func LoadBootstrapConfig() (*BootstrapConfig, error) {
	var cfg BootstrapConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse bootstrap env: %w", err)
	}
	kafka, err := LoadKafkaConfig()
	if err != nil {
		return nil, err
	}
	cfg.Kafka = kafka
	return &cfg, cfg.Validate()
}

func (c BootstrapConfig) Validate() error {
	return c.Kafka.Validate()
}
