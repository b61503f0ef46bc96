// Package config loads the environment-driven configuration for each
// eventspine service, grounded on protoflow's Config.Validate/String idiom.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// KafkaConfig groups the bus settings shared by every service (§6.3).
type KafkaConfig struct {
	BootstrapServers  []string `env:"KAFKA_BOOTSTRAP_SERVERS" envSeparator:","`
	ConsumerGroupID   string   `env:"KAFKA_CONSUMER_GROUP_ID"`
	TimeoutMS         int      `env:"KAFKA_TIMEOUT_MS" envDefault:"10000"`
	SecurityProtocol  string   `env:"KAFKA_SECURITY_PROTOCOL" envDefault:"PLAINTEXT"`
}

// LoadKafkaConfig parses KafkaConfig from the process environment.
func LoadKafkaConfig() (KafkaConfig, error) {
	var cfg KafkaConfig
	if err := env.Parse(&cfg); err != nil {
		return KafkaConfig{}, fmt.Errorf("config: parse kafka env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the Kafka settings required by every transport are present.
func (c KafkaConfig) Validate() error {
	var errs []error
	if len(c.BootstrapServers) == 0 {
		errs = append(errs, errors.New("kafka: KAFKA_BOOTSTRAP_SERVERS is required"))
	}
	switch strings.ToUpper(c.SecurityProtocol) {
	case "PLAINTEXT", "SSL", "SASL_PLAINTEXT", "SASL_SSL":
	default:
		errs = append(errs, fmt.Errorf("kafka: unsupported KAFKA_SECURITY_PROTOCOL %q", c.SecurityProtocol))
	}
	if c.TimeoutMS <= 0 {
		errs = append(errs, errors.New("kafka: KAFKA_TIMEOUT_MS must be positive"))
	}
	return errors.Join(errs...)
}
