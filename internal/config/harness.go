package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// HarnessConfig configures the test harness (§4.7): either mode prints or
// injects synthetic traffic for exercising the properties in §8.
type HarnessConfig struct {
	Kafka KafkaConfig

	Mode      string `env:"HARNESS_MODE" envDefault:"consume"` // "consume" or "produce"
	FromPhone string `env:"HARNESS_FROM_PHONE" envDefault:"+15555550100"`
	Body      string `env:"HARNESS_BODY" envDefault:"hello from the test harness"`
}

// LoadHarnessConfig parses HarnessConfig from the process environment.
func LoadHarnessConfig() (*HarnessConfig, error) {
	var cfg HarnessConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse harness env: %w", err)
	}
	kafka, err := LoadKafkaConfig()
	if err != nil {
		return nil, err
	}
	cfg.Kafka = kafka
	return &cfg, cfg.Validate()
}

func (c HarnessConfig) Validate() error {
	var errs []error
	if c.Mode != "consume" && c.Mode != "produce" {
		errs = append(errs, fmt.Errorf("harness: unsupported HARNESS_MODE %q", c.Mode))
	}
	errs = append(errs, c.Kafka.Validate())
	return errors.Join(errs...)
}
